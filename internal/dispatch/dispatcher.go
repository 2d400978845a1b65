// Package dispatch delivers canonical events to the analytics sink with
// per-event fault isolation.
package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dvloznov/storefront-analytics/internal/ga4"
	"github.com/dvloznov/storefront-analytics/internal/sink"
)

// Dispatcher wraps a sink so that a failing delivery can never abort the
// listener that triggered it or block any other event.
type Dispatcher struct {
	sink sink.Sink
	log  zerolog.Logger
}

// New creates a dispatcher for the given sink.
func New(s sink.Sink, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{sink: s, log: log}
}

// Dispatch sends one event to the sink. Errors and panics raised while
// sending are logged and fully swallowed: no retry, no buffering, no
// surfacing to the caller. The worst case is a single dropped event.
func (d *Dispatcher) Dispatch(ctx context.Context, evt ga4.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Interface("panic", r).
				Str("event", evt.Name).
				Msg("Sink panicked during dispatch")
		}
	}()

	if err := d.sink.Record(ctx, evt.Name, evt.Params); err != nil {
		d.log.Error().
			Err(err).
			Str("event", evt.Name).
			Msg("Failed to record event")
		return
	}

	d.log.Debug().Str("event", evt.Name).Msg("Event recorded")
}
