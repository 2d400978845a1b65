// Package sink defines the outbound analytics sink contract.
package sink

import "context"

// Sink delivers canonical analytics events to a downstream endpoint.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Init prepares the sink for recording. It is idempotent and is
	// called once by the host at process start, never per event.
	Init(ctx context.Context) error

	// Record sends one named event payload.
	Record(ctx context.Context, eventName string, params map[string]any) error
}
