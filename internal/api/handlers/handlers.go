package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/storefront-analytics/internal/api/middleware"
	"github.com/dvloznov/storefront-analytics/internal/dispatch"
	"github.com/dvloznov/storefront-analytics/internal/events"
	"github.com/dvloznov/storefront-analytics/internal/ga4"
)

// PixelHandler receives storefront pixel events and relays each one through
// its mapping rule to the dispatcher. Delivery is synchronous and
// fire-and-forget; the response never depends on the sink.
type PixelHandler struct {
	rules      map[string]ga4.Rule
	dispatcher *dispatch.Dispatcher
	log        zerolog.Logger
}

// NewPixelHandler creates a pixel handler subscribed to the given rules.
func NewPixelHandler(rules map[string]ga4.Rule, d *dispatch.Dispatcher, log zerolog.Logger) *PixelHandler {
	return &PixelHandler{
		rules:      rules,
		dispatcher: d,
		log:        log,
	}
}

// HandleEvent handles POST /pixel/events
func (h *PixelHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var evt events.PixelEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid event body")
		return
	}
	if evt.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Event name is required")
		return
	}

	rule, ok := h.rules[evt.Name]
	if !ok {
		// Storefront pixels may emit event types this relay does not map
		// yet; accept and ignore so the pixel never sees an error.
		h.log.Debug().Str("event_name", evt.Name).Msg("No mapping rule for event, ignoring")
		middleware.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}

	mapped, err := rule(&evt)
	if err != nil {
		h.log.Error().Err(err).Str("event_name", evt.Name).Msg("Failed to map event")
		middleware.WriteError(w, http.StatusBadRequest, "Malformed event data")
		return
	}

	h.dispatcher.Dispatch(r.Context(), mapped)

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"event":  mapped.Name,
	})
}
