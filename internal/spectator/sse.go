package spectator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/deadlock-api/gatekeeper/internal/protocol/demoparser"
	"github.com/deadlock-api/gatekeeper/internal/telemetry"
)

// eventNames enumerates every SSE event this endpoint can emit; the
// initial "connected" event lists them so clients don't have to guess.
var eventNames = []string{"connected", "entity_update", "tick_end", "end"}

type sseEvent struct {
	Type   string         `json:"type"`
	Tick   uint32         `json:"tick,omitempty"`
	Entity *entityPayload `json:"entity,omitempty"`
	Events []string       `json:"events,omitempty"`
}

type entityPayload struct {
	EntityType string `json:"entity_type"`
	EntityID   uint64 `json:"entity_id"`
	Kind       string `json:"kind"`
}

func deltaKindName(k demoparser.DeltaKind) string {
	switch k {
	case demoparser.DeltaCreated:
		return "created"
	case demoparser.DeltaUpdated:
		return "updated"
	case demoparser.DeltaDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// flusher is the subset of http.Flusher sse writing needs.
type flusher interface {
	Flush()
}

// StreamEvents parses the match's live demo with demoparser and writes
// a server-sent event per entity delta (filtered to subscribedTypes,
// or every type if the set is empty) plus a tick_end marker per tick
// and a terminal end event. It returns once the demo ends, the parser
// errors, or ctx is canceled.
func (e *Engine) StreamEvents(ctx context.Context, matchID uint64, subscribedTypes map[string]bool, w http.ResponseWriter) error {
	f, _ := w.(flusher)

	writeEvent := func(ev sseEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("spectator: marshaling SSE event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		if f != nil {
			f.Flush()
		}
		return nil
	}

	if err := writeEvent(sseEvent{Type: "connected", Events: eventNames}); err != nil {
		return err
	}

	body, err := e.OpenDemoBody(ctx, matchID)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	telemetry.SpectatorSessionsActive.Inc()
	defer telemetry.SpectatorSessionsActive.Dec()

	events, errc := demoparser.Stream(ctx, body)
	for tick := range events {
		for _, d := range tick.Deltas {
			if len(subscribedTypes) > 0 && !subscribedTypes[d.EntityType] {
				continue
			}
			err := writeEvent(sseEvent{
				Type: "entity_update",
				Tick: tick.Tick,
				Entity: &entityPayload{
					EntityType: d.EntityType,
					EntityID:   d.EntityID,
					Kind:       deltaKindName(d.Kind),
				},
			})
			if err != nil {
				return err
			}
		}
		if err := writeEvent(sseEvent{Type: "tick_end", Tick: tick.Tick}); err != nil {
			return err
		}
	}

	if err := <-errc; err != nil && ctx.Err() == nil {
		return fmt.Errorf("spectator: demo parser error: %w", err)
	}

	return writeEvent(sseEvent{Type: "end"})
}
