package router

import (
	"net/http"
	"strings"
)

func (d *Deps) ensureSpectatable(r *http.Request, matchID uint64) error {
	if err := d.Spectator.EnsureLive(r.Context(), matchID); err != nil {
		return err
	}
	_, err := d.Spectator.EnsureSpectating(r.Context(), matchID)
	return err
}

func (d *Deps) handleDemoLive(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathUint64(r, "match_id")
	if err != nil {
		writeError(w, d.Logger, errBadMatchID)
		return
	}

	if err := d.ensureSpectatable(r, matchID); err != nil {
		writeError(w, d.Logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if err := d.Spectator.StreamRaw(r.Context(), matchID, w); err != nil {
		d.Logger.Error("router: streaming live demo failed", "error", err, "match_id", matchID)
	}
}

func (d *Deps) handleDemoEvents(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathUint64(r, "match_id")
	if err != nil {
		writeError(w, d.Logger, errBadMatchID)
		return
	}

	if err := d.ensureSpectatable(r, matchID); err != nil {
		writeError(w, d.Logger, err)
		return
	}

	subscribed := map[string]bool{}
	if raw := r.URL.Query().Get("subscribed_entities"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			subscribed[strings.TrimSpace(e)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := d.Spectator.StreamEvents(r.Context(), matchID, subscribed, w); err != nil {
		d.Logger.Error("router: streaming demo events failed", "error", err, "match_id", matchID)
	}
}
