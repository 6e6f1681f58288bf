package router

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
)

func (d *Deps) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	region, err := strconv.ParseInt(chi.URLParam(r, "region"), 10, 32)
	if err != nil {
		writeError(w, d.Logger, apierr.BadRequest("region must be an integer", nil))
		return
	}

	var heroID uint32
	if v := queryUint64Ptr(r, "hero_id"); v != nil {
		heroID = uint32(*v)
	}

	entries, err := d.Analytics.Leaderboard(r.Context(), int32(region), heroID)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, entries)
}
