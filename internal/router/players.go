package router

import (
	"net/http"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
)

func (d *Deps) handleMatchHistory(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUint64(r, "account_id")
	if err != nil {
		writeError(w, d.Logger, errBadAccountID)
		return
	}

	protected, err := d.Privacy.IsProtected(r.Context(), int64(accountID))
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	if protected {
		writeError(w, d.Logger, apierr.Forbidden("protected user", nil))
		return
	}

	forceRefetch := queryBool(r, "force_refetch")
	onlyStoredHistory := queryBool(r, "only_stored_history")

	history, err := d.Analytics.MatchHistory(r.Context(), uint32(accountID), forceRefetch, onlyStoredHistory)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, history)
}

func (d *Deps) handleMMR(w http.ResponseWriter, r *http.Request) {
	accountIDs := queryUint32List(r, "account_ids")
	if len(accountIDs) == 0 {
		writeError(w, d.Logger, apierr.BadRequest("account_ids is required", nil))
		return
	}

	filtered := make([]int64, len(accountIDs))
	for i, id := range accountIDs {
		filtered[i] = int64(id)
	}
	allowed, err := d.Privacy.Filter(r.Context(), filtered)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	accountIDs = make([]uint32, len(allowed))
	for i, id := range allowed {
		accountIDs[i] = uint32(id)
	}

	if heroID := queryUint8Ptr(r, "hero_id"); heroID != nil {
		entries, err := d.Analytics.HeroMMR(r.Context(), accountIDs, *heroID)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeOK(w, entries)
		return
	}

	entries, err := d.Analytics.MMR(r.Context(), accountIDs)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, entries)
}

func (d *Deps) handleOptOut(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUint64(r, "account_id")
	if err != nil {
		writeError(w, d.Logger, errBadAccountID)
		return
	}
	if err := d.Privacy.OptOut(r.Context(), int64(accountID)); err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, map[string]string{"status": "success"})
}

func (d *Deps) handleOptIn(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUint64(r, "account_id")
	if err != nil {
		writeError(w, d.Logger, errBadAccountID)
		return
	}
	if err := d.Privacy.OptIn(r.Context(), int64(accountID)); err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, map[string]string{"status": "success"})
}
