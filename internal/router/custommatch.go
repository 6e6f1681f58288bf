package router

import "net/http"

func (d *Deps) handleCustomMatchCreate(w http.ResponseWriter, r *http.Request) {
	party, err := d.CustomMatch.Create(r.Context())
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, map[string]any{
		"party_id":     party.PartyID,
		"party_code":   party.PartyCode,
		"bot_username": party.BotUsername,
		"account_id":   party.AccountID,
	})
}

func (d *Deps) handleCustomMatchLeave(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathUint64(r, "party_id")
	if err != nil {
		writeError(w, d.Logger, errBadPartyID)
		return
	}
	if err := d.CustomMatch.Leave(r.Context(), partyID); err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, map[string]string{"status": "success"})
}

func (d *Deps) handleCustomMatchReady(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathUint64(r, "party_id")
	if err != nil {
		writeError(w, d.Logger, errBadPartyID)
		return
	}
	if err := d.CustomMatch.Ready(r.Context(), partyID); err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, map[string]string{"status": "success"})
}

func (d *Deps) handleCustomMatchStart(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathUint64(r, "party_id")
	if err != nil {
		writeError(w, d.Logger, errBadPartyID)
		return
	}
	if err := d.CustomMatch.StartMatch(r.Context(), partyID); err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, map[string]string{"status": "success"})
}

func (d *Deps) handleCustomMatchID(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathUint64(r, "party_id")
	if err != nil {
		writeError(w, d.Logger, errBadPartyID)
		return
	}
	matchID, err := d.CustomMatch.MatchID(r.Context(), partyID)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, map[string]uint64{"match_id": matchID})
}
