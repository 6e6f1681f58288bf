package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/deadlock-api/gatekeeper/internal/apierr"
	"github.com/deadlock-api/gatekeeper/internal/artifact"
)

// defaultRecentWindow bounds how far back the recently-fetched listing looks.
const defaultRecentWindow = 30 * time.Minute

func (d *Deps) handleSalts(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathUint64(r, "match_id")
	if err != nil {
		writeError(w, d.Logger, errBadMatchID)
		return
	}
	needsDemo := queryBool(r, "needs_demo")

	salts, err := d.Artifact.ResolveSalts(r.Context(), requestIdentity(r), matchID, needsDemo)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}

	resp := map[string]any{
		"match_id":      salts.MatchID,
		"cluster_id":    salts.ClusterID,
		"metadata_salt": salts.MetadataSalt,
		"replay_salt":   salts.ReplaySalt,
		"metadata_url":  salts.MetadataURL(),
	}
	if salts.HasReplaySalt() {
		resp["demo_url"] = salts.DemoURL()
	}
	writeOK(w, resp)
}

func (d *Deps) handleMetadataRaw(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathUint64(r, "match_id")
	if err != nil {
		writeError(w, d.Logger, errBadMatchID)
		return
	}

	data, err := d.Artifact.GetMetadataRaw(r.Context(), requestIdentity(r), matchID)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-bzip2")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (d *Deps) handleMetadataDecoded(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathUint64(r, "match_id")
	if err != nil {
		writeError(w, d.Logger, errBadMatchID)
		return
	}

	meta, err := d.Artifact.GetMetadataDecoded(r.Context(), requestIdentity(r), matchID)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, meta)
}

// ingestRowRequest mirrors the wire shape of a single POST /matches/salts row.
type ingestRowRequest struct {
	MatchID      uint64 `json:"match_id"`
	ClusterID    uint32 `json:"cluster_id"`
	MetadataSalt uint64 `json:"metadata_salt"`
	ReplaySalt   uint64 `json:"replay_salt"`
	Username     string `json:"username"`
}

func (d *Deps) handleIngestSalts(w http.ResponseWriter, r *http.Request) {
	var rows []ingestRowRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&rows); err != nil {
		writeError(w, d.Logger, apierr.BadRequest("invalid JSON body", err))
		return
	}
	if len(rows) == 0 {
		writeError(w, d.Logger, apierr.BadRequest("at least one row is required", nil))
		return
	}

	hasInternalSecret := d.InternalKey != "" && r.Header.Get("X-Internal-Key") == d.InternalKey

	in := make([]artifact.IngestRow, len(rows))
	for i, row := range rows {
		in[i] = artifact.IngestRow{
			MatchID:      row.MatchID,
			ClusterID:    row.ClusterID,
			MetadataSalt: row.MetadataSalt,
			ReplaySalt:   row.ReplaySalt,
			Username:     row.Username,
		}
	}

	if err := d.Artifact.IngestSalts(r.Context(), in, hasInternalSecret); err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, map[string]string{"status": "success"})
}

func (d *Deps) handleBulkMetadata(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MatchIDs []uint64 `json:"match_ids"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, d.Logger, apierr.BadRequest("invalid JSON body", err))
		return
	}

	results := d.Artifact.ResolveBulk(r.Context(), requestIdentity(r), body.MatchIDs)
	out := make([]map[string]any, len(results))
	for i, res := range results {
		entry := map[string]any{"match_id": res.MatchID, "success": res.Error == nil}
		if res.Error != nil {
			entry["error"] = res.Error.Error()
		}
		out[i] = entry
	}
	writeOK(w, out)
}

func (d *Deps) handleRecentlyFetched(w http.ResponseWriter, r *http.Request) {
	ids := d.Artifact.RecentlyFetched(defaultRecentWindow)
	writeOK(w, map[string]any{"match_ids": ids})
}

func (d *Deps) handleActiveMatches(w http.ResponseWriter, r *http.Request) {
	accountID := uint32(0)
	if v := queryUint64Ptr(r, "account_id"); v != nil {
		accountID = uint32(*v)
	}

	matches, err := d.Analytics.ActiveMatches(r.Context(), accountID)
	if err != nil {
		writeError(w, d.Logger, err)
		return
	}
	writeOK(w, matches)
}
