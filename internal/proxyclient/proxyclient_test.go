package proxyclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deadlock-api/gatekeeper/internal/protocol"
)

func TestCall_Success(t *testing.T) {
	want := &protocol.GetMatchMetaDataResponse{
		Result:       protocol.ResultSuccess,
		ClusterID:    42,
		MetadataSalt: 123,
		ReplaySalt:   456,
	}
	wantBytes, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var gotBody envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("Authorization header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}

		resp := response{
			BotUsername: "bot-7",
			Data:        base64.StdEncoding.EncodeToString(wantBytes),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := New(srv.URL, "test-token")

	req := Request{
		Kind:         MessageGetMatchMetaData,
		Body:         &protocol.GetMatchMetaDataRequest{MatchID: 42000000},
		CooldownTime: 5 * time.Second,
	}
	out := &protocol.GetMatchMetaDataResponse{}

	username, err := Call(context.Background(), client, req, out)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if username != "bot-7" {
		t.Errorf("username = %q, want bot-7", username)
	}
	if *out != *want {
		t.Errorf("out = %+v, want %+v", out, want)
	}

	if gotBody.MessageKind != int32(MessageGetMatchMetaData) {
		t.Errorf("message_kind = %d, want %d", gotBody.MessageKind, MessageGetMatchMetaData)
	}
	if gotBody.JobCooldownMillis != 5000 {
		t.Errorf("job_cooldown_millis = %d, want 5000", gotBody.JobCooldownMillis)
	}
	if gotBody.RateLimitCooldownMillis != 10000 {
		t.Errorf("rate_limit_cooldown_millis = %d, want 10000 (2x cooldown)", gotBody.RateLimitCooldownMillis)
	}
}

func TestCall_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(srv.URL, "test-token")
	req := Request{Kind: MessageGetMatchMetaData, Body: &protocol.GetMatchMetaDataRequest{MatchID: 1}}

	if _, err := Call(context.Background(), client, req, &protocol.GetMatchMetaDataResponse{}); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestCall_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(srv.URL, "test-token")
	req := Request{Kind: MessageGetMatchMetaData, Body: &protocol.GetMatchMetaDataRequest{MatchID: 1}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	if _, err := Call(ctx, client, req, &protocol.GetMatchMetaDataResponse{}); err == nil {
		t.Error("expected error for canceled context")
	}
}
