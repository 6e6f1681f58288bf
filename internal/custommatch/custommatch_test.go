package custommatch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/deadlock-api/gatekeeper/internal/protocol"
	"github.com/deadlock-api/gatekeeper/internal/proxyclient"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type envelope struct {
	MessageKind int32  `json:"message_kind"`
	Data        string `json:"data"`
	BotUsername string `json:"bot_username,omitempty"`
}

func newTestProxy(t *testing.T, handler func(envelope) protocol.Message) (*proxyclient.Client, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Fatalf("decoding envelope: %v", err)
		}
		out := handler(env)
		raw, err := out.Marshal()
		if err != nil {
			t.Fatalf("marshaling reply: %v", err)
		}
		resp := map[string]string{
			"bot_username": "bot-1",
			"data":         base64.StdEncoding.EncodeToString(raw),
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	return proxyclient.New(srv.URL, "token"), srv.Close
}

func TestCreateParty_ParsesPartyID(t *testing.T) {
	proxy, closeFn := newTestProxy(t, func(env envelope) protocol.Message {
		return &protocol.PartyActionRequest{PartyID: "12345"}
	})
	defer closeFn()

	m := NewManager(nil, proxy, nil)
	partyID, username, err := m.createParty(context.Background())
	if err != nil {
		t.Fatalf("createParty() error = %v", err)
	}
	if partyID != 12345 {
		t.Errorf("partyID = %d, want 12345", partyID)
	}
	if username != "bot-1" {
		t.Errorf("username = %q, want bot-1", username)
	}
}

func TestCreateParty_RejectsNonNumericID(t *testing.T) {
	proxy, closeFn := newTestProxy(t, func(env envelope) protocol.Message {
		return &protocol.PartyActionRequest{PartyID: "not-a-number"}
	})
	defer closeFn()

	m := NewManager(nil, proxy, nil)
	if _, _, err := m.createParty(context.Background()); err == nil {
		t.Fatal("expected error for non-numeric party id")
	}
}

func TestPartyKey(t *testing.T) {
	if got := partyKey(42); got != "42" {
		t.Errorf("partyKey(42) = %q, want \"42\"", got)
	}
}

func TestPartyMatchIDKey(t *testing.T) {
	if got := partyMatchIDKey(42); got != "42:match-id" {
		t.Errorf("partyMatchIDKey(42) = %q, want \"42:match-id\"", got)
	}
}

func TestWaitForPartyCode_ContextCanceled(t *testing.T) {
	proxy, closeFn := newTestProxy(t, func(env envelope) protocol.Message {
		return &protocol.PartyActionRequest{}
	})
	defer closeFn()

	m := NewManager(newTestRedis(t), proxy, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := m.waitForPartyCode(ctx, 999); err == nil {
		t.Fatal("expected error when context is canceled before a code appears")
	}
}

func TestWaitForPartyCode_FindsCode(t *testing.T) {
	proxy, closeFn := newTestProxy(t, func(env envelope) protocol.Message {
		return &protocol.PartyActionRequest{}
	})
	defer closeFn()

	rdb := newTestRedis(t)
	if err := rdb.Set(context.Background(), partyKey(7), "bot-1:555:ABCD", 0).Err(); err != nil {
		t.Fatalf("seeding redis: %v", err)
	}

	m := NewManager(rdb, proxy, nil)
	code, err := m.waitForPartyCode(context.Background(), 7)
	if err != nil {
		t.Fatalf("waitForPartyCode() error = %v", err)
	}
	if code != "bot-1:555:ABCD" {
		t.Errorf("code = %q, want %q", code, "bot-1:555:ABCD")
	}
}

func TestMatchID(t *testing.T) {
	rdb := newTestRedis(t)
	if err := rdb.Set(context.Background(), partyMatchIDKey(7), "42000000", 0).Err(); err != nil {
		t.Fatalf("seeding redis: %v", err)
	}

	m := NewManager(rdb, nil, nil)
	matchID, err := m.MatchID(context.Background(), 7)
	if err != nil {
		t.Fatalf("MatchID() error = %v", err)
	}
	if matchID != 42000000 {
		t.Errorf("matchID = %d, want 42000000", matchID)
	}
}
