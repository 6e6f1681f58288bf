// Package proxyclient calls the external coordinator-proxy service that
// fronts a fleet of game-coordinator-connected bots. Requests are typed
// protobuf messages wrapped in a JSON envelope; the proxy itself has no
// retry semantics here, callers that need retries wrap calls with
// internal/retry.
package proxyclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/deadlock-api/gatekeeper/internal/protocol"
)

// MessageKind identifies which coordinator-proxy call is being made.
type MessageKind int32

const (
	MessageGetMatchMetaData MessageKind = iota
	MessageSpectateLobby
	MessageJoinParty
	MessageLeaveParty
	MessageMarkReady
	MessageStartMatch
	MessageGetActiveMatches
	MessageGetLeaderboard
	MessageGetMatchHistory
)

// Request describes one call to the proxy.
type Request struct {
	Kind         MessageKind
	Body         protocol.Message
	CooldownTime time.Duration
	InAllGroups  []string
	InAnyGroups  []string
	Username     string // empty lets the proxy pick any available bot
}

// envelope mirrors the JSON body the coordinator proxy expects.
type envelope struct {
	MessageKind            int32    `json:"message_kind"`
	JobCooldownMillis      int64    `json:"job_cooldown_millis"`
	RateLimitCooldownMillis int64   `json:"rate_limit_cooldown_millis"`
	BotInAllGroups          []string `json:"bot_in_all_groups"`
	BotInAnyGroups          []string `json:"bot_in_any_groups"`
	Data                    string   `json:"data"`
	BotUsername             string   `json:"bot_username,omitempty"`
}

// response mirrors what the proxy returns: the bot that served the
// call, and the base64-encoded protobuf reply.
type response struct {
	BotUsername string `json:"bot_username"`
	Data        string `json:"data"`
}

// Client calls the coordinator proxy over HTTP with bearer auth.
type Client struct {
	httpClient  *http.Client
	proxyURL    string
	bearerToken string
}

// New builds a Client against the given proxy URL and bearer token. The
// HTTP client carries no default timeout; each call supplies its own via
// ctx, since the proxy's own queueing can hold a request open for as
// long as a bot takes to become available.
func New(proxyURL, bearerToken string) *Client {
	return &Client{
		httpClient:  &http.Client{},
		proxyURL:    proxyURL,
		bearerToken: bearerToken,
	}
}

// Call marshals req.Body, wraps it in the proxy's JSON envelope, and
// decodes the reply into out. It returns the username of the bot that
// served the call.
func Call[M protocol.Message](ctx context.Context, c *Client, req Request, out M) (string, error) {
	data, err := req.Body.Marshal()
	if err != nil {
		return "", fmt.Errorf("proxyclient: marshaling request: %w", err)
	}

	body := envelope{
		MessageKind:             int32(req.Kind),
		JobCooldownMillis:       req.CooldownTime.Milliseconds(),
		RateLimitCooldownMillis: 2 * req.CooldownTime.Milliseconds(),
		BotInAllGroups:          req.InAllGroups,
		BotInAnyGroups:          req.InAnyGroups,
		Data:                    base64.StdEncoding.EncodeToString(data),
		BotUsername:             req.Username,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("proxyclient: marshaling envelope: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("proxyclient: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("proxyclient: calling coordinator proxy: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("proxyclient: coordinator proxy returned HTTP %d", resp.StatusCode)
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("proxyclient: decoding response: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(result.Data)
	if err != nil {
		return "", fmt.Errorf("proxyclient: decoding base64 payload: %w", err)
	}
	if err := out.Unmarshal(raw); err != nil {
		return "", fmt.Errorf("proxyclient: decoding response payload: %w", err)
	}

	return result.BotUsername, nil
}
