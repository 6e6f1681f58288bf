package apierr

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestWriteError_MessageInErrorField(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, nil, Forbidden("protected user", nil))

	if w.Code != 403 {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	var body struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != 403 {
		t.Errorf("body.Status = %d, want 403", body.Status)
	}
	if body.Error != "protected user" {
		t.Errorf("body.Error = %q, want %q", body.Error, "protected user")
	}
}

func TestWriteError_InternalHidesUnderlyingMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, nil, Internal("internal error", errors.New("dial tcp: connection refused")))

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Error != "an internal error occurred" {
		t.Errorf("body.Error = %q, want the generic internal message", body.Error)
	}
}

func TestWriteError_NonAPIErrorTreatedAsInternal(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, nil, errors.New("some unwrapped failure"))

	if w.Code != 500 {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
