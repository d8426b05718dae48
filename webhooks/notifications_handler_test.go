package webhooks

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testHandler() *NotificationsHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotificationsHandler("test-client-state", logger)
}

func TestHandleNotifications_ValidationHandshake(t *testing.T) {
	handler := testHandler()

	req := httptest.NewRequest("POST", "/api/outlook/notifications?validationToken=abc%20123", nil)
	w := httptest.NewRecorder()
	handler.HandleNotifications(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "abc 123" {
		t.Errorf("body = %q, want the decoded validation token", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

func TestHandleNotifications_AcceptsBatch(t *testing.T) {
	handler := testHandler()

	body := `{"value":[{"subscriptionId":"sub-1","clientState":"test-client-state","changeType":"created","resourceData":{"id":"msg-1"}}]}`
	req := httptest.NewRequest("POST", "/api/outlook/notifications", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleNotifications(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
}

func TestHandleNotifications_MismatchedClientStateStillAccepted(t *testing.T) {
	handler := testHandler()

	// A forged clientState must not cause a retry storm; the entry is
	// dropped but the batch is acknowledged.
	body := `{"value":[{"subscriptionId":"sub-1","clientState":"forged","changeType":"created"}]}`
	req := httptest.NewRequest("POST", "/api/outlook/notifications", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.HandleNotifications(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
}

func TestHandleNotifications_InvalidPayload(t *testing.T) {
	handler := testHandler()

	req := httptest.NewRequest("POST", "/api/outlook/notifications", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	handler.HandleNotifications(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
