package routehandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jfarrow/inboxpilot/assistant"
	"github.com/jfarrow/inboxpilot/models"
	"github.com/jfarrow/inboxpilot/webutil"
)

type fakeRuleSource struct {
	rules []models.Rule
	err   error
}

func (f *fakeRuleSource) GetRules(context.Context, string) ([]models.Rule, error) {
	return f.rules, f.err
}

type fakeDefaultAccountSource struct {
	id  string
	err error
}

func (f *fakeDefaultAccountSource) GetDefaultEmailAccountID(context.Context, string) (string, error) {
	return f.id, f.err
}

func postFix(t *testing.T, handler *AssistantHandler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/assistant/fix", bytes.NewReader(body))
	req = req.WithContext(webutil.WithUser(req.Context(), &models.User{ID: "user-1"}))
	w := httptest.NewRecorder()
	webutil.MakeHandler(handler.HandleBuildFix)(w, req)
	return w
}

func fixPayload() map[string]any {
	return map[string]any{
		"emailAccountId": "ea-1",
		"message": map[string]any{
			"headers": map[string]any{"from": "a@x.com", "subject": "Invoice"},
			"snippet": "Please pay...",
		},
		"result": map[string]any{
			"rule":   map[string]any{"id": "r1", "name": "Bills"},
			"reason": "matched sender",
		},
	}
}

func TestHandleBuildFix_NewRule(t *testing.T) {
	handler := NewAssistantHandler(&fakeRuleSource{}, &fakeDefaultAccountSource{})

	payload := fixPayload()
	payload["expectedRuleId"] = assistant.NewRuleID
	payload["hasChatInput"] = true

	w := postFix(t, handler, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Input       string `json:"input"`
		RedirectURL string `json:"redirectUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !strings.Contains(resp.Input, "Current rule applied: Bills") {
		t.Errorf("input missing applied rule:\n%s", resp.Input)
	}
	if !strings.Contains(resp.Input, "I'd like to create a new rule to handle this type of email.") {
		t.Errorf("input missing new-rule closing:\n%s", resp.Input)
	}
	if resp.RedirectURL != "" {
		t.Errorf("redirectUrl = %q, want empty when chat input available", resp.RedirectURL)
	}
}

func TestHandleBuildFix_RedirectsWithoutChatInput(t *testing.T) {
	rules := &fakeRuleSource{rules: []models.Rule{{ID: "r2", Name: "Receipts"}}}
	handler := NewAssistantHandler(rules, &fakeDefaultAccountSource{})

	payload := fixPayload()
	payload["expectedRuleId"] = "r2"
	payload["tab"] = "history"

	w := postFix(t, handler, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Input       string `json:"input"`
		RedirectURL string `json:"redirectUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !strings.Contains(resp.Input, `The rule that should have been applied was: "Receipts"`) {
		t.Errorf("input missing named-rule closing:\n%s", resp.Input)
	}

	parsed, err := url.Parse(resp.RedirectURL)
	if err != nil {
		t.Fatalf("redirectUrl unparseable: %v", err)
	}
	if parsed.Path != "/ea-1/assistant" {
		t.Errorf("redirect path = %q", parsed.Path)
	}
	if parsed.Query().Get("input") != resp.Input {
		t.Error("redirect input param does not round-trip the prompt")
	}
	if parsed.Query().Get("tab") != "history" {
		t.Errorf("redirect tab = %q", parsed.Query().Get("tab"))
	}
}

func TestHandleBuildFix_NoneSentinel(t *testing.T) {
	handler := NewAssistantHandler(&fakeRuleSource{}, &fakeDefaultAccountSource{})

	payload := fixPayload()
	payload["expectedRuleId"] = assistant.NoneRuleID
	payload["hasChatInput"] = true

	w := postFix(t, handler, payload)
	var resp struct {
		Input string `json:"input"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !strings.HasSuffix(resp.Input, "Instead, no rule should have been applied.") {
		t.Errorf("input closing wrong:\n%s", resp.Input)
	}
}

func TestHandleBuildFix_MissingMessage(t *testing.T) {
	handler := NewAssistantHandler(&fakeRuleSource{}, &fakeDefaultAccountSource{})

	w := postFix(t, handler, map[string]any{"emailAccountId": "ea-1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleBuildFix_RawMessage(t *testing.T) {
	handler := NewAssistantHandler(&fakeRuleSource{}, &fakeDefaultAccountSource{})

	raw := "From: a@x.com\r\nSubject: Invoice\r\nContent-Type: text/plain\r\n\r\nPlease pay...\r\n"
	payload := map[string]any{
		"emailAccountId": "ea-1",
		"rawMessage":     raw,
		"hasChatInput":   true,
	}

	w := postFix(t, handler, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Input string `json:"input"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !strings.Contains(resp.Input, "*Subject*: Invoice") {
		t.Errorf("input missing parsed subject:\n%s", resp.Input)
	}
	if !strings.Contains(resp.Input, "Please pay...") {
		t.Errorf("input missing parsed body:\n%s", resp.Input)
	}
}

func TestHandleGetOptions(t *testing.T) {
	rules := &fakeRuleSource{rules: []models.Rule{{ID: "r1", Name: "Bills"}}}
	handler := NewAssistantHandler(rules, &fakeDefaultAccountSource{})

	req := httptest.NewRequest("GET", "/api/assistant/options?emailAccountId=ea-1", nil)
	w := httptest.NewRecorder()
	webutil.MakeHandler(handler.HandleGetOptions)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var options []assistant.Option
	if err := json.Unmarshal(w.Body.Bytes(), &options); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(options) != 3 {
		t.Fatalf("len(options) = %d, want 3", len(options))
	}
	if options[0].ID != assistant.NoneRuleID || options[1].ID != assistant.NewRuleID || options[2].ID != "r1" {
		t.Errorf("option order = %v", options)
	}
}

func TestHandleRedirect_PassesQueryThrough(t *testing.T) {
	handler := NewAssistantHandler(&fakeRuleSource{}, &fakeDefaultAccountSource{id: "ea-7"})

	req := authedRequest("GET", "/assistant?threadId=t1&tab=history")
	w := httptest.NewRecorder()
	webutil.MakeHandler(handler.HandleRedirect)(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", w.Code)
	}
	location := w.Header().Get("Location")
	if location != "/ea-7/assistant?threadId=t1&tab=history" {
		t.Errorf("Location = %q", location)
	}
}
