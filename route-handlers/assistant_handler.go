package routehandlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jfarrow/inboxpilot/assistant"
	"github.com/jfarrow/inboxpilot/models"
	"github.com/jfarrow/inboxpilot/webutil"
)

// RuleSource reads a user's rules for the correction flow.
type RuleSource interface {
	GetRules(ctx context.Context, emailAccountID string) ([]models.Rule, error)
}

// DefaultAccountSource resolves the email account used when a request does
// not name one.
type DefaultAccountSource interface {
	GetDefaultEmailAccountID(ctx context.Context, userID string) (string, error)
}

type AssistantHandler struct {
	rules           RuleSource
	defaultAccounts DefaultAccountSource
}

func NewAssistantHandler(rules RuleSource, defaultAccounts DefaultAccountSource) *AssistantHandler {
	return &AssistantHandler{rules: rules, defaultAccounts: defaultAccounts}
}

// HandleGetOptions returns the expected-rule selection list for the
// rule-mismatch dialog: None, New rule, then the account's rules in order.
func (h *AssistantHandler) HandleGetOptions(w http.ResponseWriter, r *http.Request) error {
	emailAccountID := r.URL.Query().Get("emailAccountId")
	if emailAccountID == "" {
		return webutil.ErrBadRequest("emailAccountId is required")
	}

	rules, err := h.rules.GetRules(r.Context(), emailAccountID)
	if err != nil {
		return webutil.ErrInternalServerWrap("failed to list rules", err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, assistant.ExpectedRuleOptions(rules))
	return nil
}

type buildFixRequest struct {
	EmailAccountID string                 `json:"emailAccountId"`
	Message        *models.ParsedMessage  `json:"message"`
	RawMessage     string                 `json:"rawMessage"`
	Result         *models.RunRulesResult `json:"result"`
	ExpectedRuleID string                 `json:"expectedRuleId"`
	Tab            string                 `json:"tab"`
	ThreadID       string                 `json:"threadId"`
	HasChatInput   bool                   `json:"hasChatInput"`
}

type buildFixResponse struct {
	Input       string `json:"input"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// HandleBuildFix turns a user's "wrong rule" report into the correction
// prompt. When the caller has a chat input available the prompt is returned
// alone; otherwise the response also carries the assistant page URL with
// the prompt pre-filled.
func (h *AssistantHandler) HandleBuildFix(w http.ResponseWriter, r *http.Request) error {
	var req buildFixRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if req.EmailAccountID == "" {
		return webutil.ErrBadRequest("emailAccountId is required")
	}

	message := req.Message
	if message == nil && req.RawMessage != "" {
		parsed, err := models.ParseMessage([]byte(req.RawMessage))
		if err != nil {
			return webutil.ErrBadRequestWrap("Could not parse raw message", err)
		}
		message = parsed
	}
	if message == nil {
		return webutil.ErrBadRequest("message or rawMessage is required")
	}

	expectedRuleName, err := h.resolveExpectedRuleName(r.Context(), req.EmailAccountID, req.ExpectedRuleID)
	if err != nil {
		return err
	}

	input := assistant.BuildFixMessage(message, req.Result, expectedRuleName)

	resp := buildFixResponse{Input: input}
	if !req.HasChatInput {
		resp.RedirectURL = assistant.URL(req.EmailAccountID, assistant.URLParams{
			Input:    input,
			Tab:      req.Tab,
			ThreadID: req.ThreadID,
		})
	}

	webutil.RespondWithJSON(w, http.StatusOK, resp)
	return nil
}

// resolveExpectedRuleName maps the selected option to the name embedded in
// the prompt: the new-rule sentinel passes through, the none sentinel maps
// to nil, and a rule id resolves to that rule's name. An unknown id also
// maps to nil, mirroring the dialog's fallback when a rule disappears
// between listing and selection.
func (h *AssistantHandler) resolveExpectedRuleName(ctx context.Context, emailAccountID, expectedRuleID string) (*string, error) {
	switch expectedRuleID {
	case assistant.NewRuleID:
		name := assistant.NewRuleID
		return &name, nil
	case assistant.NoneRuleID, "":
		return nil, nil
	}

	rules, err := h.rules.GetRules(ctx, emailAccountID)
	if err != nil {
		return nil, webutil.ErrInternalServerWrap("failed to list rules", err)
	}
	for _, rule := range rules {
		if rule.ID == expectedRuleID {
			name := rule.Name
			return &name, nil
		}
	}
	return nil, nil
}

// HandleRedirect serves the standalone assistant entry point: it resolves
// the caller's default email account and forwards every query parameter to
// that account's assistant page.
func (h *AssistantHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) error {
	user := webutil.UserFromContext(r.Context())

	emailAccountID, err := h.defaultAccounts.GetDefaultEmailAccountID(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return webutil.ErrNotFound("No email account found for this user")
		}
		return webutil.ErrInternalServerWrap("failed to resolve email account", err)
	}

	target := "/" + emailAccountID + "/assistant"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	return nil
}
