package routehandlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jfarrow/inboxpilot/models"
	"github.com/jfarrow/inboxpilot/outlook"
	"github.com/jfarrow/inboxpilot/watch"
	"github.com/jfarrow/inboxpilot/webutil"
)

// AccountSource lists a user's linked provider accounts.
type AccountSource interface {
	GetMicrosoftAccounts(ctx context.Context, userID string) ([]models.Account, error)
}

// Watcher is the subscription lifecycle consumed by the watch endpoints.
type Watcher interface {
	WatchEmails(ctx context.Context, emailAccountID string, client outlook.Client) (*time.Time, error)
	UnwatchEmails(ctx context.Context, emailAccountID string, creds outlook.TokenCredentials)
}

type WatchHandler struct {
	accounts  AccountSource
	watcher   Watcher
	newClient watch.ClientFactory
	logger    *slog.Logger
}

func NewWatchHandler(accounts AccountSource, watcher Watcher, newClient watch.ClientFactory, logger *slog.Logger) *WatchHandler {
	return &WatchHandler{
		accounts:  accounts,
		watcher:   watcher,
		newClient: newClient,
		logger:    logger,
	}
}

type watchResult struct {
	EmailAccountID string     `json:"emailAccountId"`
	Status         string     `json:"status"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	Message        string     `json:"message,omitempty"`
	ErrorDetails   string     `json:"errorDetails,omitempty"`
}

// HandleWatchAll sets up a mail-change subscription for every Microsoft
// account linked to the caller. Failures are reported per account; one
// account failing never aborts the others.
func (h *WatchHandler) HandleWatchAll(w http.ResponseWriter, r *http.Request) error {
	user := webutil.UserFromContext(r.Context())

	accounts, err := h.accounts.GetMicrosoftAccounts(r.Context(), user.ID)
	if err != nil {
		return webutil.ErrInternalServerWrap("failed to list accounts", err)
	}

	linked := 0
	for _, account := range accounts {
		if account.EmailAccountID != nil {
			linked++
		}
	}
	if linked == 0 {
		webutil.RespondWithJSON(w, http.StatusNotFound, map[string]string{
			"message": "No Microsoft email accounts found for this user.",
		})
		return nil
	}

	results := make([]watchResult, 0, linked)
	for _, account := range accounts {
		if account.EmailAccountID == nil {
			continue
		}
		results = append(results, h.watchOne(r.Context(), account))
	}

	webutil.RespondWithJSON(w, http.StatusOK, map[string][]watchResult{"results": results})
	return nil
}

func (h *WatchHandler) watchOne(ctx context.Context, account models.Account) watchResult {
	emailAccountID := *account.EmailAccountID

	client, err := h.newClient(ctx, credentialsFromAccount(account))
	if err != nil {
		h.logger.Error("exception while watching inbox for account",
			"emailAccountId", emailAccountID, "error", err)
		return watchResult{
			EmailAccountID: emailAccountID,
			Status:         "error",
			Message:        "An unexpected error occurred while setting up watch for this account.",
			ErrorDetails:   err.Error(),
		}
	}

	expiration, err := h.watcher.WatchEmails(ctx, emailAccountID, client)
	if err != nil {
		h.logger.Error("exception while watching inbox for account",
			"emailAccountId", emailAccountID, "error", err)
		return watchResult{
			EmailAccountID: emailAccountID,
			Status:         "error",
			Message:        "An unexpected error occurred while setting up watch for this account.",
			ErrorDetails:   err.Error(),
		}
	}
	if expiration == nil {
		h.logger.Error("error watching inbox for account", "emailAccountId", emailAccountID)
		return watchResult{
			EmailAccountID: emailAccountID,
			Status:         "error",
			Message:        "Failed to set up watch for this account.",
		}
	}

	return watchResult{
		EmailAccountID: emailAccountID,
		Status:         "success",
		ExpirationDate: expiration,
	}
}

// HandleUnwatchAll tears down subscriptions for all of the caller's
// Microsoft accounts. Unwatch never fails from the caller's perspective, so
// every account reports success.
func (h *WatchHandler) HandleUnwatchAll(w http.ResponseWriter, r *http.Request) error {
	user := webutil.UserFromContext(r.Context())

	accounts, err := h.accounts.GetMicrosoftAccounts(r.Context(), user.ID)
	if err != nil {
		return webutil.ErrInternalServerWrap("failed to list accounts", err)
	}

	results := make([]watchResult, 0, len(accounts))
	for _, account := range accounts {
		if account.EmailAccountID == nil {
			continue
		}
		emailAccountID := *account.EmailAccountID
		h.watcher.UnwatchEmails(r.Context(), emailAccountID, credentialsFromAccount(account))
		results = append(results, watchResult{
			EmailAccountID: emailAccountID,
			Status:         "success",
		})
	}

	webutil.RespondWithJSON(w, http.StatusOK, map[string][]watchResult{"results": results})
	return nil
}

func credentialsFromAccount(account models.Account) outlook.TokenCredentials {
	creds := outlook.TokenCredentials{}
	if account.AccessToken != nil {
		creds.AccessToken = *account.AccessToken
	}
	if account.RefreshToken != nil {
		creds.RefreshToken = *account.RefreshToken
	}
	if account.ExpiresAt != nil {
		creds.ExpiresAt = time.Unix(*account.ExpiresAt, 0)
	}
	return creds
}
