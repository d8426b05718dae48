package routehandlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jfarrow/inboxpilot/models"
	"github.com/jfarrow/inboxpilot/outlook"
	"github.com/jfarrow/inboxpilot/webutil"
)

type fakeAccountSource struct {
	accounts []models.Account
	err      error
}

func (f *fakeAccountSource) GetMicrosoftAccounts(context.Context, string) ([]models.Account, error) {
	return f.accounts, f.err
}

type fakeWatcher struct {
	expirations map[string]*time.Time
	errs        map[string]error
	unwatched   []string
}

func (f *fakeWatcher) WatchEmails(_ context.Context, emailAccountID string, _ outlook.Client) (*time.Time, error) {
	if err := f.errs[emailAccountID]; err != nil {
		return nil, err
	}
	return f.expirations[emailAccountID], nil
}

func (f *fakeWatcher) UnwatchEmails(_ context.Context, emailAccountID string, _ outlook.TokenCredentials) {
	f.unwatched = append(f.unwatched, emailAccountID)
}

type stubClient struct{}

func (stubClient) CreateSubscription(context.Context, outlook.SubscriptionParams) (*outlook.Subscription, error) {
	return nil, errors.New("not used")
}
func (stubClient) DeleteSubscription(context.Context, string) error { return nil }

func testWatchHandler(accounts *fakeAccountSource, watcher *fakeWatcher) *WatchHandler {
	factory := func(context.Context, outlook.TokenCredentials) (outlook.Client, error) {
		return stubClient{}, nil
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWatchHandler(accounts, watcher, factory, logger)
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := webutil.WithUser(req.Context(), &models.User{ID: "user-1", Email: "u@example.com"})
	return req.WithContext(ctx)
}

func msAccount(id, emailAccountID string) models.Account {
	token := "tok"
	return models.Account{
		ID:             id,
		UserID:         "user-1",
		Provider:       models.ProviderMicrosoft,
		AccessToken:    &token,
		EmailAccountID: &emailAccountID,
	}
}

type watchAllResponse struct {
	Results []struct {
		EmailAccountID string     `json:"emailAccountId"`
		Status         string     `json:"status"`
		ExpirationDate *time.Time `json:"expirationDate"`
		Message        string     `json:"message"`
	} `json:"results"`
}

func TestHandleWatchAll_NoAccounts(t *testing.T) {
	handler := testWatchHandler(&fakeAccountSource{}, &fakeWatcher{})

	w := httptest.NewRecorder()
	webutil.MakeHandler(handler.HandleWatchAll)(w, authedRequest("GET", "/api/outlook/watch"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp["message"] != "No Microsoft email accounts found for this user." {
		t.Errorf("message = %q", resp["message"])
	}
}

func TestHandleWatchAll_IsolatesFailures(t *testing.T) {
	exp := time.Date(2026, 9, 4, 12, 0, 0, 0, time.UTC)
	accounts := &fakeAccountSource{accounts: []models.Account{
		msAccount("a1", "ea-1"),
		msAccount("a2", "ea-2"),
		msAccount("a3", "ea-3"),
	}}
	watcher := &fakeWatcher{
		expirations: map[string]*time.Time{"ea-1": &exp, "ea-3": nil},
		errs:        map[string]error{"ea-2": errors.New("graph down")},
	}
	handler := testWatchHandler(accounts, watcher)

	w := httptest.NewRecorder()
	webutil.MakeHandler(handler.HandleWatchAll)(w, authedRequest("GET", "/api/outlook/watch"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp watchAllResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(resp.Results))
	}

	if resp.Results[0].Status != "success" || !resp.Results[0].ExpirationDate.Equal(exp) {
		t.Errorf("result[0] = %+v, want success with expiration", resp.Results[0])
	}
	if resp.Results[1].Status != "error" {
		t.Errorf("result[1].Status = %q, want error", resp.Results[1].Status)
	}
	// Missing remote expiration is reported as a failed watch attempt.
	if resp.Results[2].Status != "error" || resp.Results[2].Message != "Failed to set up watch for this account." {
		t.Errorf("result[2] = %+v", resp.Results[2])
	}
}

func TestHandleWatchAll_SkipsUnlinkedAccounts(t *testing.T) {
	unlinked := models.Account{ID: "a1", UserID: "user-1", Provider: models.ProviderMicrosoft}
	accounts := &fakeAccountSource{accounts: []models.Account{unlinked}}
	handler := testWatchHandler(accounts, &fakeWatcher{})

	w := httptest.NewRecorder()
	webutil.MakeHandler(handler.HandleWatchAll)(w, authedRequest("GET", "/api/outlook/watch"))

	// An account without a mailbox is as good as no account.
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleUnwatchAll(t *testing.T) {
	accounts := &fakeAccountSource{accounts: []models.Account{
		msAccount("a1", "ea-1"),
		msAccount("a2", "ea-2"),
	}}
	watcher := &fakeWatcher{}
	handler := testWatchHandler(accounts, watcher)

	w := httptest.NewRecorder()
	webutil.MakeHandler(handler.HandleUnwatchAll)(w, authedRequest("POST", "/api/outlook/unwatch"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(watcher.unwatched) != 2 {
		t.Errorf("unwatched = %v, want both accounts", watcher.unwatched)
	}

	var resp watchAllResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	for _, result := range resp.Results {
		if result.Status != "success" {
			t.Errorf("unwatch result = %+v, want success", result)
		}
	}
}
