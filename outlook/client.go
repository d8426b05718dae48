package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Microsoft Graph mail read/write scopes requested on token refresh.
var graphScopes = []string{"offline_access", "https://graph.microsoft.com/Mail.ReadWrite"}

// ErrInvalidGrant tags failures caused by permanently unusable stored
// credentials (the OAuth "invalid_grant" condition). Callers treat it as
// expected when tearing down subscriptions for unlinked accounts.
var ErrInvalidGrant = errors.New("invalid grant")

// IsInvalidGrant reports whether err represents an invalid-grant condition,
// either tagged by this package or surfaced as message text by the remote
// API.
func IsInvalidGrant(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidGrant) || strings.Contains(err.Error(), "invalid_grant")
}

// Client is the subscription capability this service needs from the mail
// provider.
type Client interface {
	CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error)
	DeleteSubscription(ctx context.Context, subscriptionID string) error
}

// SubscriptionParams is the Graph create-subscription request body.
type SubscriptionParams struct {
	ChangeType         string    `json:"changeType"`
	NotificationURL    string    `json:"notificationUrl"`
	Resource           string    `json:"resource"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
	ClientState        string    `json:"clientState"`
}

// Subscription is the slice of the Graph subscription resource we read.
// ExpirationDateTime is a pointer because the field has been observed
// missing from otherwise successful responses.
type Subscription struct {
	ID                 string     `json:"id"`
	ExpirationDateTime *time.Time `json:"expirationDateTime"`
}

// TokenCredentials is the raw credential material stored for a linked
// account.
type TokenCredentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// OAuthConfig identifies the Microsoft OAuth application used to refresh
// stored tokens.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Tenant       string
}

type graphClient struct {
	httpClient *http.Client
}

// NewClientWithRefresh builds a Graph client for the given stored
// credentials, refreshing them immediately if they are expired. A refresh
// rejected with "invalid_grant" is returned tagged with ErrInvalidGrant.
func NewClientWithRefresh(ctx context.Context, creds TokenCredentials, cfg OAuthConfig) (Client, error) {
	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     microsoft.AzureADEndpoint(tenant),
		Scopes:       graphScopes,
	}

	stored := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.ExpiresAt,
	}

	source := oauthCfg.TokenSource(ctx, stored)
	token, err := source.Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, source))
	return &graphClient{httpClient: httpClient}, nil
}

// NewClient wraps an already-authenticated HTTP client. Used by tests and
// by callers that manage tokens themselves.
func NewClient(httpClient *http.Client) Client {
	return &graphClient{httpClient: httpClient}
}

func (c *graphClient) CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal subscription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphBaseURL+"/subscriptions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, graphError("create subscription", resp)
	}

	var subscription Subscription
	if err := json.NewDecoder(resp.Body).Decode(&subscription); err != nil {
		return nil, fmt.Errorf("failed to decode subscription response: %w", err)
	}
	return &subscription, nil
}

func (c *graphClient) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, graphBaseURL+"/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTokenError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return graphError("delete subscription "+subscriptionID, resp)
	}

	return nil
}

// classifyTokenError tags oauth2 token retrieval failures so callers can
// classify credential errors without matching on message text.
func classifyTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" || strings.Contains(string(retrieveErr.Body), "invalid_grant") {
			return fmt.Errorf("token refresh failed: %w", ErrInvalidGrant)
		}
		return fmt.Errorf("token refresh failed: %w", retrieveErr)
	}
	return err
}

func graphError(operation string, resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(respBody), "invalid_grant") {
		return fmt.Errorf("%s returned status %d: %w", operation, resp.StatusCode, ErrInvalidGrant)
	}
	return fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, string(respBody))
}
