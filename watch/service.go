package watch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jfarrow/inboxpilot/datastore"
	"github.com/jfarrow/inboxpilot/errtracker"
	"github.com/jfarrow/inboxpilot/outlook"
)

// subscriptionLifetime is the fixed lifetime requested for every mail
// subscription: 4230 minutes (~2.9 days), the maximum Microsoft allows.
const subscriptionLifetime = 4230 * time.Minute

// clearRetries bounds the version-guarded clear loop in UnwatchEmails.
const clearRetries = 3

// AccountStore is the persistence surface the lifecycle needs: read the
// stored subscription fields, set both together, clear both together.
type AccountStore interface {
	GetWatchState(ctx context.Context, emailAccountID string) (*datastore.WatchState, error)
	SetWatch(ctx context.Context, emailAccountID, subscriptionID string, expiration time.Time) error
	ClearWatch(ctx context.Context, emailAccountID string, expectedVersion int64) error
}

// ClientFactory builds an authenticated mail-provider client from stored
// credentials, refreshing them as needed.
type ClientFactory func(ctx context.Context, creds outlook.TokenCredentials) (outlook.Client, error)

// Service maintains at most one change-notification subscription per email
// account.
type Service struct {
	store           AccountStore
	newClient       ClientFactory
	tracker         errtracker.Tracker
	logger          *slog.Logger
	notificationURL string
	clientState     string
}

func NewService(
	store AccountStore,
	newClient ClientFactory,
	tracker errtracker.Tracker,
	logger *slog.Logger,
	notificationURL string,
	clientState string,
) *Service {
	return &Service{
		store:           store,
		newClient:       newClient,
		tracker:         tracker,
		logger:          logger,
		notificationURL: notificationURL,
		clientState:     clientState,
	}
}

// WatchEmails creates a change-notification subscription for new and
// updated messages on the account's mailbox and persists its id and
// expiration. It returns the remote expiration, or nil when the remote
// response carried none (in which case nothing is persisted).
//
// Calling this while a subscription is already active replaces the stored
// id without cancelling the prior remote subscription; see DESIGN.md.
func (s *Service) WatchEmails(ctx context.Context, emailAccountID string, client outlook.Client) (*time.Time, error) {
	s.logger.Info("watching emails", "emailAccountId", emailAccountID)

	subscription, err := client.CreateSubscription(ctx, outlook.SubscriptionParams{
		ChangeType:         "created,updated",
		NotificationURL:    s.notificationURL,
		Resource:           "/me/messages",
		ExpirationDateTime: time.Now().Add(subscriptionLifetime),
		ClientState:        s.clientState,
	})
	if err != nil {
		s.logger.Error("error watching inbox", "emailAccountId", emailAccountID, "error", err)
		return nil, err
	}

	if subscription.ExpirationDateTime == nil {
		// The remote accepted the subscription but reported no expiration.
		// There is nothing to persist, which the caller treats as a
		// failed watch attempt for this account.
		return nil, nil
	}

	if err := s.store.SetWatch(ctx, emailAccountID, subscription.ID, *subscription.ExpirationDateTime); err != nil {
		s.logger.Error("error persisting watch fields", "emailAccountId", emailAccountID, "error", err)
		return nil, err
	}

	return subscription.ExpirationDateTime, nil
}

// UnwatchEmails deletes the account's remote subscription if one is stored
// and clears the stored subscription fields. It never fails from the
// caller's perspective: remote errors are logged (and tracked unless they
// are the expected invalid-grant case) and cleanup still runs.
func (s *Service) UnwatchEmails(ctx context.Context, emailAccountID string, creds outlook.TokenCredentials) {
	s.logger.Info("unwatching emails", "emailAccountId", emailAccountID)

	version := int64(-1)

	state, err := s.store.GetWatchState(ctx, emailAccountID)
	if err != nil {
		s.logger.Error("error unwatching emails", "emailAccountId", emailAccountID, "error", err)
		s.tracker.CaptureException(err)
	} else {
		version = state.Version
		if state.SubscriptionID != nil {
			if err := s.deleteSubscription(ctx, creds, *state.SubscriptionID); err != nil {
				if outlook.IsInvalidGrant(err) {
					s.logger.Warn("error unwatching emails, invalid grant", "emailAccountId", emailAccountID)
				} else {
					s.logger.Error("error unwatching emails", "emailAccountId", emailAccountID, "error", err)
					s.tracker.CaptureException(err)
				}
			}
		}
	}

	s.clearWatch(ctx, emailAccountID, version)
}

func (s *Service) deleteSubscription(ctx context.Context, creds outlook.TokenCredentials, subscriptionID string) error {
	client, err := s.newClient(ctx, creds)
	if err != nil {
		return err
	}
	return client.DeleteSubscription(ctx, subscriptionID)
}

// clearWatch nulls both subscription fields. A stale version means the
// record changed underneath us; re-read and retry so the postcondition
// (fields cleared) holds regardless of concurrent writers.
func (s *Service) clearWatch(ctx context.Context, emailAccountID string, version int64) {
	for attempt := 0; attempt < clearRetries; attempt++ {
		err := s.store.ClearWatch(ctx, emailAccountID, version)
		if err == nil {
			return
		}
		if !errors.Is(err, datastore.ErrStaleVersion) {
			s.logger.Error("error clearing watch fields", "emailAccountId", emailAccountID, "error", err)
			s.tracker.CaptureException(err)
			return
		}

		state, err := s.store.GetWatchState(ctx, emailAccountID)
		if err != nil {
			s.logger.Error("error re-reading watch state", "emailAccountId", emailAccountID, "error", err)
			s.tracker.CaptureException(err)
			return
		}
		version = state.Version
	}
	s.logger.Error("giving up clearing watch fields after retries", "emailAccountId", emailAccountID)
}
