package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jfarrow/inboxpilot/models"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetMicrosoftAccounts returns the user's linked Microsoft accounts along
// with their stored OAuth tokens.
func (r *AccountRepository) GetMicrosoftAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	query := `
		SELECT id, user_id, provider, access_token, refresh_token, expires_at, email_account_id
		FROM accounts
		WHERE user_id = $1 AND provider = $2
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, models.ProviderMicrosoft)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Provider,
			&account.AccessToken,
			&account.RefreshToken,
			&account.ExpiresAt,
			&account.EmailAccountID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

// GetDefaultEmailAccountID returns the first email account linked to the
// user, used when a request doesn't name an account explicitly.
func (r *AccountRepository) GetDefaultEmailAccountID(ctx context.Context, userID string) (string, error) {
	query := `
		SELECT ea.id
		FROM email_accounts ea
		JOIN accounts a ON a.email_account_id = ea.id
		WHERE a.user_id = $1
		ORDER BY ea.email
		LIMIT 1
	`
	var id string
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("no email account for user: %w", err)
		}
		return "", fmt.Errorf("failed to get default email account: %w", err)
	}
	return id, nil
}

// WatchState is the subscription bookkeeping read by the unwatch flow.
type WatchState struct {
	SubscriptionID  *string
	WatchExpiration *time.Time
	Version         int64
}

// GetWatchState reads the email account's subscription fields along with
// the record version used to guard subsequent updates.
func (r *AccountRepository) GetWatchState(ctx context.Context, emailAccountID string) (*WatchState, error) {
	query := `
		SELECT subscription_id, watch_expiration, version
		FROM email_accounts
		WHERE id = $1
	`
	var state WatchState
	err := r.db.QueryRowContext(ctx, query, emailAccountID).
		Scan(&state.SubscriptionID, &state.WatchExpiration, &state.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("email account not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get watch state: %w", err)
	}
	return &state, nil
}

// SetWatch stores the subscription id and expiration together and bumps the
// record version.
func (r *AccountRepository) SetWatch(ctx context.Context, emailAccountID, subscriptionID string, expiration time.Time) error {
	query := `
		UPDATE email_accounts
		SET subscription_id = $2, watch_expiration = $3, version = version + 1
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, emailAccountID, subscriptionID, expiration)
	if err != nil {
		return fmt.Errorf("failed to set watch fields: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("email account %s not found", emailAccountID)
	}
	return nil
}

// ClearWatch nulls both subscription fields. When expectedVersion is
// non-negative the update only applies if the record still carries that
// version; a concurrent modification yields ErrStaleVersion so the caller
// can re-read and retry. A negative expectedVersion clears unconditionally.
func (r *AccountRepository) ClearWatch(ctx context.Context, emailAccountID string, expectedVersion int64) error {
	query := `
		UPDATE email_accounts
		SET subscription_id = NULL, watch_expiration = NULL, version = version + 1
		WHERE id = $1 AND ($2 < 0 OR version = $2)
	`
	result, err := r.db.ExecContext(ctx, query, emailAccountID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to clear watch fields: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrStaleVersion
	}
	return nil
}
