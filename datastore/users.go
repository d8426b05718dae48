package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jfarrow/inboxpilot/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserByAPIToken resolves the user owning an API token. Returns
// sql.ErrNoRows wrapped when the token is unknown.
func (r *UserRepository) GetUserByAPIToken(ctx context.Context, token string) (*models.User, error) {
	query := `
		SELECT id, created_at, email
		FROM users
		WHERE api_token = $1
	`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, token).Scan(&user.ID, &user.CreatedAt, &user.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return &user, nil
}

// CreateExtensionSession stores a new extension session token.
func (r *UserRepository) CreateExtensionSession(ctx context.Context, session *models.ExtensionSession) error {
	query := `
		INSERT INTO extension_sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, session.Token, session.UserID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert extension session: %w", err)
	}
	return nil
}

// GetExtensionSession looks up a live extension session by token. Expired
// sessions are treated as absent.
func (r *UserRepository) GetExtensionSession(ctx context.Context, token string) (*models.ExtensionSession, error) {
	query := `
		SELECT s.token, s.user_id, u.email, s.expires_at
		FROM extension_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > $2
	`
	var session models.ExtensionSession
	err := r.db.QueryRowContext(ctx, query, token, time.Now().UTC()).
		Scan(&session.Token, &session.UserID, &session.Email, &session.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("extension session not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get extension session: %w", err)
	}
	return &session, nil
}
