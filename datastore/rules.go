package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jfarrow/inboxpilot/models"
)

type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// GetRules returns the account's rules in their stored position order. The
// order matters: it is the order rules are presented for correction.
func (r *RuleRepository) GetRules(ctx context.Context, emailAccountID string) ([]models.Rule, error) {
	query := `
		SELECT id, email_account_id, name, position, created_at
		FROM rules
		WHERE email_account_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, emailAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []models.Rule
	for rows.Next() {
		var rule models.Rule
		if err := rows.Scan(&rule.ID, &rule.EmailAccountID, &rule.Name, &rule.Position, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		rules = append(rules, rule)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule rows: %w", err)
	}

	return rules, nil
}

// GetRuleByID returns a single rule, or sql.ErrNoRows wrapped when absent.
func (r *RuleRepository) GetRuleByID(ctx context.Context, ruleID string) (*models.Rule, error) {
	query := `
		SELECT id, email_account_id, name, position, created_at
		FROM rules
		WHERE id = $1
	`
	var rule models.Rule
	err := r.db.QueryRowContext(ctx, query, ruleID).
		Scan(&rule.ID, &rule.EmailAccountID, &rule.Name, &rule.Position, &rule.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("rule not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get rule by ID: %w", err)
	}
	return &rule, nil
}
