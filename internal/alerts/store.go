package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const queryTimeout = 5 * time.Second

// RuleStore persists alert rules and supports the conditional trigger
// update the evaluator relies on.
type RuleStore interface {
	Create(ctx context.Context, rule *AlertRule) (*AlertRule, error)
	FindByID(ctx context.Context, id string) (*AlertRule, error)
	FindByOwner(ctx context.Context, ownerID string) ([]AlertRule, error)
	FindActiveBySymbol(ctx context.Context, symbol string) ([]AlertRule, error)
	Patch(ctx context.Context, id string, patch RulePatch) (*AlertRule, error)

	// MarkTriggered records a trigger at the given time only if the
	// rule's last_triggered_at still matches prev, and reports whether
	// this caller won the update. Losing means a concurrent evaluation
	// already triggered the rule.
	MarkTriggered(ctx context.Context, id string, at time.Time, prev *time.Time) (bool, error)

	Delete(ctx context.Context, id string) error
}

// PostgresRuleStore stores rules in the alerts table.
type PostgresRuleStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresRuleStore creates a rule store backed by PostgreSQL.
func NewPostgresRuleStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresRuleStore {
	return &PostgresRuleStore{
		pool:   pool,
		logger: logger.With().Str("component", "rule-store").Logger(),
	}
}

const ruleColumns = `id, user_id, crypto_symbol, alert_type, threshold, time_window, is_active, last_triggered_at, created_at, updated_at`

func scanRule(row pgx.Row) (*AlertRule, error) {
	var rule AlertRule
	err := row.Scan(
		&rule.ID, &rule.OwnerID, &rule.Symbol, &rule.Kind, &rule.Threshold,
		&rule.TimeWindowMinutes, &rule.IsActive, &rule.LastTriggeredAt,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create inserts a rule and returns it with store-assigned timestamps.
func (s *PostgresRuleStore) Create(ctx context.Context, rule *AlertRule) (*AlertRule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO alerts (id, user_id, crypto_symbol, alert_type, threshold, time_window, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + ruleColumns

	created, err := scanRule(s.pool.QueryRow(ctx, query,
		rule.ID, rule.OwnerID, rule.Symbol, rule.Kind, rule.Threshold,
		rule.TimeWindowMinutes, rule.IsActive,
	))
	if err != nil {
		return nil, fmt.Errorf("%w: create rule: %v", ErrStoreUnavailable, err)
	}

	return created, nil
}

// FindByID returns the rule or ErrRuleNotFound.
func (s *PostgresRuleStore) FindByID(ctx context.Context, id string) (*AlertRule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + ruleColumns + ` FROM alerts WHERE id = $1`

	rule, err := scanRule(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find rule %s: %v", ErrStoreUnavailable, id, err)
	}

	return rule, nil
}

// FindByOwner returns the owner's rules, newest first.
func (s *PostgresRuleStore) FindByOwner(ctx context.Context, ownerID string) ([]AlertRule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + ruleColumns + ` FROM alerts WHERE user_id = $1 ORDER BY created_at DESC`

	return s.queryRules(ctx, query, ownerID)
}

// FindActiveBySymbol returns every active rule watching the symbol.
func (s *PostgresRuleStore) FindActiveBySymbol(ctx context.Context, symbol string) ([]AlertRule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT ` + ruleColumns + `
		FROM alerts
		WHERE crypto_symbol = $1
		AND is_active = true
		ORDER BY created_at DESC`

	return s.queryRules(ctx, query, symbol)
}

func (s *PostgresRuleStore) queryRules(ctx context.Context, query string, args ...interface{}) ([]AlertRule, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query rules: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var rules []AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan rule: %v", ErrStoreUnavailable, err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rules: %v", ErrStoreUnavailable, err)
	}

	return rules, nil
}

// Patch applies the explicit partial update. Fields left nil in the
// patch keep their stored value.
func (s *PostgresRuleStore) Patch(ctx context.Context, id string, patch RulePatch) (*AlertRule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE alerts
		SET threshold = COALESCE($2, threshold),
		    time_window = COALESCE($3, time_window),
		    is_active = COALESCE($4, is_active),
		    last_triggered_at = COALESCE($5, last_triggered_at),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + ruleColumns

	rule, err := scanRule(s.pool.QueryRow(ctx, query,
		id, patch.Threshold, patch.TimeWindowMinutes, patch.IsActive, patch.LastTriggeredAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: patch rule %s: %v", ErrStoreUnavailable, id, err)
	}

	return rule, nil
}

// MarkTriggered performs the compare-and-swap on last_triggered_at.
func (s *PostgresRuleStore) MarkTriggered(ctx context.Context, id string, at time.Time, prev *time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE alerts
		SET last_triggered_at = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		AND last_triggered_at IS NOT DISTINCT FROM $3`

	tag, err := s.pool.Exec(ctx, query, id, at, prev)
	if err != nil {
		return false, fmt.Errorf("%w: mark rule %s triggered: %v", ErrStoreUnavailable, id, err)
	}

	return tag.RowsAffected() > 0, nil
}

// Delete removes the rule or returns ErrRuleNotFound.
func (s *PostgresRuleStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete rule %s: %v", ErrStoreUnavailable, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	return nil
}
