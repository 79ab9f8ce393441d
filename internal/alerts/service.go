package alerts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service owns the rule lifecycle: creation, partial updates, toggling
// and removal, with threshold invariants enforced before anything
// reaches the store.
type Service struct {
	rules  RuleStore
	logger zerolog.Logger
}

// NewService creates a rule service.
func NewService(rules RuleStore, logger zerolog.Logger) *Service {
	return &Service{
		rules:  rules,
		logger: logger.With().Str("component", "rule-service").Logger(),
	}
}

// CreateRuleReq carries the caller-supplied fields of a new rule.
type CreateRuleReq struct {
	OwnerID           string   `json:"owner_id"`
	Symbol            string   `json:"symbol"`
	Kind              RuleKind `json:"kind"`
	Threshold         float64  `json:"threshold"`
	TimeWindowMinutes *int     `json:"time_window_minutes,omitempty"`
}

// Create validates and persists a new rule. Rules are created active.
func (s *Service) Create(ctx context.Context, req CreateRuleReq) (*AlertRule, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidRule)
	}
	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidRule)
	}
	if req.TimeWindowMinutes != nil && *req.TimeWindowMinutes <= 0 {
		return nil, fmt.Errorf("%w: time window must be positive minutes", ErrInvalidRule)
	}
	if err := ValidateThreshold(req.Kind, req.Threshold); err != nil {
		return nil, err
	}

	rule := &AlertRule{
		ID:                uuid.New().String(),
		OwnerID:           req.OwnerID,
		Symbol:            req.Symbol,
		Kind:              req.Kind,
		Threshold:         req.Threshold,
		TimeWindowMinutes: req.TimeWindowMinutes,
		IsActive:          true,
	}

	created, err := s.rules.Create(ctx, rule)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("rule_id", created.ID).
		Str("owner_id", created.OwnerID).
		Str("symbol", created.Symbol).
		Str("kind", string(created.Kind)).
		Float64("threshold", created.Threshold).
		Msg("rule created")

	return created, nil
}

// Update applies a partial update, re-validating a changed threshold
// against the rule's kind.
func (s *Service) Update(ctx context.Context, ruleID string, patch RulePatch) (*AlertRule, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidRule)
	}
	if patch.TimeWindowMinutes != nil && *patch.TimeWindowMinutes <= 0 {
		return nil, fmt.Errorf("%w: time window must be positive minutes", ErrInvalidRule)
	}

	existing, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if patch.Threshold != nil {
		if err := ValidateThreshold(existing.Kind, *patch.Threshold); err != nil {
			return nil, err
		}
	}

	updated, err := s.rules.Patch(ctx, ruleID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("rule_id", ruleID).Msg("rule updated")
	return updated, nil
}

// Toggle flips a rule's active flag.
func (s *Service) Toggle(ctx context.Context, ruleID string, active bool) (*AlertRule, error) {
	if _, err := s.rules.FindByID(ctx, ruleID); err != nil {
		return nil, err
	}

	updated, err := s.rules.Patch(ctx, ruleID, RulePatch{IsActive: &active})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("rule_id", ruleID).Bool("active", active).Msg("rule toggled")
	return updated, nil
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, ruleID string) error {
	if err := s.rules.Delete(ctx, ruleID); err != nil {
		return err
	}

	s.logger.Info().Str("rule_id", ruleID).Msg("rule deleted")
	return nil
}

// ByOwner lists an owner's rules, newest first.
func (s *Service) ByOwner(ctx context.Context, ownerID string) ([]AlertRule, error) {
	return s.rules.FindByOwner(ctx, ownerID)
}

// ByID returns a single rule.
func (s *Service) ByID(ctx context.Context, ruleID string) (*AlertRule, error) {
	return s.rules.FindByID(ctx, ruleID)
}
