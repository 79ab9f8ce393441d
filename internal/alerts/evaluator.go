package alerts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pricewatch/crypto-alerts-backend/internal/history"
	"github.com/pricewatch/crypto-alerts-backend/internal/indicators"
	"github.com/pricewatch/crypto-alerts-backend/pkg/observability"
)

const (
	// defaultLookback is the metric window for rules without one.
	defaultLookback = 5 * time.Minute
	// defaultTrendLookback is the longer reversal window for
	// TREND_CHANGE rules without an explicit one.
	defaultTrendLookback = 60 * time.Minute
)

// PriceHistory is the slice of the historical price store the evaluator
// needs: window reads ordered newest first.
type PriceHistory interface {
	FindRange(ctx context.Context, symbol string, from, to time.Time) ([]history.PriceObservation, error)
}

// Recorder receives every dispatched notification for audit persistence.
type Recorder interface {
	Save(n *Notification)
}

// Evaluator runs all active rules of an asset against each new price
// observation. Evaluation of the same rule is serialized with a per-rule
// lock; different rules and different assets evaluate concurrently.
type Evaluator struct {
	rules      RuleStore
	history    PriceHistory
	dispatcher Dispatcher
	recorder   Recorder // optional

	locks  map[string]*sync.Mutex
	lockMu sync.Mutex

	logger zerolog.Logger
}

// NewEvaluator creates an alert evaluator. recorder may be nil.
func NewEvaluator(rules RuleStore, priceHistory PriceHistory, dispatcher Dispatcher, recorder Recorder, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		rules:      rules,
		history:    priceHistory,
		dispatcher: dispatcher,
		recorder:   recorder,
		locks:      make(map[string]*sync.Mutex),
		logger:     logger.With().Str("component", "alert-evaluator").Logger(),
	}
}

// ValidateObservation rejects malformed observations before any rule
// evaluation.
func ValidateObservation(obs history.PriceObservation) error {
	if obs.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidObservation)
	}
	if math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) {
		return fmt.Errorf("%w: non-finite price for %s", ErrInvalidObservation, obs.Symbol)
	}
	if obs.Price <= 0 {
		return fmt.Errorf("%w: non-positive price %v for %s", ErrInvalidObservation, obs.Price, obs.Symbol)
	}
	return nil
}

// OnPriceObservation evaluates every active rule for the observation's
// asset. A store read failure aborts the whole symbol and is returned
// for retry; a dispatch failure for one rule is isolated and does not
// stop the remaining rules.
func (e *Evaluator) OnPriceObservation(ctx context.Context, obs history.PriceObservation) error {
	if err := ValidateObservation(obs); err != nil {
		return err
	}

	rules, err := e.rules.FindActiveBySymbol(ctx, obs.Symbol)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	metrics := observability.GetCollector()

	fired := 0
	for i := range rules {
		metrics.Counter(observability.MetricRulesEvaluated).Inc()
		triggered, err := e.evaluateRule(ctx, rules[i].ID, obs)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				return err
			}
			// Rule-local failure: skip this rule, keep the batch going.
			e.logger.Error().
				Err(err).
				Str("rule_id", rules[i].ID).
				Str("symbol", obs.Symbol).
				Msg("rule evaluation failed")
			continue
		}
		if triggered {
			metrics.Counter(observability.MetricAlertsTriggered).Inc()
			fired++
		}
	}

	e.logger.Debug().
		Str("symbol", obs.Symbol).
		Float64("price", obs.Price).
		Int("rules", len(rules)).
		Int("fired", fired).
		Msg("observation evaluated")

	return nil
}

// evaluateRule runs one rule under its lock: cooldown check, metric
// computation, match, dispatch, then the conditional trigger update.
// The state update is skipped whenever dispatch fails, keeping the rule
// eligible on the next observation. Reports whether the rule fired.
func (e *Evaluator) evaluateRule(ctx context.Context, ruleID string, obs history.PriceObservation) (bool, error) {
	lock := e.ruleLock(ruleID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock so the cooldown check sees the trigger
	// state of any evaluation that just finished.
	rule, err := e.rules.FindByID(ctx, ruleID)
	if errors.Is(err, ErrRuleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !rule.IsActive {
		return false, nil
	}
	if !CooldownExpired(rule, obs.ObservedAt) {
		return false, nil
	}

	lookback := rule.Lookback(defaultLookback)
	window, err := e.history.FindRange(ctx, obs.Symbol, obs.ObservedAt.Add(-lookback), obs.ObservedAt)
	if err != nil {
		return false, fmt.Errorf("%w: read history for %s: %v", ErrStoreUnavailable, obs.Symbol, err)
	}

	metrics := indicators.ComputeMetrics(obs.Price, history.Prices(window))

	trendReversed := false
	if rule.Kind == KindTrendChange {
		trendLookback := rule.Lookback(defaultTrendLookback)
		trendWindow, err := e.history.FindRange(ctx, obs.Symbol, obs.ObservedAt.Add(-trendLookback), obs.ObservedAt)
		if err != nil {
			return false, fmt.Errorf("%w: read trend history for %s: %v", ErrStoreUnavailable, obs.Symbol, err)
		}
		trendReversed = indicators.TrendReversed(history.Prices(trendWindow))
	}

	fired, changePercent := Match(rule, obs.Price, metrics, trendReversed)
	if !fired {
		return false, nil
	}

	notification := &Notification{
		ID:            uuid.New().String(),
		RuleID:        rule.ID,
		OwnerID:       rule.OwnerID,
		Symbol:        rule.Symbol,
		CurrentPrice:  obs.Price,
		Threshold:     rule.Threshold,
		Kind:          rule.Kind,
		ChangePercent: changePercent,
		TriggeredAt:   obs.ObservedAt,
	}

	if err := e.dispatcher.Dispatch(ctx, notification); err != nil {
		return false, err
	}

	if e.recorder != nil {
		e.recorder.Save(notification)
	}

	won, err := e.rules.MarkTriggered(ctx, rule.ID, obs.ObservedAt, rule.LastTriggeredAt)
	if err != nil {
		return true, err
	}
	if !won {
		// Another engine instance triggered concurrently; its state
		// won and the broker's dedup key collapsed the notifications.
		e.logger.Warn().
			Str("rule_id", rule.ID).
			Str("symbol", rule.Symbol).
			Msg("lost trigger race, state not updated")
		return true, nil
	}

	e.logger.Info().
		Str("rule_id", rule.ID).
		Str("symbol", rule.Symbol).
		Str("kind", string(rule.Kind)).
		Float64("price", obs.Price).
		Float64("change_percent", changePercent).
		Msg("alert triggered")

	return true, nil
}

func (e *Evaluator) ruleLock(ruleID string) *sync.Mutex {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()

	lock, ok := e.locks[ruleID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[ruleID] = lock
	}
	return lock
}
