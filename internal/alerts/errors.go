package alerts

import "errors"

var (
	// ErrInvalidObservation marks a malformed price observation
	// (non-finite or non-positive price, empty symbol). Dropped after
	// logging; the source's own redelivery policy governs retries.
	ErrInvalidObservation = errors.New("invalid price observation")

	// ErrInvalidRule marks a rule whose threshold violates the per-kind
	// invariant. Rejected before persistence.
	ErrInvalidRule = errors.New("invalid rule configuration")

	// ErrRuleNotFound is returned when a rule id resolves to nothing.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrStoreUnavailable marks a transient rule-store or history-store
	// failure. Surfaced to the ingestion boundary so the broker can
	// redeliver the observation.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDispatchFailed marks a failed notification delivery. The
	// trigger state must not be committed after it, so the rule stays
	// eligible on the next observation.
	ErrDispatchFailed = errors.New("notification dispatch failed")
)
