package sapi

import (
	"context"
	"time"
)

// State represents the current state of a change-set.
type State int

const (
	// StatePending indicates the change-set has not been applied yet.
	StatePending State = iota

	// StateApplied indicates the change-set has been applied.
	StateApplied

	// StateModified indicates the change-set has been applied, but the
	// file content has changed since (checksum mismatch).
	StateModified
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateApplied:
		return "applied"
	case StateModified:
		return "modified"
	default:
		return "unknown"
	}
}

// ChangeSetStatus describes one change-set's current state relative to
// the ledger.
type ChangeSetStatus struct {
	Identifier string
	State      State

	// AppliedAt is when the change-set was applied (nil if pending).
	AppliedAt *time.Time

	// DurationMs is the recorded execution time (zero if pending).
	DurationMs int64
}

// Status returns the state of every discovered change-set in ascending
// identifier order.  Applied change-sets whose file checksum no longer
// matches the ledger are reported as modified; ledgers recorded before
// drift detection existed carry no checksum and stay "applied".
func (r *Runner) Status(ctx context.Context) ([]ChangeSetStatus, error) {
	if err := r.client.EnsureLedger(ctx); err != nil {
		return nil, err
	}
	changeSets, err := r.ChangeSets()
	if err != nil {
		return nil, err
	}
	entries, err := r.client.AppliedEntries(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]LedgerEntry, len(entries))
	for _, e := range entries {
		applied[e.Identifier] = e
	}

	statuses := make([]ChangeSetStatus, len(changeSets))
	for i, cs := range changeSets {
		status := ChangeSetStatus{
			Identifier: cs.Identifier,
			State:      StatePending,
		}
		if e, ok := applied[cs.Identifier]; ok {
			status.State = StateApplied
			appliedAt := e.AppliedAt
			status.AppliedAt = &appliedAt
			status.DurationMs = e.DurationMs
			if e.Checksum != "" && e.Checksum != cs.Checksum {
				status.State = StateModified
			}
		}
		statuses[i] = status
	}
	return statuses, nil
}
