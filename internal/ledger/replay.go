package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ReplayMismatch is a logged transaction whose re-execution diverged.
type ReplayMismatch struct {
	Seq             int64  `json:"seq"`
	TransactionID   string `json:"transaction_id"`
	ExpectedOutcome string `json:"expected_outcome"`
	ActualOutcome   string `json:"actual_outcome"`
	Reason          string `json:"reason"`
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Transactions      int              `json:"transactions"`
	Mismatches        []ReplayMismatch `json:"mismatches,omitempty"`
	ExpectedStateHash string           `json:"expected_state_hash"`
	StateHash         string           `json:"state_hash"`
}

// OK reports whether every receipt and the final state matched.
func (r *ReplayResult) OK() bool {
	return len(r.Mismatches) == 0 && r.StateHash == r.ExpectedStateHash
}

// Replay re-executes the whole transaction log against target, which must be
// empty, and compares every receipt and the final state hash with the
// original.
//
// Each transaction observes the clock reading and seq recorded in its
// receipt, so a deterministic program reproduces byte-identical receipts.
func (r *Runtime) Replay(ctx context.Context, target Backend) (*ReplayResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, err := target.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if last != 0 {
		return nil, fmt.Errorf("replay: target ledger is not empty (last seq %d)", last)
	}

	entries, err := r.backend.Log(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	fresh, err := New(ctx, target, WithRent(r.allocator.Rent()), WithClock(r.clock))
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	for _, id := range r.order {
		if id == SystemProgramID {
			continue
		}
		if err := fresh.Register(r.programs[id]); err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
	}

	result := &ReplayResult{Transactions: len(entries)}
	for _, entry := range entries {
		want := entry.Receipt
		got, err := fresh.apply(ctx, entry.Transaction, &want)
		if err != nil {
			var le *Error
			if !errors.As(err, &le) {
				return nil, fmt.Errorf("replay seq %d: %w", want.Seq, err)
			}
			if got.ID == "" {
				result.Mismatches = append(result.Mismatches, ReplayMismatch{
					Seq:             want.Seq,
					TransactionID:   want.TransactionID,
					ExpectedOutcome: want.Outcome,
					ActualOutcome:   string(le.Code),
					Reason:          "transaction rejected before execution",
				})
				continue
			}
		}
		if got.ID != want.ID {
			reason := "receipt differs"
			if got.Outcome != want.Outcome {
				reason = "outcome differs"
			}
			result.Mismatches = append(result.Mismatches, ReplayMismatch{
				Seq:             want.Seq,
				TransactionID:   want.TransactionID,
				ExpectedOutcome: want.Outcome,
				ActualOutcome:   got.Outcome,
				Reason:          reason,
			})
		}
	}

	if result.ExpectedStateHash, err = r.StateHash(ctx); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if result.StateHash, err = fresh.StateHash(ctx); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	slog.Info("replay finished",
		"transactions", result.Transactions,
		"mismatches", len(result.Mismatches),
		"state_match", result.StateHash == result.ExpectedStateHash)
	return result, nil
}
