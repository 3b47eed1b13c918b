package ledger

import (
	"fmt"

	"github.com/roach88/msgledger/internal/ir"
)

// Allocator reserves fixed-size accounts and charges the payer the
// rent-exempt minimum for them.
type Allocator struct {
	rent Rent
}

// NewAllocator creates an allocator with the given rent parameters.
func NewAllocator(rent Rent) *Allocator {
	return &Allocator{rent: rent}
}

// Rent returns the allocator's rent parameters.
func (a *Allocator) Rent() Rent {
	return a.rent
}

// Allocate creates a zeroed account of the given space at address, owned by
// owner and funded by payer, inside tx.
//
// Fails with AllocationError when:
//   - address already holds data or is owned by a program
//   - payer does not exist, holds data, or cannot cover the rent
//
// Lamports already sitting at address count toward the rent, so only the
// shortfall is debited from the payer.
func (a *Allocator) Allocate(tx Tx, address string, space int64, payer, owner string, seq int64) (ir.Account, error) {
	if space < 0 {
		return ir.Account{}, NewAllocationError(address, fmt.Sprintf("negative space %d", space))
	}
	if address == payer {
		return ir.Account{}, NewAllocationError(address, "payer cannot fund its own allocation")
	}

	existing, ok, err := tx.Account(address)
	if err != nil {
		return ir.Account{}, fmt.Errorf("allocate: %w", err)
	}
	if ok && (existing.Space > 0 || existing.Owner != SystemProgramID) {
		return ir.Account{}, NewAllocationError(address, "address already in use")
	}

	from, ok, err := tx.Account(payer)
	if err != nil {
		return ir.Account{}, fmt.Errorf("allocate: %w", err)
	}
	if !ok {
		return ir.Account{}, NewAllocationError(payer, "payer account does not exist")
	}
	if from.Space > 0 || from.Owner != SystemProgramID {
		return ir.Account{}, NewAllocationError(payer, "payer must be a system account without data")
	}

	required := a.rent.MinimumBalance(space) - existing.Lamports
	if required < 0 {
		required = 0
	}
	if from.Lamports < required {
		e := NewAllocationError(payer, "insufficient funds for rent")
		e.Details = map[string]string{
			"required":  fmt.Sprintf("%d", required),
			"available": fmt.Sprintf("%d", from.Lamports),
		}
		return ir.Account{}, e
	}

	from.Lamports -= required
	from.Seq = seq

	acct := ir.Account{
		Address:  address,
		Owner:    owner,
		Lamports: existing.Lamports + required,
		Space:    space,
		Data:     make([]byte, space),
		Seq:      seq,
	}

	if err := tx.PutAccount(from); err != nil {
		return ir.Account{}, fmt.Errorf("allocate: debit payer: %w", err)
	}
	if err := tx.PutAccount(acct); err != nil {
		return ir.Account{}, fmt.Errorf("allocate: %w", err)
	}
	return acct, nil
}
