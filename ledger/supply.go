package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/rony4d/go-veledger/inter"
)

// Supply is the running total of value held under active locks.
//
// Supply does no locking of its own. It is owned by a Ledger and mutated only
// inside the ledger's transaction boundary, together with the record it
// accounts for. Arithmetic is checked against the uint256 range: amounts are
// caller-supplied and must never wrap.
type Supply struct {
	total *big.Int
}

// NewSupply returns a tracker starting at zero.
func NewSupply() *Supply {
	return &Supply{total: new(big.Int)}
}

// Total returns a copy of the current supply.
func (s *Supply) Total() *big.Int {
	return new(big.Int).Set(s.total)
}

// Add increases the supply by amount and returns the before/after pair.
func (s *Supply) Add(amount *big.Int) (inter.SupplySnapshot, error) {
	after := new(big.Int).Add(s.total, amount)
	if after.Cmp(math.MaxBig256) > 0 {
		return inter.SupplySnapshot{}, ErrSupplyOverflow
	}
	if after.Sign() < 0 {
		return inter.SupplySnapshot{}, ErrSupplyUnderflow
	}
	return s.swap(after), nil
}

// Sub decreases the supply by amount and returns the before/after pair.
func (s *Supply) Sub(amount *big.Int) (inter.SupplySnapshot, error) {
	after := new(big.Int).Sub(s.total, amount)
	if after.Sign() < 0 {
		return inter.SupplySnapshot{}, ErrSupplyUnderflow
	}
	if after.Cmp(math.MaxBig256) > 0 {
		return inter.SupplySnapshot{}, ErrSupplyOverflow
	}
	return s.swap(after), nil
}

// Restore resets the supply to v. Used to undo a mutation whose transfer failed
// and to seed the tracker from durable state.
func (s *Supply) Restore(v *big.Int) {
	s.total = new(big.Int).Set(v)
}

func (s *Supply) swap(after *big.Int) inter.SupplySnapshot {
	before := s.total
	s.total = after
	return inter.SupplySnapshot{
		Before: new(big.Int).Set(before),
		After:  new(big.Int).Set(after),
	}
}
