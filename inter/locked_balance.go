package inter

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// LockKind identifies how a Deposit came to be.
// Only lock creation exists; there is no top-up or extension path.
type LockKind uint8

const (
	// LockKindCreate marks a Deposit produced by creating a brand new lock.
	LockKindCreate LockKind = 0
)

// String returns the indexer-facing name of the lock kind.
func (k LockKind) String() string {
	switch k {
	case LockKindCreate:
		return "CREATE"
	default:
		return "UNKNOWN"
	}
}

// LockedBalance is the lock record owned by a single account.
//
// Invariant: Amount is zero exactly when End is zero. A zeroed record means
// the account has no active lock. Amount is never nil once a record leaves the
// ledger; use Empty to test for the unlocked state.
type LockedBalance struct {
	// Amount is the escrowed quantity of the underlying asset.
	Amount *big.Int
	// End is the epoch-aligned time at or after which the lock may be withdrawn.
	End Timestamp
}

// ZeroBalance returns the record of an account without an active lock.
func ZeroBalance() LockedBalance {
	return LockedBalance{Amount: new(big.Int), End: 0}
}

// Empty reports whether the record holds no lock.
func (lb LockedBalance) Empty() bool {
	return lb.Amount == nil || lb.Amount.Sign() == 0
}

// Active is the negation of Empty, kept for readability at call sites.
func (lb LockedBalance) Active() bool {
	return !lb.Empty()
}

// Expired reports whether the lock may be withdrawn at time now.
func (lb LockedBalance) Expired(now Timestamp) bool {
	return now >= lb.End
}

// Copy returns a deep copy so callers never share the ledger's *big.Int.
func (lb LockedBalance) Copy() LockedBalance {
	cp := LockedBalance{End: lb.End, Amount: new(big.Int)}
	if lb.Amount != nil {
		cp.Amount.Set(lb.Amount)
	}
	return cp
}

type lockedBalanceJSON struct {
	Amount *hexutil.Big `json:"amount"`
	End    uint64       `json:"end"`
}

// MarshalJSON encodes the record with a hex-quantity amount, the same
// representation Ethereum JSON-RPC uses for uint256 values.
func (lb LockedBalance) MarshalJSON() ([]byte, error) {
	cp := lb.Copy()
	return json.Marshal(lockedBalanceJSON{
		Amount: (*hexutil.Big)(cp.Amount),
		End:    uint64(cp.End),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (lb *LockedBalance) UnmarshalJSON(data []byte) error {
	var raw lockedBalanceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	lb.Amount = new(big.Int)
	if raw.Amount != nil {
		lb.Amount.Set(raw.Amount.ToInt())
	}
	lb.End = Timestamp(raw.End)
	return nil
}

// SupplySnapshot is the before/after pair produced by every operation that
// changes the locked supply. It is returned to callers and emitted, never stored.
type SupplySnapshot struct {
	Before *big.Int `json:"before"`
	After  *big.Int `json:"after"`
}

// Delta returns After - Before.
func (s SupplySnapshot) Delta() *big.Int {
	return new(big.Int).Sub(s.After, s.Before)
}
