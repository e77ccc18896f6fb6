package inter

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event names as seen by external indexers.
const (
	DepositEventName  = "Deposit"
	WithdrawEventName = "Withdraw"
	SupplyEventName   = "Supply"
)

// Event is a notification produced by a ledger transition.
// Field order of every concrete event is fixed; indexers rely on it.
type Event interface {
	// Name returns the indexer-facing event name.
	Name() string
}

// Deposit is emitted when a lock is created.
type Deposit struct {
	Account   common.Address
	Amount    *big.Int
	End       Timestamp
	Kind      LockKind
	Timestamp Timestamp
}

// Withdraw is emitted when an expired lock is paid out.
type Withdraw struct {
	Account   common.Address
	Amount    *big.Int
	Timestamp Timestamp
}

// Supply is emitted alongside every Deposit and Withdraw.
type Supply struct {
	Before *big.Int
	After  *big.Int
}

func (Deposit) Name() string  { return DepositEventName }
func (Withdraw) Name() string { return WithdrawEventName }
func (Supply) Name() string   { return SupplyEventName }

// SupplyFromSnapshot converts a snapshot into its event form.
func SupplyFromSnapshot(s SupplySnapshot) Supply {
	return Supply{Before: new(big.Int).Set(s.Before), After: new(big.Int).Set(s.After)}
}
