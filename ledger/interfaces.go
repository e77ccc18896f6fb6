package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-veledger/inter"
)

// Gateway moves the escrowed asset into and out of the ledger's custody.
//
// A nil error from Pull or Push means the transfer is committed. Any error
// aborts the invoking ledger operation with a TransferError.
type Gateway interface {
	// Pull moves amount from the account into custody.
	Pull(ctx context.Context, from common.Address, amount *big.Int) error
	// Push moves amount from custody back to the account.
	Push(ctx context.Context, to common.Address, amount *big.Int) error
}

// Custodian is implemented by gateways that can report the escrowed balance.
type Custodian interface {
	CustodyBalance() *big.Int
}

// Store persists lock records and the supply.
type Store interface {
	// Load returns every active record and the persisted supply.
	Load() (map[common.Address]inter.LockedBalance, *big.Int, error)
	// Commit writes the account record together with the new supply atomically.
	// A zeroed record removes the account.
	Commit(account common.Address, lock inter.LockedBalance, supply *big.Int) error
}

// Emitter receives ledger notifications. Delivery is best-effort: an error
// returned here is logged and never affects the ledger operation.
type Emitter interface {
	Emit(ev inter.Event) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev inter.Event) error

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev inter.Event) error { return f(ev) }

// MultiEmitter fans a notification out to every emitter in order.
// Each emitter is called even if an earlier one fails; the first error is returned.
type MultiEmitter []Emitter

// Emit implements Emitter.
func (m MultiEmitter) Emit(ev inter.Event) error {
	var first error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
