// Package ledger implements the vote-escrow lock ledger: the per-account lock
// records, the running locked supply, and the two transitions that move an
// account between the Unlocked and Locked states.
//
// State machine per account:
//
//	Unlocked --CreateLock--> Locked    (guard: valid amount and duration)
//	Locked   --Withdraw----> Unlocked  (guard: lock expired)
//
// An account may cycle Unlocked -> Locked -> Unlocked indefinitely. The ledger
// performs no authorization; callers are expected to have been vetted by
// whatever collaborator owns access control before reaching it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-veledger/epoch"
	"github.com/rony4d/go-veledger/inter"
)

// Config carries the tunables and optional collaborators of a Ledger.
type Config struct {
	// EpochLength is the rounding granularity of unlock times in seconds.
	// Zero selects epoch.Week.
	EpochLength uint64

	// MaxLockDuration bounds unlock-now in seconds. Zero means unbounded.
	MaxLockDuration uint64

	// Store persists records and supply. Nil keeps the ledger in memory.
	Store Store

	// Emitter receives Deposit, Withdraw and Supply notifications. May be nil.
	Emitter Emitter

	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// Ledger owns the lock records and the locked supply.
//
// A single mutex is the transaction boundary: a record mutation, the matching
// supply change and the gateway transfer they depend on are never observable
// half-done by another caller.
type Ledger struct {
	mu sync.Mutex

	epochLength uint64
	maxDuration uint64

	gateway Gateway
	store   Store
	emitter Emitter
	log     logrus.FieldLogger

	locks  map[common.Address]inter.LockedBalance
	supply *Supply

	// halted latches the first integrity failure. Once set, memory and the
	// durable store disagree and no further transition is allowed.
	halted error
}

// New builds a ledger around the gateway. When cfg.Store is set, the persisted
// records are loaded and the stored supply is checked against their sum. If the
// gateway is also a Custodian, its escrow must cover the loaded supply.
func New(gw Gateway, cfg Config) (*Ledger, error) {
	if gw == nil {
		return nil, errors.New("ledger: nil gateway")
	}
	l := &Ledger{
		epochLength: cfg.EpochLength,
		maxDuration: cfg.MaxLockDuration,
		gateway:     gw,
		store:       cfg.Store,
		emitter:     cfg.Emitter,
		log:         cfg.Logger,
		locks:       make(map[common.Address]inter.LockedBalance),
		supply:      NewSupply(),
	}
	if l.epochLength == 0 {
		l.epochLength = epoch.Week
	}
	if l.log == nil {
		l.log = logrus.StandardLogger()
	}

	if l.store != nil {
		locks, supply, err := l.store.Load()
		if err != nil {
			return nil, fmt.Errorf("ledger: load store: %w", err)
		}
		for acc, lock := range locks {
			if lock.Active() {
				l.locks[acc] = lock.Copy()
			}
		}
		if supply != nil {
			l.supply.Restore(supply)
		}
		if err := l.verifyLocked(); err != nil {
			return nil, err
		}
		if err := l.verifyCustody(); err != nil {
			return nil, err
		}
		l.log.WithFields(logrus.Fields{
			"locks":  len(l.locks),
			"supply": l.supply.Total().String(),
		}).Info("Loaded lock ledger")
	}
	return l, nil
}

// EpochLength returns the rounding granularity in use.
func (l *Ledger) EpochLength() uint64 {
	return l.epochLength
}

// CreateLock escrows amount from account until unlock, rounded down to the
// epoch boundary.
//
// Preconditions are checked in order: no active lock (ErrAlreadyLocked),
// a positive uint256 amount (ErrInvalidAmount), an unlock time in the future
// (ErrInvalidDuration). The gateway pull happens next; its failure aborts the
// call with a TransferError and no state change. Once the pull is confirmed
// the remaining steps always run to completion.
//
// ctx is checked as soon as the ledger lock is held, before any precondition,
// and then handed to the gateway. After an integrity failure every call is
// refused with ErrIntegrity.
func (l *Ledger) CreateLock(ctx context.Context, account common.Address, amount *big.Int, unlock, now inter.Timestamp) (inter.SupplySnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.admit(ctx); err != nil {
		return inter.SupplySnapshot{}, err
	}
	if l.locks[account].Active() {
		return inter.SupplySnapshot{}, ErrAlreadyLocked
	}
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(math.MaxBig256) > 0 {
		return inter.SupplySnapshot{}, ErrInvalidAmount
	}
	end, err := l.lockEnd(unlock, now)
	if err != nil {
		return inter.SupplySnapshot{}, err
	}
	amount = new(big.Int).Set(amount)

	// Reject before touching the gateway so a pull is never followed by an
	// accounting failure.
	if new(big.Int).Add(l.supply.total, amount).Cmp(math.MaxBig256) > 0 {
		return inter.SupplySnapshot{}, ErrSupplyOverflow
	}

	if err := l.gateway.Pull(ctx, account, amount); err != nil {
		l.log.WithError(err).WithField("account", account.Hex()).Warn("Lock pull failed")
		return inter.SupplySnapshot{}, &TransferError{Op: "pull", Account: account, Err: err}
	}

	lock := inter.LockedBalance{Amount: amount, End: end}
	snap, err := l.supply.Add(amount)
	if err != nil {
		// Unreachable after the overflow pre-check; custody already holds the funds.
		return inter.SupplySnapshot{}, l.halt(fmt.Errorf("%w: account %s: %v", ErrIntegrity, account.Hex(), err))
	}
	l.locks[account] = lock
	commitErr := l.persist(account, lock, snap.After)

	l.log.WithFields(logrus.Fields{
		"account": account.Hex(),
		"amount":  amount.String(),
		"end":     uint64(end),
		"supply":  snap.After.String(),
	}).Debug("Created lock")

	l.emit(inter.Deposit{
		Account:   account,
		Amount:    new(big.Int).Set(amount),
		End:       end,
		Kind:      inter.LockKindCreate,
		Timestamp: now,
	})
	l.emit(inter.SupplyFromSnapshot(snap))

	return snap, commitErr
}

// Withdraw releases an expired lock back to its account.
//
// Fails with ErrNoActiveLock when the account holds nothing and with
// ErrLockNotExpired while now < end. The record and supply are reset before
// the gateway push and restored if the push fails, so a failed withdrawal is
// never visible. ctx and the integrity latch are handled as in CreateLock.
func (l *Ledger) Withdraw(ctx context.Context, account common.Address, now inter.Timestamp) (inter.SupplySnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.admit(ctx); err != nil {
		return inter.SupplySnapshot{}, err
	}
	lock, ok := l.locks[account]
	if !ok || lock.Empty() {
		return inter.SupplySnapshot{}, ErrNoActiveLock
	}
	if !lock.Expired(now) {
		return inter.SupplySnapshot{}, fmt.Errorf("%w: unlocks at %d", ErrLockNotExpired, uint64(lock.End))
	}

	prevSupply := l.supply.Total()
	delete(l.locks, account)
	snap, err := l.supply.Sub(lock.Amount)
	if err != nil {
		l.locks[account] = lock
		return inter.SupplySnapshot{}, l.halt(fmt.Errorf("%w: account %s: %v", ErrIntegrity, account.Hex(), err))
	}

	if err := l.gateway.Push(ctx, account, lock.Amount); err != nil {
		l.locks[account] = lock
		l.supply.Restore(prevSupply)
		l.log.WithError(err).WithField("account", account.Hex()).Warn("Withdraw push failed")
		return inter.SupplySnapshot{}, &TransferError{Op: "push", Account: account, Err: err}
	}
	commitErr := l.persist(account, inter.ZeroBalance(), snap.After)

	l.log.WithFields(logrus.Fields{
		"account": account.Hex(),
		"amount":  lock.Amount.String(),
		"supply":  snap.After.String(),
	}).Debug("Withdrew lock")

	l.emit(inter.Withdraw{
		Account:   account,
		Amount:    new(big.Int).Set(lock.Amount),
		Timestamp: now,
	})
	l.emit(inter.SupplyFromSnapshot(snap))

	return snap, commitErr
}

// LockedBalanceOf returns the account's record, or the zero record when the
// account has never locked or has withdrawn.
func (l *Ledger) LockedBalanceOf(account common.Address) inter.LockedBalance {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lock, ok := l.locks[account]; ok {
		return lock.Copy()
	}
	return inter.ZeroBalance()
}

// TotalLocked returns the current locked supply.
func (l *Ledger) TotalLocked() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply.Total()
}

// ActiveLocks returns the number of accounts holding a lock.
func (l *Ledger) ActiveLocks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Locks returns a copy of every active record.
func (l *Ledger) Locks() map[common.Address]inter.LockedBalance {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[common.Address]inter.LockedBalance, len(l.locks))
	for acc, lock := range l.locks {
		out[acc] = lock.Copy()
	}
	return out
}

// Halted returns the integrity failure that stopped the ledger, or nil.
func (l *Ledger) Halted() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.halted
}

// Verify reconstructs the supply from the records and compares it with the
// running total.
func (l *Ledger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.verifyLocked()
}

func (l *Ledger) verifyLocked() error {
	sum := new(big.Int)
	for acc, lock := range l.locks {
		if lock.End == 0 || !epoch.IsAligned(lock.End, l.epochLength) {
			return fmt.Errorf("%w: account %s has malformed end %d", ErrSupplyMismatch, acc.Hex(), uint64(lock.End))
		}
		sum.Add(sum, lock.Amount)
	}
	if sum.Cmp(l.supply.total) != 0 {
		return fmt.Errorf("%w: records sum to %s, supply is %s", ErrSupplyMismatch, sum, l.supply.total)
	}
	return nil
}

func (l *Ledger) verifyCustody() error {
	c, ok := l.gateway.(Custodian)
	if !ok {
		return nil
	}
	held := c.CustodyBalance()
	if held.Cmp(l.supply.total) < 0 {
		return fmt.Errorf("%w: custody holds %s, locked supply is %s", ErrIntegrity, held, l.supply.total)
	}
	return nil
}

// admit runs ahead of every transition.
func (l *Ledger) admit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.halted != nil {
		return fmt.Errorf("ledger halted: %w", l.halted)
	}
	return nil
}

// halt latches the first integrity failure and returns err.
func (l *Ledger) halt(err error) error {
	if l.halted == nil {
		l.halted = err
	}
	return err
}

// lockEnd validates the requested unlock time and returns the rounded end.
func (l *Ledger) lockEnd(unlock, now inter.Timestamp) (inter.Timestamp, error) {
	if unlock <= now {
		return 0, fmt.Errorf("%w: unlock %d is not after %d", ErrInvalidDuration, uint64(unlock), uint64(now))
	}
	if l.maxDuration > 0 && uint64(unlock-now) > l.maxDuration {
		return 0, fmt.Errorf("%w: lock longer than %ds", ErrInvalidDuration, l.maxDuration)
	}
	end := epoch.RoundDown(unlock, l.epochLength)
	if end <= now {
		return 0, fmt.Errorf("%w: unlock %d rounds to %d which is not after %d", ErrInvalidDuration, uint64(unlock), uint64(end), uint64(now))
	}
	return end, nil
}

// persist writes the record and supply through the store. A failure here
// happens after the gateway committed, so it is reported as ErrIntegrity and
// halts the ledger.
func (l *Ledger) persist(account common.Address, lock inter.LockedBalance, supply *big.Int) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Commit(account, lock, supply); err != nil {
		l.log.WithError(err).WithField("account", account.Hex()).Error("Failed to persist lock record")
		return l.halt(fmt.Errorf("%w: persist %s: %v", ErrIntegrity, account.Hex(), err))
	}
	return nil
}

// emit delivers a notification without letting it influence the operation.
func (l *Ledger) emit(ev inter.Event) {
	if l.emitter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.log.WithField("event", ev.Name()).Errorf("Audit emitter panicked: %v", r)
		}
	}()
	if err := l.emitter.Emit(ev); err != nil {
		l.log.WithError(err).WithField("event", ev.Name()).Warn("Audit notification failed")
	}
}
