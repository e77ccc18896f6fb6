// Package evmcore custodies the underlying asset of the vote-escrow ledger in
// an EVM state database.
//
// Account balances of the underlying asset are plain go-ethereum StateDB
// balances. A dedicated custody account holds everything that is currently
// locked. Pull and Push move value between an account and custody and then
// flush the state so the move survives a restart; the flush follows the same
// two-phase commit a genesis import uses.
package evmcore

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/ethdb"
)

// DefaultCustody is the account that holds all escrowed funds unless the
// operator configures another one.
var DefaultCustody = common.HexToAddress("0xe5c0e5c000000000000000000000000000000000")

var rootKey = []byte("evmcore-state-root")

var (
	// ErrInsufficientBalance is returned by Pull when the account cannot cover the amount.
	ErrInsufficientBalance = errors.New("evmcore: insufficient balance")

	// ErrInsufficientCustody is returned by Push when custody cannot cover the amount.
	ErrInsufficientCustody = errors.New("evmcore: insufficient custody balance")

	// ErrInvalidAmount is returned for nil or negative amounts.
	ErrInvalidAmount = errors.New("evmcore: invalid amount")
)

// Gateway implements ledger.Gateway on a StateDB.
type Gateway struct {
	mu sync.Mutex

	db      ethdb.Database
	sdb     state.Database
	statedb *state.StateDB
	root    common.Hash
	custody common.Address
}

// NewGateway opens the state persisted in db, or an empty state on first use.
func NewGateway(db ethdb.Database, custody common.Address) (*Gateway, error) {
	var root common.Hash
	ok, err := db.Has(rootKey)
	if err != nil {
		return nil, err
	}
	if ok {
		raw, err := db.Get(rootKey)
		if err != nil {
			return nil, err
		}
		root = common.BytesToHash(raw)
	}

	sdb := state.NewDatabase(db)
	statedb, err := state.New(root, sdb, nil)
	if err != nil {
		return nil, fmt.Errorf("evmcore: open state %s: %w", root.Hex(), err)
	}
	return &Gateway{
		db:      db,
		sdb:     sdb,
		statedb: statedb,
		root:    root,
		custody: custody,
	}, nil
}

// Custody returns the custody account.
func (g *Gateway) Custody() common.Address {
	return g.custody
}

// Root returns the state root after the last successful flush.
func (g *Gateway) Root() common.Hash {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.root
}

// BalanceOf returns the underlying-asset balance of acc.
func (g *Gateway) BalanceOf(acc common.Address) *big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return new(big.Int).Set(g.statedb.GetBalance(acc))
}

// CustodyBalance returns the amount currently held in escrow.
func (g *Gateway) CustodyBalance() *big.Int {
	return g.BalanceOf(g.custody)
}

// Pull moves amount from the account into custody.
func (g *Gateway) Pull(ctx context.Context, from common.Address, amount *big.Int) error {
	return g.move(ctx, from, g.custody, amount, ErrInsufficientBalance)
}

// Push moves amount from custody back to the account.
func (g *Gateway) Push(ctx context.Context, to common.Address, amount *big.Int) error {
	return g.move(ctx, g.custody, to, amount, ErrInsufficientCustody)
}

func (g *Gateway) move(ctx context.Context, from, to common.Address, amount *big.Int, short error) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if have := g.statedb.GetBalance(from); have.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", short, from.Hex(), have, amount)
	}
	g.statedb.SubBalance(from, amount)
	g.statedb.AddBalance(to, amount)
	return g.flush()
}

// flush commits pending state changes, writes the trie to the database and
// records the new root. On failure the pending changes are discarded by
// reopening the state at the previous root, so a failed move leaves no trace.
func (g *Gateway) flush() error {
	root, err := g.commit()
	if err != nil {
		if statedb, rerr := state.New(g.root, g.sdb, nil); rerr == nil {
			g.statedb = statedb
		}
		return err
	}
	g.root = root
	return nil
}

func (g *Gateway) commit() (common.Hash, error) {
	// Phase 1: fold pending account changes into the state trie.
	root, err := g.statedb.Commit(true)
	if err != nil {
		return common.Hash{}, err
	}
	// Phase 2: persist trie nodes, then the root that names them.
	if err := g.statedb.Database().TrieDB().Commit(root, false, nil); err != nil {
		return common.Hash{}, err
	}
	if err := g.db.Put(rootKey, root.Bytes()); err != nil {
		return common.Hash{}, err
	}
	statedb, err := state.New(root, g.sdb, nil)
	if err != nil {
		return common.Hash{}, err
	}
	g.statedb = statedb
	return root, nil
}
