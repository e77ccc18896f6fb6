package ledger

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-veledger/epoch"
	"github.com/rony4d/go-veledger/inter"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	// t0 is an arbitrary creation time that does not sit on an epoch boundary.
	t0 = inter.Timestamp(1700000000)

	week = inter.Timestamp(epoch.Week)

	errBoom = errors.New("boom")
)

// memGateway tracks external balances and custody in memory.
type memGateway struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	custody  *big.Int

	pullErr error
	pushErr error
	pulls   int
	pushes  int
}

func newMemGateway() *memGateway {
	return &memGateway{balances: make(map[common.Address]*big.Int), custody: new(big.Int)}
}

func (g *memGateway) fund(acc common.Address, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balanceLocked(acc).Add(g.balanceLocked(acc), big.NewInt(amount))
}

func (g *memGateway) balance(acc common.Address) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balanceLocked(acc).Int64()
}

func (g *memGateway) custodyBalance() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.custody.Int64()
}

// CustodyBalance makes memGateway a Custodian.
func (g *memGateway) CustodyBalance() *big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return new(big.Int).Set(g.custody)
}

func (g *memGateway) balanceLocked(acc common.Address) *big.Int {
	b, ok := g.balances[acc]
	if !ok {
		b = new(big.Int)
		g.balances[acc] = b
	}
	return b
}

func (g *memGateway) Pull(_ context.Context, from common.Address, amount *big.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pulls++
	if g.pullErr != nil {
		return g.pullErr
	}
	b := g.balanceLocked(from)
	if b.Cmp(amount) < 0 {
		return errors.New("insufficient balance")
	}
	b.Sub(b, amount)
	g.custody.Add(g.custody, amount)
	return nil
}

func (g *memGateway) Push(_ context.Context, to common.Address, amount *big.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushes++
	if g.pushErr != nil {
		return g.pushErr
	}
	if g.custody.Cmp(amount) < 0 {
		return errors.New("insufficient custody")
	}
	g.custody.Sub(g.custody, amount)
	b := g.balanceLocked(to)
	b.Add(b, amount)
	return nil
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []inter.Event
}

func (r *recorder) Emit(ev inter.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) all() []inter.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inter.Event(nil), r.events...)
}

// memStore is an in-memory Store with an injectable commit failure.
type memStore struct {
	locks     map[common.Address]inter.LockedBalance
	supply    *big.Int
	commitErr error
	loadErr   error
	commits   int
}

func newMemStore() *memStore {
	return &memStore{locks: make(map[common.Address]inter.LockedBalance), supply: new(big.Int)}
}

func (s *memStore) Load() (map[common.Address]inter.LockedBalance, *big.Int, error) {
	if s.loadErr != nil {
		return nil, nil, s.loadErr
	}
	out := make(map[common.Address]inter.LockedBalance, len(s.locks))
	for a, l := range s.locks {
		out[a] = l.Copy()
	}
	return out, new(big.Int).Set(s.supply), nil
}

func (s *memStore) Commit(acc common.Address, lock inter.LockedBalance, supply *big.Int) error {
	s.commits++
	if s.commitErr != nil {
		return s.commitErr
	}
	if lock.Empty() {
		delete(s.locks, acc)
	} else {
		s.locks[acc] = lock.Copy()
	}
	s.supply = new(big.Int).Set(supply)
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func newTestLedger(gw Gateway, cfg Config) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	l, err := New(gw, cfg)
	if err != nil {
		panic(err)
	}
	return l
}

// sumLocks is the reference reconstruction of the supply.
func sumLocks(l *Ledger) *big.Int {
	sum := new(big.Int)
	for _, lock := range l.Locks() {
		sum.Add(sum, lock.Amount)
	}
	return sum
}

func requireDeposit(t *testing.T, ev inter.Event, acc common.Address, amount int64, end, ts inter.Timestamp) {
	t.Helper()
	d, ok := ev.(inter.Deposit)
	require.True(t, ok, "want Deposit, got %T", ev)
	require.Equal(t, acc, d.Account)
	require.Equal(t, 0, d.Amount.Cmp(big.NewInt(amount)), "amount %s", d.Amount)
	require.Equal(t, end, d.End)
	require.Equal(t, inter.LockKindCreate, d.Kind)
	require.Equal(t, ts, d.Timestamp)
}

func requireWithdraw(t *testing.T, ev inter.Event, acc common.Address, amount int64, ts inter.Timestamp) {
	t.Helper()
	w, ok := ev.(inter.Withdraw)
	require.True(t, ok, "want Withdraw, got %T", ev)
	require.Equal(t, acc, w.Account)
	require.Equal(t, 0, w.Amount.Cmp(big.NewInt(amount)), "amount %s", w.Amount)
	require.Equal(t, ts, w.Timestamp)
}

func requireSupply(t *testing.T, ev inter.Event, before, after int64) {
	t.Helper()
	s, ok := ev.(inter.Supply)
	require.True(t, ok, "want Supply, got %T", ev)
	require.Equal(t, 0, s.Before.Cmp(big.NewInt(before)), "before %s", s.Before)
	require.Equal(t, 0, s.After.Cmp(big.NewInt(after)), "after %s", s.After)
}
