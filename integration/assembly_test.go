package integration

import (
	"context"
	"io"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-veledger/audit"
	"github.com/rony4d/go-veledger/epoch"
	"github.com/rony4d/go-veledger/evmcore"
	"github.com/rony4d/go-veledger/inter"
	"github.com/rony4d/go-veledger/ledger"
	"github.com/rony4d/go-veledger/store"
	"github.com/rony4d/go-veledger/vetoken"
)

const t0 = inter.Timestamp(1700000000)

func testConfig(dataDir string) Config {
	log := logrus.New()
	log.Out = io.Discard
	return Config{
		DataDir:    dataDir,
		Preset:     LitePreset(),
		Rules:      vetoken.ExampleRules(),
		Registerer: prometheus.NewRegistry(),
		Logger:     log,
	}
}

func TestAssembleInMemory(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	rt, err := Assemble(testConfig(""))
	require.NoError(err)
	defer rt.Close()

	alice := evmcore.FakeAccount(1)
	_, err = rt.Gateway.ApplyGenesis(map[common.Address]*big.Int{alice: big.NewInt(1000)})
	require.NoError(err)

	logs := make(chan *types.Log, 8)
	sub := rt.Audit.SubscribeLogs(logs)
	defer sub.Unsubscribe()

	snap, err := rt.Ledger.CreateLock(ctx, alice, big.NewInt(100), t0+inter.Timestamp(epoch.Week), t0)
	require.NoError(err)
	require.Equal(int64(100), snap.After.Int64())
	require.Equal(int64(900), rt.Gateway.BalanceOf(alice).Int64())
	require.Equal(int64(100), rt.Gateway.CustodyBalance().Int64())

	require.Equal(1.0, testutil.ToFloat64(rt.Metrics.Deposits))
	require.Equal(100.0, testutil.ToFloat64(rt.Metrics.LockedSupply))

	select {
	case log := <-logs:
		ev, err := audit.DecodeLog(log)
		require.NoError(err)
		dep, ok := ev.(inter.Deposit)
		require.True(ok)
		require.Equal(alice, dep.Account)
		require.Equal(evmcore.DefaultCustody, log.Address)
	case <-time.After(time.Second):
		t.Fatal("no deposit log delivered")
	}

	lock := rt.Ledger.LockedBalanceOf(alice)
	_, err = rt.Ledger.Withdraw(ctx, alice, lock.End)
	require.NoError(err)
	require.Equal(int64(1000), rt.Gateway.BalanceOf(alice).Int64())
	require.Equal(0.0, testutil.ToFloat64(rt.Metrics.ActiveLocks))
}

// TestAssembleReopen checks that records, supply and balances survive a
// restart on disk.
func TestAssembleReopen(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	alice := evmcore.FakeAccount(1)

	rt, err := Assemble(testConfig(dir))
	require.NoError(err)
	_, err = rt.Gateway.ApplyGenesis(map[common.Address]*big.Int{alice: big.NewInt(500)})
	require.NoError(err)
	_, err = rt.Ledger.CreateLock(context.Background(), alice, big.NewInt(200), t0+inter.Timestamp(2*epoch.Week), t0)
	require.NoError(err)
	want := rt.Ledger.LockedBalanceOf(alice)
	require.NoError(rt.Close())

	rt, err = Assemble(testConfig(dir))
	require.NoError(err)
	defer rt.Close()

	got := rt.Ledger.LockedBalanceOf(alice)
	require.Equal(0, want.Amount.Cmp(got.Amount))
	require.Equal(want.End, got.End)
	require.Equal(int64(200), rt.Ledger.TotalLocked().Int64())
	require.Equal(int64(300), rt.Gateway.BalanceOf(alice).Int64())
	require.Equal(int64(200), rt.Gateway.CustodyBalance().Int64())
	require.Equal(1.0, testutil.ToFloat64(rt.Metrics.ActiveLocks))
	require.NoError(rt.Ledger.Verify())
}

func TestAssembleRejectsInvalidRules(t *testing.T) {
	cfg := testConfig("")
	cfg.Rules.EpochLength = 0
	_, err := Assemble(cfg)
	require.ErrorIs(t, err, vetoken.ErrInvalidRules)
}

func TestAssembleToleratesRegisteredMetrics(t *testing.T) {
	cfg := testConfig("")
	first, err := Assemble(cfg)
	require.NoError(t, err)
	defer first.Close()

	second, err := Assemble(cfg)
	require.NoError(t, err)
	defer second.Close()
}

func TestAssembleCustomCustody(t *testing.T) {
	cfg := testConfig("")
	cfg.Custody = common.HexToAddress("0x1000000000000000000000000000000000000001")
	rt, err := Assemble(cfg)
	require.NoError(t, err)
	defer rt.Close()
	require.Equal(t, cfg.Custody, rt.Gateway.Custody())
}

// lockRecordKey is the raw database key of the account's lock record.
func lockRecordKey(acc common.Address) []byte {
	return append([]byte(lockTablePrefix+"l"), acc.Bytes()...)
}

// TestAssembleReopenWithLargeState funds many accounts so the state trie
// writes thousands of hash-keyed nodes next to the lock table, plants a
// node-shaped key inside the table, and reopens.
func TestAssembleReopenWithLargeState(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	rt, err := Assemble(testConfig(dir))
	require.NoError(err)

	balances := make(map[common.Address]*big.Int, 5000)
	for i := 1; i <= 5000; i++ {
		balances[common.BigToAddress(big.NewInt(int64(i)))] = big.NewInt(int64(i))
	}
	_, err = rt.Gateway.ApplyGenesis(balances)
	require.NoError(err)

	alice := common.BigToAddress(big.NewInt(4000))
	_, err = rt.Ledger.CreateLock(context.Background(), alice, big.NewInt(1000), t0+inter.Timestamp(epoch.Week), t0)
	require.NoError(err)

	// A 32-byte trie node key that starts with the table's record prefix.
	node := append([]byte(lockTablePrefix+"l"), make([]byte, 32-len(lockTablePrefix)-1)...)
	require.Len(node, 32)
	require.NoError(rt.DB.Put(node, []byte{0xc0}))
	require.NoError(rt.Close())

	rt, err = Assemble(testConfig(dir))
	require.NoError(err)
	defer rt.Close()
	require.Equal(1, rt.Ledger.ActiveLocks())
	require.Equal(int64(1000), rt.Ledger.TotalLocked().Int64())
	require.Equal(int64(3000), rt.Gateway.BalanceOf(alice).Int64())
}

// TestAssembleFailureReleasesDatabase fails after the database is open and
// checks that the LevelDB handle was released: a second attempt reports the
// same corruption instead of a lock error, and after repair the runtime opens.
func TestAssembleFailureReleasesDatabase(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	alice := evmcore.FakeAccount(1)

	rt, err := Assemble(testConfig(dir))
	require.NoError(err)
	require.NoError(rt.DB.Put(lockRecordKey(alice), []byte{0xff, 0x00}))
	require.NoError(rt.Close())

	for i := 0; i < 2; i++ {
		rt, err = Assemble(testConfig(dir))
		require.ErrorIs(err, store.ErrCorrupt)
		require.Nil(rt)
	}

	cfg := testConfig(dir)
	db, err := rawdb.NewLevelDBDatabase(filepath.Join(dir, chaindataDir), cfg.Preset.CacheMB, cfg.Preset.Handles, "", false)
	require.NoError(err)
	require.NoError(db.Delete(lockRecordKey(alice)))
	require.NoError(db.Close())

	rt, err = Assemble(cfg)
	require.NoError(err)
	require.NoError(rt.Close())
}

// TestAssembleRefusesCustodyShortfall drains custody behind the ledger's back,
// as a crash between a payout and its record removal would, and expects the
// reopen to fail rather than allow the lock to be withdrawn again.
func TestAssembleRefusesCustodyShortfall(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	alice := evmcore.FakeAccount(1)
	bob := evmcore.FakeAccount(2)

	rt, err := Assemble(testConfig(dir))
	require.NoError(err)
	_, err = rt.Gateway.ApplyGenesis(map[common.Address]*big.Int{alice: big.NewInt(100), bob: big.NewInt(100)})
	require.NoError(err)
	for _, acc := range []common.Address{alice, bob} {
		_, err = rt.Ledger.CreateLock(ctx, acc, big.NewInt(100), t0+inter.Timestamp(epoch.Week), t0)
		require.NoError(err)
	}
	require.NoError(rt.Gateway.Push(ctx, alice, big.NewInt(100)))
	require.NoError(rt.Close())

	rt, err = Assemble(testConfig(dir))
	require.ErrorIs(err, ledger.ErrIntegrity)
	require.Nil(rt)
}
