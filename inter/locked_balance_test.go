// Tests for the lock record and its JSON representation.
package inter

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLockedBalanceEmpty checks the zero-record invariant helpers.
func TestLockedBalanceEmpty(t *testing.T) {
	require := require.New(t)

	require.True(LockedBalance{}.Empty(), "nil amount counts as no lock")
	require.True(ZeroBalance().Empty())
	require.False(ZeroBalance().Active())

	lb := LockedBalance{Amount: big.NewInt(100), End: 604800}
	require.False(lb.Empty())
	require.True(lb.Active())
}

// TestLockedBalanceExpired verifies that expiry is inclusive of End.
func TestLockedBalanceExpired(t *testing.T) {
	lb := LockedBalance{Amount: big.NewInt(1), End: 1000}

	require.False(t, lb.Expired(999))
	require.True(t, lb.Expired(1000))
	require.True(t, lb.Expired(1001))
}

// TestLockedBalanceCopy ensures the copy does not alias the original amount.
func TestLockedBalanceCopy(t *testing.T) {
	require := require.New(t)

	orig := LockedBalance{Amount: big.NewInt(42), End: 7}
	cp := orig.Copy()
	cp.Amount.SetInt64(1)

	require.Equal(int64(42), orig.Amount.Int64())
	require.Equal(Timestamp(7), cp.End)

	// Copying an uninitialised record yields a usable zero amount.
	require.Equal(0, LockedBalance{}.Copy().Amount.Sign())
}

// TestLockedBalanceJSON covers the hex-quantity encoding used by the HTTP API.
func TestLockedBalanceJSON(t *testing.T) {
	require := require.New(t)

	lb := LockedBalance{Amount: big.NewInt(100), End: 1209600}
	raw, err := json.Marshal(lb)
	require.NoError(err)
	require.JSONEq(`{"amount":"0x64","end":1209600}`, string(raw))

	var back LockedBalance
	require.NoError(json.Unmarshal(raw, &back))
	require.Equal(0, back.Amount.Cmp(lb.Amount))
	require.Equal(lb.End, back.End)

	raw, err = json.Marshal(LockedBalance{})
	require.NoError(err)
	require.JSONEq(`{"amount":"0x0","end":0}`, string(raw))
}

// TestTimestampConversions checks second truncation and pre-epoch clamping.
func TestTimestampConversions(t *testing.T) {
	require := require.New(t)

	at := time.Date(2021, 1, 1, 0, 0, 0, 999, time.UTC)
	ts := FromTime(at)
	require.Equal(int64(1609459200), ts.Unix())
	require.True(ts.Time().Equal(at.Truncate(time.Second)))

	require.Equal(Timestamp(0), FromTime(time.Unix(-5, 0)))
}

// TestLockKindString verifies the indexer names of lock kinds.
func TestLockKindString(t *testing.T) {
	require.Equal(t, "CREATE", LockKindCreate.String())
	require.Equal(t, uint8(0), uint8(LockKindCreate))
	require.Equal(t, "UNKNOWN", LockKind(9).String())
}

// TestSupplySnapshotDelta verifies Delta and the event conversion.
func TestSupplySnapshotDelta(t *testing.T) {
	require := require.New(t)

	s := SupplySnapshot{Before: big.NewInt(100), After: big.NewInt(0)}
	require.Equal(int64(-100), s.Delta().Int64())

	ev := SupplyFromSnapshot(s)
	require.Equal(SupplyEventName, ev.Name())
	ev.Before.SetInt64(5)
	require.Equal(int64(100), s.Before.Int64(), "event must not alias snapshot")
}
