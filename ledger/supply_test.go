package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-veledger/inter"
)

func TestSupplyAddSub(t *testing.T) {
	require := require.New(t)
	s := NewSupply()

	snap, err := s.Add(big.NewInt(100))
	require.NoError(err)
	require.Equal("0", snap.Before.String())
	require.Equal("100", snap.After.String())

	snap, err = s.Add(big.NewInt(50))
	require.NoError(err)
	require.Equal("100", snap.Before.String())
	require.Equal("150", snap.After.String())

	snap, err = s.Sub(big.NewInt(150))
	require.NoError(err)
	require.Equal("150", snap.Before.String())
	require.Equal("0", snap.After.String())
}

func TestSupplyChecked(t *testing.T) {
	require := require.New(t)
	s := NewSupply()

	_, err := s.Sub(big.NewInt(1))
	require.ErrorIs(err, ErrSupplyUnderflow)
	require.Equal(0, s.Total().Sign(), "failed Sub leaves total untouched")

	_, err = s.Add(math.MaxBig256)
	require.NoError(err)
	_, err = s.Add(big.NewInt(1))
	require.ErrorIs(err, ErrSupplyOverflow)
	require.Equal(0, s.Total().Cmp(math.MaxBig256))

	// Adding a negative amount is a subtraction and is checked the same way.
	s.Restore(big.NewInt(1))
	_, err = s.Add(big.NewInt(-2))
	require.ErrorIs(err, ErrSupplyUnderflow)
}

func TestSupplySnapshotsDoNotAlias(t *testing.T) {
	s := NewSupply()
	snap, err := s.Add(big.NewInt(10))
	require.NoError(t, err)

	snap.After.SetInt64(999)
	s.Total().SetInt64(999)
	require.Equal(t, int64(10), s.Total().Int64())
}

func TestSupplyRestore(t *testing.T) {
	s := NewSupply()
	v := big.NewInt(77)
	s.Restore(v)
	v.SetInt64(0)
	require.Equal(t, int64(77), s.Total().Int64())
}

// TestMultiEmitter delivers to every emitter even after a failure.
func TestMultiEmitter(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	failing := EmitterFunc(func(inter.Event) error { return errBoom })
	m := MultiEmitter{a, nil, failing, b}

	err := m.Emit(inter.Supply{Before: big.NewInt(0), After: big.NewInt(1)})
	require.ErrorIs(t, err, errBoom)
	require.Len(t, a.all(), 1)
	require.Len(t, b.all(), 1)

	require.NoError(t, MultiEmitter{a}.Emit(inter.Supply{Before: big.NewInt(1), After: big.NewInt(0)}))
}
