package epoch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-veledger/inter"
)

func TestWeekConstant(t *testing.T) {
	require.Equal(t, uint64(7*24*60*60), Week)
}

// TestRoundDown walks the boundaries around a single epoch.
func TestRoundDown(t *testing.T) {
	tests := []struct {
		name string
		ts   inter.Timestamp
		want inter.Timestamp
	}{
		{"zero", 0, 0},
		{"inside first epoch", 604799, 0},
		{"on boundary", 604800, 604800},
		{"just after boundary", 604801, 604800},
		{"realistic unlock", 1700000000, 1699488000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundDown(tt.ts, Week)
			require.Equal(t, tt.want, got)
			require.True(t, IsAligned(got, Week))
		})
	}
}

// TestRoundDownMatchesFormula checks floor((t0+week)/week)*week for a range of t0.
func TestRoundDownMatchesFormula(t *testing.T) {
	for t0 := uint64(1600000000); t0 < 1600000000+3*Week; t0 += 86399 {
		unlock := inter.Timestamp(t0 + Week)
		want := inter.Timestamp((t0 + Week) / Week * Week)
		require.Equal(t, want, RoundDown(unlock, Week))
		require.Greater(t, uint64(RoundDown(unlock, Week)), t0, "one-week lock always ends in the future")
	}
}

func TestZeroLength(t *testing.T) {
	require.Equal(t, inter.Timestamp(12345), RoundDown(12345, 0))
	require.True(t, IsAligned(12345, 0))
	require.Equal(t, inter.Timestamp(12345), Next(12345, 0))
}

func TestNext(t *testing.T) {
	require.Equal(t, inter.Timestamp(604800), Next(0, Week))
	require.Equal(t, inter.Timestamp(1209600), Next(604800, Week))
	require.Equal(t, inter.Timestamp(1209600), Next(604801, Week))
}
