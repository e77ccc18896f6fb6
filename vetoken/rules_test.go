package vetoken

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-veledger/epoch"
)

func TestPresets(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		under  string
	}{
		{ExampleRulesName, "veETK", "ETK"},
		{CHEDAORulesName, "veCHE", "CHE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := RulesByName(tt.name)
			require.NoError(t, err)
			require.NoError(t, r.Validate())
			require.Equal(t, tt.symbol, r.Symbol)
			require.Equal(t, tt.under, r.Underlying.Symbol)
			require.Equal(t, uint8(18), r.Decimals)
			require.Equal(t, epoch.Week, r.EpochLength)
		})
	}
}

func TestRulesByNameUnknown(t *testing.T) {
	_, err := RulesByName("mainnet")
	require.ErrorIs(t, err, ErrUnknownRules)
	require.Contains(t, err.Error(), "chedao")
}

func TestPresetNamesSorted(t *testing.T) {
	require.Equal(t, []string{CHEDAORulesName, ExampleRulesName}, PresetNames())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rules)
	}{
		{"empty symbol", func(r *Rules) { r.Symbol = "" }},
		{"decimals", func(r *Rules) { r.Decimals = MaxDecimals + 1 }},
		{"underlying decimals", func(r *Rules) { r.Underlying.Decimals = 100 }},
		{"zero epoch", func(r *Rules) { r.EpochLength = 0 }},
		{"short max duration", func(r *Rules) { r.MaxLockDuration = r.EpochLength - 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ExampleRules()
			tt.mutate(&r)
			require.ErrorIs(t, r.Validate(), ErrInvalidRules)
		})
	}

	unbounded := ExampleRules()
	unbounded.MaxLockDuration = 0
	require.NoError(t, unbounded.Validate())
}

func TestRulesString(t *testing.T) {
	r := CHEDAORules()
	var got Rules
	require.NoError(t, json.Unmarshal([]byte(r.String()), &got))
	require.Equal(t, r, got)
}
