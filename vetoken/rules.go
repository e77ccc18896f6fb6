// Package vetoken defines the rules of a vote-escrow token deployment: the
// naming of the escrow token, the underlying asset it locks, and the lock
// timing parameters handed to the ledger.
package vetoken

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rony4d/go-veledger/epoch"
)

const (
	// MaxDecimals keeps 10^decimals within a uint256.
	MaxDecimals uint8 = 77

	// DefaultMaxLockDuration is four years of weeks.
	DefaultMaxLockDuration = 4 * 52 * epoch.Week

	ExampleRulesName = "example"
	CHEDAORulesName  = "chedao"
)

var (
	ErrUnknownRules = errors.New("vetoken: unknown rules")
	ErrInvalidRules = errors.New("vetoken: invalid rules")
)

// Asset describes a fungible token.
type Asset struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Rules describes a vote-escrow token.
type Rules struct {
	Name     string
	Symbol   string
	Decimals uint8

	// Underlying is the asset locked into escrow.
	Underlying Asset

	// EpochLength is the unlock-time granularity (seconds).
	EpochLength uint64
	// MaxLockDuration bounds how far ahead an unlock may be (seconds).
	// Zero leaves locks unbounded.
	MaxLockDuration uint64
}

// ExampleRules returns the rules of the reference escrow over ExampleToken.
func ExampleRules() Rules {
	return Rules{
		Name:     "veExampleToken",
		Symbol:   "veETK",
		Decimals: 18,
		Underlying: Asset{
			Name:     "ExampleToken",
			Symbol:   "ETK",
			Decimals: 18,
		},
		EpochLength:     epoch.Week,
		MaxLockDuration: DefaultMaxLockDuration,
	}
}

// CHEDAORules returns the rules of the escrow over CHEDAOToken.
func CHEDAORules() Rules {
	return Rules{
		Name:     "veCHEDAOToken",
		Symbol:   "veCHE",
		Decimals: 18,
		Underlying: Asset{
			Name:     "CHEDAOToken",
			Symbol:   "CHE",
			Decimals: 18,
		},
		EpochLength:     epoch.Week,
		MaxLockDuration: DefaultMaxLockDuration,
	}
}

var presets = map[string]func() Rules{
	ExampleRulesName: ExampleRules,
	CHEDAORulesName:  CHEDAORules,
}

// RulesByName looks up a preset.
func RulesByName(name string) (Rules, error) {
	fn, ok := presets[name]
	if !ok {
		return Rules{}, fmt.Errorf("%w: %q (valid: %v)", ErrUnknownRules, name, PresetNames())
	}
	return fn(), nil
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the rules are usable by a ledger.
func (r Rules) Validate() error {
	if r.Name == "" || r.Symbol == "" {
		return fmt.Errorf("%w: empty name or symbol", ErrInvalidRules)
	}
	if r.Decimals > MaxDecimals || r.Underlying.Decimals > MaxDecimals {
		return fmt.Errorf("%w: decimals above %d", ErrInvalidRules, MaxDecimals)
	}
	if r.EpochLength == 0 {
		return fmt.Errorf("%w: zero epoch length", ErrInvalidRules)
	}
	if r.MaxLockDuration != 0 && r.MaxLockDuration < r.EpochLength {
		return fmt.Errorf("%w: max lock duration %d shorter than one epoch", ErrInvalidRules, r.MaxLockDuration)
	}
	return nil
}

// String returns the rules as JSON.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
