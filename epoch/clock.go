// Package epoch implements the clock that aligns every lock onto a shared
// weekly timeline.
//
// Unlock times are rounded down to an epoch boundary so the number of distinct
// unlock slots stays bounded and locks created in the same week expire together.
package epoch

import "github.com/rony4d/go-veledger/inter"

// Week is the default epoch length in seconds (7 * 24 * 60 * 60).
const Week uint64 = 604800

// RoundDown returns floor(ts/length)*length.
// A zero length disables rounding and returns ts unchanged.
func RoundDown(ts inter.Timestamp, length uint64) inter.Timestamp {
	if length == 0 {
		return ts
	}
	return inter.Timestamp(uint64(ts) / length * length)
}

// IsAligned reports whether ts sits exactly on an epoch boundary.
func IsAligned(ts inter.Timestamp, length uint64) bool {
	if length == 0 {
		return true
	}
	return uint64(ts)%length == 0
}

// Next returns the first boundary strictly after ts.
func Next(ts inter.Timestamp, length uint64) inter.Timestamp {
	if length == 0 {
		return ts
	}
	return RoundDown(ts, length) + inter.Timestamp(length)
}
