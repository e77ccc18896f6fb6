// Package inter defines the core data structures shared by the vote-escrow
// ledger, its storage layer and its audit emitters.
//
// Key concepts:
//   - Timestamp: unix time in whole seconds, the unit every lock is expressed in
//   - LockedBalance: the single active lock an account may hold
//   - SupplySnapshot: the before/after pair reported by every supply change
//   - Deposit, Withdraw, Supply: the notifications consumed by off-chain indexers
package inter

import "time"

// Timestamp is a unix timestamp in seconds.
//
// Lock end times are compared against caller-supplied "now" values, never
// against a live timer, so the ledger only ever needs whole seconds.
type Timestamp uint64

// FromTime converts a time.Time into a Timestamp, truncating sub-second
// precision. Times before the unix epoch map to zero.
func FromTime(t time.Time) Timestamp {
	sec := t.Unix()
	if sec < 0 {
		return 0
	}
	return Timestamp(sec)
}

// Unix returns the timestamp as signed unix seconds.
func (t Timestamp) Unix() int64 {
	return int64(t)
}

// Time returns the timestamp as a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}
