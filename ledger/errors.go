package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Precondition failures. Every one of them leaves ledger and supply state
// exactly as it was before the call.
var (
	// ErrAlreadyLocked is returned by CreateLock when the account already holds a lock.
	ErrAlreadyLocked = errors.New("vetoken: already have a lock")

	// ErrNoActiveLock is returned by Withdraw when the account holds no lock.
	ErrNoActiveLock = errors.New("vetoken: no active lock")

	// ErrLockNotExpired is returned by Withdraw before the lock end time.
	ErrLockNotExpired = errors.New("vetoken: lock not expired")

	// ErrInvalidAmount is returned for a zero, negative, nil or out-of-range amount.
	ErrInvalidAmount = errors.New("vetoken: invalid amount")

	// ErrInvalidDuration is returned when the unlock time is not in the future
	// or exceeds the configured maximum lock duration.
	ErrInvalidDuration = errors.New("vetoken: invalid lock duration")

	// ErrTransferFailed is matched by every TransferError.
	ErrTransferFailed = errors.New("vetoken: transfer failed")
)

// Accounting failures.
var (
	// ErrSupplyOverflow means adding to the supply would exceed 2^256-1.
	ErrSupplyOverflow = errors.New("vetoken: supply overflow")

	// ErrSupplyUnderflow means removing from the supply would make it negative.
	ErrSupplyUnderflow = errors.New("vetoken: supply underflow")

	// ErrSupplyMismatch means the running supply differs from the sum of all records.
	ErrSupplyMismatch = errors.New("vetoken: supply does not match locked balances")

	// ErrIntegrity marks a failure after the gateway confirmed a transfer, or
	// a loaded supply that custody cannot cover. Ledger memory matches custody
	// but the durable store does not. The ledger refuses every later
	// transition and the condition needs out-of-band repair.
	ErrIntegrity = errors.New("vetoken: ledger integrity failure")
)

// TransferError reports a gateway failure during Pull or Push.
type TransferError struct {
	Op      string // "pull" or "push"
	Account common.Address
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrTransferFailed, e.Op, e.Account.Hex(), e.Err)
}

// Unwrap exposes the gateway cause.
func (e *TransferError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransferFailed) hold for every TransferError.
func (e *TransferError) Is(target error) bool { return target == ErrTransferFailed }

// Reason classifies err into a short, stable label for metrics and API
// responses. Unknown errors map to "internal".
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyLocked):
		return "already_locked"
	case errors.Is(err, ErrNoActiveLock):
		return "no_active_lock"
	case errors.Is(err, ErrLockNotExpired):
		return "lock_not_expired"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrSupplyOverflow), errors.Is(err, ErrSupplyUnderflow):
		return "supply_bounds"
	case errors.Is(err, ErrIntegrity), errors.Is(err, ErrSupplyMismatch):
		return "integrity"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
