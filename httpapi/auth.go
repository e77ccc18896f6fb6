package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// Op names a state-changing operation presented to an Authorizer.
type Op string

const (
	OpCreateLock Op = "create_lock"
	OpWithdraw   Op = "withdraw"
)

// ErrUnauthorized is the conventional Authorizer rejection. Any non-nil error
// rejects the request with 403.
var ErrUnauthorized = errors.New("httpapi: unauthorized")

// Authorizer decides whether r may perform op on account. The ledger itself
// never authorizes; whoever mounts the API supplies the policy.
type Authorizer interface {
	Authorize(r *http.Request, op Op, account common.Address) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(r *http.Request, op Op, account common.Address) error

// Authorize calls f.
func (f AuthorizerFunc) Authorize(r *http.Request, op Op, account common.Address) error {
	return f(r, op, account)
}

// AllowAll accepts every request.
var AllowAll Authorizer = AuthorizerFunc(func(*http.Request, Op, common.Address) error { return nil })

// HeaderToken accepts requests carrying the given bearer token. An empty token
// disables the check. The comparison runs in constant time.
func HeaderToken(token string) Authorizer {
	if token == "" {
		return AllowAll
	}
	want := []byte("Bearer " + token)
	return AuthorizerFunc(func(r *http.Request, _ Op, _ common.Address) error {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			return ErrUnauthorized
		}
		return nil
	})
}
