package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-veledger/inter"
	"github.com/rony4d/go-veledger/ledger"
)

const maxBodyBytes = 1 << 16

// Ledger is the part of *ledger.Ledger the API drives.
type Ledger interface {
	CreateLock(ctx context.Context, account common.Address, amount *big.Int, unlock, now inter.Timestamp) (inter.SupplySnapshot, error)
	Withdraw(ctx context.Context, account common.Address, now inter.Timestamp) (inter.SupplySnapshot, error)
	LockedBalanceOf(account common.Address) inter.LockedBalance
	TotalLocked() *big.Int
	ActiveLocks() int
}

type createLockRequest struct {
	Account string `json:"account"`
	// Amount accepts a decimal or 0x-prefixed hex quantity.
	Amount string `json:"amount"`
	Unlock uint64 `json:"unlock"`
}

type snapshotResponse struct {
	Before *hexutil.Big `json:"before"`
	After  *hexutil.Big `json:"after"`
}

type lockResponse struct {
	Account common.Address      `json:"account"`
	Lock    inter.LockedBalance `json:"lock"`
}

type supplyResponse struct {
	Supply      *hexutil.Big `json:"supply"`
	ActiveLocks int          `json:"activeLocks"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.rules)
}

func (s *Server) supply(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, supplyResponse{
		Supply:      (*hexutil.Big)(s.ledger.TotalLocked()),
		ActiveLocks: s.ledger.ActiveLocks(),
	})
}

func (s *Server) lockedBalance(w http.ResponseWriter, r *http.Request) {
	account, ok := s.accountVar(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, lockResponse{Account: account, Lock: s.ledger.LockedBalanceOf(account)})
}

func (s *Server) createLock(w http.ResponseWriter, r *http.Request) {
	var req createLockRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", "malformed body: "+err.Error())
		return
	}
	if !common.IsHexAddress(req.Account) {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", "invalid account")
		return
	}
	account := common.HexToAddress(req.Account)
	amount, ok := math.ParseBig256(req.Amount)
	if !ok {
		s.writeFailure(w, r, "create_lock", ledger.ErrInvalidAmount)
		return
	}
	if err := s.auth.Authorize(r, OpCreateLock, account); err != nil {
		s.writeError(w, r, http.StatusForbidden, "forbidden", err.Error())
		return
	}

	snap, err := s.ledger.CreateLock(r.Context(), account, amount, inter.Timestamp(req.Unlock), s.now())
	if err != nil {
		s.writeFailure(w, r, "create_lock", err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSnapshotResponse(snap))
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	account, ok := s.accountVar(w, r)
	if !ok {
		return
	}
	if err := s.auth.Authorize(r, OpWithdraw, account); err != nil {
		s.writeError(w, r, http.StatusForbidden, "forbidden", err.Error())
		return
	}
	snap, err := s.ledger.Withdraw(r.Context(), account, s.now())
	if err != nil {
		s.writeFailure(w, r, "withdraw", err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSnapshotResponse(snap))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
}

func (s *Server) accountVar(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := mux.Vars(r)["account"]
	if !common.IsHexAddress(raw) {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", "invalid account")
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (s *Server) now() inter.Timestamp {
	return inter.FromTime(s.clock())
}

// StatusCode maps a ledger error to the HTTP status reported for it.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ledger.ErrAlreadyLocked), errors.Is(err, ledger.ErrLockNotExpired):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNoActiveLock):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrSupplyOverflow):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveFailure(op, err)
	}
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.log.WithError(err).WithFields(logrus.Fields{
			"op":         op,
			"request_id": requestID(r.Context()),
		}).Error("Ledger operation failed")
	}
	s.writeError(w, r, code, ledger.Reason(err), err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, reason, msg string) {
	s.writeJSON(w, code, errorResponse{Error: reason, Message: msg, RequestID: requestID(r.Context())})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Debug("Failed to write response")
	}
}

func toSnapshotResponse(snap inter.SupplySnapshot) snapshotResponse {
	return snapshotResponse{
		Before: (*hexutil.Big)(snap.Before),
		After:  (*hexutil.Big)(snap.After),
	}
}
