// Package audit delivers ledger notifications to off-chain observers.
//
// Three sinks are provided:
//   - LogEmitter: one structured logrus line per event
//   - EVMLogEmitter: ABI-encoded EVM logs published on an event.Feed, the
//     shape external indexers already know how to consume
//   - Recorder: an in-memory list, for tests and command output
//
// Delivery is always best-effort; the ledger never waits on an indexer.
package audit

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rony4d/go-veledger/inter"
)

// EventABI is the JSON ABI of the three ledger events. Field order is fixed:
//   - Deposit(address indexed account, uint256 amount, uint256 end, uint8 lockKind, uint256 timestamp)
//   - Withdraw(address indexed account, uint256 amount, uint256 timestamp)
//   - Supply(uint256 before, uint256 after)
const EventABI = `[
{"anonymous":false,"name":"Deposit","type":"event","inputs":[
 {"indexed":true,"name":"account","type":"address"},
 {"indexed":false,"name":"amount","type":"uint256"},
 {"indexed":false,"name":"end","type":"uint256"},
 {"indexed":false,"name":"lockKind","type":"uint8"},
 {"indexed":false,"name":"timestamp","type":"uint256"}]},
{"anonymous":false,"name":"Withdraw","type":"event","inputs":[
 {"indexed":true,"name":"account","type":"address"},
 {"indexed":false,"name":"amount","type":"uint256"},
 {"indexed":false,"name":"timestamp","type":"uint256"}]},
{"anonymous":false,"name":"Supply","type":"event","inputs":[
 {"indexed":false,"name":"before","type":"uint256"},
 {"indexed":false,"name":"after","type":"uint256"}]}
]`

// ErrUnknownLog is returned by DecodeLog for logs that are not ledger events.
var ErrUnknownLog = errors.New("audit: unknown log")

var (
	eventABI abi.ABI

	depositEvent  abi.Event
	withdrawEvent abi.Event
	supplyEvent   abi.Event
)

// init parses EventABI once, the same way precompile ABIs are loaded.
func init() {
	parsed, err := abi.JSON(strings.NewReader(EventABI))
	if err != nil {
		panic(err)
	}
	eventABI = parsed
	for name, dst := range map[string]*abi.Event{
		inter.DepositEventName:  &depositEvent,
		inter.WithdrawEventName: &withdrawEvent,
		inter.SupplyEventName:   &supplyEvent,
	} {
		ev, ok := parsed.Events[name]
		if !ok {
			panic("audit: missing event " + name)
		}
		*dst = ev
	}
}

// Topic returns topic0 (the keccak256 of the signature) of a ledger event.
func Topic(name string) (common.Hash, bool) {
	ev, ok := eventABI.Events[name]
	return ev.ID, ok
}

// EncodeLog turns a ledger event into an EVM log emitted by contract.
func EncodeLog(contract common.Address, ev inter.Event) (*types.Log, error) {
	var (
		topics []common.Hash
		data   []byte
		err    error
	)
	switch ev := ev.(type) {
	case inter.Deposit:
		topics = []common.Hash{depositEvent.ID, accountTopic(ev.Account)}
		data, err = depositEvent.Inputs.NonIndexed().Pack(
			ev.Amount,
			new(big.Int).SetUint64(uint64(ev.End)),
			uint8(ev.Kind),
			new(big.Int).SetUint64(uint64(ev.Timestamp)),
		)
	case inter.Withdraw:
		topics = []common.Hash{withdrawEvent.ID, accountTopic(ev.Account)}
		data, err = withdrawEvent.Inputs.NonIndexed().Pack(
			ev.Amount,
			new(big.Int).SetUint64(uint64(ev.Timestamp)),
		)
	case inter.Supply:
		topics = []common.Hash{supplyEvent.ID}
		data, err = supplyEvent.Inputs.NonIndexed().Pack(ev.Before, ev.After)
	default:
		return nil, fmt.Errorf("audit: cannot encode %T", ev)
	}
	if err != nil {
		return nil, fmt.Errorf("audit: pack %s: %w", ev.Name(), err)
	}
	return &types.Log{Address: contract, Topics: topics, Data: data}, nil
}

// DecodeLog is the inverse of EncodeLog, for indexers reading the feed.
func DecodeLog(log *types.Log) (inter.Event, error) {
	if log == nil || len(log.Topics) == 0 {
		return nil, ErrUnknownLog
	}
	switch log.Topics[0] {
	case depositEvent.ID:
		vals, err := unpack(depositEvent, log, 2)
		if err != nil {
			return nil, err
		}
		return inter.Deposit{
			Account:   common.BytesToAddress(log.Topics[1].Bytes()),
			Amount:    vals[0].(*big.Int),
			End:       inter.Timestamp(vals[1].(*big.Int).Uint64()),
			Kind:      inter.LockKind(vals[2].(uint8)),
			Timestamp: inter.Timestamp(vals[3].(*big.Int).Uint64()),
		}, nil
	case withdrawEvent.ID:
		vals, err := unpack(withdrawEvent, log, 2)
		if err != nil {
			return nil, err
		}
		return inter.Withdraw{
			Account:   common.BytesToAddress(log.Topics[1].Bytes()),
			Amount:    vals[0].(*big.Int),
			Timestamp: inter.Timestamp(vals[1].(*big.Int).Uint64()),
		}, nil
	case supplyEvent.ID:
		vals, err := unpack(supplyEvent, log, 1)
		if err != nil {
			return nil, err
		}
		return inter.Supply{Before: vals[0].(*big.Int), After: vals[1].(*big.Int)}, nil
	}
	return nil, ErrUnknownLog
}

func unpack(ev abi.Event, log *types.Log, topics int) ([]interface{}, error) {
	if len(log.Topics) != topics {
		return nil, fmt.Errorf("audit: %s log has %d topics, want %d", ev.Name, len(log.Topics), topics)
	}
	vals, err := ev.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("audit: unpack %s: %w", ev.Name, err)
	}
	return vals, nil
}

func accountTopic(acc common.Address) common.Hash {
	return common.BytesToHash(acc.Bytes())
}
