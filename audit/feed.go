package audit

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/rony4d/go-veledger/inter"
)

// DefaultQueueSize is the number of encoded logs buffered ahead of subscribers.
const DefaultQueueSize = 1024

var (
	// ErrQueueFull is returned when a log is dropped because subscribers lag.
	ErrQueueFull = errors.New("audit: log queue full")
	// ErrClosed is returned by Emit after Close.
	ErrClosed = errors.New("audit: emitter closed")
)

// EVMLogEmitter encodes events as EVM logs and publishes them on an event.Feed.
//
// Emit never blocks: logs go through a bounded queue drained by a single
// goroutine, and are dropped once the queue is full. Logs carry a monotonically
// increasing Index so subscribers can detect gaps.
type EVMLogEmitter struct {
	contract common.Address
	feed     event.Feed

	// OnDrop, when set, is called for every dropped log.
	OnDrop func()

	mu      sync.Mutex
	seq     uint
	queue   chan *types.Log
	quit    chan struct{}
	wg      sync.WaitGroup
	closed  bool
	dropped uint64
}

// NewEVMLogEmitter starts an emitter attributing logs to contract.
// A non-positive queueSize selects DefaultQueueSize.
func NewEVMLogEmitter(contract common.Address, queueSize int) *EVMLogEmitter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	e := &EVMLogEmitter{
		contract: contract,
		queue:    make(chan *types.Log, queueSize),
		quit:     make(chan struct{}),
	}
	e.wg.Add(1)
	go e.loop()
	return e
}

// SubscribeLogs registers ch for every published log.
// Subscribers must keep draining ch; a stalled subscriber stalls the feed.
func (e *EVMLogEmitter) SubscribeLogs(ch chan<- *types.Log) event.Subscription {
	return e.feed.Subscribe(ch)
}

// Emit implements ledger.Emitter.
func (e *EVMLogEmitter) Emit(ev inter.Event) error {
	log, err := EncodeLog(e.contract, ev)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	log.Index = e.seq
	select {
	case e.queue <- log:
		e.seq++
		return nil
	default:
		atomic.AddUint64(&e.dropped, 1)
		if e.OnDrop != nil {
			e.OnDrop()
		}
		return ErrQueueFull
	}
}

// Dropped returns how many logs were discarded because the queue was full.
func (e *EVMLogEmitter) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

// Close stops the publishing goroutine. Logs still queued are delivered first.
func (e *EVMLogEmitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.quit)
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *EVMLogEmitter) loop() {
	defer e.wg.Done()
	for {
		select {
		case log := <-e.queue:
			e.feed.Send(log)
		case <-e.quit:
			for {
				select {
				case log := <-e.queue:
					e.feed.Send(log)
				default:
					return
				}
			}
		}
	}
}
