package audit

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-veledger/inter"
)

// LogEmitter writes one structured log line per event.
type LogEmitter struct {
	log logrus.FieldLogger
}

// NewLogEmitter returns an emitter writing to log.
func NewLogEmitter(log logrus.FieldLogger) *LogEmitter {
	return &LogEmitter{log: log}
}

// Emit implements ledger.Emitter.
func (e *LogEmitter) Emit(ev inter.Event) error {
	switch ev := ev.(type) {
	case inter.Deposit:
		e.log.WithFields(logrus.Fields{
			"account":   ev.Account.Hex(),
			"amount":    ev.Amount.String(),
			"end":       uint64(ev.End),
			"kind":      ev.Kind.String(),
			"timestamp": uint64(ev.Timestamp),
		}).Info(ev.Name())
	case inter.Withdraw:
		e.log.WithFields(logrus.Fields{
			"account":   ev.Account.Hex(),
			"amount":    ev.Amount.String(),
			"timestamp": uint64(ev.Timestamp),
		}).Info(ev.Name())
	case inter.Supply:
		e.log.WithFields(logrus.Fields{
			"before": ev.Before.String(),
			"after":  ev.After.String(),
		}).Info(ev.Name())
	default:
		return fmt.Errorf("audit: unknown event %T", ev)
	}
	return nil
}
