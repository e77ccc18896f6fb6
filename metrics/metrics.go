// Package metrics exposes Prometheus instrumentation for the lock ledger.
package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rony4d/go-veledger/inter"
	"github.com/rony4d/go-veledger/ledger"
)

// Metrics groups the ledger collectors. It doubles as a ledger.Emitter so the
// counters follow exactly what the ledger announced.
type Metrics struct {
	Deposits     prometheus.Counter
	Withdrawals  prometheus.Counter
	LockedSupply prometheus.Gauge
	ActiveLocks  prometheus.Gauge
	Failures     *prometheus.CounterVec
	AuditDropped prometheus.Counter
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		Deposits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veledger_deposits_total",
			Help: "Total number of locks created",
		}),
		Withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veledger_withdrawals_total",
			Help: "Total number of expired locks withdrawn",
		}),
		LockedSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "veledger_locked_supply",
			Help: "Amount currently held under active locks, in base units",
		}),
		ActiveLocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "veledger_active_locks",
			Help: "Number of accounts holding an active lock",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veledger_failures_total",
			Help: "Rejected ledger operations by reason",
		}, []string{"op", "reason"}),
		AuditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veledger_audit_dropped_total",
			Help: "Audit logs dropped because subscribers lagged",
		}),
	}
}

// Register registers every collector on reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Deposits, m.Withdrawals, m.LockedSupply, m.ActiveLocks, m.Failures, m.AuditDropped,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Seed sets the gauges from the state of a freshly opened ledger.
func (m *Metrics) Seed(supply *big.Int, activeLocks int) {
	m.LockedSupply.Set(toFloat(supply))
	m.ActiveLocks.Set(float64(activeLocks))
}

// ObserveFailure counts a rejected operation.
func (m *Metrics) ObserveFailure(op string, err error) {
	if err == nil {
		return
	}
	m.Failures.WithLabelValues(op, ledger.Reason(err)).Inc()
}

// Emit implements ledger.Emitter.
func (m *Metrics) Emit(ev inter.Event) error {
	switch ev := ev.(type) {
	case inter.Deposit:
		m.Deposits.Inc()
		m.ActiveLocks.Inc()
	case inter.Withdraw:
		m.Withdrawals.Inc()
		m.ActiveLocks.Dec()
	case inter.Supply:
		m.LockedSupply.Set(toFloat(ev.After))
	}
	return nil
}

// toFloat is lossy above 2^53; the gauge is for dashboards, not accounting.
func toFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
