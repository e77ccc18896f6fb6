package integration

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-veledger/audit"
	"github.com/rony4d/go-veledger/evmcore"
	"github.com/rony4d/go-veledger/ledger"
	"github.com/rony4d/go-veledger/metrics"
	"github.com/rony4d/go-veledger/store"
	"github.com/rony4d/go-veledger/vetoken"
)

const (
	chaindataDir = "chaindata"
	dbNamespace  = "veledger/db/"

	// lockTablePrefix separates lock records from the state trie nodes that
	// share the database. Trie nodes live under raw 32-byte hashes, so the
	// prefix is long enough that no node key can fall inside the table.
	lockTablePrefix = "veledger-locks-"
)

// Config describes a runtime to assemble.
type Config struct {
	// DataDir holds the database. Empty keeps everything in memory.
	DataDir string
	Preset  PresetConfig
	Rules   vetoken.Rules

	// Custody receives locked funds. The zero address selects evmcore.DefaultCustody.
	Custody common.Address

	// Registerer receives the metrics collectors when Preset.EnableMetrics
	// is set. Nil selects prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	Logger logrus.FieldLogger
}

// Runtime is an assembled ledger with its collaborators.
type Runtime struct {
	Rules   vetoken.Rules
	DB      ethdb.Database
	Gateway *evmcore.Gateway
	Store   *store.Store
	Ledger  *ledger.Ledger
	Audit   *audit.EVMLogEmitter
	Metrics *metrics.Metrics

	log logrus.FieldLogger
}

// Assemble opens the database and wires the ledger. On error everything
// opened so far is released.
//
// A store whose locked supply exceeds the custody balance is refused with
// ledger.ErrIntegrity: the records and the escrow are written by different
// batches, and a crash between them must not let a lock be paid out twice.
func Assemble(cfg Config) (_ *Runtime, err error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	custody := cfg.Custody
	if custody == (common.Address{}) {
		custody = evmcore.DefaultCustody
	}

	db, err := openDatabase(cfg.DataDir, cfg.Preset)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Rules: cfg.Rules, DB: db, log: log}
	defer func(r *Runtime) {
		if err != nil {
			if cerr := r.Close(); cerr != nil {
				log.WithError(cerr).Warn("Failed to close database")
			}
		}
	}(rt)

	rt.Gateway, err = evmcore.NewGateway(db, custody)
	if err != nil {
		return nil, err
	}
	rt.Store = store.New(rawdb.NewTable(db, lockTablePrefix))

	rt.Metrics = metrics.New()
	if cfg.Preset.EnableMetrics {
		reg := cfg.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		if err := rt.Metrics.Register(reg); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, fmt.Errorf("register metrics: %w", err)
			}
			log.Warn("Ledger metrics already registered")
		}
	}

	rt.Audit = audit.NewEVMLogEmitter(custody, cfg.Preset.AuditQueue)
	rt.Audit.OnDrop = rt.Metrics.AuditDropped.Inc

	emitters := ledger.MultiEmitter{rt.Metrics, rt.Audit}
	if cfg.Preset.AuditLog {
		emitters = append(emitters, audit.NewLogEmitter(log.WithField("module", "audit")))
	}

	rt.Ledger, err = ledger.New(rt.Gateway, ledger.Config{
		EpochLength:     cfg.Rules.EpochLength,
		MaxLockDuration: cfg.Rules.MaxLockDuration,
		Store:           rt.Store,
		Emitter:         emitters,
		Logger:          log.WithField("module", "ledger"),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrIntegrity) {
			log.WithError(err).Error("Custody holds less than the locked supply")
		}
		return nil, err
	}
	rt.Metrics.Seed(rt.Ledger.TotalLocked(), rt.Ledger.ActiveLocks())

	log.WithFields(logrus.Fields{
		"token":   cfg.Rules.Symbol,
		"preset":  cfg.Preset.Name,
		"datadir": cfg.DataDir,
		"custody": custody.Hex(),
	}).Info("Assembled ledger runtime")
	return rt, nil
}

// Close stops the audit feed and closes the database.
func (rt *Runtime) Close() error {
	if rt.Audit != nil {
		rt.Audit.Close()
	}
	if rt.DB == nil {
		return nil
	}
	return rt.DB.Close()
}

func openDatabase(dataDir string, preset PresetConfig) (ethdb.Database, error) {
	if dataDir == "" {
		return rawdb.NewMemoryDatabase(), nil
	}
	path := filepath.Join(dataDir, chaindataDir)
	db, err := rawdb.NewLevelDBDatabase(path, preset.CacheMB, preset.Handles, dbNamespace, false)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return db, nil
}
