package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// Flag names shared between the flag definitions and the launcher.
const (
	ConfigFlag    = "config"
	DataDirFlag   = "datadir"
	IdentityFlag  = "identity"
	PresetFlag    = "preset"
	RulesFlag     = "rules"
	CustodyFlag   = "custody"
	MaxLockFlag   = "lock.maxduration"
	LogFormatFlag = "log.format"
	LogLevelFlag  = "log.verbosity"
	LogColorFlag  = "log.color"
	LogSentryFlag = "log.sentry"
	HTTPAddrFlag  = "http.addr"
	HTTPPortFlag  = "http.port"
	HTTPTokenFlag = "http.token"
	HTTPTimeout   = "http.timeout"
	MetricsFlag   = "metrics"
)

// CommonFlags returns the base set of CLI flags shared across commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  ConfigFlag,
			Usage: "TOML configuration file",
		},
		cli.StringFlag{
			Name:  DataDirFlag,
			Usage: "Data directory for the ledger database (empty keeps state in memory)",
			Value: "~/.veledger",
		},
		cli.StringFlag{
			Name:  IdentityFlag,
			Usage: "Instance name reported in logs",
		},
		cli.StringFlag{
			Name:  LogFormatFlag,
			Usage: "Log output format (text|json)",
			Value: "text",
		},
		cli.IntFlag{
			Name:  LogLevelFlag,
			Usage: "Logging verbosity (0=fatal,1=error,2=warn,3=info,4=debug,5=trace)",
			Value: 3,
		},
		cli.BoolFlag{
			Name:  LogColorFlag,
			Usage: "Enable colored log output",
		},
		cli.StringFlag{
			Name:  LogSentryFlag,
			Usage: "Sentry DSN receiving error-level log entries",
		},
	}
}

// LedgerFlags select the token rules and resource profile.
func LedgerFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  RulesFlag,
			Usage: "Token rules preset (example|chedao)",
			Value: "example",
		},
		cli.StringFlag{
			Name:  PresetFlag,
			Usage: "Resource preset (lite|default|full)",
			Value: "default",
		},
		cli.StringFlag{
			Name:  CustodyFlag,
			Usage: "Custody account holding locked funds",
		},
		cli.Uint64Flag{
			Name:  MaxLockFlag,
			Usage: "Override the maximum lock duration in seconds (0 keeps the rules value)",
		},
	}
}

// HTTPFlags configure the query/command API.
func HTTPFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  HTTPAddrFlag,
			Usage: "HTTP API listening interface",
			Value: "127.0.0.1",
		},
		cli.IntFlag{
			Name:  HTTPPortFlag,
			Usage: "HTTP API listening port",
			Value: 18645,
		},
		cli.StringFlag{
			Name:  HTTPTokenFlag,
			Usage: "Bearer token required for state-changing requests",
		},
		cli.IntFlag{
			Name:  HTTPTimeout,
			Usage: "Per-request timeout in seconds",
			Value: 5,
		},
		cli.BoolFlag{
			Name:  MetricsFlag,
			Usage: "Expose Prometheus metrics on /metrics",
		},
	}
}
