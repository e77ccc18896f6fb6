package launcher

// Defaults bundles the baseline configuration values the launcher uses before
// config files and flags override them.
type Defaults struct {
	Node    NodeDefaults
	Ledger  LedgerDefaults
	HTTP    HTTPDefaults
	Metrics MetricsDefaults
	Logging LoggingDefaults
}

// NodeDefaults captures top-level instance settings.
type NodeDefaults struct {
	DataDir string // filesystem root of the ledger database; empty runs in memory
	Name    string // instance name reported in logs
}

// LedgerDefaults selects the token and the resource profile.
type LedgerDefaults struct {
	Rules   string // vetoken preset name (example, chedao)
	Preset  string // integration preset name (lite, default, full)
	Custody string // custody account; empty uses the built-in custody address
}

// HTTPDefaults captures the API listener options.
type HTTPDefaults struct {
	Addr       string // interface the API binds to; 127.0.0.1 keeps it local-only
	Port       int
	TimeoutSec int // per-request deadline handed to ledger operations
}

type MetricsDefaults struct {
	Enable bool // expose /metrics on the API listener
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    // 0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace
	Format    string // text or json
	Color     bool   // ANSI colors; best disabled when piping to files
}

// DefaultConfig returns a fully populated Defaults instance.
func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.veledger",
			Name:    "veledger",
		},
		Ledger: LedgerDefaults{
			Rules:  "example",
			Preset: "default",
		},
		HTTP: HTTPDefaults{
			Addr:       "127.0.0.1",
			Port:       18645,
			TimeoutSec: 5,
		},
		Metrics: MetricsDefaults{
			Enable: false,
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     false,
		},
	}
}
