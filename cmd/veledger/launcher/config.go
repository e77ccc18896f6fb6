package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-veledger/flags"
	"github.com/rony4d/go-veledger/httpapi"
	"github.com/rony4d/go-veledger/integration"
	"github.com/rony4d/go-veledger/vetoken"
)

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Node    NodeConfig
	Ledger  LedgerConfig
	HTTP    HTTPConfig
	Metrics MetricsConfig
	Logging LoggingConfig
}

type NodeConfig struct {
	DataDir string
	Name    string
}

type LedgerConfig struct {
	Rules   string
	Preset  string
	Custody string `toml:",omitempty"`

	// MaxLockDuration overrides the rules value when non-zero (seconds).
	MaxLockDuration uint64 `toml:",omitempty"`
}

type HTTPConfig struct {
	Addr       string
	Port       int
	Token      string `toml:",omitempty"`
	TimeoutSec int
}

type MetricsConfig struct {
	Enable bool
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	SentryDSN string `toml:",omitempty"`
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// defaultConfig builds a Config from DefaultConfig so both stay in sync.
func defaultConfig() Config {
	d := DefaultConfig()
	return Config{
		Node: NodeConfig{
			DataDir: resolvePath(d.Node.DataDir),
			Name:    d.Node.Name,
		},
		Ledger: LedgerConfig{
			Rules:   d.Ledger.Rules,
			Preset:  d.Ledger.Preset,
			Custody: d.Ledger.Custody,
		},
		HTTP: HTTPConfig{
			Addr:       d.HTTP.Addr,
			Port:       d.HTTP.Port,
			TimeoutSec: d.HTTP.TimeoutSec,
		},
		Metrics: MetricsConfig{
			Enable: d.Metrics.Enable,
		},
		Logging: LoggingConfig{
			Verbosity: d.Logging.Verbosity,
			Format:    d.Logging.Format,
			Color:     d.Logging.Color,
		},
	}
}

// MakeAllConfigs merges defaults, the optional config file, and CLI overrides
// into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if file := ctx.GlobalString(flags.ConfigFlag); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyCLIOverrides(ctx, &cfg)

	if cfg.Node.DataDir != "" {
		if err := ensureDir(cfg.Node.DataDir); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.Node.DataDir = resolvePath(cfg.Node.DataDir)
	return nil
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.GlobalIsSet(flags.DataDirFlag) {
		cfg.Node.DataDir = resolvePath(ctx.GlobalString(flags.DataDirFlag))
	}
	if ctx.GlobalIsSet(flags.IdentityFlag) {
		cfg.Node.Name = ctx.GlobalString(flags.IdentityFlag)
	}

	if ctx.GlobalIsSet(flags.RulesFlag) {
		cfg.Ledger.Rules = ctx.GlobalString(flags.RulesFlag)
	}
	if ctx.GlobalIsSet(flags.PresetFlag) {
		cfg.Ledger.Preset = ctx.GlobalString(flags.PresetFlag)
	}
	if ctx.GlobalIsSet(flags.CustodyFlag) {
		cfg.Ledger.Custody = ctx.GlobalString(flags.CustodyFlag)
	}
	if ctx.GlobalIsSet(flags.MaxLockFlag) {
		cfg.Ledger.MaxLockDuration = ctx.GlobalUint64(flags.MaxLockFlag)
	}

	if ctx.GlobalIsSet(flags.HTTPAddrFlag) {
		cfg.HTTP.Addr = ctx.GlobalString(flags.HTTPAddrFlag)
	}
	if ctx.GlobalIsSet(flags.HTTPPortFlag) {
		cfg.HTTP.Port = ctx.GlobalInt(flags.HTTPPortFlag)
	}
	if ctx.GlobalIsSet(flags.HTTPTokenFlag) {
		cfg.HTTP.Token = ctx.GlobalString(flags.HTTPTokenFlag)
	}
	if ctx.GlobalIsSet(flags.HTTPTimeout) {
		cfg.HTTP.TimeoutSec = ctx.GlobalInt(flags.HTTPTimeout)
	}
	if ctx.GlobalBool(flags.MetricsFlag) {
		cfg.Metrics.Enable = true
	}

	if ctx.GlobalIsSet(flags.LogFormatFlag) {
		cfg.Logging.Format = ctx.GlobalString(flags.LogFormatFlag)
	}
	if ctx.GlobalIsSet(flags.LogLevelFlag) {
		cfg.Logging.Verbosity = ctx.GlobalInt(flags.LogLevelFlag)
	}
	if ctx.GlobalIsSet(flags.LogColorFlag) {
		cfg.Logging.Color = ctx.GlobalBool(flags.LogColorFlag)
	}
	if ctx.GlobalIsSet(flags.LogSentryFlag) {
		cfg.Logging.SentryDSN = ctx.GlobalString(flags.LogSentryFlag)
	}
}

// integrationConfig resolves the named presets into an assembly config.
func (cfg Config) integrationConfig(reg prometheus.Registerer, log logrus.FieldLogger) (integration.Config, error) {
	rules, err := vetoken.RulesByName(cfg.Ledger.Rules)
	if err != nil {
		return integration.Config{}, err
	}
	if cfg.Ledger.MaxLockDuration != 0 {
		rules.MaxLockDuration = cfg.Ledger.MaxLockDuration
	}
	preset, err := integration.GetPresetByName(cfg.Ledger.Preset)
	if err != nil {
		return integration.Config{}, err
	}
	if cfg.Metrics.Enable {
		preset.EnableMetrics = true
	}

	var custody common.Address
	if cfg.Ledger.Custody != "" {
		if !common.IsHexAddress(cfg.Ledger.Custody) {
			return integration.Config{}, fmt.Errorf("invalid custody address %q", cfg.Ledger.Custody)
		}
		custody = common.HexToAddress(cfg.Ledger.Custody)
	}

	return integration.Config{
		DataDir:    cfg.Node.DataDir,
		Preset:     preset,
		Rules:      rules,
		Custody:    custody,
		Registerer: reg,
		Logger:     log,
	}, nil
}

// httpConfig builds the API server options.
func (cfg Config) httpConfig() httpapi.Config {
	c := httpapi.DefaultConfig()
	c.Host = cfg.HTTP.Addr
	c.Port = cfg.HTTP.Port
	c.RequestTimeout = time.Duration(cfg.HTTP.TimeoutSec) * time.Second
	c.Authorizer = httpapi.HeaderToken(cfg.HTTP.Token)
	return c
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
