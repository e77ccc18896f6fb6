// Package integration assembles the ledger runtime: the database, the state
// gateway custodying the underlying asset, the persistent lock store, the
// audit emitters and the ledger itself.
//
// Presets bundle the resource settings (cache sizes, file handles, audit
// queue depth) into named profiles so operators can pick one without tuning
// every knob:
//
//	cfg := integration.LitePreset()    // development, CI
//	cfg := integration.FullPreset()    // long-running services
package integration

import "fmt"

// PresetConfig captures the tunables that vary across preset profiles.
type PresetConfig struct {
	Name          string // identifier used in logs and config dumps
	CacheMB       int    // LevelDB cache
	Handles       int    // LevelDB open file handles
	AuditQueue    int    // EVM log queue depth before logs are dropped
	EnableMetrics bool   // register Prometheus collectors
	AuditLog      bool   // log every ledger event through logrus
}

// DefaultPreset returns balanced settings.
func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:          "default",
		CacheMB:       256,
		Handles:       256,
		AuditQueue:    1024,
		EnableMetrics: false,
		AuditLog:      true,
	}
}

// LitePreset trades throughput for a small footprint. Metrics stay on to help
// diagnose issues during development.
func LitePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "lite"
	cfg.CacheMB = 16
	cfg.Handles = 64
	cfg.AuditQueue = 128
	cfg.EnableMetrics = true
	return cfg
}

// FullPreset keeps larger caches and a deeper audit queue for services that
// feed external indexers.
func FullPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "full"
	cfg.CacheMB = 1024
	cfg.Handles = 1024
	cfg.AuditQueue = 16384
	cfg.EnableMetrics = true
	cfg.AuditLog = false
	return cfg
}

// GetPresetByName looks up a preset by its identifier, as selected by
// --preset on the command line.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "lite":
		return LitePreset(), nil
	case "full":
		return FullPreset(), nil
	case "default", "":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: lite, full, default)", name)
	}
}

// ApplyPreset merges preset into target. Zero numeric fields in preset leave
// target untouched; booleans are always applied.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.CacheMB > 0 {
		target.CacheMB = preset.CacheMB
	}
	if preset.Handles > 0 {
		target.Handles = preset.Handles
	}
	if preset.AuditQueue > 0 {
		target.AuditQueue = preset.AuditQueue
	}
	target.EnableMetrics = preset.EnableMetrics
	target.AuditLog = preset.AuditLog
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
