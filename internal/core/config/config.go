package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"rf2boot/internal/core/errors"
	"rf2boot/internal/engine/rf2"
)

// Config describes one loader run. Every field can be set from the TOML file
// and overridden from RF2BOOT_* environment variables.
type Config struct {
	Load          LoadSection   `toml:"load" envPrefix:"LOAD_"`
	Import        Import        `toml:"import" envPrefix:"IMPORT_"`
	Ledger        Ledger        `toml:"ledger" envPrefix:"LEDGER_"`
	Observability Observability `toml:"observability" envPrefix:"OBSERVABILITY_"`
	Log           Log           `toml:"log" envPrefix:"LOG_"`
}

// LoadSection selects the profile, mode and release directories of a run.
type LoadSection struct {
	Profile             string   `toml:"profile" env:"PROFILE"`
	Mode                string   `toml:"mode" env:"MODE"`
	Dirs                []string `toml:"dirs" env:"DIRS" envSeparator:","`
	EffectiveFilter     *bool    `toml:"effective_filter" env:"EFFECTIVE_FILTER"`
	StatedRelationships *bool    `toml:"stated_relationships" env:"STATED_RELATIONSHIPS"`
	StatedAttributeMap  *bool    `toml:"stated_attribute_map" env:"STATED_ATTRIBUTE_MAP"`
	Inactive            *bool    `toml:"inactive" env:"INACTIVE"`
	AllRefsets          *bool    `toml:"all_refsets" env:"ALL_REFSETS"`
	JustRefsets         *bool    `toml:"just_refsets" env:"JUST_REFSETS"`
	Refsets             []string `toml:"refsets" env:"REFSETS" envSeparator:","`
	// RefsetPatterns are globs such as "der2_*Language*", not regexes.
	RefsetPatterns      []string `toml:"refset_patterns" env:"REFSET_PATTERNS" envSeparator:","`
	Modules             []string `toml:"modules" env:"MODULES" envSeparator:","`
}

type Import struct {
	Workers     int      `toml:"workers" env:"WORKERS"`
	Sequential  bool     `toml:"sequential" env:"SEQUENTIAL"`
	ExcludeDirs []string `toml:"exclude_dirs" env:"EXCLUDE_DIRS" envSeparator:","`
}

// Ledger configures the persisted record of module effective times already
// imported, used for incremental catch-up loads.
type Ledger struct {
	Enabled bool   `toml:"enabled" env:"ENABLED"`
	Path    string `toml:"path" env:"PATH"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr" env:"METRICS_ADDR"`
	OTLPEndpoint string `toml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	Tracing      bool   `toml:"tracing" env:"TRACING"`
}

type Log struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads path (when not empty), applies environment overrides, fills
// defaults and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfiguration, "read config file"), errors.CtxPath, path)
		}
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeConfiguration, "decode config file"), errors.CtxPath, path)
		}
	}
	if err := ApplyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Load.Profile) == "" {
		cfg.Load.Profile = "light"
	}
	if strings.TrimSpace(cfg.Load.Mode) == "" {
		cfg.Load.Mode = "snapshot"
	}
	if cfg.Import.Workers <= 0 {
		cfg.Import.Workers = runtime.NumCPU()
	}
	if strings.TrimSpace(cfg.Ledger.Path) == "" {
		cfg.Ledger.Path = "data/rf2boot.db"
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}
}

func validate(cfg *Config) error {
	for _, check := range []func(*Config) error{validateLoad, validateLog} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateLoad(cfg *Config) error {
	if _, ok := ByName(cfg.Load.Profile); !ok {
		return errors.Newf(errors.CodeConfiguration, "load.profile must be one of: light, complete, got %q", cfg.Load.Profile)
	}
	mode, err := rf2.ParseMode(cfg.Load.Mode)
	if err != nil {
		return err
	}
	if isSet(cfg.Load.EffectiveFilter) && (mode == rf2.ModeDelta || mode == rf2.ModeFull) {
		return errors.Newf(errors.CodeConfiguration, "load.effective_filter can only be used with snapshot or snapshot+delta, got %s", mode)
	}
	if _, err := rf2.CompileGlobs(cfg.Load.RefsetPatterns); err != nil {
		return err
	}
	if _, err := rf2.CompileGlobs(cfg.Import.ExcludeDirs); err != nil {
		return err
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.CodeConfiguration, "log.level must be one of: debug, info, warn, error, got %q", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return errors.Newf(errors.CodeConfiguration, "log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}

// Mode returns the parsed import mode.
func (c *Config) Mode() (rf2.Mode, error) {
	return rf2.ParseMode(c.Load.Mode)
}

// Profile builds the loading profile described by the [load] section.
func (c *Config) Profile() (Profile, error) {
	p, ok := ByName(c.Load.Profile)
	if !ok {
		return Profile{}, errors.Newf(errors.CodeConfiguration, "unknown profile %q", c.Load.Profile)
	}
	var opts []Option
	if c.Load.EffectiveFilter != nil {
		opts = append(opts, WithEffectiveFilter(*c.Load.EffectiveFilter))
	}
	if c.Load.StatedRelationships != nil {
		opts = append(opts, WithStatedRelationships(*c.Load.StatedRelationships))
	}
	if c.Load.StatedAttributeMap != nil {
		opts = append(opts, WithStatedAttributeMap(*c.Load.StatedAttributeMap))
	}
	if c.Load.Inactive != nil {
		on := *c.Load.Inactive
		opts = append(opts,
			WithInactiveConcepts(on),
			WithInactiveDescriptions(on),
			WithInactiveRelationships(on),
			WithInactiveIdentifiers(on),
			WithInactiveRefsetMembers(on),
		)
	}
	if c.Load.AllRefsets != nil {
		opts = append(opts, WithAllRefsets(*c.Load.AllRefsets))
	}
	if c.Load.JustRefsets != nil {
		opts = append(opts, WithJustRefsets(*c.Load.JustRefsets))
	}
	if len(c.Load.Refsets) > 0 {
		opts = append(opts, WithRefsets(trimAll(c.Load.Refsets)...))
	}
	if len(c.Load.RefsetPatterns) > 0 {
		opts = append(opts, WithRefsetFilenamePatterns(trimAll(c.Load.RefsetPatterns)...))
	}
	if len(c.Load.Modules) > 0 {
		opts = append(opts, WithModules(trimAll(c.Load.Modules)...))
	}
	return p.With(opts...), nil
}

func (c *Config) String() string {
	return fmt.Sprintf("profile=%s mode=%s dirs=%v workers=%d sequential=%t ledger=%t",
		c.Load.Profile, c.Load.Mode, c.Load.Dirs, c.Import.Workers, c.Import.Sequential, c.Ledger.Enabled)
}

func isSet(b *bool) bool {
	return b != nil && *b
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
