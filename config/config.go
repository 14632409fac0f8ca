// Package config loads the checker settings from a file and VKVIDEO_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/ugparu/vkvideo/report"
	"github.com/ugparu/vkvideo/utils/logger"
)

var (
	ErrLogLevel  = errors.New("config: invalid log level")
	ErrDebugAddr = errors.New("config: pprof needs a debug address")
)

const envPrefix = "VKVIDEO"

// Settings controls logging, rule filtering and the debug server.
type Settings struct {
	LogLevel      string   `mapstructure:"log_level"`
	DisabledRules []string `mapstructure:"disabled_rules"`
	DebugAddr     string   `mapstructure:"debug_addr"`
	Pprof         bool     `mapstructure:"pprof"`
	// CollectorLimit is the number of diagnostics kept for the debug server.
	CollectorLimit int `mapstructure:"collector_limit"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		LogLevel:       "info",
		DebugAddr:      "127.0.0.1:8086",
		CollectorLimit: 1024, //nolint:mnd
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("disabled_rules", d.DisabledRules)
	v.SetDefault("debug_addr", d.DebugAddr)
	v.SetDefault("pprof", d.Pprof)
	v.SetDefault("collector_limit", d.CollectorLimit)
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode config: %w", err)
	}
	// Rules from the environment arrive as one comma separated string.
	s.DisabledRules = splitRules(s.DisabledRules)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads the settings from path, which may be empty to use defaults and the environment only.
// The file format follows the extension (toml, yaml, json).
func Load(path string) (Settings, error) {
	v, err := newViper(path)
	if err != nil {
		return Settings{}, err
	}
	s, err := decode(v)
	if err != nil {
		return Settings{}, err
	}
	logger.Debugf(v.ConfigFileUsed(), "Loaded settings %+v", s)
	return s, nil
}

// Watch loads path like Load and then keeps watching it. onChange gets the settings after every
// change to the file. Edits that fail to decode or validate are logged and skipped. An empty path
// has nothing to watch and behaves like Load.
func Watch(path string, onChange func(Settings)) (Settings, error) {
	v, err := newViper(path)
	if err != nil {
		return Settings{}, err
	}
	s, err := decode(v)
	if err != nil {
		return Settings{}, err
	}
	if path == "" {
		return s, nil
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		changed, err := decode(v)
		if err != nil {
			logger.Warningf(e.Name, "Ignoring %v: %v", e.Op, err)
			return
		}
		logger.Infof(e.Name, "Reloaded settings after %v", e.Op)
		onChange(changed)
	})
	v.WatchConfig()
	return s, nil
}

func splitRules(rules []string) []string {
	var out []string
	for _, list := range rules {
		for _, r := range strings.Split(list, ",") {
			if r = strings.TrimSpace(r); r != "" {
				out = append(out, r)
			}
		}
	}
	return out
}

// Validate checks the settings for values that cannot be applied.
func (s Settings) Validate() error {
	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrLogLevel, s.LogLevel)
	}
	if s.Pprof && s.DebugAddr == "" {
		return ErrDebugAddr
	}
	return nil
}

// Apply sets the logger level from the settings.
func (s Settings) Apply() error {
	return logger.InitLevel(s.LogLevel)
}

// Sink builds the sink diagnostics go through: disabled rules are dropped and the rest are logged
// and kept in collector.
func (s Settings) Sink(collector *report.Collector) report.Sink {
	return report.NewFilter(report.Tee{report.LogSink{}, collector}, s.DisabledRules)
}

// Collector returns a collector sized from the settings.
func (s Settings) Collector() *report.Collector {
	return report.NewCollector(s.CollectorLimit)
}
