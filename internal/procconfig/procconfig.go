// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package procconfig loads the engine's own process configuration —
// log level/format, dilation-service connection parameters, socket-hook
// strictness — as distinct from the DML experiment topology (package
// dml). The teacher splits its own settings the same way: a small YAML
// surface for process-level knobs alongside the much larger HCL
// firewall configuration.
package procconfig

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grimmlab/chronoswitch/internal/errors"
)

// Config holds process-level settings for chronoswitchd.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	DilationSocket string `yaml:"dilation_socket"`
	SocketHookPath string `yaml:"socket_hook_path"`
	// SocketHookStrict turns a socket-hook file that cannot be opened
	// at startup into a hard error instead of running without the hook;
	// per-frame fallbacks to elapsed_now after startup are unaffected
	// (see DESIGN.md Open Question decisions).
	SocketHookStrict bool `yaml:"socket_hook_strict"`

	// AdvanceDriftThreshold is the |elapsed-target| bound (µs) beyond
	// which advanceLXCsOnTimeline invokes fix_timeline (spec §4.G step 4).
	AdvanceDriftThreshold int64 `yaml:"advance_drift_threshold_us"`

	// CapturePollTimeout is the per-iteration poll(2) timeout used by
	// the Manager's capture goroutine (spec §4.G step 2).
	CapturePollTimeout time.Duration `yaml:"capture_poll_timeout"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		LogLevel:              "info",
		LogFormat:             "console",
		SocketHookStrict:      false,
		AdvanceDriftThreshold: 1000,
		CapturePollTimeout:    3500 * time.Millisecond,
	}
}

// Load reads and parses a YAML process-config file, filling unset
// fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, errors.ConfigInvalid, "read process config %q", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, errors.ConfigInvalid, "parse process config %q", path)
	}
	if cfg.AdvanceDriftThreshold <= 0 {
		cfg.AdvanceDriftThreshold = 1000
	}
	if cfg.CapturePollTimeout <= 0 {
		cfg.CapturePollTimeout = 3500 * time.Millisecond
	}
	return cfg, nil
}
