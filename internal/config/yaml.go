// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applog "spectra/internal/log"
	"spectra/internal/spectrum"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Transform settings.
	Transport TransportConfig `yaml:"transport"` // Where frames are published.
}

// AnalysisConfig holds settings for reading and transforming a file.
type AnalysisConfig struct {
	Engine    string                   `yaml:"engine"`     // "fft", "dft" or "gonum".
	Seconds   int                      `yaml:"seconds"`    // Whole seconds of audio per block.
	Channel   int                      `yaml:"channel"`    // Channel index, or -1 for all channels.
	Parallel  bool                     `yaml:"parallel"`   // Shard channels across goroutines (fft engine).
	MaxPoints int                      `yaml:"max_points"` // Largest padded buffer an engine may allocate.
	Bands     []spectrum.FrequencyBand `yaml:"bands"`      // Bands reported by the bands command.
}

// TransportConfig holds settings for pushing frames over the network.
// Empty addresses disable the corresponding transport.
type TransportConfig struct {
	WebSocketAddr string  `yaml:"websocket_addr"` // Listen address of the websocket server (e.g., ":8080").
	UDPTarget     string  `yaml:"udp_target"`     // Target of UDP packets (e.g., "127.0.0.1:9090").
	SendRate      float64 `yaml:"send_rate"`      // Frames per second, shared by all network transports.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches the working directory for DefaultConfigFile. If no file is found, it uses
// built-in defaults. After loading, a .env file is applied to the environment if present,
// ENV_ variables override the result and the final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: loaded %s", path)
	}

	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, err
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadDotEnv exports the variables of a dotenv file without replacing
// variables already present in the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		applog.Debugf("configuration: loaded environment from %s", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// Validate reports the first setting that cannot drive an analysis run.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel)
	}

	a := c.Analysis
	if !slices.Contains(Engines(), a.Engine) {
		return fmt.Errorf("analysis.engine %q is not one of %s", a.Engine, strings.Join(Engines(), ", "))
	}
	if a.Seconds <= 0 || a.Seconds > MaxSeconds {
		return fmt.Errorf("analysis.seconds must be in [1, %d], got %d", MaxSeconds, a.Seconds)
	}
	if a.Channel < AllChannels {
		return fmt.Errorf("analysis.channel must be %d (all) or a channel index, got %d", AllChannels, a.Channel)
	}
	if a.MaxPoints < 0 {
		return fmt.Errorf("analysis.max_points must not be negative, got %d", a.MaxPoints)
	}
	for i, b := range a.Bands {
		if b.Name == "" {
			return fmt.Errorf("analysis.bands[%d] has no name", i)
		}
		if b.LowHz < 0 || math.IsNaN(b.LowHz) || math.IsNaN(b.HighHz) || b.LowHz >= b.HighHz {
			return fmt.Errorf("analysis.bands[%d] (%s): need 0 <= low_hz < high_hz, got %v..%v", i, b.Name, b.LowHz, b.HighHz)
		}
	}

	t := c.Transport
	if t.SendRate <= 0 || t.SendRate > MaxSendRate {
		return fmt.Errorf("transport.send_rate must be in (0, %v], got %v", MaxSendRate, t.SendRate)
	}
	if t.UDPTarget != "" && !strings.Contains(t.UDPTarget, ":") {
		return fmt.Errorf("transport.udp_target %q appears invalid (missing port?)", t.UDPTarget)
	}

	return nil
}

// applyEnvOverrides replaces settings with ENV_ variables. Values that fail
// to parse are logged and ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		applog.Debugf("configuration: overriding log_level from env: %s", val)
	}

	// ENV_{...}
	// These are specific to the analysis run.

	// ENV_ENGINE
	if val, ok := os.LookupEnv("ENV_ENGINE"); ok {
		cfg.Analysis.Engine = strings.ToLower(val)
		applog.Debugf("configuration: overriding analysis.engine from env: %s", val)
	}
	// ENV_SECONDS
	if val, ok := os.LookupEnv("ENV_SECONDS"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Analysis.Seconds = n
			applog.Debugf("configuration: overriding analysis.seconds from env: %d", n)
		} else {
			applog.Warnf("configuration: ignoring ENV_SECONDS=%q: %v", val, err)
		}
	}
	// ENV_PARALLEL
	if val, ok := os.LookupEnv("ENV_PARALLEL"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Analysis.Parallel = b
			applog.Debugf("configuration: overriding analysis.parallel from env: %v", b)
		} else {
			applog.Warnf("configuration: ignoring ENV_PARALLEL=%q: %v", val, err)
		}
	}

	// ENV_{...}
	// These are specific to the transport layer.

	// ENV_WS_ADDR
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		cfg.Transport.WebSocketAddr = val
		applog.Debugf("configuration: overriding transport.websocket_addr from env: %s", val)
	}
	// ENV_UDP_TARGET
	if val, ok := os.LookupEnv("ENV_UDP_TARGET"); ok {
		cfg.Transport.UDPTarget = val
		applog.Debugf("configuration: overriding transport.udp_target from env: %s", val)
	}
}
