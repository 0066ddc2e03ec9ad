// Package config loads the pinchview YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ayusman/pinchview/internal/aggregate"
	"github.com/ayusman/pinchview/internal/capture"
	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/grid"
	"github.com/ayusman/pinchview/internal/metric"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvAddr       = "PINCHVIEW_ADDR"
	EnvLogLevel   = "PINCHVIEW_LOG_LEVEL"
	EnvMQTTBroker = "PINCHVIEW_MQTT_BROKER"
)

// Config is the whole application configuration.
type Config struct {
	Logging  LoggingConfig            `yaml:"logging"`
	Server   ServerConfig             `yaml:"server"`
	Camera   capture.Config           `yaml:"camera"`
	Engine   detector.MediaPipeConfig `yaml:"engine"`
	Metric   MetricConfig             `yaml:"metric"`
	Grid     GridConfig               `yaml:"grid"`
	Options  detector.Options         `yaml:"options"`
	Data     DataConfig               `yaml:"data"`
	Actuator ActuatorConfig           `yaml:"actuator"`
	MQTT     MQTTConfig               `yaml:"mqtt"`
	Tray     TrayConfig               `yaml:"tray"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir,omitempty"`
}

// MetricConfig selects the pinch distance formula.
type MetricConfig struct {
	Distance string `yaml:"distance"`
}

// GridConfig selects the edge offset mode and the browser grid options.
type GridConfig struct {
	Offset string      `yaml:"offset"`
	Widget grid.Config `yaml:"widget"`
}

// DataConfig locates the database directory.
type DataConfig struct {
	Directory string `yaml:"directory"`
}

// ActuatorConfig binds the control value to a plugin action.
type ActuatorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	PluginDir string `yaml:"plugin_dir"`
	Plugin    string `yaml:"plugin"`
	Action    string `yaml:"action"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// MQTTConfig holds the control value publisher settings. An empty broker
// disables publishing.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id,omitempty"`
}

// TrayConfig toggles the system tray.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".pinchview")

	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Addr: ":8080"},
		Camera:  capture.DefaultConfig(),
		Engine:  detector.MediaPipeConfig{IdleTimeout: detector.DefaultIdleTimeout},
		Metric:  MetricConfig{Distance: metric.ModeEuclidean.String()},
		Grid: GridConfig{
			Offset: aggregate.OffsetByLandmarks.String(),
			Widget: grid.DefaultConfig(),
		},
		Options: detector.DefaultOptions(),
		Data:    DataConfig{Directory: base},
		Actuator: ActuatorConfig{
			Enabled:   false,
			PluginDir: filepath.Join(base, "plugins"),
			Plugin:    "system-control",
			Action:    "set-volume",
			TimeoutMs: 5000,
		},
		MQTT: MQTTConfig{Topic: "pinchview/metric"},
		Tray: TrayConfig{Enabled: true},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %q: %w", path, err)
			}
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := getenv(EnvMQTTBroker); v != "" {
		c.MQTT.Broker = v
	}
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Data.Directory == "" {
		return errors.New("data.directory is required")
	}
	if _, err := c.DistanceMode(); err != nil {
		return fmt.Errorf("metric.distance: %w", err)
	}
	if _, err := c.OffsetMode(); err != nil {
		return fmt.Errorf("grid.offset: %w", err)
	}
	if err := c.Options.Validate(); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	if c.Actuator.Enabled && (c.Actuator.Plugin == "" || c.Actuator.Action == "") {
		return errors.New("actuator.plugin and actuator.action are required when the actuator is enabled")
	}
	if c.MQTT.Broker != "" && c.MQTT.Topic == "" {
		return errors.New("mqtt.topic is required when mqtt.broker is set")
	}
	return nil
}

// DistanceMode returns the parsed metric.distance setting.
func (c *Config) DistanceMode() (metric.Mode, error) {
	return metric.ParseMode(c.Metric.Distance)
}

// OffsetMode returns the parsed grid.offset setting.
func (c *Config) OffsetMode() (aggregate.OffsetMode, error) {
	return aggregate.ParseOffsetMode(c.Grid.Offset)
}

// DatabasePath is where the SQLite database lives.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.Directory, "pinchview.db")
}
