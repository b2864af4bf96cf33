package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete beltsense configuration
type Config struct {
	InstanceID       string          `yaml:"instance_id"`
	LineID           string          `yaml:"line_id"`
	ShutdownTimeoutS int             `yaml:"shutdown_timeout_s"` // Graceful shutdown timeout in seconds (default: 5)
	HealthPort       string          `yaml:"health_port"`
	Video            VideoConfig     `yaml:"video"`
	Detection        DetectionConfig `yaml:"detection"`
	Telemetry        TelemetryConfig `yaml:"telemetry"`
	MQTT             MQTTConfig      `yaml:"mqtt"`
}

// VideoConfig contains frame source settings
type VideoConfig struct {
	// Source is a video file path or a numeric capture device index.
	Source string `yaml:"source"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// DetectionConfig contains the acceptable part size range (inclusive)
type DetectionConfig struct {
	MinArea int `yaml:"min_area"`
	MaxArea int `yaml:"max_area"`
}

// TelemetryConfig contains telemetry publishing settings
type TelemetryConfig struct {
	IntervalS int `yaml:"interval_s"` // seconds between status updates (default: 1)
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker string          `yaml:"broker"`
	Topics MQTTTopics      `yaml:"topics"`
	QoS    map[string]byte `yaml:"qos"`
}

// MQTTTopics contains topic names
type MQTTTopics struct {
	Defects string `yaml:"defects"`
	Control string `yaml:"control"`
}

// Load reads and parses a YAML configuration file, then applies
// environment overrides and validation defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets deployment env vars win over the YAML file for
// the MQTT connection (MQTT_SERVER, MQTT_CLIENT_ID). A .env file in the
// working directory is loaded first if present.
func applyEnvOverrides(cfg *Config) {
	// Missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	if broker := os.Getenv("MQTT_SERVER"); broker != "" {
		cfg.MQTT.Broker = broker
	}
	if clientID := os.Getenv("MQTT_CLIENT_ID"); clientID != "" {
		cfg.InstanceID = clientID
	}
}
