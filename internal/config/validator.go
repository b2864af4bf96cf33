package config

import (
	"fmt"
	"regexp"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Defaults matching the reference belt camera deployment.
const (
	defaultMinArea      = 20000
	defaultMaxArea      = 30000
	defaultIntervalS    = 1
	defaultWidth        = 960
	defaultHeight       = 540
	defaultHealthPort   = "8080"
	defaultDefectsTopic = "defects/counter"
	defaultControlTopic = "defects/control"
)

// Validate checks if the configuration is valid and fills defaults
func Validate(cfg *Config) error {
	// Validate instance_id
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	// Validate video source
	if cfg.Video.Source == "" {
		return fmt.Errorf("video.source is required")
	}
	if cfg.Video.Width <= 0 {
		cfg.Video.Width = defaultWidth
	}
	if cfg.Video.Height <= 0 {
		cfg.Video.Height = defaultHeight
	}

	// Validate detection range
	if cfg.Detection.MinArea == 0 && cfg.Detection.MaxArea == 0 {
		cfg.Detection.MinArea = defaultMinArea
		cfg.Detection.MaxArea = defaultMaxArea
	}
	if cfg.Detection.MinArea < 0 || cfg.Detection.MaxArea < 0 {
		return fmt.Errorf("detection areas must be >= 0")
	}
	if cfg.Detection.MinArea > cfg.Detection.MaxArea {
		return fmt.Errorf("detection.min_area (%d) must be <= detection.max_area (%d)",
			cfg.Detection.MinArea, cfg.Detection.MaxArea)
	}

	// Validate telemetry cadence
	if cfg.Telemetry.IntervalS == 0 {
		cfg.Telemetry.IntervalS = defaultIntervalS
	}
	if cfg.Telemetry.IntervalS < 1 {
		return fmt.Errorf("telemetry.interval_s must be >= 1")
	}

	// Validate MQTT broker
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}

	// Set default topics if not provided
	if cfg.MQTT.Topics.Defects == "" {
		cfg.MQTT.Topics.Defects = defaultDefectsTopic
	}
	if cfg.MQTT.Topics.Control == "" {
		cfg.MQTT.Topics.Control = defaultControlTopic
	}

	// Set default QoS if not provided
	if cfg.MQTT.QoS == nil {
		cfg.MQTT.QoS = map[string]byte{
			"defects": 0,
			"control": 1,
		}
	}

	if cfg.HealthPort == "" {
		cfg.HealthPort = defaultHealthPort
	}

	return nil
}
