package gpsreport

import (
	"strings"
	"time"
)

const (
	// DefaultStreamID names the stream receiving geolocation datapoints.
	DefaultStreamID = "geolocation"

	defaultIntervalConstant           = 180 * time.Second
	configurationKeySeparatorConstant = "."
)

// CommandConfiguration captures configuration values for the GPS reporter.
type CommandConfiguration struct {
	Interval time.Duration `mapstructure:"interval"`
	StreamID string        `mapstructure:"stream_id"`
}

// DefaultCommandConfiguration provides baseline configuration values for the GPS reporter.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Interval: defaultIntervalConstant,
		StreamID: DefaultStreamID,
	}
}

// DefaultConfigurationValues returns the configuration defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + configurationKeySeparatorConstant + "interval":  defaults.Interval.String(),
		prefix + configurationKeySeparatorConstant + "stream_id": defaults.StreamID,
	}
}

func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	if sanitized.Interval <= 0 {
		sanitized.Interval = defaultIntervalConstant
	}
	sanitized.StreamID = strings.TrimSpace(configuration.StreamID)
	if len(sanitized.StreamID) == 0 {
		sanitized.StreamID = DefaultStreamID
	}
	return sanitized
}
