package voltage

import (
	"strings"
	"time"
)

const (
	// DefaultRawStreamID names the stream receiving raw analog readings.
	DefaultRawStreamID = "wr31ain"
	// DefaultCalculatedStreamID names the stream receiving calculated supply voltages.
	DefaultCalculatedStreamID = "wr31vin"

	defaultIntervalConstant           = 60 * time.Second
	defaultResistorOhmsConstant       = 681000.0
	defaultInputImpedanceOhmsConstant = 291000.0
	defaultReportingThresholdConstant = 0.01
	defaultDecimalsConstant           = 3

	configurationKeySeparatorConstant = "."
)

// CommandConfiguration captures configuration values for the voltage reporter.
type CommandConfiguration struct {
	Interval             time.Duration `mapstructure:"interval"`
	ResistorOhms         float64       `mapstructure:"resistor_ohms"`
	InputImpedanceOhms   float64       `mapstructure:"input_impedance_ohms"`
	ConditionalReporting bool          `mapstructure:"conditional_reporting"`
	ReportingThreshold   float64       `mapstructure:"reporting_threshold"`
	Decimals             int           `mapstructure:"decimals"`
	RawStreamID          string        `mapstructure:"raw_stream_id"`
	CalculatedStreamID   string        `mapstructure:"calculated_stream_id"`
}

// DefaultCommandConfiguration provides baseline configuration values for the voltage reporter.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Interval:             defaultIntervalConstant,
		ResistorOhms:         defaultResistorOhmsConstant,
		InputImpedanceOhms:   defaultInputImpedanceOhmsConstant,
		ConditionalReporting: false,
		ReportingThreshold:   defaultReportingThresholdConstant,
		Decimals:             defaultDecimalsConstant,
		RawStreamID:          DefaultRawStreamID,
		CalculatedStreamID:   DefaultCalculatedStreamID,
	}
}

// DefaultConfigurationValues returns the configuration defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	key := func(name string) string {
		return prefix + configurationKeySeparatorConstant + name
	}
	return map[string]any{
		key("interval"):              defaults.Interval.String(),
		key("resistor_ohms"):         defaults.ResistorOhms,
		key("input_impedance_ohms"):  defaults.InputImpedanceOhms,
		key("conditional_reporting"): defaults.ConditionalReporting,
		key("reporting_threshold"):   defaults.ReportingThreshold,
		key("decimals"):              defaults.Decimals,
		key("raw_stream_id"):         defaults.RawStreamID,
		key("calculated_stream_id"):  defaults.CalculatedStreamID,
	}
}

func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration
	if sanitized.Interval <= 0 {
		sanitized.Interval = defaults.Interval
	}
	if sanitized.ResistorOhms < 0 {
		sanitized.ResistorOhms = defaults.ResistorOhms
	}
	if sanitized.InputImpedanceOhms <= 0 {
		sanitized.InputImpedanceOhms = defaults.InputImpedanceOhms
	}
	if sanitized.Decimals < 0 {
		sanitized.Decimals = defaults.Decimals
	}
	sanitized.RawStreamID = strings.TrimSpace(configuration.RawStreamID)
	if len(sanitized.RawStreamID) == 0 {
		sanitized.RawStreamID = defaults.RawStreamID
	}
	sanitized.CalculatedStreamID = strings.TrimSpace(configuration.CalculatedStreamID)
	if len(sanitized.CalculatedStreamID) == 0 {
		sanitized.CalculatedStreamID = defaults.CalculatedStreamID
	}
	return sanitized
}
