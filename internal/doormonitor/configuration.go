package doormonitor

import (
	"strings"
	"time"

	"github.com/temirov/digiscripts/internal/alerts"
)

const (
	// DefaultStreamID names the datapoint stream receiving door states.
	DefaultStreamID = "WR31_door"

	defaultPollIntervalConstant = 500 * time.Millisecond

	configurationPollIntervalKeyConstant    = "poll_interval"
	configurationStreamIDKeyConstant        = "stream_id"
	configurationDataPointAlertsKeyConstant = "datapoint_alerts"
	configurationSMSDestinationKeyConstant  = "sms.destination"
	configurationSMSCustomTextKeyConstant   = "sms.custom_text"
	configurationKeySeparatorConstant       = "."
)

// SMSConfiguration describes the optional SMS alert.
type SMSConfiguration struct {
	Destination string `mapstructure:"destination"`
	CustomText  string `mapstructure:"custom_text"`
}

// CommandConfiguration captures configuration values for the door monitor.
type CommandConfiguration struct {
	PollInterval   time.Duration    `mapstructure:"poll_interval"`
	StreamID       string           `mapstructure:"stream_id"`
	DataPointAlert bool             `mapstructure:"datapoint_alerts"`
	SMS            SMSConfiguration `mapstructure:"sms"`
}

// DefaultCommandConfiguration provides baseline configuration values for the door monitor.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		PollInterval:   defaultPollIntervalConstant,
		StreamID:       DefaultStreamID,
		DataPointAlert: true,
		SMS: SMSConfiguration{
			Destination: "",
			CustomText:  alerts.DefaultSMSCustomText,
		},
	}
}

// DefaultConfigurationValues returns the configuration defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + configurationKeySeparatorConstant + configurationPollIntervalKeyConstant:    defaults.PollInterval.String(),
		prefix + configurationKeySeparatorConstant + configurationStreamIDKeyConstant:        defaults.StreamID,
		prefix + configurationKeySeparatorConstant + configurationDataPointAlertsKeyConstant: defaults.DataPointAlert,
		prefix + configurationKeySeparatorConstant + configurationSMSDestinationKeyConstant:  defaults.SMS.Destination,
		prefix + configurationKeySeparatorConstant + configurationSMSCustomTextKeyConstant:   defaults.SMS.CustomText,
	}
}

func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	if sanitized.PollInterval <= 0 {
		sanitized.PollInterval = defaultPollIntervalConstant
	}
	sanitized.StreamID = strings.TrimSpace(configuration.StreamID)
	if len(sanitized.StreamID) == 0 {
		sanitized.StreamID = DefaultStreamID
	}
	sanitized.SMS.Destination = strings.TrimSpace(configuration.SMS.Destination)
	if len(strings.TrimSpace(sanitized.SMS.CustomText)) == 0 {
		sanitized.SMS.CustomText = alerts.DefaultSMSCustomText
	}
	return sanitized
}
