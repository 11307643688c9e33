package simwatch

import (
	"strings"
	"time"
)

const (
	// DefaultStateFile stores the last seen ICCID.
	DefaultStateFile = "iccid.txt"
	// DefaultSMSCustomText prefixes SIM change SMS alerts.
	DefaultSMSCustomText = "SIM Watch"

	defaultLockTimeoutConstant        = 5 * time.Second
	configurationKeySeparatorConstant = "."
)

// AlertConfiguration selects the alerts raised when the SIM changes.
type AlertConfiguration struct {
	DataPointStream string `mapstructure:"datapoint_stream"`
	SMSDestination  string `mapstructure:"sms_destination"`
	SMSCustomText   string `mapstructure:"sms_custom_text"`
}

// CommandConfiguration captures configuration values for the SIM watch.
type CommandConfiguration struct {
	StateFile   string             `mapstructure:"state_file"`
	LockTimeout time.Duration      `mapstructure:"lock_timeout"`
	Alerts      AlertConfiguration `mapstructure:"alerts"`
}

// DefaultCommandConfiguration provides baseline configuration values for the SIM watch.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		StateFile:   DefaultStateFile,
		LockTimeout: defaultLockTimeoutConstant,
		Alerts: AlertConfiguration{
			DataPointStream: "",
			SMSDestination:  "",
			SMSCustomText:   DefaultSMSCustomText,
		},
	}
}

// DefaultConfigurationValues returns the configuration defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	key := func(name string) string {
		return prefix + configurationKeySeparatorConstant + name
	}
	return map[string]any{
		key("state_file"):              defaults.StateFile,
		key("lock_timeout"):            defaults.LockTimeout.String(),
		key("alerts.datapoint_stream"): defaults.Alerts.DataPointStream,
		key("alerts.sms_destination"):  defaults.Alerts.SMSDestination,
		key("alerts.sms_custom_text"):  defaults.Alerts.SMSCustomText,
	}
}

func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.StateFile = strings.TrimSpace(configuration.StateFile)
	if len(sanitized.StateFile) == 0 {
		sanitized.StateFile = DefaultStateFile
	}
	if sanitized.LockTimeout <= 0 {
		sanitized.LockTimeout = defaultLockTimeoutConstant
	}
	sanitized.Alerts.DataPointStream = strings.TrimSpace(configuration.Alerts.DataPointStream)
	sanitized.Alerts.SMSDestination = strings.TrimSpace(configuration.Alerts.SMSDestination)
	if len(strings.TrimSpace(sanitized.Alerts.SMSCustomText)) == 0 {
		sanitized.Alerts.SMSCustomText = DefaultSMSCustomText
	}
	return sanitized
}
