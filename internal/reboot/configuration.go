package reboot

import "time"

const (
	defaultIntervalConstant = 86340 * time.Second

	configurationIntervalKeyConstant    = "interval"
	configurationTechSupportKeyConstant = "tech_support"
	configurationOnceKeyConstant        = "once"
	configurationKeySeparatorConstant   = "."
)

// CommandConfiguration captures configuration values for the reboot command.
type CommandConfiguration struct {
	Interval    time.Duration `mapstructure:"interval"`
	TechSupport bool          `mapstructure:"tech_support"`
	Once        bool          `mapstructure:"once"`
}

// DefaultCommandConfiguration provides baseline configuration values for the reboot timer.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Interval:    defaultIntervalConstant,
		TechSupport: false,
		Once:        false,
	}
}

// DefaultConfigurationValues returns the configuration defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + configurationKeySeparatorConstant + configurationIntervalKeyConstant:    defaults.Interval.String(),
		prefix + configurationKeySeparatorConstant + configurationTechSupportKeyConstant: defaults.TechSupport,
		prefix + configurationKeySeparatorConstant + configurationOnceKeyConstant:        defaults.Once,
	}
}

func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	if sanitized.Interval <= 0 {
		sanitized.Interval = defaultIntervalConstant
	}
	return sanitized
}
