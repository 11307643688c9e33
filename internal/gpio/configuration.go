package gpio

import (
	"strings"
	"time"
)

const (
	defaultLoopsConstant = 10
	defaultWaitConstant  = 200 * time.Millisecond

	configurationAnalogControlKeyConstant = "analog_control"
	configurationLoopsKeyConstant         = "loops"
	configurationWaitKeyConstant          = "wait"
	configurationKeySeparatorConstant     = "."
)

// CommandConfiguration captures configuration values for the gpio commands.
type CommandConfiguration struct {
	AnalogControl string        `mapstructure:"analog_control"`
	Loops         int           `mapstructure:"loops"`
	Wait          time.Duration `mapstructure:"wait"`
}

// DefaultCommandConfiguration provides baseline configuration values for GPIO polling.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		AnalogControl: "",
		Loops:         defaultLoopsConstant,
		Wait:          defaultWaitConstant,
	}
}

// DefaultConfigurationValues returns the configuration defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + configurationKeySeparatorConstant + configurationAnalogControlKeyConstant: defaults.AnalogControl,
		prefix + configurationKeySeparatorConstant + configurationLoopsKeyConstant:         defaults.Loops,
		prefix + configurationKeySeparatorConstant + configurationWaitKeyConstant:          defaults.Wait.String(),
	}
}

func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.AnalogControl = strings.ToLower(strings.TrimSpace(configuration.AnalogControl))
	if sanitized.Loops == 0 {
		sanitized.Loops = defaultLoopsConstant
	}
	if sanitized.Wait == 0 {
		sanitized.Wait = defaultWaitConstant
	}
	return sanitized
}
