package deviceexport

import "strings"

const configurationKeySeparatorConstant = "."

// CommandConfiguration captures configuration values for the device export.
type CommandConfiguration struct {
	OutputFile string `mapstructure:"output_file"`
	Debug      bool   `mapstructure:"debug"`
}

// DefaultCommandConfiguration provides baseline configuration values for the device export.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{OutputFile: "", Debug: false}
}

// DefaultConfigurationValues returns the configuration defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		prefix + configurationKeySeparatorConstant + "output_file": defaults.OutputFile,
		prefix + configurationKeySeparatorConstant + "debug":       defaults.Debug,
	}
}

func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.OutputFile = strings.TrimSpace(configuration.OutputFile)
	return sanitized
}
