package cli

import (
	"bytes"
	_ "embed"
)

// defaultConfigurationContent holds the shipped defaults for every script and the router connection.
//
//go:embed default_config.yaml
var defaultConfigurationContent []byte

// embeddedDefaultConfiguration returns a copy of the shipped defaults and their format.
func embeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationContent), configurationTypeConstant
}
