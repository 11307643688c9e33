package provision

import (
	"strings"
	"time"
)

const (
	// DefaultIPListFile lists device addresses, one per line.
	DefaultIPListFile = "iplist.txt"
	// ResultsFilePrefix names the bulk-add CSV written per run.
	ResultsFilePrefix = "bulkadd_results"
	// ResultsFileExtension is the bulk-add CSV extension.
	ResultsFileExtension = ".csv"
	// ResultsLogPrefix names the per-run provisioning log.
	ResultsLogPrefix = "results_provision"
	// ResultsLogExtension is the per-run provisioning log extension.
	ResultsLogExtension = ".log"

	defaultTimeoutConstant            = 20 * time.Second
	defaultPortConstant               = 22
	configurationKeySeparatorConstant = "."
)

// CommandConfiguration captures configuration values for bulk provisioning.
type CommandConfiguration struct {
	Username              string        `mapstructure:"username"`
	Password              string        `mapstructure:"password"`
	Port                  int           `mapstructure:"port"`
	Timeout               time.Duration `mapstructure:"timeout"`
	ServerHost            string        `mapstructure:"server_host"`
	Reboot                bool          `mapstructure:"reboot"`
	IPFile                string        `mapstructure:"ip_file"`
	Inventory             string        `mapstructure:"inventory"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key"`
	KnownHostsPath        string        `mapstructure:"known_hosts"`
	ResultsDirectory      string        `mapstructure:"results_directory"`
	ResultsLog            bool          `mapstructure:"results_log"`
}

// DefaultCommandConfiguration provides baseline configuration values for bulk provisioning.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Username:              "",
		Password:              "",
		Port:                  defaultPortConstant,
		Timeout:               defaultTimeoutConstant,
		ServerHost:            DefaultServerHost,
		Reboot:                true,
		IPFile:                DefaultIPListFile,
		Inventory:             "",
		InsecureIgnoreHostKey: true,
		KnownHostsPath:        "",
		ResultsDirectory:      "",
		ResultsLog:            true,
	}
}

// DefaultConfigurationValues returns the configuration defaults keyed beneath the provided prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	key := func(name string) string {
		return prefix + configurationKeySeparatorConstant + name
	}
	return map[string]any{
		key("username"):                 defaults.Username,
		key("password"):                 defaults.Password,
		key("port"):                     defaults.Port,
		key("timeout"):                  defaults.Timeout.String(),
		key("server_host"):              defaults.ServerHost,
		key("reboot"):                   defaults.Reboot,
		key("ip_file"):                  defaults.IPFile,
		key("inventory"):                defaults.Inventory,
		key("insecure_ignore_host_key"): defaults.InsecureIgnoreHostKey,
		key("known_hosts"):              defaults.KnownHostsPath,
		key("results_directory"):        defaults.ResultsDirectory,
		key("results_log"):              defaults.ResultsLog,
	}
}

func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Username = strings.TrimSpace(configuration.Username)
	sanitized.ServerHost = strings.TrimSpace(configuration.ServerHost)
	if len(sanitized.ServerHost) == 0 {
		sanitized.ServerHost = DefaultServerHost
	}
	if sanitized.Port <= 0 {
		sanitized.Port = defaultPortConstant
	}
	if sanitized.Timeout <= 0 {
		sanitized.Timeout = defaultTimeoutConstant
	}
	sanitized.IPFile = strings.TrimSpace(configuration.IPFile)
	if len(sanitized.IPFile) == 0 {
		sanitized.IPFile = DefaultIPListFile
	}
	sanitized.Inventory = strings.TrimSpace(configuration.Inventory)
	sanitized.KnownHostsPath = strings.TrimSpace(configuration.KnownHostsPath)
	sanitized.ResultsDirectory = strings.TrimSpace(configuration.ResultsDirectory)
	return sanitized
}
