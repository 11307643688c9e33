package routercli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/execshell"
	"github.com/temirov/digiscripts/internal/sshclient"
)

const (
	// ConsoleModeLocal runs commands through the on-device CLI binary.
	ConsoleModeLocal = "local"
	// ConsoleModeSSH runs commands on a remote router over SSH.
	ConsoleModeSSH = "ssh"

	defaultSSHPortConstant          = 22
	defaultSSHTimeoutConstant       = 20 * time.Second
	modeKeyConstant                 = "mode"
	localCommandKeyConstant         = "local.command"
	sshHostKeyConstant              = "ssh.host"
	sshPortKeyConstant              = "ssh.port"
	sshUsernameKeyConstant          = "ssh.username"
	sshPasswordKeyConstant          = "ssh.password"
	sshTimeoutKeyConstant           = "ssh.timeout"
	sshKnownHostsKeyConstant        = "ssh.known_hosts"
	sshInsecureHostKeyKeyConstant   = "ssh.insecure_ignore_host_key"
	configurationKeySeparator       = "."
	unsupportedModeTemplateConstant = "unsupported router console mode %q (expected local or ssh)"
	sshHostMissingMessageConstant   = "router ssh host not configured"
)

// ErrSSHHostNotConfigured indicates that SSH mode was selected without a host.
var ErrSSHHostNotConfigured = errors.New(sshHostMissingMessageConstant)

// Configuration selects and configures the router console.
type Configuration struct {
	Mode  string             `mapstructure:"mode"`
	Local LocalConfiguration `mapstructure:"local"`
	SSH   SSHConfiguration   `mapstructure:"ssh"`
}

// LocalConfiguration configures the on-device CLI binary.
type LocalConfiguration struct {
	Command string `mapstructure:"command"`
}

// SSHConfiguration configures a remote router reached over SSH.
type SSHConfiguration struct {
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	Username              string        `mapstructure:"username"`
	Password              string        `mapstructure:"password"`
	Timeout               time.Duration `mapstructure:"timeout"`
	KnownHosts            string        `mapstructure:"known_hosts"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key"`
}

// DefaultConfiguration returns the baseline console configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		Mode:  ConsoleModeLocal,
		Local: LocalConfiguration{Command: DefaultLocalCommandTemplate},
		SSH: SSHConfiguration{
			Port:    defaultSSHPortConstant,
			Timeout: defaultSSHTimeoutConstant,
		},
	}
}

// DefaultConfigurationValues exposes the defaults as configuration keys under the prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		joinConfigurationKey(prefix, modeKeyConstant):               defaults.Mode,
		joinConfigurationKey(prefix, localCommandKeyConstant):       defaults.Local.Command,
		joinConfigurationKey(prefix, sshHostKeyConstant):            defaults.SSH.Host,
		joinConfigurationKey(prefix, sshPortKeyConstant):            defaults.SSH.Port,
		joinConfigurationKey(prefix, sshUsernameKeyConstant):        defaults.SSH.Username,
		joinConfigurationKey(prefix, sshPasswordKeyConstant):        defaults.SSH.Password,
		joinConfigurationKey(prefix, sshTimeoutKeyConstant):         defaults.SSH.Timeout.String(),
		joinConfigurationKey(prefix, sshKnownHostsKeyConstant):      defaults.SSH.KnownHosts,
		joinConfigurationKey(prefix, sshInsecureHostKeyKeyConstant): defaults.SSH.InsecureIgnoreHostKey,
	}
}

// Sanitize trims values and fills unset fields with defaults.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration

	sanitized.Mode = strings.ToLower(strings.TrimSpace(configuration.Mode))
	if len(sanitized.Mode) == 0 {
		sanitized.Mode = defaults.Mode
	}
	sanitized.Local.Command = strings.TrimSpace(configuration.Local.Command)
	if len(sanitized.Local.Command) == 0 {
		sanitized.Local.Command = defaults.Local.Command
	}
	sanitized.SSH.Host = strings.TrimSpace(configuration.SSH.Host)
	sanitized.SSH.Username = strings.TrimSpace(configuration.SSH.Username)
	sanitized.SSH.KnownHosts = strings.TrimSpace(configuration.SSH.KnownHosts)
	if sanitized.SSH.Port <= 0 {
		sanitized.SSH.Port = defaults.SSH.Port
	}
	if sanitized.SSH.Timeout <= 0 {
		sanitized.SSH.Timeout = defaults.SSH.Timeout
	}
	return sanitized
}

// Target converts the SSH section into an sshclient target.
func (configuration SSHConfiguration) Target() sshclient.Target {
	return sshclient.Target{
		Host:                  configuration.Host,
		Port:                  configuration.Port,
		Username:              configuration.Username,
		Password:              configuration.Password,
		Timeout:               configuration.Timeout,
		KnownHostsPath:        configuration.KnownHosts,
		InsecureIgnoreHostKey: configuration.InsecureIgnoreHostKey,
	}
}

// NewConsole builds the console selected by the configuration.
func NewConsole(configuration Configuration, logger *zap.Logger, observer execshell.CommandEventObserver) (Console, error) {
	sanitized := configuration.Sanitize()
	if logger == nil {
		logger = zap.NewNop()
	}

	switch sanitized.Mode {
	case ConsoleModeLocal:
		shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), execshell.WithCommandEventObserver(observer))
		if executorError != nil {
			return nil, executorError
		}
		return NewLocalConsole(shellExecutor, sanitized.Local.Command)
	case ConsoleModeSSH:
		if len(sanitized.SSH.Host) == 0 {
			return nil, ErrSSHHostNotConfigured
		}
		return NewSSHConsole(SSHDialer{}, sanitized.SSH.Target(), observer)
	default:
		return nil, fmt.Errorf(unsupportedModeTemplateConstant, configuration.Mode)
	}
}

func joinConfigurationKey(prefix string, key string) string {
	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) == 0 {
		return key
	}
	return trimmedPrefix + configurationKeySeparator + key
}
