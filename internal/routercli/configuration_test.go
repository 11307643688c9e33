package routercli_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/routercli"
)

func TestConfigurationSanitizeAppliesDefaults(testInstance *testing.T) {
	sanitized := routercli.Configuration{
		Mode: " SSH ",
		SSH:  routercli.SSHConfiguration{Host: " 192.168.1.1 ", Username: " admin "},
	}.Sanitize()

	require.Equal(testInstance, routercli.ConsoleModeSSH, sanitized.Mode)
	require.Equal(testInstance, routercli.DefaultLocalCommandTemplate, sanitized.Local.Command)
	require.Equal(testInstance, "192.168.1.1", sanitized.SSH.Host)
	require.Equal(testInstance, "admin", sanitized.SSH.Username)
	require.Equal(testInstance, 22, sanitized.SSH.Port)
	require.Equal(testInstance, 20*time.Second, sanitized.SSH.Timeout)

	target := sanitized.SSH.Target()
	require.Equal(testInstance, "192.168.1.1:22", target.Address())
}

func TestDefaultConfigurationValuesUsePrefix(testInstance *testing.T) {
	values := routercli.DefaultConfigurationValues("router")
	require.Equal(testInstance, routercli.ConsoleModeLocal, values["router.mode"])
	require.Equal(testInstance, routercli.DefaultLocalCommandTemplate, values["router.local.command"])
	require.Equal(testInstance, "20s", values["router.ssh.timeout"])
	require.Equal(testInstance, 22, values["router.ssh.port"])
}

func TestNewConsoleSelectsImplementation(testInstance *testing.T) {
	localConsole, localError := routercli.NewConsole(routercli.Configuration{}, zap.NewNop(), nil)
	require.NoError(testInstance, localError)
	require.IsType(testInstance, &routercli.LocalConsole{}, localConsole)

	sshConsole, sshError := routercli.NewConsole(routercli.Configuration{Mode: "ssh", SSH: routercli.SSHConfiguration{Host: "10.0.0.1"}}, nil, nil)
	require.NoError(testInstance, sshError)
	require.IsType(testInstance, &routercli.SSHConsole{}, sshConsole)

	_, missingHostError := routercli.NewConsole(routercli.Configuration{Mode: "ssh"}, nil, nil)
	require.ErrorIs(testInstance, missingHostError, routercli.ErrSSHHostNotConfigured)

	_, modeError := routercli.NewConsole(routercli.Configuration{Mode: "serial"}, nil, nil)
	require.Error(testInstance, modeError)
}
