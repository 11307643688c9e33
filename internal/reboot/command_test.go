package reboot

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommandBuilderAppliesFlagOverrides(testInstance *testing.T) {
	testCases := []struct {
		name             string
		configuration    CommandConfiguration
		arguments        []string
		expectedDuration time.Duration
		expectedCommands []string
	}{
		{
			name:             "flags_override_configuration",
			configuration:    CommandConfiguration{Interval: time.Hour, TechSupport: true},
			arguments:        []string{"--once", "--time", "5", "--debug=no"},
			expectedDuration: 5 * time.Second,
			expectedCommands: []string{rebootCommandConstant},
		},
		{
			name:             "configuration_enables_tech_support",
			configuration:    CommandConfiguration{Interval: 2 * time.Minute, TechSupport: true, Once: true},
			arguments:        []string{},
			expectedDuration: 2 * time.Minute,
			expectedCommands: []string{testTechSupportCommandConstant, rebootCommandConstant},
		},
		{
			name:             "bare_debug_flag",
			configuration:    DefaultCommandConfiguration(),
			arguments:        []string{"--debug", "--once"},
			expectedDuration: defaultIntervalConstant,
			expectedCommands: []string{testTechSupportCommandConstant, rebootCommandConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			console := &recordingConsole{}
			sleeper := &scriptedSleeper{completedSleep: 1}

			builder := CommandBuilder{
				LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
				ConfigurationProvider: func() CommandConfiguration { return testCase.configuration },
				Console:               console,
				Clock:                 fixedClock,
				Sleep:                 sleeper.Sleep,
			}

			command, buildError := builder.Build()
			require.NoError(subTest, buildError)

			command.SetContext(context.Background())
			command.SetArgs(testCase.arguments)
			command.SetOut(&bytes.Buffer{})
			command.SetErr(&bytes.Buffer{})

			require.NoError(subTest, command.Execute())
			require.Equal(subTest, []time.Duration{testCase.expectedDuration}, sleeper.durations)
			require.Equal(subTest, testCase.expectedCommands, console.commands)
		})
	}
}

func TestCommandBuilderRejectsArguments(testInstance *testing.T) {
	builder := CommandBuilder{Console: &recordingConsole{}}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetContext(context.Background())
	command.SetArgs([]string{"now"})
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})

	require.ErrorIs(testInstance, command.Execute(), errUnexpectedArguments)
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	values := DefaultConfigurationValues("tools.reboot")
	require.Equal(testInstance, "23h59m0s", values["tools.reboot.interval"])
	require.Equal(testInstance, false, values["tools.reboot.tech_support"])
	require.Equal(testInstance, false, values["tools.reboot.once"])
}
