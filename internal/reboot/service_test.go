package reboot

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testTechSupportCommandConstant = "show tech-support tech_support_20261018_123045.log"
)

type recordingConsole struct {
	commands  []string
	responses map[string]error
}

func (console *recordingConsole) Execute(_ context.Context, command string) (string, error) {
	console.commands = append(console.commands, command)
	if failure, exists := console.responses[command]; exists {
		return "", failure
	}
	return "OK", nil
}

type scriptedSleeper struct {
	durations      []time.Duration
	completedSleep int
}

func (sleeper *scriptedSleeper) Sleep(_ context.Context, duration time.Duration) error {
	sleeper.durations = append(sleeper.durations, duration)
	if len(sleeper.durations) > sleeper.completedSleep {
		return context.Canceled
	}
	return nil
}

func fixedClock() time.Time {
	return time.Date(2026, time.October, 18, 12, 30, 45, 0, time.Local)
}

func TestServiceRun(testInstance *testing.T) {
	rebootFailure := errors.New("reboot refused")
	captureFailure := errors.New("disk full")

	testCases := []struct {
		name             string
		options          Options
		completedSleeps  int
		failures         map[string]error
		expectedCommands []string
		expectedError    error
		expectedOutput   []string
	}{
		{
			name:             "once_with_tech_support",
			options:          Options{Interval: defaultIntervalConstant, TechSupport: true, Once: true},
			completedSleeps:  1,
			expectedCommands: []string{testTechSupportCommandConstant, rebootCommandConstant},
			expectedOutput: []string{
				"Running reboot script, timeout 86340 seconds",
				"Debug option to output Tech Support before reboot enabled.",
			},
		},
		{
			name:             "loop_until_cancelled",
			options:          Options{Interval: time.Minute},
			completedSleeps:  2,
			expectedCommands: []string{rebootCommandConstant, rebootCommandConstant},
			expectedOutput:   []string{"Running reboot script, timeout 60 seconds"},
		},
		{
			name:             "loop_continues_after_reboot_failure",
			options:          Options{Interval: time.Minute},
			completedSleeps:  2,
			failures:         map[string]error{rebootCommandConstant: rebootFailure},
			expectedCommands: []string{rebootCommandConstant, rebootCommandConstant},
		},
		{
			name:             "once_reports_reboot_failure",
			options:          Options{Interval: time.Minute, Once: true},
			completedSleeps:  1,
			failures:         map[string]error{rebootCommandConstant: rebootFailure},
			expectedCommands: []string{rebootCommandConstant},
			expectedError:    rebootFailure,
		},
		{
			name:             "tech_support_failure_still_reboots",
			options:          Options{Interval: time.Minute, TechSupport: true, Once: true},
			completedSleeps:  1,
			failures:         map[string]error{testTechSupportCommandConstant: captureFailure},
			expectedCommands: []string{testTechSupportCommandConstant, rebootCommandConstant},
		},
		{
			name:             "cancelled_before_first_reboot",
			options:          Options{Interval: time.Minute, Once: true},
			completedSleeps:  0,
			expectedCommands: nil,
		},
		{
			name:          "invalid_interval",
			options:       Options{Interval: 0},
			expectedError: ErrInvalidInterval,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			console := &recordingConsole{responses: testCase.failures}
			sleeper := &scriptedSleeper{completedSleep: testCase.completedSleeps}
			output := &bytes.Buffer{}

			service, serviceError := NewService(ServiceDependencies{
				Logger:  zap.NewNop(),
				Console: console,
				Output:  output,
				Clock:   fixedClock,
				Sleep:   sleeper.Sleep,
			})
			require.NoError(subTest, serviceError)

			runError := service.Run(context.Background(), testCase.options)
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, runError, testCase.expectedError)
			} else {
				require.NoError(subTest, runError)
			}

			require.Equal(subTest, testCase.expectedCommands, console.commands)
			for _, expectedLine := range testCase.expectedOutput {
				require.Contains(subTest, output.String(), expectedLine)
			}
		})
	}
}

func TestServiceLogsNextRebootRelativeTime(testInstance *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	console := &recordingConsole{}
	sleeper := &scriptedSleeper{completedSleep: 1}

	service, serviceError := NewService(ServiceDependencies{
		Logger:  zap.New(core),
		Console: console,
		Clock:   fixedClock,
		Sleep:   sleeper.Sleep,
	})
	require.NoError(testInstance, serviceError)

	require.NoError(testInstance, service.Run(context.Background(), Options{Interval: defaultIntervalConstant, Once: true}))
	require.Equal(testInstance, []time.Duration{defaultIntervalConstant}, sleeper.durations)

	scheduled := recorded.FilterMessage(nextRebootLogMessageConstant).All()
	require.Len(testInstance, scheduled, 1)
	require.Equal(testInstance, "23 hours from now", scheduled[0].ContextMap()[logFieldNextRebootRelativeConstant])
	require.Len(testInstance, recorded.FilterMessage(rebootIssuedLogMessageConstant).All(), 1)
}

func TestNewServiceRequiresConsole(testInstance *testing.T) {
	_, serviceError := NewService(ServiceDependencies{})
	require.ErrorIs(testInstance, serviceError, ErrConsoleNotConfigured)
}
