package doormonitor

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
	closedResponseConstant    = "\r\nD0: DOUT=OFF, DIN=HIGH (Inactive)\r\nD1: DOUT=OFF, DIN=LOW (Active)\r\nOK\r\n"
	openResponseConstant      = "\r\nD0: DOUT=OFF, DIN=HIGH (Inactive)\r\nD1: DOUT=OFF, DIN=HIGH (Inactive)\r\nOK\r\n"
	ambiguousResponseConstant = "\r\nD0: DOUT=ON, DIN=LOW (Active)\r\nD1: DOUT=OFF, DIN=LOW (Active)\r\nOK\r\n"
)

type sequenceConsole struct {
	responses []string
	failures  map[int]error
	commands  []string
}

func (console *sequenceConsole) Execute(_ context.Context, command string) (string, error) {
	index := len(console.commands)
	console.commands = append(console.commands, command)
	if failure, exists := console.failures[index]; exists {
		return "", failure
	}
	if index >= len(console.responses) {
		return console.responses[len(console.responses)-1], nil
	}
	return console.responses[index], nil
}

type recordingAlerter struct {
	messages []string
	failure  error
}

func (alerter *recordingAlerter) SendAlert(_ context.Context, message string) error {
	alerter.messages = append(alerter.messages, message)
	return alerter.failure
}

type countingSleeper struct {
	limit int
	calls int
}

func (sleeper *countingSleeper) Sleep(_ context.Context, _ time.Duration) error {
	sleeper.calls++
	if sleeper.calls >= sleeper.limit {
		return context.Canceled
	}
	return nil
}

func TestClassifyDoorState(testInstance *testing.T) {
	testCases := []struct {
		name     string
		response string
		expected DoorState
	}{
		{name: "closed", response: closedResponseConstant, expected: DoorStateClosed},
		{name: "open", response: openResponseConstant, expected: DoorStateOpen},
		{name: "output_active", response: ambiguousResponseConstant, expected: DoorStateUnknown},
		{name: "empty", response: "", expected: DoorStateOpen},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, ClassifyDoorState(testCase.response))
		})
	}
}

func TestServiceAlertsOnlyOnStateChange(testInstance *testing.T) {
	console := &sequenceConsole{responses: []string{
		closedResponseConstant,
		closedResponseConstant,
		openResponseConstant,
		ambiguousResponseConstant,
		openResponseConstant,
		closedResponseConstant,
	}}
	alerter := &recordingAlerter{}
	sleeper := &countingSleeper{limit: 6}
	output := &bytes.Buffer{}

	service, serviceError := NewService(ServiceDependencies{
		Logger:  zap.NewNop(),
		Console: console,
		Alerter: alerter,
		Output:  output,
		Sleep:   sleeper.Sleep,
	})
	require.NoError(testInstance, serviceError)

	require.NoError(testInstance, service.Run(context.Background(), Options{PollInterval: 500 * time.Millisecond}))
	require.Len(testInstance, console.commands, 6)
	require.Equal(testInstance, []string{"CLOSED", "OPEN", "CLOSED"}, alerter.messages)
	require.Equal(testInstance, "WR31 door is: CLOSED\nWR31 door is: OPEN\nWR31 door is: CLOSED\n", output.String())
}

func TestServiceContinuesAfterFailures(testInstance *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	console := &sequenceConsole{
		responses: []string{openResponseConstant, openResponseConstant},
		failures:  map[int]error{0: errors.New("cli unavailable")},
	}
	alerter := &recordingAlerter{failure: errors.New("sms gateway down")}

	service, serviceError := NewService(ServiceDependencies{
		Logger:  zap.New(core),
		Console: console,
		Alerter: alerter,
		Sleep:   (&countingSleeper{limit: 3}).Sleep,
	})
	require.NoError(testInstance, serviceError)

	require.NoError(testInstance, service.Run(context.Background(), Options{PollInterval: time.Millisecond}))
	require.Equal(testInstance, []string{"OPEN"}, alerter.messages)
	require.Len(testInstance, recorded.FilterMessage(readFailedLogMessageConstant).All(), 1)
	require.Len(testInstance, recorded.FilterMessage(alertFailedLogMessageConstant).All(), 1)
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	_, consoleError := NewService(ServiceDependencies{Alerter: &recordingAlerter{}})
	require.ErrorIs(testInstance, consoleError, ErrConsoleNotConfigured)

	_, alerterError := NewService(ServiceDependencies{Console: &sequenceConsole{}})
	require.ErrorIs(testInstance, alerterError, ErrAlerterNotConfigured)
}
