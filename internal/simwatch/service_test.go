package simwatch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/filesystem"
)

const (
	testCurrentICCIDConstant  = "89014103211118510720"
	testPreviousICCIDConstant = "89014103211118510999"
)

func modemStatusResponse(iccid string) string {
	return "\r\nModem status:\r\nIMEI: 353238060028364\r\nICCID: " + iccid + "\r\nSignal: -71 dBm\r\nOK\r\n"
}

type stubConsole struct {
	response string
	failure  error
	commands []string
}

func (console *stubConsole) Execute(_ context.Context, command string) (string, error) {
	console.commands = append(console.commands, command)
	return console.response, console.failure
}

type recordingAlerter struct {
	messages []string
}

func (alerter *recordingAlerter) SendAlert(_ context.Context, message string) error {
	alerter.messages = append(alerter.messages, message)
	return nil
}

func TestServiceCheck(testInstance *testing.T) {
	testCases := []struct {
		name           string
		storedICCID    *string
		response       string
		expectedResult CheckResult
		expectedOutput string
		expectedAlerts []string
		expectedStored string
	}{
		{
			name:           "first_run",
			response:       modemStatusResponse(testCurrentICCIDConstant),
			expectedResult: CheckResult{Current: testCurrentICCIDConstant, FirstRun: true},
			expectedOutput: "First run, no SIM file exists\n",
			expectedStored: testCurrentICCIDConstant,
		},
		{
			name:           "matching_sim",
			storedICCID:    stringPointer(testCurrentICCIDConstant),
			response:       modemStatusResponse(testCurrentICCIDConstant),
			expectedResult: CheckResult{Current: testCurrentICCIDConstant, Previous: testCurrentICCIDConstant},
			expectedOutput: "Checking SIM information\nSIM number " + testCurrentICCIDConstant + "\nPrevious SIM " + testCurrentICCIDConstant + "\nSIM ICCIDs match\n",
			expectedStored: testCurrentICCIDConstant,
		},
		{
			name:           "changed_sim",
			storedICCID:    stringPointer(testPreviousICCIDConstant),
			response:       modemStatusResponse(testCurrentICCIDConstant),
			expectedResult: CheckResult{Current: testCurrentICCIDConstant, Previous: testPreviousICCIDConstant, Changed: true},
			expectedOutput: "Checking SIM information\nSIM number " + testCurrentICCIDConstant + "\nPrevious SIM " + testPreviousICCIDConstant + "\nSIM is different than previous!\n",
			expectedAlerts: []string{"SIM changed from " + testPreviousICCIDConstant + " to " + testCurrentICCIDConstant},
			expectedStored: testCurrentICCIDConstant,
		},
		{
			name:           "missing_iccid_compares_empty_value",
			storedICCID:    stringPointer(testPreviousICCIDConstant),
			response:       "\r\nModem status:\r\nOK\r\n",
			expectedResult: CheckResult{Previous: testPreviousICCIDConstant, Changed: true},
			expectedOutput: "Checking SIM information\nSIM number \nPrevious SIM " + testPreviousICCIDConstant + "\nSIM is different than previous!\n",
			expectedAlerts: []string{"SIM changed from " + testPreviousICCIDConstant + " to "},
			expectedStored: "",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			statePath := filepath.Join(subTest.TempDir(), DefaultStateFile)
			if testCase.storedICCID != nil {
				require.NoError(subTest, os.WriteFile(statePath, []byte(*testCase.storedICCID), 0o644))
			}

			console := &stubConsole{response: testCase.response}
			alerter := &recordingAlerter{}
			output := &bytes.Buffer{}
			service, serviceError := NewService(ServiceDependencies{
				Logger:  zap.NewNop(),
				Console: console,
				Store:   NewStateStore(filesystem.OSFileSystem{}, statePath, time.Second),
				Alerter: alerter,
				Output:  output,
			})
			require.NoError(subTest, serviceError)

			result, checkError := service.Check(context.Background())
			require.NoError(subTest, checkError)
			require.Equal(subTest, testCase.expectedResult, result)

			require.Equal(subTest, []string{"modemstat ?"}, console.commands)
			require.Equal(subTest, testCase.expectedOutput, output.String())
			require.Equal(subTest, testCase.expectedAlerts, alerter.messages)

			stored, readError := os.ReadFile(statePath)
			require.NoError(subTest, readError)
			require.Equal(subTest, testCase.expectedStored, string(stored))
		})
	}
}

func TestServiceCheckConsoleFailure(testInstance *testing.T) {
	statePath := filepath.Join(testInstance.TempDir(), DefaultStateFile)
	service, serviceError := NewService(ServiceDependencies{
		Console: &stubConsole{failure: errors.New("modem offline")},
		Store:   NewStateStore(nil, statePath, time.Second),
	})
	require.NoError(testInstance, serviceError)

	_, checkError := service.Check(context.Background())
	require.Error(testInstance, checkError)
	require.Contains(testInstance, checkError.Error(), "read modem status: modem offline")

	_, statError := os.Stat(statePath)
	require.True(testInstance, os.IsNotExist(statError))
}

func stringPointer(value string) *string {
	return &value
}
