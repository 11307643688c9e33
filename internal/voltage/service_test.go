package voltage

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
)

type sequenceConsole struct {
	responses []string
	commands  []string
	failure   error
}

func (console *sequenceConsole) Execute(_ context.Context, command string) (string, error) {
	index := len(console.commands)
	console.commands = append(console.commands, command)
	if console.failure != nil {
		return "", console.failure
	}
	if index >= len(console.responses) {
		index = len(console.responses) - 1
	}
	return console.responses[index], nil
}

type recordingUploader struct {
	streamPaths []string
	batches     [][]remotemanager.DataPoint
	failure     error
}

func (uploader *recordingUploader) UploadDataPoints(_ context.Context, streamPath string, dataPoints []remotemanager.DataPoint) error {
	uploader.streamPaths = append(uploader.streamPaths, streamPath)
	uploader.batches = append(uploader.batches, dataPoints)
	return uploader.failure
}

type countingSleeper struct {
	limit     int
	durations []time.Duration
}

func (sleeper *countingSleeper) Sleep(_ context.Context, duration time.Duration) error {
	sleeper.durations = append(sleeper.durations, duration)
	if len(sleeper.durations) >= sleeper.limit {
		return context.Canceled
	}
	return nil
}

func analogResponse(voltage string) string {
	return "\r\nA0: voltage=" + voltage + " V\r\nOK\r\n"
}

func defaultOptions() Options {
	configuration := DefaultCommandConfiguration()
	return Options{
		Interval:             configuration.Interval,
		ResistorOhms:         configuration.ResistorOhms,
		InputImpedanceOhms:   configuration.InputImpedanceOhms,
		ConditionalReporting: configuration.ConditionalReporting,
		ReportingThreshold:   configuration.ReportingThreshold,
		Decimals:             configuration.Decimals,
		RawStreamID:          configuration.RawStreamID,
		CalculatedStreamID:   configuration.CalculatedStreamID,
	}
}

func TestConvertVoltage(testInstance *testing.T) {
	testCases := []struct {
		name     string
		raw      float64
		expected float64
	}{
		{name: "typical_supply", raw: 3.5, expected: 11.691},
		{name: "idle_input", raw: 0.0075, expected: 0.025},
		{name: "zero", raw: 0, expected: 0},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			converted := Round(ConvertVoltage(testCase.raw, defaultResistorOhmsConstant, defaultInputImpedanceOhmsConstant), defaultDecimalsConstant)
			require.Equal(subTest, testCase.expected, converted)
		})
	}
}

func TestShouldReport(testInstance *testing.T) {
	conditional := defaultOptions()
	conditional.ConditionalReporting = true

	testCases := []struct {
		name       string
		calculated float64
		previous   float64
		options    Options
		expected   bool
	}{
		{name: "unconditional", calculated: 12, previous: 12, options: defaultOptions(), expected: true},
		{name: "unchanged", calculated: 11.691, previous: 11.691, options: conditional, expected: false},
		{name: "rise_at_threshold", calculated: 11.701, previous: 11.691, options: conditional, expected: true},
		{name: "drop_at_threshold", calculated: 11.681, previous: 11.691, options: conditional, expected: true},
		{name: "below_threshold", calculated: 11.695, previous: 11.691, options: conditional, expected: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, ShouldReport(testCase.calculated, testCase.previous, testCase.options))
		})
	}
}

func TestServiceReportUploadsBothStreams(testInstance *testing.T) {
	console := &sequenceConsole{responses: []string{analogResponse("3.5")}}
	uploader := &recordingUploader{}
	output := &bytes.Buffer{}

	service, serviceError := NewService(ServiceDependencies{Logger: zap.NewNop(), Console: console, Uploader: uploader, Output: output})
	require.NoError(testInstance, serviceError)

	reading, reportError := service.Report(context.Background(), defaultOptions())
	require.NoError(testInstance, reportError)
	require.True(testInstance, reading.Reported)
	require.Equal(testInstance, []string{""}, uploader.streamPaths)
	require.Equal(testInstance, []remotemanager.DataPoint{
		{DataType: "float", Data: "3.5", Units: "V", Description: "Raw voltage reading", StreamID: "wr31ain"},
		{DataType: "float", Data: "11.691", Units: "V", Description: "Calculated voltage reading", StreamID: "wr31vin"},
	}, uploader.batches[0])
	require.Equal(testInstance, "\n----------------------\n Analog in: 3.5\nVoltage in: 11.691\nSending to Remote Manager...\n", output.String())
}

func TestServiceRunConditionalReporting(testInstance *testing.T) {
	console := &sequenceConsole{responses: []string{analogResponse("3.5"), analogResponse("3.5"), analogResponse("3.503")}}
	uploader := &recordingUploader{}
	sleeper := &countingSleeper{limit: 3}

	service, serviceError := NewService(ServiceDependencies{Console: console, Uploader: uploader, Sleep: sleeper.Sleep})
	require.NoError(testInstance, serviceError)

	options := defaultOptions()
	options.ConditionalReporting = true
	require.NoError(testInstance, service.Run(context.Background(), options))

	require.Len(testInstance, console.commands, 3)
	require.Len(testInstance, uploader.batches, 2)
	require.Equal(testInstance, "11.701", uploader.batches[1][1].Data)
	require.Equal(testInstance, []time.Duration{time.Minute, time.Minute, time.Minute}, sleeper.durations)
}

func TestServiceRunErrors(testInstance *testing.T) {
	testCases := []struct {
		name          string
		console       *sequenceConsole
		uploader      *recordingUploader
		options       func(Options) Options
		expectedError error
	}{
		{
			name:          "missing_voltage",
			console:       &sequenceConsole{responses: []string{"\r\nA0: current=0.0173 mA\r\nOK\r\n"}},
			uploader:      &recordingUploader{},
			expectedError: routercli.ErrAnalogVoltageNotFound,
		},
		{
			name:          "upload_failure",
			console:       &sequenceConsole{responses: []string{analogResponse("3.5")}},
			uploader:      &recordingUploader{failure: remotemanager.ResponseError{StatusCode: 401}},
			expectedError: remotemanager.ResponseError{StatusCode: 401},
		},
		{
			name:     "invalid_divider",
			console:  &sequenceConsole{responses: []string{analogResponse("3.5")}},
			uploader: &recordingUploader{},
			options: func(options Options) Options {
				options.InputImpedanceOhms = 0
				return options
			},
			expectedError: ErrInvalidDivider,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			service, serviceError := NewService(ServiceDependencies{Console: testCase.console, Uploader: testCase.uploader})
			require.NoError(subTest, serviceError)

			options := defaultOptions()
			options.Once = true
			if testCase.options != nil {
				options = testCase.options(options)
			}

			require.ErrorIs(subTest, service.Run(context.Background(), options), testCase.expectedError)
		})
	}
}
