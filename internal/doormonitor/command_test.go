package doormonitor

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/remotemanager"
)

type recordingUploader struct {
	streams []string
	points  []remotemanager.DataPoint
}

func (uploader *recordingUploader) UploadDataPoints(_ context.Context, streamPath string, dataPoints []remotemanager.DataPoint) error {
	uploader.streams = append(uploader.streams, streamPath)
	uploader.points = append(uploader.points, dataPoints...)
	return nil
}

func TestCommandBuilderWiresAlerters(testInstance *testing.T) {
	fixedTime := time.UnixMilli(1760790645000)

	testCases := []struct {
		name             string
		arguments        []string
		expectedCommands []string
		expectedStreams  []string
	}{
		{
			name:             "datapoint_only",
			arguments:        []string{},
			expectedCommands: []string{"gpio dio"},
			expectedStreams:  []string{DefaultStreamID},
		},
		{
			name:             "datapoint_and_sms",
			arguments:        []string{"15555555555", "Cabinet 4"},
			expectedCommands: []string{"gpio dio", `sendsms 15555555555 "Cabinet 4: CLOSED" `},
			expectedStreams:  []string{DefaultStreamID},
		},
		{
			name:             "sms_only_with_default_text",
			arguments:        []string{"--datapoint=no", "15555555555"},
			expectedCommands: []string{"gpio dio", `sendsms 15555555555 "WR31 Door: CLOSED" `},
			expectedStreams:  nil,
		},
		{
			name:             "custom_stream",
			arguments:        []string{"--stream", "cabinet_door"},
			expectedCommands: []string{"gpio dio"},
			expectedStreams:  []string{"cabinet_door"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			console := &sequenceConsole{responses: []string{closedResponseConstant, "OK"}}
			uploader := &recordingUploader{}

			builder := CommandBuilder{
				LoggerProvider: func() *zap.Logger { return zap.NewNop() },
				Console:        console,
				Uploader:       uploader,
				Clock:          func() time.Time { return fixedTime },
				Sleep:          (&countingSleeper{limit: 1}).Sleep,
			}

			command, buildError := builder.Build()
			require.NoError(subTest, buildError)
			command.SetContext(context.Background())
			command.SetArgs(testCase.arguments)
			command.SetOut(&bytes.Buffer{})
			command.SetErr(&bytes.Buffer{})

			require.NoError(subTest, command.Execute())
			require.Equal(subTest, testCase.expectedCommands, console.commands)
			require.Equal(subTest, testCase.expectedStreams, uploader.streams)
			for _, point := range uploader.points {
				require.Equal(subTest, "CLOSED", point.Data)
				require.Equal(subTest, remotemanager.DataTypeString, point.DataType)
				require.Equal(subTest, int64(1760790645000), point.Timestamp)
			}
		})
	}
}

func TestCommandBuilderRequiresRemoteManagerCredentialsForDataPoints(testInstance *testing.T) {
	builder := CommandBuilder{
		Console: &sequenceConsole{responses: []string{closedResponseConstant}},
		RemoteManagerConfigurationProvider: func() remotemanager.Config {
			return remotemanager.DefaultConfig()
		},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{})
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})

	require.ErrorIs(testInstance, command.Execute(), remotemanager.ErrCredentialsNotConfigured)
}

func TestCommandBuilderRejectsExtraArguments(testInstance *testing.T) {
	builder := CommandBuilder{Console: &sequenceConsole{responses: []string{openResponseConstant}}}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{"1", "2", "3"})
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})

	require.ErrorIs(testInstance, command.Execute(), errTooManyArguments)
}
