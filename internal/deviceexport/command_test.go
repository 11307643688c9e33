package deviceexport

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/digiscripts/internal/remotemanager"
)

func TestCommandExportsToPositionalPath(testInstance *testing.T) {
	outputPath := filepath.Join(testInstance.TempDir(), "export.csv")
	builder := CommandBuilder{Lister: &stubLister{devices: testDevices()}}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	output := &bytes.Buffer{}
	command.SetContext(context.Background())
	command.SetArgs([]string{outputPath, "-d"})
	command.SetOut(output)
	command.SetErr(output)

	require.NoError(testInstance, command.Execute())
	require.Contains(testInstance, output.String(), "\"devMac\": \"00:40:9D:12:34:56\"")
	_, statError := os.Stat(outputPath)
	require.NoError(testInstance, statError)
}

func TestCommandErrors(testInstance *testing.T) {
	testCases := []struct {
		name      string
		builder   CommandBuilder
		arguments []string
		expected  error
	}{
		{
			name:      "missing output path",
			builder:   CommandBuilder{Lister: &stubLister{}},
			arguments: []string{},
			expected:  ErrOutputPathRequired,
		},
		{
			name:      "too many arguments",
			builder:   CommandBuilder{Lister: &stubLister{}},
			arguments: []string{"a.csv", "b.csv"},
			expected:  errTooManyArguments,
		},
		{
			name:      "missing credentials",
			builder:   CommandBuilder{RemoteManagerConfigurationProvider: remotemanager.DefaultConfig},
			arguments: []string{"--output", "devices.csv"},
			expected:  remotemanager.ErrCredentialsNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			command, buildError := testCase.builder.Build()
			require.NoError(subTest, buildError)
			command.SetContext(context.Background())
			command.SetArgs(testCase.arguments)
			command.SetOut(&bytes.Buffer{})
			command.SetErr(&bytes.Buffer{})
			require.ErrorIs(subTest, command.Execute(), testCase.expected)
		})
	}
}
