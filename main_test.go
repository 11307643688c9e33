package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	integrationInfoMessageConstant            = "digiscripts CLI executed"
	integrationDebugMessageConstant           = "digiscripts CLI diagnostics"
	integrationLogLevelEnvKeyConstant         = "DIGISCRIPTS_COMMON_LOG_LEVEL"
	integrationConfigFileNameConstant         = "config.yaml"
	integrationConfigTemplateConstant         = "common:\n  log_level: %s\n"
	integrationCommandTimeout                 = 2 * time.Minute
	integrationConfigFlagTemplateConstant     = "--config=%s"
	integrationSubtestNameTemplateConstant    = "%d_%s"
	integrationHelpUsagePrefixConstant        = "Usage:"
	integrationHelpDescriptionSnippetConstant = "digiscripts bundles the router maintenance scripts"
)

func runCLI(testInstance *testing.T, environment []string, arguments ...string) string {
	testInstance.Helper()

	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	executionContext, cancelFunction := context.WithTimeout(context.Background(), integrationCommandTimeout)
	defer cancelFunction()

	command := exec.CommandContext(executionContext, "go", append([]string{"run", "."}, arguments...)...)
	command.Dir = workingDirectory
	command.Env = environment

	outputBytes, runError := command.CombinedOutput()
	outputText := string(outputBytes)
	require.NoError(testInstance, runError, outputText)
	return outputText
}

func TestCLIIntegrationLogLevels(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		configurationLevel   string
		environmentLevel     string
		expectedInfoVisible  bool
		expectedDebugVisible bool
	}{
		{name: "default_info", expectedInfoVisible: true},
		{name: "config_debug", configurationLevel: "debug", expectedInfoVisible: true, expectedDebugVisible: true},
		{name: "environment_error", environmentLevel: "error"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(integrationSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(subTest *testing.T) {
			arguments := []string{}
			environment := os.Environ()

			if len(testCase.configurationLevel) > 0 {
				configurationPath := filepath.Join(subTest.TempDir(), integrationConfigFileNameConstant)
				require.NoError(subTest, os.WriteFile(configurationPath, []byte(fmt.Sprintf(integrationConfigTemplateConstant, testCase.configurationLevel)), 0o600))
				arguments = append(arguments, fmt.Sprintf(integrationConfigFlagTemplateConstant, configurationPath))
			}
			if len(testCase.environmentLevel) > 0 {
				environment = append(environment, integrationLogLevelEnvKeyConstant+"="+testCase.environmentLevel)
			}

			outputText := runCLI(subTest, environment, arguments...)

			if testCase.expectedInfoVisible {
				require.Contains(subTest, outputText, integrationInfoMessageConstant)
			} else {
				require.NotContains(subTest, outputText, integrationInfoMessageConstant)
			}
			if testCase.expectedDebugVisible {
				require.Contains(subTest, outputText, integrationDebugMessageConstant)
			} else {
				require.NotContains(subTest, outputText, integrationDebugMessageConstant)
			}
		})
	}
}

func TestCLIIntegrationDisplaysHelpWhenNoArgumentsProvided(testInstance *testing.T) {
	outputText := runCLI(testInstance, os.Environ())
	require.Contains(testInstance, outputText, integrationHelpUsagePrefixConstant)
	require.Contains(testInstance, outputText, integrationHelpDescriptionSnippetConstant)
	for _, subcommand := range []string{"reboot", "gpio", "door-monitor", "voltage", "sim-check", "gps-report", "provision", "export-devices"} {
		require.Contains(testInstance, outputText, subcommand)
	}
}
