package execshell

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"os"
	"os/exec"
	"slices"
)

const environmentAssignmentSeparatorConstant = "="

// OSCommandRunner starts the on-device router CLI as a local process.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run starts the router CLI and captures its output. A non-zero exit is reported in the result, not as an error;
// cancellation is reported as the context error.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := exec.CommandContext(executionContext, string(command.Name), slices.Clone(command.Details.Arguments)...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = mergeEnvironment(command.Details.EnvironmentVariables)
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	process.Stdout = &standardOutput
	process.Stderr = &standardError

	result := ExecutionResult{}
	runError := process.Run()
	if contextError := executionContext.Err(); contextError != nil {
		return result, contextError
	}
	if runError != nil {
		var exitError *exec.ExitError
		if !errors.As(runError, &exitError) {
			return result, runError
		}
		result.ExitCode = exitError.ExitCode()
	}

	result.StandardOutput = standardOutput.String()
	result.StandardError = standardError.String()
	return result, nil
}

// mergeEnvironment appends overrides to the inherited environment in key order; nil keeps the inherited one.
func mergeEnvironment(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	environment := os.Environ()
	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		environment = append(environment, key+environmentAssignmentSeparatorConstant+overrides[key])
	}
	return environment
}
