package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandFailedErrorTemplateConstant        = "%s exited with code %d"
	commandFailedStandardErrorTemplate        = "%s: %s"
	commandExecutionErrorTemplateConstant     = "%s could not be executed: %v"
	commandStartLogMessageConstant            = "Executing command"
	commandSuccessLogMessageConstant          = "Command completed"
	commandFailureLogMessageConstant          = "Command exited with non-zero status"
	commandExecutionFailureLogMessageConstant = "Command execution failed"
	commandNameFieldConstant                  = "command"
	commandArgumentsFieldConstant             = "arguments"
	routerCommandFieldConstant                = "router_command"
	exitCodeFieldConstant                     = "exit_code"
	standardErrorFieldConstant                = "stderr"
	commandLabelSeparatorConstant             = " "
)

// ErrLoggerNotConfigured indicates that a nil logger was supplied.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates that a nil runner was supplied.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// CommandFailedError reports a command that ran but exited with a non-zero status.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failure.
func (failure CommandFailedError) Error() string {
	baseMessage := fmt.Sprintf(commandFailedErrorTemplateConstant, describeCommandLabel(failure.Command), failure.Result.ExitCode)
	trimmedStandardError := strings.TrimSpace(failure.Result.StandardError)
	if len(trimmedStandardError) == 0 {
		return baseMessage
	}
	return fmt.Sprintf(commandFailedStandardErrorTemplate, baseMessage, trimmedStandardError)
}

// CommandExecutionError reports a command that could not be started or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, describeCommandLabel(failure.Command), failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutorOption customizes a ShellExecutor.
type ShellExecutorOption func(*ShellExecutor)

// WithCommandEventObserver attaches an observer that is notified of every command lifecycle event.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		executor.observer = ObserverOrDiscard(observer)
	}
}

// ShellExecutor runs commands through a CommandRunner with structured logging.
type ShellExecutor struct {
	logger   *zap.Logger
	runner   CommandRunner
	observer CommandEventObserver
}

// NewShellExecutor validates dependencies and constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{logger: logger, runner: runner, observer: ObserverOrDiscard(nil)}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}
	return executor, nil
}

// Execute runs the command and converts non-zero exits into CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandFields := []zap.Field{
		zap.String(commandNameFieldConstant, string(command.Name)),
		zap.Strings(commandArgumentsFieldConstant, command.Details.Arguments),
	}
	if len(command.Details.RouterCommand) > 0 {
		commandFields = append(commandFields, zap.String(routerCommandFieldConstant, command.Details.RouterCommand))
	}

	executor.logger.Debug(commandStartLogMessageConstant, commandFields...)
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Warn(commandExecutionFailureLogMessageConstant, append(commandFields, zap.Error(runError))...)
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		executor.logger.Warn(
			commandFailureLogMessageConstant,
			append(commandFields,
				zap.Int(exitCodeFieldConstant, executionResult.ExitCode),
				zap.String(standardErrorFieldConstant, strings.TrimSpace(executionResult.StandardError)),
			)...,
		)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(commandSuccessLogMessageConstant, commandFields...)
	return executionResult, nil
}

func describeCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	commandParts = append(commandParts, command.Details.Arguments...)
	return strings.Join(commandParts, commandLabelSeparatorConstant)
}
