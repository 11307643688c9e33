package routercli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/temirov/digiscripts/internal/execshell"
	"github.com/temirov/digiscripts/internal/sshclient"
)

const (
	// DefaultLocalCommandTemplate runs a command through the on-device CLI binary.
	DefaultLocalCommandTemplate = "cli -c {command}"
	// CommandPlaceholder is replaced with the router command inside a local command template.
	CommandPlaceholder = "{command}"

	sshCommandNameConstant                = "ssh"
	templateParseErrorTemplateConstant    = "parse router command template %q: %w"
	templateEmptyMessageConstant          = "router command template is empty"
	templatePlaceholderMessageConstant    = "router command template must contain " + CommandPlaceholder
	commandExecutionErrorTemplateConstant = "router command %q: %w"
	executorNotConfiguredMessageConstant  = "router console executor not configured"
	dialerNotConfiguredMessageConstant    = "router console dialer not configured"
)

// ErrExecutorNotConfigured indicates that a LocalConsole was built without a shell executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// ErrDialerNotConfigured indicates that an SSHConsole was built without a dialer.
var ErrDialerNotConfigured = errors.New(dialerNotConfiguredMessageConstant)

// Console executes vendor CLI commands and returns the raw response.
type Console interface {
	Execute(executionContext context.Context, command string) (string, error)
}

// ShellCommandExecutor runs shell commands on the local host.
type ShellCommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// LocalConsole runs router commands through a local CLI binary.
type LocalConsole struct {
	executor       ShellCommandExecutor
	templateTokens []string
}

// NewLocalConsole builds a LocalConsole from a command template such as "cli -c {command}".
func NewLocalConsole(executor ShellCommandExecutor, commandTemplate string) (*LocalConsole, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}

	trimmedTemplate := strings.TrimSpace(commandTemplate)
	if len(trimmedTemplate) == 0 {
		trimmedTemplate = DefaultLocalCommandTemplate
	}

	templateTokens, splitError := shlex.Split(trimmedTemplate)
	if splitError != nil {
		return nil, fmt.Errorf(templateParseErrorTemplateConstant, trimmedTemplate, splitError)
	}
	if len(templateTokens) == 0 {
		return nil, errors.New(templateEmptyMessageConstant)
	}
	if !strings.Contains(strings.Join(templateTokens, " "), CommandPlaceholder) {
		return nil, errors.New(templatePlaceholderMessageConstant)
	}

	return &LocalConsole{executor: executor, templateTokens: templateTokens}, nil
}

// Execute runs the command and returns standard output.
func (console *LocalConsole) Execute(executionContext context.Context, command string) (string, error) {
	shellCommand := console.buildShellCommand(command)
	executionResult, executionError := console.executor.Execute(executionContext, shellCommand)
	if executionError != nil {
		return "", fmt.Errorf(commandExecutionErrorTemplateConstant, command, executionError)
	}
	return executionResult.StandardOutput, nil
}

func (console *LocalConsole) buildShellCommand(command string) execshell.ShellCommand {
	arguments := make([]string, 0, len(console.templateTokens)-1)
	for _, token := range console.templateTokens[1:] {
		arguments = append(arguments, strings.ReplaceAll(token, CommandPlaceholder, command))
	}
	return execshell.ShellCommand{
		Name: execshell.CommandName(strings.ReplaceAll(console.templateTokens[0], CommandPlaceholder, command)),
		Details: execshell.CommandDetails{
			Arguments:     arguments,
			RouterCommand: command,
		},
	}
}

// SessionRunner runs a single command on an established connection.
type SessionRunner interface {
	Run(executionContext context.Context, command string) (string, error)
	Close() error
}

// Dialer opens connections to a router.
type Dialer interface {
	Dial(dialContext context.Context, target sshclient.Target) (SessionRunner, error)
}

// SSHDialer adapts sshclient to the Dialer interface.
type SSHDialer struct{}

// Dial connects to the target with sshclient.
func (SSHDialer) Dial(dialContext context.Context, target sshclient.Target) (SessionRunner, error) {
	client, dialError := sshclient.Dial(dialContext, target)
	if dialError != nil {
		return nil, dialError
	}
	return client, nil
}

// SSHConsole runs router commands over SSH, one connection per call.
type SSHConsole struct {
	dialer   Dialer
	target   sshclient.Target
	observer execshell.CommandEventObserver
}

// NewSSHConsole builds an SSHConsole. The observer may be nil.
func NewSSHConsole(dialer Dialer, target sshclient.Target, observer execshell.CommandEventObserver) (*SSHConsole, error) {
	if dialer == nil {
		return nil, ErrDialerNotConfigured
	}
	return &SSHConsole{dialer: dialer, target: target, observer: execshell.ObserverOrDiscard(observer)}, nil
}

// Execute connects, runs the command, and disconnects.
func (console *SSHConsole) Execute(executionContext context.Context, command string) (string, error) {
	shellCommand := execshell.ShellCommand{
		Name: sshCommandNameConstant,
		Details: execshell.CommandDetails{
			Arguments:     []string{console.target.Address(), command},
			RouterCommand: command,
		},
	}
	console.observer.CommandStarted(shellCommand)

	session, dialError := console.dialer.Dial(executionContext, console.target)
	if dialError != nil {
		console.observer.CommandExecutionFailed(shellCommand, dialError)
		return "", fmt.Errorf(commandExecutionErrorTemplateConstant, command, dialError)
	}
	defer session.Close()

	output, runError := session.Run(executionContext, command)
	if runError != nil {
		console.observer.CommandExecutionFailed(shellCommand, runError)
		return "", fmt.Errorf(commandExecutionErrorTemplateConstant, command, runError)
	}

	console.observer.CommandCompleted(shellCommand, execshell.ExecutionResult{StandardOutput: output})
	return output, nil
}
