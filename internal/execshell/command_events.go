package execshell

// CommandEventObserver is told when a router command starts, returns, or cannot be run at all.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	CommandCompleted(command ShellCommand, result ExecutionResult)
	CommandExecutionFailed(command ShellCommand, failure error)
}

// ObserverOrDiscard returns observer, or an observer that drops every event when observer is nil.
func ObserverOrDiscard(observer CommandEventObserver) CommandEventObserver {
	if observer == nil {
		return discardingObserver{}
	}
	return observer
}

type discardingObserver struct{}

func (discardingObserver) CommandStarted(ShellCommand) {}

func (discardingObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (discardingObserver) CommandExecutionFailed(ShellCommand, error) {}
