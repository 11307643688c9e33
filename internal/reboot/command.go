package reboot

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/dependencies"
	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/utils/flags"
)

const (
	commandUseConstant                    = "reboot"
	commandShortDescriptionConstant       = "Reboot the router on a fixed schedule"
	commandLongDescriptionConstant        = "reboot waits for the configured interval and reboots the router, optionally writing 'show tech-support' to tech_support_<timestamp>.log first."
	commandExecutionErrorTemplateConstant = "reboot timer failed: %w"
	unexpectedArgumentsMessageConstant    = "reboot does not accept positional arguments"
	flagTimeNameConstant                  = "time"
	flagTimeDescriptionConstant           = "Reboot time in seconds"
	flagDebugNameConstant                 = "debug"
	flagDebugDescriptionConstant          = "Output 'show tech-support' to tech_support_<timestamp>.log before rebooting"
	flagOnceNameConstant                  = "once"
	flagOnceDescriptionConstant           = "Exit after the first reboot"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the reboot command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        func() CommandConfiguration
	RouterConfigurationProvider  func() routercli.Configuration
	HumanReadableLoggingProvider func() bool
	Console                      routercli.Console
	Clock                        Clock
	Sleep                        SleepFunc
}

// Build constructs the reboot command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().Int(flagTimeNameConstant, int(defaults.Interval/time.Second), flagTimeDescriptionConstant)
	flags.AddToggleFlag(command.Flags(), new(bool), flagDebugNameConstant, defaults.TechSupport, flagDebugDescriptionConstant)
	command.Flags().Bool(flagOnceNameConstant, defaults.Once, flagOnceDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	options := builder.parseOptions(command)

	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	console, consoleError := dependencies.ResolveConsole(builder.Console, builder.resolveRouterConfiguration(), logger, builder.humanReadableLogging())
	if consoleError != nil {
		return consoleError
	}

	service, serviceError := NewService(ServiceDependencies{
		Logger:  logger,
		Console: console,
		Output:  command.OutOrStdout(),
		Clock:   builder.Clock,
		Sleep:   builder.Sleep,
	})
	if serviceError != nil {
		return serviceError
	}

	if runError := service.Run(command.Context(), options); runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) Options {
	configuration := builder.resolveConfiguration()

	options := Options{
		Interval:    configuration.Interval,
		TechSupport: configuration.TechSupport,
		Once:        configuration.Once,
	}

	if command.Flags().Changed(flagTimeNameConstant) {
		seconds, _ := command.Flags().GetInt(flagTimeNameConstant)
		options.Interval = time.Duration(seconds) * time.Second
	}
	if command.Flags().Changed(flagDebugNameConstant) {
		options.TechSupport, _ = command.Flags().GetBool(flagDebugNameConstant)
	}
	if command.Flags().Changed(flagOnceNameConstant) {
		options.Once, _ = command.Flags().GetBool(flagOnceNameConstant)
	}

	return options
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) resolveRouterConfiguration() routercli.Configuration {
	if builder.RouterConfigurationProvider == nil {
		return routercli.DefaultConfiguration()
	}
	return builder.RouterConfigurationProvider()
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}
