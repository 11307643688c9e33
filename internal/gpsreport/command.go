package gpsreport

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/alerts"
	"github.com/temirov/digiscripts/internal/dependencies"
	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
)

const (
	commandUseConstant                    = "gps-report [interval seconds]"
	commandShortDescriptionConstant       = "Upload the router GPS position to Remote Manager"
	commandLongDescriptionConstant        = "gps-report reads 'at\\mibs=gps' and uploads the position as a GeoJSON point every interval (default 180 seconds). Send SIGUSR1 to report immediately."
	commandExecutionErrorTemplateConstant = "GPS reporting failed: %w"
	tooManyArgumentsMessageConstant       = "gps-report accepts at most an interval in seconds"
	invalidIntervalArgumentTemplate       = "interval must be an integer number of seconds: %q"
	flagIntervalNameConstant              = "interval"
	flagIntervalDescriptionConstant       = "Time between reports"
	flagStreamNameConstant                = "stream"
	flagStreamDescriptionConstant         = "Datapoint stream receiving the position"
	flagOnceNameConstant                  = "once"
	flagOnceDescriptionConstant           = "Report once and exit"
)

var errTooManyArguments = errors.New(tooManyArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// TriggerProvider subscribes to on-demand report requests and returns a stop function.
type TriggerProvider func() (<-chan struct{}, func())

// CommandBuilder assembles the gps-report command.
type CommandBuilder struct {
	LoggerProvider                     LoggerProvider
	ConfigurationProvider              func() CommandConfiguration
	RouterConfigurationProvider        func() routercli.Configuration
	RemoteManagerConfigurationProvider func() remotemanager.Config
	HumanReadableLoggingProvider       func() bool
	Console                            routercli.Console
	Uploader                           alerts.DataPointUploader
	After                              TimerFunc
	TriggerProvider                    TriggerProvider
}

// Build constructs the gps-report command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().Duration(flagIntervalNameConstant, defaults.Interval, flagIntervalDescriptionConstant)
	command.Flags().String(flagStreamNameConstant, defaults.StreamID, flagStreamDescriptionConstant)
	command.Flags().Bool(flagOnceNameConstant, false, flagOnceDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command, arguments)
	if optionsError != nil {
		return optionsError
	}

	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	console, consoleError := dependencies.ResolveConsole(builder.Console, builder.resolveRouterConfiguration(), logger, builder.humanReadableLogging())
	if consoleError != nil {
		return consoleError
	}
	uploader, uploaderError := builder.resolveUploader(logger)
	if uploaderError != nil {
		return uploaderError
	}

	service, serviceError := NewService(ServiceDependencies{
		Logger:   logger,
		Console:  console,
		Uploader: uploader,
		Output:   command.OutOrStdout(),
		After:    builder.After,
	})
	if serviceError != nil {
		return serviceError
	}

	triggerProvider := builder.TriggerProvider
	if triggerProvider == nil {
		triggerProvider = NotifyReportRequests
	}
	trigger, stopTrigger := triggerProvider()
	defer stopTrigger()

	if runError := service.Run(command.Context(), options, trigger); runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) (Options, error) {
	if len(arguments) > 1 {
		return Options{}, errTooManyArguments
	}

	configuration := builder.resolveConfiguration()
	options := Options{Interval: configuration.Interval, StreamID: configuration.StreamID}

	if len(arguments) == 1 {
		seconds, parseError := strconv.Atoi(arguments[0])
		if parseError != nil || seconds <= 0 {
			return Options{}, fmt.Errorf(invalidIntervalArgumentTemplate, arguments[0])
		}
		options.Interval = time.Duration(seconds) * time.Second
	}
	if command.Flags().Changed(flagIntervalNameConstant) {
		options.Interval, _ = command.Flags().GetDuration(flagIntervalNameConstant)
	}
	if command.Flags().Changed(flagStreamNameConstant) {
		options.StreamID, _ = command.Flags().GetString(flagStreamNameConstant)
	}
	options.Once, _ = command.Flags().GetBool(flagOnceNameConstant)

	return options, nil
}

func (builder *CommandBuilder) resolveUploader(logger *zap.Logger) (alerts.DataPointUploader, error) {
	if builder.Uploader != nil {
		return builder.Uploader, nil
	}
	configuration := remotemanager.DefaultConfig()
	if builder.RemoteManagerConfigurationProvider != nil {
		configuration = builder.RemoteManagerConfigurationProvider()
	}
	return dependencies.ResolveRemoteManagerClient(configuration, logger)
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
