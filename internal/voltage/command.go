package voltage

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/alerts"
	"github.com/temirov/digiscripts/internal/dependencies"
	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/utils/flags"
)

const (
	commandUseConstant                    = "voltage"
	commandShortDescriptionConstant       = "Report the supply voltage measured on the analog input"
	commandLongDescriptionConstant        = "voltage reads 'gpio ain', converts the reading through the resistor divider and uploads raw and calculated voltages to Remote Manager."
	commandExecutionErrorTemplateConstant = "voltage reporting failed: %w"
	unexpectedArgumentsMessageConstant    = "voltage does not accept positional arguments"
	flagIntervalNameConstant              = "interval"
	flagIntervalDescriptionConstant       = "Time between readings"
	flagConditionalNameConstant           = "conditional"
	flagConditionalDescriptionConstant    = "Upload only when the voltage changed by at least the threshold"
	flagThresholdNameConstant             = "threshold"
	flagThresholdDescriptionConstant      = "Voltage change that triggers a conditional report"
	flagDecimalsNameConstant              = "decimals"
	flagDecimalsDescriptionConstant       = "Decimal places of the calculated voltage"
	flagOnceNameConstant                  = "once"
	flagOnceDescriptionConstant           = "Take a single reading and exit"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the voltage command.
type CommandBuilder struct {
	LoggerProvider                     LoggerProvider
	ConfigurationProvider              func() CommandConfiguration
	RouterConfigurationProvider        func() routercli.Configuration
	RemoteManagerConfigurationProvider func() remotemanager.Config
	HumanReadableLoggingProvider       func() bool
	Console                            routercli.Console
	Uploader                           alerts.DataPointUploader
	Sleep                              SleepFunc
}

// Build constructs the voltage command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().Duration(flagIntervalNameConstant, defaults.Interval, flagIntervalDescriptionConstant)
	flags.AddToggleFlag(command.Flags(), new(bool), flagConditionalNameConstant, defaults.ConditionalReporting, flagConditionalDescriptionConstant)
	command.Flags().Float64(flagThresholdNameConstant, defaults.ReportingThreshold, flagThresholdDescriptionConstant)
	command.Flags().Int(flagDecimalsNameConstant, defaults.Decimals, flagDecimalsDescriptionConstant)
	command.Flags().Bool(flagOnceNameConstant, false, flagOnceDescriptionConstant)

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
	uploader, uploaderError := builder.resolveUploader(logger)
	if uploaderError != nil {
		return uploaderError
	}

	service, serviceError := NewService(ServiceDependencies{
		Logger:   logger,
		Console:  console,
		Uploader: uploader,
		Output:   command.OutOrStdout(),
		Sleep:    builder.Sleep,
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
		Interval:             configuration.Interval,
		ResistorOhms:         configuration.ResistorOhms,
		InputImpedanceOhms:   configuration.InputImpedanceOhms,
		ConditionalReporting: configuration.ConditionalReporting,
		ReportingThreshold:   configuration.ReportingThreshold,
		Decimals:             configuration.Decimals,
		RawStreamID:          configuration.RawStreamID,
		CalculatedStreamID:   configuration.CalculatedStreamID,
	}

	if command.Flags().Changed(flagIntervalNameConstant) {
		options.Interval, _ = command.Flags().GetDuration(flagIntervalNameConstant)
	}
	if command.Flags().Changed(flagConditionalNameConstant) {
		options.ConditionalReporting, _ = command.Flags().GetBool(flagConditionalNameConstant)
	}
	if command.Flags().Changed(flagThresholdNameConstant) {
		options.ReportingThreshold, _ = command.Flags().GetFloat64(flagThresholdNameConstant)
	}
	if command.Flags().Changed(flagDecimalsNameConstant) {
		options.Decimals, _ = command.Flags().GetInt(flagDecimalsNameConstant)
	}
	options.Once, _ = command.Flags().GetBool(flagOnceNameConstant)

	return options
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
