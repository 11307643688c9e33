package simwatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/alerts"
	"github.com/temirov/digiscripts/internal/dependencies"
	"github.com/temirov/digiscripts/internal/filesystem"
	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
	pathutils "github.com/temirov/digiscripts/internal/utils/path"
)

const (
	commandUseConstant                    = "sim-check"
	commandShortDescriptionConstant       = "Report whether the active SIM changed since the last run"
	commandLongDescriptionConstant        = "sim-check reads the ICCID from 'modemstat ?', compares it with the ICCID recorded by the previous run and records the active one. Run it at boot to detect SIM swaps."
	commandExecutionErrorTemplateConstant = "SIM check failed: %w"
	unexpectedArgumentsMessageConstant    = "sim-check does not accept positional arguments"
	flagStateFileNameConstant             = "state-file"
	flagStateFileDescriptionConstant      = "File recording the last seen ICCID"
	flagStreamNameConstant                = "datapoint-stream"
	flagStreamDescriptionConstant         = "Upload SIM changes to this Remote Manager stream"
	flagSMSNameConstant                   = "sms"
	flagSMSDescriptionConstant            = "Text SIM changes to this phone number"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the sim-check command.
type CommandBuilder struct {
	LoggerProvider                     LoggerProvider
	ConfigurationProvider              func() CommandConfiguration
	RouterConfigurationProvider        func() routercli.Configuration
	RemoteManagerConfigurationProvider func() remotemanager.Config
	HumanReadableLoggingProvider       func() bool
	Console                            routercli.Console
	Uploader                           alerts.DataPointUploader
	FileSystem                         filesystem.FileSystem
	Clock                              func() time.Time
}

// Build constructs the sim-check command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagStateFileNameConstant, defaults.StateFile, flagStateFileDescriptionConstant)
	command.Flags().String(flagStreamNameConstant, defaults.Alerts.DataPointStream, flagStreamDescriptionConstant)
	command.Flags().String(flagSMSNameConstant, defaults.Alerts.SMSDestination, flagSMSDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.parseConfiguration(command)

	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	console, consoleError := dependencies.ResolveConsole(builder.Console, builder.resolveRouterConfiguration(), logger, builder.humanReadableLogging())
	if consoleError != nil {
		return consoleError
	}

	alerter, alerterError := builder.buildAlerter(configuration, console, logger)
	if alerterError != nil {
		return alerterError
	}

	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	service, serviceError := NewService(ServiceDependencies{
		Logger:  logger,
		Console: console,
		Store:   NewStateStore(fileSystem, configuration.StateFile, configuration.LockTimeout),
		Alerter: alerter,
		Output:  command.OutOrStdout(),
	})
	if serviceError != nil {
		return serviceError
	}

	if _, checkError := service.Check(command.Context()); checkError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, checkError)
	}
	return nil
}

func (builder *CommandBuilder) buildAlerter(configuration CommandConfiguration, console routercli.Console, logger *zap.Logger) (alerts.Alerter, error) {
	alerterList := make([]alerts.Alerter, 0, 2)

	if len(configuration.Alerts.DataPointStream) > 0 {
		uploader, uploaderError := builder.resolveUploader(logger)
		if uploaderError != nil {
			return nil, uploaderError
		}
		dataPointAlerter, dataPointError := alerts.NewDataPointAlerter(uploader, configuration.Alerts.DataPointStream, builder.Clock)
		if dataPointError != nil {
			return nil, dataPointError
		}
		alerterList = append(alerterList, dataPointAlerter)
	}

	if len(configuration.Alerts.SMSDestination) > 0 {
		smsAlerter, smsError := alerts.NewSMSAlerter(console, configuration.Alerts.SMSDestination, configuration.Alerts.SMSCustomText)
		if smsError != nil {
			return nil, smsError
		}
		alerterList = append(alerterList, smsAlerter)
	}

	if len(alerterList) == 0 {
		return nil, nil
	}
	return alerts.NewFanout(alerterList...), nil
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command) CommandConfiguration {
	configuration := builder.resolveConfiguration()

	if command.Flags().Changed(flagStateFileNameConstant) {
		configuration.StateFile, _ = command.Flags().GetString(flagStateFileNameConstant)
	}
	if command.Flags().Changed(flagStreamNameConstant) {
		configuration.Alerts.DataPointStream, _ = command.Flags().GetString(flagStreamNameConstant)
	}
	if command.Flags().Changed(flagSMSNameConstant) {
		configuration.Alerts.SMSDestination, _ = command.Flags().GetString(flagSMSNameConstant)
	}

	configuration = configuration.sanitize()
	configuration.StateFile = pathutils.NewFileLocator("").Resolve(configuration.StateFile)
	return configuration
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
