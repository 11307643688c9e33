package doormonitor

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/alerts"
	"github.com/temirov/digiscripts/internal/dependencies"
	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/utils/flags"
)

const (
	commandUseConstant               = "door-monitor [destination] [custom text]"
	commandShortDescriptionConstant  = "Alert when the enclosure door opens or closes"
	commandLongDescriptionConstant   = "door-monitor polls 'gpio dio' and, whenever the door state changes, uploads the state to a Remote Manager datapoint stream and optionally texts it to a phone number."
	tooManyArgumentsMessageConstant  = "door-monitor accepts at most a destination and a custom text"
	maximumArgumentsConstant         = 2
	flagIntervalNameConstant         = "interval"
	flagIntervalDescriptionConstant  = "Time between door switch reads"
	flagStreamNameConstant           = "stream"
	flagStreamDescriptionConstant    = "Datapoint stream receiving door states"
	flagDataPointNameConstant        = "datapoint"
	flagDataPointDescriptionConstant = "Upload door states to Remote Manager"
)

var errTooManyArguments = errors.New(tooManyArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the door-monitor command.
type CommandBuilder struct {
	LoggerProvider                     LoggerProvider
	ConfigurationProvider              func() CommandConfiguration
	RouterConfigurationProvider        func() routercli.Configuration
	RemoteManagerConfigurationProvider func() remotemanager.Config
	HumanReadableLoggingProvider       func() bool
	Console                            routercli.Console
	Uploader                           alerts.DataPointUploader
	Clock                              func() time.Time
	Sleep                              SleepFunc
}

// Build constructs the door-monitor command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().Duration(flagIntervalNameConstant, defaults.PollInterval, flagIntervalDescriptionConstant)
	command.Flags().String(flagStreamNameConstant, defaults.StreamID, flagStreamDescriptionConstant)
	flags.AddToggleFlag(command.Flags(), new(bool), flagDataPointNameConstant, defaults.DataPointAlert, flagDataPointDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > maximumArgumentsConstant {
		return errTooManyArguments
	}

	configuration := builder.parseConfiguration(command, arguments)

	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	console, consoleError := dependencies.ResolveConsole(builder.Console, builder.resolveRouterConfiguration(), logger, builder.humanReadableLogging())
	if consoleError != nil {
		return consoleError
	}

	alerter, alerterError := builder.buildAlerter(configuration, console, logger)
	if alerterError != nil {
		return alerterError
	}

	service, serviceError := NewService(ServiceDependencies{
		Logger:  logger,
		Console: console,
		Alerter: alerter,
		Output:  command.OutOrStdout(),
		Sleep:   builder.Sleep,
	})
	if serviceError != nil {
		return serviceError
	}

	return service.Run(command.Context(), Options{PollInterval: configuration.PollInterval})
}

func (builder *CommandBuilder) buildAlerter(configuration CommandConfiguration, console routercli.Console, logger *zap.Logger) (*alerts.Fanout, error) {
	alerterList := make([]alerts.Alerter, 0, 2)

	if configuration.DataPointAlert {
		uploader, uploaderError := builder.resolveUploader(logger)
		if uploaderError != nil {
			return nil, uploaderError
		}
		dataPointAlerter, dataPointError := alerts.NewDataPointAlerter(uploader, configuration.StreamID, builder.Clock)
		if dataPointError != nil {
			return nil, dataPointError
		}
		alerterList = append(alerterList, dataPointAlerter)
	}

	if len(configuration.SMS.Destination) > 0 {
		smsAlerter, smsError := alerts.NewSMSAlerter(console, configuration.SMS.Destination, configuration.SMS.CustomText)
		if smsError != nil {
			return nil, smsError
		}
		alerterList = append(alerterList, smsAlerter)
	}

	return alerts.NewFanout(alerterList...), nil
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command, arguments []string) CommandConfiguration {
	configuration := builder.resolveConfiguration()

	if command.Flags().Changed(flagIntervalNameConstant) {
		configuration.PollInterval, _ = command.Flags().GetDuration(flagIntervalNameConstant)
	}
	if command.Flags().Changed(flagStreamNameConstant) {
		configuration.StreamID, _ = command.Flags().GetString(flagStreamNameConstant)
	}
	if command.Flags().Changed(flagDataPointNameConstant) {
		configuration.DataPointAlert, _ = command.Flags().GetBool(flagDataPointNameConstant)
	}
	if len(arguments) >= 1 {
		configuration.SMS.Destination = arguments[0]
	}
	if len(arguments) >= 2 {
		configuration.SMS.CustomText = arguments[1]
	}

	return configuration.sanitize()
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
