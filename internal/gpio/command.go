package gpio

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/dependencies"
	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/utils/flags"
)

const (
	commandUseConstant                 = "gpio"
	commandShortDescriptionConstant    = "Poll, drive and calibrate router GPIO"
	commandLongDescriptionConstant     = "gpio groups the digital and analog I/O utilities of the router."
	pollUseConstant                    = "poll"
	pollShortDescriptionConstant       = "Print analog and digital readings in a loop"
	pollLongDescriptionConstant        = "poll reads 'gpio ain' and 'gpio dio' for the configured number of loops, optionally switching the analog input mode first."
	setUseConstant                     = "set <D0|D1> <on|off>"
	setShortDescriptionConstant        = "Turn a digital output on or off"
	calibrateUseConstant               = "calibrate <low|high> <mA> | calibrate <show|reset>"
	calibrateShortDescriptionConstant  = "Calibrate the analog input"
	flagAnalogNameConstant             = "analog"
	flagAnalogDescriptionConstant      = "Switch the analog input to current or voltage before polling"
	flagLoopsNameConstant              = "loops"
	flagLoopsDescriptionConstant       = "Number of loops"
	flagWaitNameConstant               = "wait-ms"
	flagWaitDescriptionConstant        = "Wait milliseconds between loops"
	unexpectedArgumentsMessageConstant = "poll does not accept positional arguments"
	setArgumentsMessageConstant        = "set requires a channel and a value"
	calibrateArgumentsMessageConstant  = "calibrate requires low|high with a current in mA, or show|reset"
	calibrationArgumentsWithCurrent    = 2
	calibrationArgumentsWithoutCurrent = 1
	setArgumentsCountConstant          = 2
)

var (
	errUnexpectedArguments   = errors.New(unexpectedArgumentsMessageConstant)
	errSetArguments          = errors.New(setArgumentsMessageConstant)
	errCalibrateArguments    = errors.New(calibrateArgumentsMessageConstant)
	analogControlFlagChoices = []string{AnalogControlCurrent, AnalogControlVoltage}
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the gpio command tree.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        func() CommandConfiguration
	RouterConfigurationProvider  func() routercli.Configuration
	HumanReadableLoggingProvider func() bool
	Console                      routercli.Console
	Sleep                        SleepFunc
}

// Build constructs the gpio command with its poll, set and calibrate subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
	}

	pollCommand := &cobra.Command{
		Use:   pollUseConstant,
		Short: pollShortDescriptionConstant,
		Long:  pollLongDescriptionConstant,
		RunE:  builder.runPoll,
	}
	defaults := DefaultCommandConfiguration()
	flags.AddChoiceFlag(pollCommand.Flags(), new(string), flagAnalogNameConstant, "", analogControlFlagChoices, flagAnalogDescriptionConstant)
	pollCommand.Flags().Int(flagLoopsNameConstant, defaults.Loops, flagLoopsDescriptionConstant)
	pollCommand.Flags().Int(flagWaitNameConstant, int(defaults.Wait/time.Millisecond), flagWaitDescriptionConstant)

	setCommand := &cobra.Command{
		Use:   setUseConstant,
		Short: setShortDescriptionConstant,
		RunE:  builder.runSet,
	}

	calibrateCommand := &cobra.Command{
		Use:   calibrateUseConstant,
		Short: calibrateShortDescriptionConstant,
		RunE:  builder.runCalibrate,
	}

	command.AddCommand(pollCommand, setCommand, calibrateCommand)

	return command, nil
}

func (builder *CommandBuilder) runPoll(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	service, serviceError := builder.buildService(command)
	if serviceError != nil {
		return serviceError
	}

	return service.Poll(command.Context(), builder.parsePollOptions(command))
}

func (builder *CommandBuilder) runSet(command *cobra.Command, arguments []string) error {
	if len(arguments) != setArgumentsCountConstant {
		return errSetArguments
	}

	service, serviceError := builder.buildService(command)
	if serviceError != nil {
		return serviceError
	}

	return service.SetDigital(command.Context(), arguments[0], arguments[1])
}

func (builder *CommandBuilder) runCalibrate(command *cobra.Command, arguments []string) error {
	options := CalibrationOptions{}
	switch len(arguments) {
	case calibrationArgumentsWithoutCurrent:
		options.Action = arguments[0]
	case calibrationArgumentsWithCurrent:
		options.Action = arguments[0]
		options.Milliamps = arguments[1]
	default:
		return errCalibrateArguments
	}

	service, serviceError := builder.buildService(command)
	if serviceError != nil {
		return serviceError
	}

	return service.Calibrate(command.Context(), options)
}

func (builder *CommandBuilder) buildService(command *cobra.Command) (*Service, error) {
	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	console, consoleError := dependencies.ResolveConsole(builder.Console, builder.resolveRouterConfiguration(), logger, builder.humanReadableLogging())
	if consoleError != nil {
		return nil, consoleError
	}

	return NewService(ServiceDependencies{
		Logger:  logger,
		Console: console,
		Output:  command.OutOrStdout(),
		Sleep:   builder.Sleep,
	})
}

func (builder *CommandBuilder) parsePollOptions(command *cobra.Command) PollOptions {
	configuration := builder.resolveConfiguration()
	options := PollOptions{
		AnalogControl: configuration.AnalogControl,
		Loops:         configuration.Loops,
		Wait:          configuration.Wait,
	}

	if command.Flags().Changed(flagAnalogNameConstant) {
		options.AnalogControl, _ = command.Flags().GetString(flagAnalogNameConstant)
	}
	if command.Flags().Changed(flagLoopsNameConstant) {
		options.Loops, _ = command.Flags().GetInt(flagLoopsNameConstant)
	}
	if command.Flags().Changed(flagWaitNameConstant) {
		waitMilliseconds, _ := command.Flags().GetInt(flagWaitNameConstant)
		options.Wait = time.Duration(waitMilliseconds) * time.Millisecond
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
