package gpio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/utils"
)

const (
	// AnalogControlCurrent selects current measurement on the analog input.
	AnalogControlCurrent = "current"
	// AnalogControlVoltage selects voltage measurement on the analog input.
	AnalogControlVoltage = "voltage"
	// DigitalChannelD0 names the first digital channel.
	DigitalChannelD0 = "D0"
	// DigitalChannelD1 names the second digital channel.
	DigitalChannelD1 = "D1"
	// DigitalValueOn drives a digital output on.
	DigitalValueOn = "on"
	// DigitalValueOff drives a digital output off.
	DigitalValueOff = "off"
	// CalibrationLow records the low calibration point.
	CalibrationLow = "low"
	// CalibrationHigh records the high calibration point.
	CalibrationHigh = "high"
	// CalibrationShow prints the calibration table.
	CalibrationShow = "show"
	// CalibrationReset wipes the calibration table.
	CalibrationReset = "reset"

	maximumLoopsConstant = 10000
	minimumWaitConstant  = 100 * time.Millisecond

	digitalReadCommandConstant         = "gpio dio"
	analogReadCommandConstant          = "gpio ain"
	analogSetCommandTemplateConstant   = "gpio ain %s"
	digitalSetCommandTemplateConstant  = "gpio dio -%s %s"
	calibrationCommandTemplateConstant = "gpio aincal %s"
	calibrationPointTemplateConstant   = "gpio aincal %s %s"
	sectionSeparatorConstant           = "======================"
	blockSeparatorConstant             = "----------------------"
	setupHeaderConstant                = "Setup:"
	loopsLineTemplateConstant          = "Number of loops: %d"
	waitLineTemplateConstant           = "Wait time (ms):  %d"
	loopLineTemplateConstant           = "Loop: %d"
	pollingCompleteConstant            = "Polling Complete"
	analogSetLineTemplateConstant      = "Analog set to %s"
	digitalSetLineTemplateConstant     = "Set Digital: %s, value: %s"
	readingLineTemplateConstant        = "%s: %s"
	invalidAnalogControlTemplate       = "invalid analog control type %q, controls: %s"
	tooManyLoopsTemplateConstant       = "Too many loops, %d"
	pollRateTooFastTemplateConstant    = "Poll rate too fast, %d"
	invalidChannelTemplateConstant     = "invalid digital channel %q, channels: %s"
	invalidDigitalValueTemplate        = "invalid digital value %q, options: %s"
	invalidCalibrationTemplateConstant = "invalid calibration action %q, actions: %s"
	invalidMilliampsTemplateConstant   = "invalid calibration current %q: %w"
	readFailedTemplateConstant         = "%s: %w"
	choiceSeparatorConstant            = ", "
	consoleMissingMessageConstant      = "router console not configured"
	loopFailedLogMessageConstant       = "Poll loop failed"
	pollStartedLogMessageConstant      = "GPIO polling started"
	logFieldLoopsConstant              = "loops"
	logFieldWaitConstant               = "wait"
	logFieldLoopConstant               = "loop"
	millisecondsPerWaitUnitConstant    = time.Millisecond
	calibrationCurrentBitSizeConstant  = 64
)

var (
	// ErrConsoleNotConfigured indicates the router console dependency is missing.
	ErrConsoleNotConfigured = errors.New(consoleMissingMessageConstant)
	// ErrInvalidAnalogControl indicates an unsupported analog control type.
	ErrInvalidAnalogControl = errors.New("invalid analog control type")
	// ErrTooManyLoops indicates the poll loop count exceeds the supported maximum.
	ErrTooManyLoops = errors.New("too many loops")
	// ErrPollRateTooFast indicates the poll wait is below the supported minimum.
	ErrPollRateTooFast = errors.New("poll rate too fast")
	// ErrInvalidDigitalChannel indicates an unsupported digital channel.
	ErrInvalidDigitalChannel = errors.New("invalid digital channel")
	// ErrInvalidDigitalValue indicates an unsupported digital output value.
	ErrInvalidDigitalValue = errors.New("invalid digital value")
	// ErrInvalidCalibration indicates an unsupported calibration request.
	ErrInvalidCalibration = errors.New("invalid calibration request")

	analogControls     = []string{AnalogControlCurrent, AnalogControlVoltage}
	digitalChannels    = []string{DigitalChannelD0, DigitalChannelD1}
	digitalValues      = []string{DigitalValueOn, DigitalValueOff}
	calibrationActions = []string{CalibrationLow, CalibrationHigh, CalibrationShow, CalibrationReset}
)

// SleepFunc waits for a duration or until the context ends.
type SleepFunc func(context.Context, time.Duration) error

// PollOptions configure a polling run.
type PollOptions struct {
	AnalogControl string
	Loops         int
	Wait          time.Duration
}

// CalibrationOptions describe a calibration request.
type CalibrationOptions struct {
	Action    string
	Milliamps string
}

// ServiceDependencies enumerates collaborators required by the GPIO service.
type ServiceDependencies struct {
	Logger  *zap.Logger
	Console routercli.Console
	Output  io.Writer
	Sleep   SleepFunc
}

// Service runs GPIO polling, output and calibration commands.
type Service struct {
	logger  *zap.Logger
	console routercli.Console
	output  io.Writer
	sleep   SleepFunc
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Console == nil {
		return nil, ErrConsoleNotConfigured
	}

	service := &Service{
		logger:  dependencies.Logger,
		console: dependencies.Console,
		output:  dependencies.Output,
		sleep:   dependencies.Sleep,
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	if service.output == nil {
		service.output = io.Discard
	}
	if service.sleep == nil {
		service.sleep = utils.SleepContext
	}

	return service, nil
}

// ValidatePollOptions checks the analog control, loop count and wait time.
func ValidatePollOptions(options PollOptions) error {
	if len(options.AnalogControl) > 0 && !containsChoice(analogControls, options.AnalogControl) {
		return fmt.Errorf("%w: %s", ErrInvalidAnalogControl, fmt.Sprintf(invalidAnalogControlTemplate, options.AnalogControl, strings.Join(analogControls, choiceSeparatorConstant)))
	}
	if options.Loops > maximumLoopsConstant {
		return fmt.Errorf("%w: %s", ErrTooManyLoops, fmt.Sprintf(tooManyLoopsTemplateConstant, options.Loops))
	}
	if options.Wait < minimumWaitConstant {
		return fmt.Errorf("%w: %s", ErrPollRateTooFast, fmt.Sprintf(pollRateTooFastTemplateConstant, options.Wait/millisecondsPerWaitUnitConstant))
	}
	return nil
}

// Poll prints analog and digital readings for the configured number of loops.
func (service *Service) Poll(executionContext context.Context, options PollOptions) error {
	if validationError := ValidatePollOptions(options); validationError != nil {
		return validationError
	}

	if len(options.AnalogControl) > 0 {
		response, setError := service.console.Execute(executionContext, fmt.Sprintf(analogSetCommandTemplateConstant, options.AnalogControl))
		if setError != nil {
			return setError
		}
		service.printReadings(routercli.ParseGPIOResponse(response))
		service.printLine(fmt.Sprintf(analogSetLineTemplateConstant, options.AnalogControl))
	}

	service.printLine(sectionSeparatorConstant)
	service.printLine(setupHeaderConstant)
	service.printLine(fmt.Sprintf(loopsLineTemplateConstant, options.Loops))
	service.printLine(fmt.Sprintf(waitLineTemplateConstant, options.Wait/millisecondsPerWaitUnitConstant))
	service.logger.Info(pollStartedLogMessageConstant, zap.Int(logFieldLoopsConstant, options.Loops), zap.Duration(logFieldWaitConstant, options.Wait))

	for loopIndex := 1; loopIndex <= options.Loops; loopIndex++ {
		service.printLine(sectionSeparatorConstant)
		service.printLine(fmt.Sprintf(loopLineTemplateConstant, loopIndex))
		service.printLine(blockSeparatorConstant)
		if readError := service.printCommandReadings(executionContext, analogReadCommandConstant); readError != nil {
			service.logger.Warn(loopFailedLogMessageConstant, zap.Int(logFieldLoopConstant, loopIndex), zap.Error(readError))
		}
		service.printLine(blockSeparatorConstant)
		if readError := service.printCommandReadings(executionContext, digitalReadCommandConstant); readError != nil {
			service.logger.Warn(loopFailedLogMessageConstant, zap.Int(logFieldLoopConstant, loopIndex), zap.Error(readError))
		}

		if sleepError := service.sleep(executionContext, options.Wait); sleepError != nil {
			return nil
		}
	}

	service.printLine(sectionSeparatorConstant)
	service.printLine(pollingCompleteConstant)

	return nil
}

// SetDigital drives a digital output channel on or off.
func (service *Service) SetDigital(executionContext context.Context, channel string, value string) error {
	normalizedChannel := strings.ToUpper(strings.TrimSpace(channel))
	if !containsChoice(digitalChannels, normalizedChannel) {
		return fmt.Errorf("%w: %s", ErrInvalidDigitalChannel, fmt.Sprintf(invalidChannelTemplateConstant, channel, strings.Join(digitalChannels, choiceSeparatorConstant)))
	}
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	if !containsChoice(digitalValues, normalizedValue) {
		return fmt.Errorf("%w: %s", ErrInvalidDigitalValue, fmt.Sprintf(invalidDigitalValueTemplate, value, strings.Join(digitalValues, choiceSeparatorConstant)))
	}

	service.printLine(fmt.Sprintf(digitalSetLineTemplateConstant, normalizedChannel, normalizedValue))
	response, setError := service.console.Execute(executionContext, fmt.Sprintf(digitalSetCommandTemplateConstant, normalizedChannel, normalizedValue))
	if setError != nil {
		return setError
	}
	service.printRaw(response)

	return nil
}

// Calibrate records a calibration point, shows the calibration table or resets it.
func (service *Service) Calibrate(executionContext context.Context, options CalibrationOptions) error {
	command, commandError := BuildCalibrationCommand(options)
	if commandError != nil {
		return commandError
	}

	response, calibrationError := service.console.Execute(executionContext, command)
	if calibrationError != nil {
		return calibrationError
	}
	service.printRaw(response)

	return nil
}

// BuildCalibrationCommand validates a calibration request and renders the CLI command.
func BuildCalibrationCommand(options CalibrationOptions) (string, error) {
	action := strings.ToLower(strings.TrimSpace(options.Action))
	switch action {
	case CalibrationLow, CalibrationHigh:
		milliamps := strings.TrimSpace(options.Milliamps)
		if _, parseError := strconv.ParseFloat(milliamps, calibrationCurrentBitSizeConstant); parseError != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidCalibration, fmt.Errorf(invalidMilliampsTemplateConstant, options.Milliamps, parseError))
		}
		return fmt.Sprintf(calibrationPointTemplateConstant, action, milliamps), nil
	case CalibrationShow, CalibrationReset:
		return fmt.Sprintf(calibrationCommandTemplateConstant, action), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidCalibration, fmt.Sprintf(invalidCalibrationTemplateConstant, options.Action, strings.Join(calibrationActions, choiceSeparatorConstant)))
	}
}

func (service *Service) printCommandReadings(executionContext context.Context, command string) error {
	response, readError := service.console.Execute(executionContext, command)
	if readError != nil {
		service.printLine("")
		return fmt.Errorf(readFailedTemplateConstant, command, readError)
	}
	service.printReadings(routercli.ParseGPIOResponse(response))
	return nil
}

func (service *Service) printReadings(readings []routercli.GPIOReading) {
	if len(readings) == 0 {
		service.printLine("")
		return
	}
	for _, reading := range readings {
		if len(reading.Value) == 0 {
			service.printLine(reading.Channel)
			continue
		}
		service.printLine(fmt.Sprintf(readingLineTemplateConstant, reading.Channel, reading.Value))
	}
}

func (service *Service) printRaw(response string) {
	trimmed := strings.TrimSpace(response)
	if len(trimmed) == 0 {
		return
	}
	service.printLine(trimmed)
}

func (service *Service) printLine(line string) {
	fmt.Fprintln(service.output, line)
}

func containsChoice(choices []string, candidate string) bool {
	for _, choice := range choices {
		if choice == candidate {
			return true
		}
	}
	return false
}
