package voltage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/alerts"
	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/utils"
)

const (
	analogReadCommandConstant         = "gpio ain"
	voltageUnitsConstant              = "V"
	rawDescriptionConstant            = "Raw voltage reading"
	calculatedDescriptionConstant     = "Calculated voltage reading"
	startMessageConstant              = "Starting Vin Reading Application\n"
	readingSeparatorConstant          = "\n----------------------\n"
	analogLineTemplateConstant        = " Analog in: %s\n"
	voltageLineTemplateConstant       = "Voltage in: %s\n"
	sendingMessageConstant            = "Sending to Remote Manager...\n"
	readFailedTemplateConstant        = "read analog input: %w"
	uploadFailedTemplateConstant      = "upload voltage datapoints: %w"
	consoleMissingMessageConstant     = "router console not configured"
	uploaderMissingMessageConstant    = "datapoint uploader not configured"
	reportFailedLogMessageConstant    = "Voltage report failed"
	reportSkippedLogMessageConstant   = "Voltage change below threshold"
	logFieldRawConstant               = "raw_voltage"
	logFieldCalculatedConstant        = "calculated_voltage"
	logFieldPreviousConstant          = "previous_voltage"
	floatFormatConstant               = 'f'
	floatBitSizeConstant              = 64
	shortestFloatPrecisionConstant    = -1
	roundingBaseConstant              = 10
	allDataPointsStreamPathConstant   = ""
	minimumDividerDenominatorConstant = 0
	dividerDenominatorMessageConstant = "input impedance must be positive"
	decimalsOutOfRangeMessageConstant = "decimals must not be negative"
	maximumSupportedDecimalsConstant  = 15
	decimalsTooLargeTemplateConstant  = "decimals must not exceed %d"
	voltageDataPointCapacityConstant  = 2
	minimumDecimalsConstant           = 0
)

var (
	// ErrConsoleNotConfigured indicates the router console dependency is missing.
	ErrConsoleNotConfigured = errors.New(consoleMissingMessageConstant)
	// ErrUploaderNotConfigured indicates the datapoint uploader dependency is missing.
	ErrUploaderNotConfigured = errors.New(uploaderMissingMessageConstant)
	// ErrInvalidDivider indicates a resistor divider that cannot be converted.
	ErrInvalidDivider = errors.New(dividerDenominatorMessageConstant)
	// ErrInvalidDecimals indicates an unusable rounding precision.
	ErrInvalidDecimals = errors.New(decimalsOutOfRangeMessageConstant)
)

// SleepFunc waits for a duration or until the context ends.
type SleepFunc func(context.Context, time.Duration) error

// ConvertVoltage converts the analog input voltage to the supply voltage behind the resistor divider.
func ConvertVoltage(rawVoltage float64, resistorOhms float64, inputImpedanceOhms float64) float64 {
	return rawVoltage / (inputImpedanceOhms / (resistorOhms + inputImpedanceOhms))
}

// Round rounds the value to the requested number of decimals.
func Round(value float64, decimals int) float64 {
	scale := math.Pow(roundingBaseConstant, float64(decimals))
	return math.Round(value*scale) / scale
}

// ShouldReport decides whether a calculated reading differs enough from the previous one.
func ShouldReport(calculated float64, previous float64, options Options) bool {
	if !options.ConditionalReporting {
		return true
	}
	return math.Abs(Round(calculated-previous, options.Decimals)) >= options.ReportingThreshold
}

// FormatVoltage renders a voltage the way readings are printed and uploaded.
func FormatVoltage(value float64) string {
	return strconv.FormatFloat(value, floatFormatConstant, shortestFloatPrecisionConstant, floatBitSizeConstant)
}

// Options configure the voltage reporter.
type Options struct {
	Interval             time.Duration
	ResistorOhms         float64
	InputImpedanceOhms   float64
	ConditionalReporting bool
	ReportingThreshold   float64
	Decimals             int
	RawStreamID          string
	CalculatedStreamID   string
	Once                 bool
}

func (options Options) validate() error {
	if options.InputImpedanceOhms <= minimumDividerDenominatorConstant {
		return ErrInvalidDivider
	}
	if options.Decimals < minimumDecimalsConstant {
		return ErrInvalidDecimals
	}
	if options.Decimals > maximumSupportedDecimalsConstant {
		return fmt.Errorf("%w: %s", ErrInvalidDecimals, fmt.Sprintf(decimalsTooLargeTemplateConstant, maximumSupportedDecimalsConstant))
	}
	return nil
}

// Reading is one analog input sample.
type Reading struct {
	Raw        float64
	Calculated float64
	Reported   bool
}

// ServiceDependencies enumerates collaborators required by the voltage reporter.
type ServiceDependencies struct {
	Logger   *zap.Logger
	Console  routercli.Console
	Uploader alerts.DataPointUploader
	Output   io.Writer
	Sleep    SleepFunc
}

// Service samples the analog input and uploads voltage datapoints.
type Service struct {
	logger      *zap.Logger
	console     routercli.Console
	uploader    alerts.DataPointUploader
	output      io.Writer
	sleep       SleepFunc
	lastReading float64
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Console == nil {
		return nil, ErrConsoleNotConfigured
	}
	if dependencies.Uploader == nil {
		return nil, ErrUploaderNotConfigured
	}

	service := &Service{
		logger:   dependencies.Logger,
		console:  dependencies.Console,
		uploader: dependencies.Uploader,
		output:   dependencies.Output,
		sleep:    dependencies.Sleep,
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

// Run reports a reading every interval until the context ends.
func (service *Service) Run(executionContext context.Context, options Options) error {
	if validationError := options.validate(); validationError != nil {
		return validationError
	}

	fmt.Fprint(service.output, startMessageConstant)
	for {
		_, reportError := service.Report(executionContext, options)
		if options.Once {
			return reportError
		}
		if reportError != nil {
			service.logger.Warn(reportFailedLogMessageConstant, zap.Error(reportError))
		}
		if sleepError := service.sleep(executionContext, options.Interval); sleepError != nil {
			return nil
		}
	}
}

// Report reads the analog input once and uploads the readings when they qualify.
func (service *Service) Report(executionContext context.Context, options Options) (Reading, error) {
	response, readError := service.console.Execute(executionContext, analogReadCommandConstant)
	if readError != nil {
		return Reading{}, fmt.Errorf(readFailedTemplateConstant, readError)
	}
	rawVoltage, parseError := routercli.ParseAnalogVoltage(response)
	if parseError != nil {
		return Reading{}, fmt.Errorf(readFailedTemplateConstant, parseError)
	}

	reading := Reading{
		Raw:        rawVoltage,
		Calculated: Round(ConvertVoltage(rawVoltage, options.ResistorOhms, options.InputImpedanceOhms), options.Decimals),
	}

	fmt.Fprint(service.output, readingSeparatorConstant)
	fmt.Fprintf(service.output, analogLineTemplateConstant, FormatVoltage(reading.Raw))
	fmt.Fprintf(service.output, voltageLineTemplateConstant, FormatVoltage(reading.Calculated))

	previous := service.lastReading
	service.lastReading = reading.Calculated

	if !ShouldReport(reading.Calculated, previous, options) {
		service.logger.Debug(
			reportSkippedLogMessageConstant,
			zap.Float64(logFieldRawConstant, reading.Raw),
			zap.Float64(logFieldCalculatedConstant, reading.Calculated),
			zap.Float64(logFieldPreviousConstant, previous),
		)
		return reading, nil
	}

	fmt.Fprint(service.output, sendingMessageConstant)
	if uploadError := service.uploader.UploadDataPoints(executionContext, allDataPointsStreamPathConstant, buildDataPoints(reading, options)); uploadError != nil {
		return reading, fmt.Errorf(uploadFailedTemplateConstant, uploadError)
	}
	reading.Reported = true

	return reading, nil
}

func buildDataPoints(reading Reading, options Options) []remotemanager.DataPoint {
	dataPoints := make([]remotemanager.DataPoint, 0, voltageDataPointCapacityConstant)
	dataPoints = append(dataPoints,
		remotemanager.DataPoint{
			DataType:    remotemanager.DataTypeFloat,
			Data:        FormatVoltage(reading.Raw),
			Units:       voltageUnitsConstant,
			Description: rawDescriptionConstant,
			StreamID:    options.RawStreamID,
		},
		remotemanager.DataPoint{
			DataType:    remotemanager.DataTypeFloat,
			Data:        FormatVoltage(reading.Calculated),
			Units:       voltageUnitsConstant,
			Description: calculatedDescriptionConstant,
			StreamID:    options.CalculatedStreamID,
		},
	)
	return dataPoints
}
