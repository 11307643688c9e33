package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
)

const (
	// DefaultSMSCustomText prefixes SMS alerts when no custom text is configured.
	DefaultSMSCustomText = "WR31 Door"

	smsCommandTemplateConstant         = `sendsms %s "%s: %s" `
	smsErrorTemplateConstant           = "send sms to %s: %w"
	dataPointErrorTemplateConstant     = "upload alert datapoint to %s: %w"
	consoleNotConfiguredMessage        = "sms alerter console not configured"
	destinationNotConfiguredMessage    = "sms alerter destination not configured"
	uploaderNotConfiguredMessage       = "datapoint alerter uploader not configured"
	streamNotConfiguredMessage         = "datapoint alerter stream not configured"
	doubleQuoteCharacterConstant       = `"`
	singleQuoteCharacterConstant       = `'`
	fanoutErrorSummaryTemplateConstant = "%d alert(s) failed:"
	fanoutErrorLineTemplateConstant    = "\n\t* %s"
)

var (
	// ErrConsoleNotConfigured indicates that an SMS alerter has no router console.
	ErrConsoleNotConfigured = errors.New(consoleNotConfiguredMessage)
	// ErrDestinationNotConfigured indicates that an SMS alerter has no phone number.
	ErrDestinationNotConfigured = errors.New(destinationNotConfiguredMessage)
	// ErrUploaderNotConfigured indicates that a datapoint alerter has no Remote Manager client.
	ErrUploaderNotConfigured = errors.New(uploaderNotConfiguredMessage)
	// ErrStreamNotConfigured indicates that a datapoint alerter has no stream id.
	ErrStreamNotConfigured = errors.New(streamNotConfiguredMessage)
)

// Alerter delivers one alert message.
type Alerter interface {
	SendAlert(alertContext context.Context, message string) error
}

// DataPointUploader uploads datapoints to Remote Manager.
type DataPointUploader interface {
	UploadDataPoints(uploadContext context.Context, streamPath string, dataPoints []remotemanager.DataPoint) error
}

// SMSAlerter sends alerts as SMS through the router CLI.
type SMSAlerter struct {
	console     routercli.Console
	destination string
	customText  string
}

// NewSMSAlerter validates dependencies and constructs an SMSAlerter.
func NewSMSAlerter(console routercli.Console, destination string, customText string) (*SMSAlerter, error) {
	if console == nil {
		return nil, ErrConsoleNotConfigured
	}
	trimmedDestination := strings.TrimSpace(destination)
	if len(trimmedDestination) == 0 {
		return nil, ErrDestinationNotConfigured
	}
	if len(strings.TrimSpace(customText)) == 0 {
		customText = DefaultSMSCustomText
	}
	return &SMSAlerter{console: console, destination: trimmedDestination, customText: customText}, nil
}

// SMSCommand renders the sendsms command for a message.
func (alerter *SMSAlerter) SMSCommand(message string) string {
	sanitizedText := strings.ReplaceAll(alerter.customText, doubleQuoteCharacterConstant, singleQuoteCharacterConstant)
	sanitizedMessage := strings.ReplaceAll(message, doubleQuoteCharacterConstant, singleQuoteCharacterConstant)
	return fmt.Sprintf(smsCommandTemplateConstant, alerter.destination, sanitizedText, sanitizedMessage)
}

// SendAlert sends `<customText>: <message>` to the destination.
func (alerter *SMSAlerter) SendAlert(alertContext context.Context, message string) error {
	if _, executionError := alerter.console.Execute(alertContext, alerter.SMSCommand(message)); executionError != nil {
		return fmt.Errorf(smsErrorTemplateConstant, alerter.destination, executionError)
	}
	return nil
}

// DataPointAlerter uploads alerts as STRING datapoints.
type DataPointAlerter struct {
	uploader DataPointUploader
	streamID string
	clock    func() time.Time
}

// NewDataPointAlerter validates dependencies and constructs a DataPointAlerter.
func NewDataPointAlerter(uploader DataPointUploader, streamID string, clock func() time.Time) (*DataPointAlerter, error) {
	if uploader == nil {
		return nil, ErrUploaderNotConfigured
	}
	trimmedStreamID := strings.TrimSpace(streamID)
	if len(trimmedStreamID) == 0 {
		return nil, ErrStreamNotConfigured
	}
	if clock == nil {
		clock = time.Now
	}
	return &DataPointAlerter{uploader: uploader, streamID: trimmedStreamID, clock: clock}, nil
}

// SendAlert uploads the message timestamped with the current time.
func (alerter *DataPointAlerter) SendAlert(alertContext context.Context, message string) error {
	dataPoint := remotemanager.DataPoint{
		DataType:  remotemanager.DataTypeString,
		Data:      message,
		Timestamp: remotemanager.MillisecondTimestamp(alerter.clock()),
		StreamID:  alerter.streamID,
	}
	if uploadError := alerter.uploader.UploadDataPoints(alertContext, alerter.streamID, []remotemanager.DataPoint{dataPoint}); uploadError != nil {
		return fmt.Errorf(dataPointErrorTemplateConstant, alerter.streamID, uploadError)
	}
	return nil
}

// Fanout delivers every alert to all configured alerters.
type Fanout struct {
	alerters []Alerter
}

// NewFanout builds a Fanout, skipping nil alerters.
func NewFanout(alerters ...Alerter) *Fanout {
	configured := make([]Alerter, 0, len(alerters))
	for _, alerter := range alerters {
		if alerter != nil {
			configured = append(configured, alerter)
		}
	}
	return &Fanout{alerters: configured}
}

// SendAlert sends to every alerter and returns the combined failures.
func (fanout *Fanout) SendAlert(alertContext context.Context, message string) error {
	var aggregated *multierror.Error
	for _, alerter := range fanout.alerters {
		if alertError := alerter.SendAlert(alertContext, message); alertError != nil {
			aggregated = multierror.Append(aggregated, alertError)
		}
	}
	if aggregated == nil {
		return nil
	}
	aggregated.ErrorFormat = formatAlertErrors
	return aggregated.ErrorOrNil()
}

func formatAlertErrors(alertErrors []error) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(fanoutErrorSummaryTemplateConstant, len(alertErrors)))
	for _, alertError := range alertErrors {
		builder.WriteString(fmt.Sprintf(fanoutErrorLineTemplateConstant, alertError))
	}
	return builder.String()
}
