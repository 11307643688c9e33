package doormonitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/alerts"
	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/utils"
)

// DoorState is the enclosure door state derived from the digital inputs.
type DoorState string

const (
	// DoorStateOpen reports an open door.
	DoorStateOpen DoorState = "OPEN"
	// DoorStateClosed reports a closed door.
	DoorStateClosed DoorState = "CLOSED"
	// DoorStateUnknown reports a reading that matches neither state.
	DoorStateUnknown DoorState = "UNKNOWN"

	digitalReadCommandConstant     = "gpio dio"
	doorSwitchClosedPattern        = "D1: DOUT=OFF, DIN=LOW"
	doorOutputActivePattern        = "D0: DOUT=ON"
	doorStateLineTemplateConstant  = "WR31 door is: %s\n"
	consoleMissingMessageConstant  = "router console not configured"
	alerterMissingMessageConstant  = "door alerter not configured"
	readFailedLogMessageConstant   = "Door switch read failed"
	unknownStateLogMessageConstant = "Door switch state ambiguous"
	alertFailedLogMessageConstant  = "Door alert failed"
	stateChangedLogMessageConstant = "Door state changed"
	logFieldStateConstant          = "state"
	logFieldResponseConstant       = "response"
)

var (
	// ErrConsoleNotConfigured indicates the router console dependency is missing.
	ErrConsoleNotConfigured = errors.New(consoleMissingMessageConstant)
	// ErrAlerterNotConfigured indicates the alert dependency is missing.
	ErrAlerterNotConfigured = errors.New(alerterMissingMessageConstant)
)

// SleepFunc waits for a duration or until the context ends.
type SleepFunc func(context.Context, time.Duration) error

// ClassifyDoorState derives the door state from a `gpio dio` response.
func ClassifyDoorState(response string) DoorState {
	if !strings.Contains(response, doorSwitchClosedPattern) {
		return DoorStateOpen
	}
	if strings.Contains(response, doorOutputActivePattern) {
		return DoorStateUnknown
	}
	return DoorStateClosed
}

// Options configure a monitoring run.
type Options struct {
	PollInterval time.Duration
}

// ServiceDependencies enumerates collaborators required by the door monitor.
type ServiceDependencies struct {
	Logger  *zap.Logger
	Console routercli.Console
	Alerter alerts.Alerter
	Output  io.Writer
	Sleep   SleepFunc
}

// Service polls the door switch and alerts on state changes.
type Service struct {
	logger    *zap.Logger
	console   routercli.Console
	alerter   alerts.Alerter
	output    io.Writer
	sleep     SleepFunc
	lastState DoorState
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Console == nil {
		return nil, ErrConsoleNotConfigured
	}
	if dependencies.Alerter == nil {
		return nil, ErrAlerterNotConfigured
	}

	service := &Service{
		logger:  dependencies.Logger,
		console: dependencies.Console,
		alerter: dependencies.Alerter,
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

// Run polls until the context ends.
func (service *Service) Run(executionContext context.Context, options Options) error {
	for {
		service.Poll(executionContext)
		if sleepError := service.sleep(executionContext, options.PollInterval); sleepError != nil {
			return nil
		}
	}
}

// Poll reads the door switch once and alerts when the state differs from the last reported one.
func (service *Service) Poll(executionContext context.Context) DoorState {
	response, readError := service.console.Execute(executionContext, digitalReadCommandConstant)
	if readError != nil {
		service.logger.Warn(readFailedLogMessageConstant, zap.Error(readError))
		return service.lastState
	}

	state := ClassifyDoorState(response)
	if state == DoorStateUnknown {
		service.logger.Debug(unknownStateLogMessageConstant, zap.String(logFieldResponseConstant, response))
		return service.lastState
	}
	if state == service.lastState {
		return state
	}

	fmt.Fprintf(service.output, doorStateLineTemplateConstant, state)
	service.logger.Info(stateChangedLogMessageConstant, zap.String(logFieldStateConstant, string(state)))
	if alertError := service.alerter.SendAlert(executionContext, string(state)); alertError != nil {
		service.logger.Warn(alertFailedLogMessageConstant, zap.String(logFieldStateConstant, string(state)), zap.Error(alertError))
	}
	service.lastState = state

	return state
}
