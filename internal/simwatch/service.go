package simwatch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/alerts"
	"github.com/temirov/digiscripts/internal/routercli"
)

const (
	modemStatusCommandConstant     = "modemstat ?"
	firstRunMessageConstant        = "First run, no SIM file exists\n"
	checkingMessageConstant        = "Checking SIM information\n"
	currentSIMTemplateConstant     = "SIM number %s\n"
	previousSIMTemplateConstant    = "Previous SIM %s\n"
	changedMessageConstant         = "SIM is different than previous!\n"
	matchMessageConstant           = "SIM ICCIDs match\n"
	changeAlertTemplateConstant    = "SIM changed from %s to %s"
	readFailedTemplateConstant     = "read modem status: %w"
	consoleMissingMessageConstant  = "router console not configured"
	storeMissingMessageConstant    = "SIM state store not configured"
	iccidMissingLogMessageConstant = "ICCID not reported by modem, comparing empty value"
	alertFailedLogMessageConstant  = "SIM change alert failed"
	firstRunLogMessageConstant     = "Recorded initial SIM"
	simChangedLogMessageConstant   = "SIM changed"
	simUnchangedLogMessageConstant = "SIM unchanged"
	logFieldICCIDConstant          = "iccid"
	logFieldPreviousICCIDConstant  = "previous_iccid"
	logFieldStateFileConstant      = "state_file"
)

var (
	// ErrConsoleNotConfigured indicates the router console dependency is missing.
	ErrConsoleNotConfigured = errors.New(consoleMissingMessageConstant)
	// ErrStoreNotConfigured indicates the state store dependency is missing.
	ErrStoreNotConfigured = errors.New(storeMissingMessageConstant)
)

// CheckResult summarizes one SIM comparison.
type CheckResult struct {
	Current  string
	Previous string
	FirstRun bool
	Changed  bool
}

// ServiceDependencies enumerates collaborators required by the SIM watch.
type ServiceDependencies struct {
	Logger  *zap.Logger
	Console routercli.Console
	Store   *StateStore
	Alerter alerts.Alerter
	Output  io.Writer
}

// Service compares the active SIM with the recorded one.
type Service struct {
	logger  *zap.Logger
	console routercli.Console
	store   *StateStore
	alerter alerts.Alerter
	output  io.Writer
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Console == nil {
		return nil, ErrConsoleNotConfigured
	}
	if dependencies.Store == nil {
		return nil, ErrStoreNotConfigured
	}

	service := &Service{
		logger:  dependencies.Logger,
		console: dependencies.Console,
		store:   dependencies.Store,
		alerter: dependencies.Alerter,
		output:  dependencies.Output,
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	if service.output == nil {
		service.output = io.Discard
	}

	return service, nil
}

// Check reads the active ICCID, compares it with the stored one, alerts on change and records the active ICCID.
func (service *Service) Check(executionContext context.Context) (CheckResult, error) {
	var result CheckResult

	checkError := service.store.WithLock(executionContext, func() error {
		previous, exists, readError := service.store.Read()
		if readError != nil {
			return readError
		}

		if exists {
			fmt.Fprint(service.output, checkingMessageConstant)
		}

		current, iccidError := service.readICCID(executionContext)
		if iccidError != nil {
			return iccidError
		}

		result = CheckResult{Current: current, Previous: previous, FirstRun: !exists}
		if !exists {
			fmt.Fprint(service.output, firstRunMessageConstant)
			service.logger.Info(firstRunLogMessageConstant, zap.String(logFieldICCIDConstant, current), zap.String(logFieldStateFileConstant, service.store.Path()))
			return service.store.Write(current)
		}

		fmt.Fprintf(service.output, currentSIMTemplateConstant, current)
		fmt.Fprintf(service.output, previousSIMTemplateConstant, previous)

		if previous != current {
			result.Changed = true
			fmt.Fprint(service.output, changedMessageConstant)
			service.logger.Warn(simChangedLogMessageConstant, zap.String(logFieldICCIDConstant, current), zap.String(logFieldPreviousICCIDConstant, previous))
			service.alert(executionContext, previous, current)
		} else {
			fmt.Fprint(service.output, matchMessageConstant)
			service.logger.Info(simUnchangedLogMessageConstant, zap.String(logFieldICCIDConstant, current))
		}

		return service.store.Write(current)
	})

	return result, checkError
}

func (service *Service) readICCID(executionContext context.Context) (string, error) {
	response, readError := service.console.Execute(executionContext, modemStatusCommandConstant)
	if readError != nil {
		return "", fmt.Errorf(readFailedTemplateConstant, readError)
	}
	iccid := routercli.ParseICCID(response)
	if len(iccid) == 0 {
		service.logger.Warn(iccidMissingLogMessageConstant)
	}
	return iccid, nil
}

func (service *Service) alert(executionContext context.Context, previous string, current string) {
	if service.alerter == nil {
		return
	}
	if alertError := service.alerter.SendAlert(executionContext, fmt.Sprintf(changeAlertTemplateConstant, previous, current)); alertError != nil {
		service.logger.Warn(alertFailedLogMessageConstant, zap.Error(alertError))
	}
}
