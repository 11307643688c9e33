package reboot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/utils"
	pathutils "github.com/temirov/digiscripts/internal/utils/path"
)

const (
	rebootCommandConstant              = "reboot"
	techSupportCommandTemplateConstant = "show tech-support %s"
	techSupportFilePrefixConstant      = "tech_support"
	techSupportFileExtensionConstant   = ".log"
	startMessageTemplateConstant       = "Running reboot script, timeout %d seconds\n"
	techSupportEnabledMessageConstant  = "Debug option to output Tech Support before reboot enabled.\n"
	nextRebootLogMessageConstant       = "Next reboot scheduled"
	techSupportCapturedLogMessage      = "Captured tech support report"
	techSupportFailedLogMessage        = "Tech support capture failed"
	rebootIssuedLogMessageConstant     = "Reboot issued"
	rebootFailedLogMessageConstant     = "Reboot failed"
	rebootFailedErrorTemplateConstant  = "reboot failed: %w"
	invalidIntervalMessageConstant     = "reboot interval must be positive"
	consoleMissingMessageConstant      = "router console not configured"
	relativeTimePastLabelConstant      = "ago"
	relativeTimeFutureLabelConstant    = "from now"
	logFieldIntervalConstant           = "interval"
	logFieldNextRebootConstant         = "next_reboot"
	logFieldNextRebootRelativeConstant = "next_reboot_relative"
	logFieldTechSupportFileConstant    = "tech_support_file"
)

// ErrInvalidInterval indicates a non-positive reboot interval.
var ErrInvalidInterval = errors.New(invalidIntervalMessageConstant)

// ErrConsoleNotConfigured indicates the router console dependency is missing.
var ErrConsoleNotConfigured = errors.New(consoleMissingMessageConstant)

// Clock reports the current time.
type Clock func() time.Time

// SleepFunc waits for a duration or until the context ends.
type SleepFunc func(context.Context, time.Duration) error

// Options configure a reboot run.
type Options struct {
	Interval    time.Duration
	TechSupport bool
	Once        bool
}

// ServiceDependencies enumerates collaborators required by the reboot service.
type ServiceDependencies struct {
	Logger  *zap.Logger
	Console routercli.Console
	Output  io.Writer
	Clock   Clock
	Sleep   SleepFunc
}

// Service reboots the router on a fixed schedule.
type Service struct {
	logger  *zap.Logger
	console routercli.Console
	output  io.Writer
	clock   Clock
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
		clock:   dependencies.Clock,
		sleep:   dependencies.Sleep,
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	if service.output == nil {
		service.output = io.Discard
	}
	if service.clock == nil {
		service.clock = time.Now
	}
	if service.sleep == nil {
		service.sleep = utils.SleepContext
	}

	return service, nil
}

// Run waits for the interval and reboots, repeating until the context ends or a single reboot completes in once mode.
func (service *Service) Run(executionContext context.Context, options Options) error {
	if options.Interval <= 0 {
		return ErrInvalidInterval
	}

	fmt.Fprintf(service.output, startMessageTemplateConstant, int64(options.Interval/time.Second))
	if options.TechSupport {
		fmt.Fprint(service.output, techSupportEnabledMessageConstant)
	}

	for {
		now := service.clock()
		nextReboot := now.Add(options.Interval)
		service.logger.Info(
			nextRebootLogMessageConstant,
			zap.Duration(logFieldIntervalConstant, options.Interval),
			zap.Time(logFieldNextRebootConstant, nextReboot),
			zap.String(logFieldNextRebootRelativeConstant, humanize.RelTime(nextReboot, now, relativeTimePastLabelConstant, relativeTimeFutureLabelConstant)),
		)

		if sleepError := service.sleep(executionContext, options.Interval); sleepError != nil {
			return nil
		}

		rebootError := service.rebootOnce(executionContext, options)
		if options.Once {
			return rebootError
		}
		if rebootError != nil {
			service.logger.Error(rebootFailedLogMessageConstant, zap.Error(rebootError))
		}
	}
}

func (service *Service) rebootOnce(executionContext context.Context, options Options) error {
	if options.TechSupport {
		reportName := pathutils.TimestampedFileName(techSupportFilePrefixConstant, pathutils.FormatRunTimestamp(service.clock()), techSupportFileExtensionConstant)
		if _, captureError := service.console.Execute(executionContext, fmt.Sprintf(techSupportCommandTemplateConstant, reportName)); captureError != nil {
			service.logger.Warn(techSupportFailedLogMessage, zap.String(logFieldTechSupportFileConstant, reportName), zap.Error(captureError))
		} else {
			service.logger.Info(techSupportCapturedLogMessage, zap.String(logFieldTechSupportFileConstant, reportName))
		}
	}

	if _, rebootError := service.console.Execute(executionContext, rebootCommandConstant); rebootError != nil {
		return fmt.Errorf(rebootFailedErrorTemplateConstant, rebootError)
	}
	service.logger.Info(rebootIssuedLogMessageConstant)

	return nil
}
