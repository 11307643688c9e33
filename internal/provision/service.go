package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/sshclient"
)

const (
	// DefaultServerHost is the Remote Manager hostname the routers are pointed at.
	DefaultServerHost = "my.devicecloud.com"

	horizontalRuleConstant            = "----------------------------------------------------------------"
	startBannerConstant               = "| Starting Application to Enable Digi Remote Manager"
	completeBannerConstant            = "| Application Complete"
	enableClientCommandConstant       = "cloud 0 clientconn ON"
	setServerCommandTemplateConstant  = "cloud 0 server %s"
	saveConfigurationCommandConstant  = "config 0 save"
	hardwareInfoCommandConstant       = "hw ?"
	rebootCommandConstant             = "reboot"
	connectingTemplateConstant        = "Connecting to %s..."
	enablingTemplateConstant          = "Enabling Device Cloud Client for %s..."
	settingServerTemplateConstant     = "Setting Device Cloud hostname for %s..."
	savingTemplateConstant            = "Saving config to flash for %s..."
	hardwareInfoTemplateConstant      = "Getting hardware information for %s..."
	rebootingTemplateConstant         = "Rebooting %s..."
	macTemplateConstant               = "MAC: %s"
	deviceIDTemplateConstant          = "DevId: %s"
	failureTemplateConstant           = "%s for %s"
	summaryTemplateConstant           = "Provisioned %d of %d device(s)"
	rebootFailedLogMessageConstant    = "Reboot command did not complete cleanly"
	hardwareInfoLogMessageConstant    = "HW INFO"
	sessionCloseLogMessageConstant    = "SSH session close failed"
	deviceErrorTemplateConstant       = "%s: %w"
	resultsErrorTemplateConstant      = "record %s: %w"
	incompleteErrorTemplateConstant   = "%w: %s"
	interruptedErrorTemplateConstant  = "provisioning interrupted with %d device(s) not processed: %w"
	dialerMissingMessageConstant      = "device dialer not configured"
	resultsMissingMessageConstant     = "results writer not configured"
	noDevicesMessageConstant          = "no devices to provision"
	incompleteMessageConstant         = "provisioning incomplete"
	deviceFailureSummaryTemplate      = "%d device(s) failed:"
	deviceFailureLineTemplateConstant = "\n\t* %s"
	logFieldAddressConstant           = "address"
	logFieldResponseConstant          = "response"
	emptyInstallCodeConstant          = ""
)

var (
	// ErrDialerNotConfigured indicates the SSH dialer dependency is missing.
	ErrDialerNotConfigured = errors.New(dialerMissingMessageConstant)
	// ErrResultsNotConfigured indicates the results writer dependency is missing.
	ErrResultsNotConfigured = errors.New(resultsMissingMessageConstant)
	// ErrNoDevices indicates an empty device list.
	ErrNoDevices = errors.New(noDevicesMessageConstant)
	// ErrProvisioningIncomplete indicates that at least one device failed.
	ErrProvisioningIncomplete = errors.New(incompleteMessageConstant)
)

// Options configure a provisioning run.
type Options struct {
	Devices               []Device
	ServerHost            string
	Reboot                bool
	Port                  int
	Username              string
	Password              string
	Timeout               time.Duration
	KnownHostsPath        string
	InsecureIgnoreHostKey bool
}

// DeviceResult describes one provisioned device.
type DeviceResult struct {
	Address    string
	MACAddress string
	DeviceID   string
}

// Summary reports the outcome of a provisioning run.
type Summary struct {
	Provisioned []DeviceResult
	Failed      []string
}

// ServiceDependencies enumerates collaborators required by the provisioning service.
type ServiceDependencies struct {
	Logger  *zap.Logger
	Dialer  routercli.Dialer
	Results ResultWriter
}

// Service provisions devices one after another.
type Service struct {
	logger  *zap.Logger
	dialer  routercli.Dialer
	results ResultWriter
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Dialer == nil {
		return nil, ErrDialerNotConfigured
	}
	if dependencies.Results == nil {
		return nil, ErrResultsNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{logger: logger, dialer: dependencies.Dialer, results: dependencies.Results}, nil
}

// Run provisions every device in order, logging and skipping devices that fail.
func (service *Service) Run(executionContext context.Context, options Options) (Summary, error) {
	summary := Summary{}
	if len(options.Devices) == 0 {
		return summary, ErrNoDevices
	}

	service.logger.Info(horizontalRuleConstant)
	service.logger.Info(startBannerConstant)
	service.logger.Info(horizontalRuleConstant)

	var failures *multierror.Error
	for deviceIndex, device := range options.Devices {
		if executionContext.Err() != nil {
			break
		}
		if deviceIndex > 0 {
			service.logger.Info(horizontalRuleConstant)
		}

		result, deviceError := service.provisionDevice(executionContext, device, options)
		if deviceError == nil {
			deviceError = service.recordResult(result)
		}
		if deviceError != nil {
			service.logger.Error(fmt.Sprintf(failureTemplateConstant, DescribeFailure(deviceError), device.Address))
			summary.Failed = append(summary.Failed, device.Address)
			failures = multierror.Append(failures, fmt.Errorf(deviceErrorTemplateConstant, device.Address, deviceError))
			continue
		}
		summary.Provisioned = append(summary.Provisioned, result)
	}

	service.logger.Info(horizontalRuleConstant)
	service.logger.Info(fmt.Sprintf(summaryTemplateConstant, len(summary.Provisioned), len(options.Devices)))
	service.logger.Info(completeBannerConstant)
	service.logger.Info(horizontalRuleConstant)

	if contextError := executionContext.Err(); contextError != nil {
		skipped := len(options.Devices) - len(summary.Provisioned) - len(summary.Failed)
		return summary, fmt.Errorf(interruptedErrorTemplateConstant, skipped, contextError)
	}
	if failures != nil {
		failures.ErrorFormat = formatDeviceFailures
		return summary, fmt.Errorf(incompleteErrorTemplateConstant, ErrProvisioningIncomplete, failures.Error())
	}
	return summary, nil
}

// DescribeFailure renders a device failure the way it is reported per device.
func DescribeFailure(failure error) string {
	switch {
	case errors.Is(failure, sshclient.ErrConnectionTimedOut):
		return sshclient.ErrConnectionTimedOut.Error()
	default:
		return failure.Error()
	}
}

type commandStep struct {
	command          string
	progressTemplate string
}

// commandSteps lists the router commands issued for one device, in order.
func commandSteps(serverHost string, reboot bool) []commandStep {
	steps := []commandStep{
		{command: enableClientCommandConstant, progressTemplate: enablingTemplateConstant},
		{command: fmt.Sprintf(setServerCommandTemplateConstant, serverHost), progressTemplate: settingServerTemplateConstant},
		{command: saveConfigurationCommandConstant, progressTemplate: savingTemplateConstant},
		{command: hardwareInfoCommandConstant, progressTemplate: hardwareInfoTemplateConstant},
	}
	if reboot {
		steps = append(steps, commandStep{command: rebootCommandConstant, progressTemplate: rebootingTemplateConstant})
	}
	return steps
}

func (service *Service) provisionDevice(executionContext context.Context, device Device, options Options) (DeviceResult, error) {
	service.logger.Info(fmt.Sprintf(connectingTemplateConstant, device.Address))
	session, dialError := service.dialer.Dial(executionContext, buildTarget(device, options))
	if dialError != nil {
		return DeviceResult{}, dialError
	}
	defer func() {
		if closeError := session.Close(); closeError != nil {
			service.logger.Debug(sessionCloseLogMessageConstant, zap.String(logFieldAddressConstant, device.Address), zap.Error(closeError))
		}
	}()

	var hardwareInfo string
	for _, step := range commandSteps(options.ServerHost, options.Reboot) {
		service.logger.Info(fmt.Sprintf(step.progressTemplate, device.Address))
		response, runError := session.Run(executionContext, step.command)
		switch {
		case step.command == rebootCommandConstant:
			if runError != nil {
				service.logger.Warn(rebootFailedLogMessageConstant, zap.String(logFieldAddressConstant, device.Address), zap.Error(runError))
			}
		case runError != nil:
			return DeviceResult{}, runError
		case step.command == hardwareInfoCommandConstant:
			hardwareInfo = response
		}
	}

	service.logger.Debug(hardwareInfoLogMessageConstant, zap.String(logFieldAddressConstant, device.Address), zap.String(logFieldResponseConstant, hardwareInfo))
	deviceID, macAddress := routercli.DeviceIDFromHardwareInfo(hardwareInfo)
	if len(macAddress) > 0 {
		service.logger.Info(fmt.Sprintf(macTemplateConstant, macAddress))
	}
	service.logger.Info(fmt.Sprintf(deviceIDTemplateConstant, deviceID))

	return DeviceResult{Address: device.Address, MACAddress: macAddress, DeviceID: deviceID}, nil
}

func (service *Service) recordResult(result DeviceResult) error {
	if writeError := service.results.WriteRow(result.DeviceID, emptyInstallCodeConstant); writeError != nil {
		return fmt.Errorf(resultsErrorTemplateConstant, result.DeviceID, writeError)
	}
	return nil
}

func buildTarget(device Device, options Options) sshclient.Target {
	return sshclient.Target{
		Host:                  device.Address,
		Port:                  firstPositive(device.Port, options.Port),
		Username:              firstNonEmpty(device.Username, options.Username),
		Password:              firstNonEmpty(device.Password, options.Password),
		Timeout:               options.Timeout,
		KnownHostsPath:        strings.TrimSpace(options.KnownHostsPath),
		InsecureIgnoreHostKey: options.InsecureIgnoreHostKey,
	}
}

func formatDeviceFailures(failures []error) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(deviceFailureSummaryTemplate, len(failures)))
	for _, failure := range failures {
		builder.WriteString(fmt.Sprintf(deviceFailureLineTemplateConstant, failure))
	}
	return builder.String()
}
