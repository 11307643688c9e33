package provision

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/sshclient"
)

const (
	testHardwareInfoConstant = "Hardware Information\r\n  Model: WR31\r\n  MAC 0: 00:40:9d:12:34:56\r\n  Serial: 123\r\n"
	testDeviceIDConstant     = "00000000-00000000-00409DFF-FF123456"
)

type fakeSession struct {
	address  string
	commands []string
	failOn   map[string]error
	closed   bool
}

func (session *fakeSession) Run(_ context.Context, command string) (string, error) {
	session.commands = append(session.commands, command)
	if failure, exists := session.failOn[command]; exists {
		return "", failure
	}
	if command == hardwareInfoCommandConstant {
		return testHardwareInfoConstant, nil
	}
	return "", nil
}

func (session *fakeSession) Close() error {
	session.closed = true
	return nil
}

type fakeDialer struct {
	dialErrors map[string]error
	failOn     map[string]map[string]error
	targets    []sshclient.Target
	sessions   map[string]*fakeSession
}

func (dialer *fakeDialer) Dial(_ context.Context, target sshclient.Target) (routercli.SessionRunner, error) {
	dialer.targets = append(dialer.targets, target)
	if dialError, exists := dialer.dialErrors[target.Host]; exists {
		return nil, dialError
	}
	if dialer.sessions == nil {
		dialer.sessions = map[string]*fakeSession{}
	}
	session := &fakeSession{address: target.Host, failOn: dialer.failOn[target.Host]}
	dialer.sessions[target.Host] = session
	return session, nil
}

type recordingResults struct {
	rows [][2]string
}

func (results *recordingResults) WriteRow(deviceID string, installCode string) error {
	results.rows = append(results.rows, [2]string{deviceID, installCode})
	return nil
}

func TestServiceProvisionsDevicesAndContinuesOnFailure(testInstance *testing.T) {
	dialer := &fakeDialer{
		dialErrors: map[string]error{
			"10.0.0.2": fmt.Errorf("%w: dial tcp 10.0.0.2:22: i/o timeout", sshclient.ErrConnectionTimedOut),
			"10.0.0.3": fmt.Errorf("%w: ssh: unable to authenticate", sshclient.ErrAuthenticationFailed),
		},
	}
	results := &recordingResults{}
	core, recorded := observer.New(zapcore.DebugLevel)

	service, serviceError := NewService(ServiceDependencies{Logger: zap.New(core), Dialer: dialer, Results: results})
	require.NoError(testInstance, serviceError)

	summary, runError := service.Run(context.Background(), Options{
		Devices: []Device{
			{Address: "10.0.0.1"},
			{Address: "10.0.0.2"},
			{Address: "10.0.0.3", Username: "operator", Password: "override", Port: 2222},
		},
		ServerHost:            DefaultServerHost,
		Reboot:                true,
		Port:                  22,
		Username:              "admin",
		Password:              "secret",
		Timeout:               20 * time.Second,
		InsecureIgnoreHostKey: true,
	})

	require.ErrorIs(testInstance, runError, ErrProvisioningIncomplete)
	require.Contains(testInstance, runError.Error(), "2 device(s) failed")
	require.Equal(testInstance, []string{"10.0.0.2", "10.0.0.3"}, summary.Failed)
	require.Equal(testInstance, []DeviceResult{{Address: "10.0.0.1", MACAddress: "00:40:9D:12:34:56", DeviceID: testDeviceIDConstant}}, summary.Provisioned)
	require.Equal(testInstance, [][2]string{{testDeviceIDConstant, ""}}, results.rows)

	firstSession := dialer.sessions["10.0.0.1"]
	require.Equal(testInstance, []string{"cloud 0 clientconn ON", "cloud 0 server my.devicecloud.com", "config 0 save", "hw ?", "reboot"}, firstSession.commands)
	require.True(testInstance, firstSession.closed)

	require.Len(testInstance, dialer.targets, 3)
	require.Equal(testInstance, sshclient.Target{Host: "10.0.0.1", Port: 22, Username: "admin", Password: "secret", Timeout: 20 * time.Second, InsecureIgnoreHostKey: true}, dialer.targets[0])
	require.Equal(testInstance, "operator", dialer.targets[2].Username)
	require.Equal(testInstance, "override", dialer.targets[2].Password)
	require.Equal(testInstance, 2222, dialer.targets[2].Port)

	messages := make([]string, 0, recorded.Len())
	for _, entry := range recorded.All() {
		messages = append(messages, entry.Message)
	}
	require.Equal(testInstance, horizontalRuleConstant, messages[0])
	require.Equal(testInstance, startBannerConstant, messages[1])
	require.Contains(testInstance, messages, "Connecting to 10.0.0.1...")
	require.Contains(testInstance, messages, "Rebooting 10.0.0.1...")
	require.Contains(testInstance, messages, "MAC: 00:40:9D:12:34:56")
	require.Contains(testInstance, messages, "DevId: "+testDeviceIDConstant)
	require.Contains(testInstance, messages, "SSH connection timed out for 10.0.0.2")
	require.Contains(testInstance, messages, "Provisioned 1 of 3 device(s)")
	require.Equal(testInstance, completeBannerConstant, messages[len(messages)-2])
}

func TestServiceWithoutRebootAndUnknownMAC(testInstance *testing.T) {
	dialer := &fakeDialer{failOn: map[string]map[string]error{}}
	results := &recordingResults{}

	service, serviceError := NewService(ServiceDependencies{Dialer: &hardwareOverrideDialer{fakeDialer: dialer, response: "no mac here"}, Results: results})
	require.NoError(testInstance, serviceError)

	summary, runError := service.Run(context.Background(), Options{Devices: []Device{{Address: "10.0.0.9"}}, ServerHost: "devicecloud.example.com"})
	require.NoError(testInstance, runError)
	require.Len(testInstance, summary.Provisioned, 1)
	require.Equal(testInstance, routercli.DefaultDeviceID, summary.Provisioned[0].DeviceID)
	require.Equal(testInstance, [][2]string{{routercli.DefaultDeviceID, ""}}, results.rows)
	require.Equal(testInstance, []string{"cloud 0 clientconn ON", "cloud 0 server devicecloud.example.com", "config 0 save", "hw ?"}, dialer.sessions["10.0.0.9"].commands)
}

func TestServiceCommandFailureFailsDevice(testInstance *testing.T) {
	commandFailure := errors.New("channel closed")
	dialer := &fakeDialer{failOn: map[string]map[string]error{"10.0.0.1": {saveConfigurationCommandConstant: commandFailure}}}
	results := &recordingResults{}

	service, serviceError := NewService(ServiceDependencies{Dialer: dialer, Results: results})
	require.NoError(testInstance, serviceError)

	summary, runError := service.Run(context.Background(), Options{Devices: []Device{{Address: "10.0.0.1"}, {Address: "10.0.0.4"}}, ServerHost: DefaultServerHost, Reboot: true})
	require.ErrorIs(testInstance, runError, ErrProvisioningIncomplete)
	require.Equal(testInstance, []string{"10.0.0.1"}, summary.Failed)
	require.Len(testInstance, summary.Provisioned, 1)
	require.Len(testInstance, results.rows, 1)
	require.NotContains(testInstance, dialer.sessions["10.0.0.1"].commands, hardwareInfoCommandConstant)
}

func TestServiceRebootFailureOnlyWarns(testInstance *testing.T) {
	dialer := &fakeDialer{failOn: map[string]map[string]error{"10.0.0.1": {rebootCommandConstant: errors.New("connection reset")}}}
	results := &recordingResults{}
	core, recorded := observer.New(zapcore.WarnLevel)

	service, serviceError := NewService(ServiceDependencies{Logger: zap.New(core), Dialer: dialer, Results: results})
	require.NoError(testInstance, serviceError)

	_, runError := service.Run(context.Background(), Options{Devices: []Device{{Address: "10.0.0.1"}}, ServerHost: DefaultServerHost, Reboot: true})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, [][2]string{{testDeviceIDConstant, ""}}, results.rows)
	require.Equal(testInstance, 1, recorded.FilterMessage(rebootFailedLogMessageConstant).Len())
}

func TestServiceInterruptedRunReportsCancellation(testInstance *testing.T) {
	dialer := &fakeDialer{}
	results := &recordingResults{}

	service, serviceError := NewService(ServiceDependencies{Dialer: dialer, Results: results})
	require.NoError(testInstance, serviceError)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	summary, runError := service.Run(cancelledContext, Options{Devices: []Device{{Address: "10.0.0.1"}, {Address: "10.0.0.2"}}, ServerHost: DefaultServerHost})
	require.ErrorIs(testInstance, runError, context.Canceled)
	require.Contains(testInstance, runError.Error(), "2 device(s) not processed")
	require.Empty(testInstance, summary.Provisioned)
	require.Empty(testInstance, dialer.targets)
	require.Empty(testInstance, results.rows)
}

func TestServiceValidation(testInstance *testing.T) {
	_, dialerError := NewService(ServiceDependencies{Results: &recordingResults{}})
	require.ErrorIs(testInstance, dialerError, ErrDialerNotConfigured)

	_, resultsError := NewService(ServiceDependencies{Dialer: &fakeDialer{}})
	require.ErrorIs(testInstance, resultsError, ErrResultsNotConfigured)

	service, serviceError := NewService(ServiceDependencies{Dialer: &fakeDialer{}, Results: &recordingResults{}})
	require.NoError(testInstance, serviceError)
	_, runError := service.Run(context.Background(), Options{})
	require.ErrorIs(testInstance, runError, ErrNoDevices)
}

func TestDescribeFailure(testInstance *testing.T) {
	require.Equal(testInstance, "SSH connection timed out", DescribeFailure(fmt.Errorf("%w: i/o timeout", sshclient.ErrConnectionTimedOut)))
	require.Equal(testInstance, "boom", DescribeFailure(errors.New("boom")))
}

type hardwareOverrideDialer struct {
	*fakeDialer
	response string
}

func (dialer *hardwareOverrideDialer) Dial(dialContext context.Context, target sshclient.Target) (routercli.SessionRunner, error) {
	session, dialError := dialer.fakeDialer.Dial(dialContext, target)
	if dialError != nil {
		return nil, dialError
	}
	return &hardwareOverrideSession{SessionRunner: session, response: dialer.response}, nil
}

type hardwareOverrideSession struct {
	routercli.SessionRunner
	response string
}

func (session *hardwareOverrideSession) Run(executionContext context.Context, command string) (string, error) {
	output, runError := session.SessionRunner.Run(executionContext, command)
	if command == hardwareInfoCommandConstant && runError == nil {
		return session.response, nil
	}
	return output, runError
}
