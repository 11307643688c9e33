package sshclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	networkProtocolConstant             = "tcp"
	defaultPortConstant                 = 22
	defaultConnectTimeoutConstant       = 20 * time.Second
	hostRequiredMessageConstant         = "ssh host is required"
	usernameRequiredMessageConstant     = "ssh username is required"
	connectionTimedOutMessageConstant   = "SSH connection timed out"
	authenticationFailedMessageConstant = "authentication failed"
	hostKeyPolicyMissingMessageConstant = "ssh host key policy not configured: provide known_hosts or allow insecure host keys"
	authenticationFailureMarkerConstant = "unable to authenticate"
	timeoutFailureMarkerConstant        = "i/o timeout"
	dialErrorTemplateConstant           = "dial %s: %w"
	handshakeErrorTemplateConstant      = "ssh handshake with %s: %w"
	knownHostsErrorTemplateConstant     = "load known hosts %s: %w"
	sessionErrorTemplateConstant        = "open ssh session: %w"
	commandErrorTemplateConstant        = "run %q: %w"
	commandExitErrorTemplateConstant    = "run %q: exit status %d: %s"
	classifiedErrorTemplateConstant     = "%w: %v"
	closeDeadlineErrorTemplateConstant  = "clear handshake deadline: %w"
)

// ErrConnectionTimedOut indicates that the device did not answer within the connect timeout.
var ErrConnectionTimedOut = errors.New(connectionTimedOutMessageConstant)

// ErrAuthenticationFailed indicates that the device rejected the supplied credentials.
var ErrAuthenticationFailed = errors.New(authenticationFailedMessageConstant)

// ErrHostKeyPolicyMissing indicates that neither known_hosts nor insecure host keys were configured.
var ErrHostKeyPolicyMissing = errors.New(hostKeyPolicyMissingMessageConstant)

// Target describes how to reach and authenticate to a device.
type Target struct {
	Host                  string
	Port                  int
	Username              string
	Password              string
	Timeout               time.Duration
	KnownHostsPath        string
	InsecureIgnoreHostKey bool
}

// Address returns host:port for the target.
func (target Target) Address() string {
	port := target.Port
	if port <= 0 {
		port = defaultPortConstant
	}
	return net.JoinHostPort(strings.TrimSpace(target.Host), strconv.Itoa(port))
}

func (target Target) connectTimeout() time.Duration {
	if target.Timeout <= 0 {
		return defaultConnectTimeoutConstant
	}
	return target.Timeout
}

// Client is an established SSH connection.
type Client struct {
	connection *ssh.Client
}

// Dialer opens SSH connections.
type Dialer struct{}

// Dial connects to the target through the default Dialer.
func Dial(dialContext context.Context, target Target) (*Client, error) {
	return Dialer{}.Dial(dialContext, target)
}

// Dial connects and authenticates to the target.
func (Dialer) Dial(dialContext context.Context, target Target) (*Client, error) {
	if len(strings.TrimSpace(target.Host)) == 0 {
		return nil, errors.New(hostRequiredMessageConstant)
	}
	if len(strings.TrimSpace(target.Username)) == 0 {
		return nil, errors.New(usernameRequiredMessageConstant)
	}

	clientConfiguration, configurationError := buildClientConfiguration(target)
	if configurationError != nil {
		return nil, configurationError
	}

	address := target.Address()
	timeout := target.connectTimeout()

	networkDialer := net.Dialer{Timeout: timeout}
	networkConnection, dialError := networkDialer.DialContext(dialContext, networkProtocolConstant, address)
	if dialError != nil {
		return nil, classifyConnectionError(fmt.Errorf(dialErrorTemplateConstant, address, dialError))
	}

	if deadlineError := networkConnection.SetDeadline(time.Now().Add(timeout)); deadlineError != nil {
		networkConnection.Close()
		return nil, fmt.Errorf(dialErrorTemplateConstant, address, deadlineError)
	}

	clientConnection, channels, requests, handshakeError := ssh.NewClientConn(networkConnection, address, clientConfiguration)
	if handshakeError != nil {
		networkConnection.Close()
		return nil, classifyConnectionError(fmt.Errorf(handshakeErrorTemplateConstant, address, handshakeError))
	}

	if deadlineError := networkConnection.SetDeadline(time.Time{}); deadlineError != nil {
		clientConnection.Close()
		return nil, fmt.Errorf(closeDeadlineErrorTemplateConstant, deadlineError)
	}

	return &Client{connection: ssh.NewClient(clientConnection, channels, requests)}, nil
}

// Run executes one command in a fresh session and returns its standard output.
func (client *Client) Run(executionContext context.Context, command string) (string, error) {
	session, sessionError := client.connection.NewSession()
	if sessionError != nil {
		return "", fmt.Errorf(sessionErrorTemplateConstant, sessionError)
	}
	defer session.Close()

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	session.Stdout = &standardOutput
	session.Stderr = &standardError

	completion := make(chan error, 1)
	go func() {
		completion <- session.Run(command)
	}()

	select {
	case <-executionContext.Done():
		session.Close()
		return "", fmt.Errorf(commandErrorTemplateConstant, command, executionContext.Err())
	case runError := <-completion:
		if runError == nil {
			return standardOutput.String(), nil
		}
		var exitError *ssh.ExitError
		if errors.As(runError, &exitError) {
			return standardOutput.String(), fmt.Errorf(commandExitErrorTemplateConstant, command, exitError.ExitStatus(), strings.TrimSpace(standardError.String()))
		}
		return standardOutput.String(), fmt.Errorf(commandErrorTemplateConstant, command, runError)
	}
}

// Close terminates the connection.
func (client *Client) Close() error {
	if client == nil || client.connection == nil {
		return nil
	}
	return client.connection.Close()
}

func buildClientConfiguration(target Target) (*ssh.ClientConfig, error) {
	hostKeyCallback, hostKeyError := buildHostKeyCallback(target)
	if hostKeyError != nil {
		return nil, hostKeyError
	}

	return &ssh.ClientConfig{
		User: target.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(target.Password),
			ssh.KeyboardInteractive(func(_ string, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for answerIndex := range answers {
					answers[answerIndex] = target.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         target.connectTimeout(),
	}, nil
}

// buildHostKeyCallback verifies against known_hosts whenever a path is set; insecure mode applies only without one.
func buildHostKeyCallback(target Target) (ssh.HostKeyCallback, error) {
	knownHostsPath := strings.TrimSpace(target.KnownHostsPath)
	if len(knownHostsPath) == 0 {
		if target.InsecureIgnoreHostKey {
			return ssh.InsecureIgnoreHostKey(), nil
		}
		return nil, ErrHostKeyPolicyMissing
	}
	if _, statError := os.Stat(knownHostsPath); statError != nil {
		return nil, fmt.Errorf(knownHostsErrorTemplateConstant, knownHostsPath, statError)
	}

	callback, callbackError := knownhosts.New(knownHostsPath)
	if callbackError != nil {
		return nil, fmt.Errorf(knownHostsErrorTemplateConstant, knownHostsPath, callbackError)
	}
	return callback, nil
}

func classifyConnectionError(connectionError error) error {
	if connectionError == nil {
		return nil
	}

	if errors.Is(connectionError, context.DeadlineExceeded) || errors.Is(connectionError, os.ErrDeadlineExceeded) {
		return fmt.Errorf(classifiedErrorTemplateConstant, ErrConnectionTimedOut, connectionError)
	}

	var networkError net.Error
	if errors.As(connectionError, &networkError) && networkError.Timeout() {
		return fmt.Errorf(classifiedErrorTemplateConstant, ErrConnectionTimedOut, connectionError)
	}

	if strings.Contains(connectionError.Error(), timeoutFailureMarkerConstant) {
		return fmt.Errorf(classifiedErrorTemplateConstant, ErrConnectionTimedOut, connectionError)
	}

	if strings.Contains(connectionError.Error(), authenticationFailureMarkerConstant) {
		return fmt.Errorf(classifiedErrorTemplateConstant, ErrAuthenticationFailed, connectionError)
	}

	return connectionError
}
