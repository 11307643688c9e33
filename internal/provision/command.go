package provision

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/temirov/digiscripts/internal/dependencies"
	"github.com/temirov/digiscripts/internal/filesystem"
	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/utils"
	"github.com/temirov/digiscripts/internal/utils/flags"
	pathutils "github.com/temirov/digiscripts/internal/utils/path"
)

const (
	commandUseConstant                      = "provision [ip] [noreboot]"
	commandShortDescriptionConstant         = "Enable the Remote Manager client on routers over SSH"
	commandLongDescriptionConstant          = "provision connects to each router over SSH, enables the Remote Manager client, points it at the configured server, saves the configuration and records the device ID in bulkadd_results_<timestamp>.csv for Remote Manager bulk add. Devices come from a single IP argument, an IP list file or a YAML/TOML inventory. A device whose enable, server or save command exits non-zero is reported as failed and gets no CSV row; a failed reboot only logs a warning. An interrupted run exits with an error naming the devices left unprocessed."
	commandExecutionErrorTemplateConstant   = "provisioning failed: %w"
	tooManyArgumentsMessageConstant         = "provision accepts at most an IP address and the literal noreboot"
	unexpectedModifierTemplateConstant      = "unexpected argument %q, expected noreboot"
	noRebootArgumentConstant                = "noreboot"
	passwordPromptTemplateConstant          = "SSH password for %s: "
	promptErrorTemplateConstant             = "read SSH password: %w"
	resultsLogErrorTemplateConstant         = "open provisioning log %s: %w"
	resultsCloseLogMessageConstant          = "Closing results file failed"
	resultsWrittenTemplateConstant          = "Results written to %s"
	flagIPFileNameConstant                  = "ip-file"
	flagIPFileDescriptionConstant           = "File listing router addresses, one per line"
	flagInventoryNameConstant               = "inventory"
	flagInventoryDescriptionConstant        = "YAML or TOML inventory with per-device credentials"
	flagServerNameConstant                  = "server"
	flagServerDescriptionConstant           = "Remote Manager hostname configured on each router"
	flagRebootNameConstant                  = "reboot"
	flagRebootDescriptionConstant           = "Reboot each router after provisioning"
	flagUsernameNameConstant                = "username"
	flagUsernameDescriptionConstant         = "SSH username"
	flagResultsDirectoryNameConstant        = "results-dir"
	flagResultsDirectoryDescriptionConstant = "Directory receiving the bulk-add CSV and provisioning log"
	logFieldPathConstant                    = "path"
)

var errTooManyArguments = errors.New(tooManyArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ResultsLoggerFactory builds a logger that also writes to the per-run log file.
type ResultsLoggerFactory func(logFilePath string) (*zap.Logger, error)

// PasswordPrompter asks the operator for the SSH password.
type PasswordPrompter func(output io.Writer, username string) (string, error)

// CommandBuilder assembles the provision command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ResultsLoggerFactory  ResultsLoggerFactory
	ConfigurationProvider func() CommandConfiguration
	Dialer                routercli.Dialer
	FileSystem            filesystem.FileSystem
	PasswordPrompter      PasswordPrompter
	Clock                 func() time.Time
}

// Build constructs the provision command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagIPFileNameConstant, defaults.IPFile, flagIPFileDescriptionConstant)
	command.Flags().String(flagInventoryNameConstant, defaults.Inventory, flagInventoryDescriptionConstant)
	command.Flags().String(flagServerNameConstant, defaults.ServerHost, flagServerDescriptionConstant)
	flags.AddToggleFlag(command.Flags(), new(bool), flagRebootNameConstant, defaults.Reboot, flagRebootDescriptionConstant)
	command.Flags().String(flagUsernameNameConstant, defaults.Username, flagUsernameDescriptionConstant)
	command.Flags().String(flagResultsDirectoryNameConstant, defaults.ResultsDirectory, flagResultsDirectoryDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, singleAddress, parseError := builder.parseConfiguration(command, arguments)
	if parseError != nil {
		return parseError
	}

	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	devices, devicesError := builder.loadDevices(fileSystem, configuration, singleAddress)
	if devicesError != nil {
		return devicesError
	}

	if requiresPassword(configuration, devices) {
		password, promptError := builder.promptPassword(command.ErrOrStderr(), configuration.Username)
		if promptError != nil {
			return promptError
		}
		configuration.Password = password
	}

	runTimestamp := builder.runTimestamp(command)
	logger, loggerError := builder.resolveLogger(configuration, runTimestamp)
	if loggerError != nil {
		return loggerError
	}

	resultWriter := NewCSVResultWriter(filepath.Join(configuration.ResultsDirectory, pathutils.TimestampedFileName(ResultsFilePrefix, runTimestamp, ResultsFileExtension)))
	defer func() {
		if closeError := resultWriter.Close(); closeError != nil {
			logger.Warn(resultsCloseLogMessageConstant, zap.String(logFieldPathConstant, resultWriter.Path()), zap.Error(closeError))
		}
	}()

	service, serviceError := NewService(ServiceDependencies{
		Logger:  logger,
		Dialer:  dependencies.ResolveDialer(builder.Dialer),
		Results: resultWriter,
	})
	if serviceError != nil {
		return serviceError
	}

	summary, runError := service.Run(command.Context(), Options{
		Devices:               devices,
		ServerHost:            configuration.ServerHost,
		Reboot:                configuration.Reboot,
		Port:                  configuration.Port,
		Username:              configuration.Username,
		Password:              configuration.Password,
		Timeout:               configuration.Timeout,
		KnownHostsPath:        configuration.KnownHostsPath,
		InsecureIgnoreHostKey: configuration.InsecureIgnoreHostKey,
	})
	if len(summary.Provisioned) > 0 {
		fmt.Fprintf(command.OutOrStdout(), resultsWrittenTemplateConstant+"\n", resultWriter.Path())
	}
	if runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command, arguments []string) (CommandConfiguration, string, error) {
	configuration := builder.resolveConfiguration()

	if len(arguments) > 2 {
		return configuration, "", errTooManyArguments
	}
	singleAddress := ""
	if len(arguments) > 0 {
		singleAddress = strings.TrimSpace(arguments[0])
	}
	if len(arguments) > 1 {
		if !strings.EqualFold(strings.TrimSpace(arguments[1]), noRebootArgumentConstant) {
			return configuration, "", fmt.Errorf(unexpectedModifierTemplateConstant, arguments[1])
		}
		configuration.Reboot = false
	}

	if command.Flags().Changed(flagIPFileNameConstant) {
		configuration.IPFile, _ = command.Flags().GetString(flagIPFileNameConstant)
	}
	if command.Flags().Changed(flagInventoryNameConstant) {
		configuration.Inventory, _ = command.Flags().GetString(flagInventoryNameConstant)
	}
	if command.Flags().Changed(flagServerNameConstant) {
		configuration.ServerHost, _ = command.Flags().GetString(flagServerNameConstant)
	}
	if command.Flags().Changed(flagRebootNameConstant) && len(arguments) < 2 {
		configuration.Reboot, _ = command.Flags().GetBool(flagRebootNameConstant)
	}
	if command.Flags().Changed(flagUsernameNameConstant) {
		configuration.Username, _ = command.Flags().GetString(flagUsernameNameConstant)
	}
	if command.Flags().Changed(flagResultsDirectoryNameConstant) {
		configuration.ResultsDirectory, _ = command.Flags().GetString(flagResultsDirectoryNameConstant)
	}

	configuration = configuration.sanitize()
	locator := pathutils.NewFileLocator("")
	configuration.IPFile = locator.Resolve(configuration.IPFile)
	configuration.Inventory = locator.Resolve(configuration.Inventory)
	configuration.KnownHostsPath = locator.Resolve(configuration.KnownHostsPath)
	configuration.ResultsDirectory = locator.Resolve(configuration.ResultsDirectory)

	return configuration, singleAddress, nil
}

func (builder *CommandBuilder) loadDevices(fileSystem filesystem.FileSystem, configuration CommandConfiguration, singleAddress string) ([]Device, error) {
	switch {
	case len(singleAddress) > 0:
		return []Device{{Address: singleAddress}}, nil
	case len(configuration.Inventory) > 0:
		return LoadInventory(fileSystem, configuration.Inventory)
	default:
		return LoadIPList(fileSystem, configuration.IPFile)
	}
}

func requiresPassword(configuration CommandConfiguration, devices []Device) bool {
	if len(configuration.Password) > 0 {
		return false
	}
	for _, device := range devices {
		if len(device.Password) == 0 {
			return true
		}
	}
	return false
}

func (builder *CommandBuilder) promptPassword(output io.Writer, username string) (string, error) {
	prompter := builder.PasswordPrompter
	if prompter == nil {
		prompter = TerminalPasswordPrompter
	}
	password, promptError := prompter(output, username)
	if promptError != nil {
		return "", fmt.Errorf(promptErrorTemplateConstant, promptError)
	}
	return password, nil
}

// TerminalPasswordPrompter reads a password from standard input without echo.
// It returns an empty password when standard input is not a terminal.
func TerminalPasswordPrompter(output io.Writer, username string) (string, error) {
	inputDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(inputDescriptor) {
		return "", nil
	}
	fmt.Fprintf(output, passwordPromptTemplateConstant, username)
	passwordBytes, readError := term.ReadPassword(inputDescriptor)
	fmt.Fprintln(output)
	if readError != nil {
		return "", readError
	}
	return string(passwordBytes), nil
}

func (builder *CommandBuilder) runTimestamp(command *cobra.Command) string {
	if command.Context() != nil {
		if runTimestamp, exists := utils.NewCommandContextAccessor().RunTimestamp(command.Context()); exists {
			return runTimestamp
		}
	}
	clock := builder.Clock
	if clock == nil {
		clock = time.Now
	}
	return pathutils.FormatRunTimestamp(clock())
}

func (builder *CommandBuilder) resolveLogger(configuration CommandConfiguration, runTimestamp string) (*zap.Logger, error) {
	if !configuration.ResultsLog || builder.ResultsLoggerFactory == nil {
		return dependencies.ResolveLogger(builder.LoggerProvider), nil
	}
	logFilePath := filepath.Join(configuration.ResultsDirectory, pathutils.TimestampedFileName(ResultsLogPrefix, runTimestamp, ResultsLogExtension))
	logger, loggerError := builder.ResultsLoggerFactory(logFilePath)
	if loggerError != nil {
		return nil, fmt.Errorf(resultsLogErrorTemplateConstant, logFilePath, loggerError)
	}
	return logger, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}
