package deviceexport

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/dependencies"
	"github.com/temirov/digiscripts/internal/filesystem"
	"github.com/temirov/digiscripts/internal/remotemanager"
)

const (
	commandUseConstant                    = "export-devices [export_file_path]"
	commandShortDescriptionConstant       = "Export Remote Manager devices to CSV"
	commandLongDescriptionConstant        = "export-devices lists the devices registered in the Remote Manager account and writes them to a CSV file with a fixed column set, header first and every value quoted."
	commandExecutionErrorTemplateConstant = "device export failed: %w"
	tooManyArgumentsMessageConstant       = "export-devices accepts a single export file path"
	flagOutputNameConstant                = "output"
	flagOutputDescriptionConstant         = "Export CSV file path"
	flagDebugNameConstant                 = "debug"
	flagDebugShorthandConstant            = "d"
	flagDebugDescriptionConstant          = "Print every registered device"
)

var errTooManyArguments = errors.New(tooManyArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the export-devices command.
type CommandBuilder struct {
	LoggerProvider                     LoggerProvider
	ConfigurationProvider              func() CommandConfiguration
	RemoteManagerConfigurationProvider func() remotemanager.Config
	Lister                             DeviceLister
	FileSystem                         filesystem.FileSystem
}

// Build constructs the export-devices command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagOutputNameConstant, defaults.OutputFile, flagOutputDescriptionConstant)
	command.Flags().BoolP(flagDebugNameConstant, flagDebugShorthandConstant, defaults.Debug, flagDebugDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command, arguments)
	if optionsError != nil {
		return optionsError
	}

	logger := dependencies.ResolveLogger(builder.LoggerProvider)
	lister, listerError := builder.resolveLister(logger)
	if listerError != nil {
		return listerError
	}

	service, serviceError := NewService(ServiceDependencies{
		Logger:     logger,
		Lister:     lister,
		FileSystem: dependencies.ResolveFileSystem(builder.FileSystem),
		Output:     command.OutOrStdout(),
	})
	if serviceError != nil {
		return serviceError
	}

	if _, exportError := service.Export(command.Context(), options); exportError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, exportError)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) (Options, error) {
	if len(arguments) > 1 {
		return Options{}, errTooManyArguments
	}

	configuration := builder.resolveConfiguration()
	if command.Flags().Changed(flagOutputNameConstant) {
		configuration.OutputFile, _ = command.Flags().GetString(flagOutputNameConstant)
	}
	if len(arguments) == 1 {
		configuration.OutputFile = arguments[0]
	}
	if command.Flags().Changed(flagDebugNameConstant) {
		configuration.Debug, _ = command.Flags().GetBool(flagDebugNameConstant)
	}

	configuration = configuration.sanitize()
	if len(configuration.OutputFile) == 0 {
		return Options{}, ErrOutputPathRequired
	}
	return Options{OutputPath: configuration.OutputFile, Debug: configuration.Debug}, nil
}

func (builder *CommandBuilder) resolveLister(logger *zap.Logger) (DeviceLister, error) {
	if builder.Lister != nil {
		return builder.Lister, nil
	}
	configuration := remotemanager.DefaultConfig()
	if builder.RemoteManagerConfigurationProvider != nil {
		configuration = builder.RemoteManagerConfigurationProvider()
	}
	return dependencies.ResolveRemoteManagerClient(configuration, logger)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}
