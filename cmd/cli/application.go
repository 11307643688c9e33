package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/deviceexport"
	"github.com/temirov/digiscripts/internal/doormonitor"
	"github.com/temirov/digiscripts/internal/gpio"
	"github.com/temirov/digiscripts/internal/gpsreport"
	"github.com/temirov/digiscripts/internal/provision"
	"github.com/temirov/digiscripts/internal/reboot"
	"github.com/temirov/digiscripts/internal/remotemanager"
	"github.com/temirov/digiscripts/internal/routercli"
	"github.com/temirov/digiscripts/internal/simwatch"
	"github.com/temirov/digiscripts/internal/utils"
	"github.com/temirov/digiscripts/internal/utils/flags"
	pathutils "github.com/temirov/digiscripts/internal/utils/path"
	"github.com/temirov/digiscripts/internal/voltage"
)

const (
	applicationNameConstant                 = "digiscripts"
	applicationShortDescriptionConstant     = "Operational scripts for Digi cellular routers"
	applicationLongDescriptionConstant      = "digiscripts bundles the router maintenance scripts: scheduled reboots, GPIO polling, door and SIM monitoring, voltage and GPS reporting, bulk Remote Manager provisioning and device export."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	routerModeFlagNameConstant              = "router-mode"
	routerModeFlagUsageConstant             = "Run router commands locally or over SSH."
	routerHostFlagNameConstant              = "router-host"
	routerHostFlagUsageConstant             = "Router address used in ssh mode."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	commonLogFileConfigKeyConstant          = commonConfigurationKeyConstant + ".log_file"
	routerConfigurationKeyConstant          = "router"
	remoteManagerConfigurationKeyConstant   = "remote_manager"
	environmentPrefixConstant               = "DIGISCRIPTS"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationRouterModeFieldConstant    = "router_mode"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "digiscripts CLI executed"
	rootCommandDebugMessageConstant         = "digiscripts CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	toolsConfigurationKeyConstant           = "tools"
	rebootConfigurationKeyConstant          = toolsConfigurationKeyConstant + ".reboot"
	gpioConfigurationKeyConstant            = toolsConfigurationKeyConstant + ".gpio"
	doorMonitorConfigurationKeyConstant     = toolsConfigurationKeyConstant + ".door_monitor"
	voltageConfigurationKeyConstant         = toolsConfigurationKeyConstant + ".voltage"
	simWatchConfigurationKeyConstant        = toolsConfigurationKeyConstant + ".sim_watch"
	gpsReportConfigurationKeyConstant       = toolsConfigurationKeyConstant + ".gps_report"
	provisionConfigurationKeyConstant       = toolsConfigurationKeyConstant + ".provision"
	deviceExportConfigurationKeyConstant    = toolsConfigurationKeyConstant + ".device_export"
)

// Version is reported by --version and set at build time with -ldflags "-X".
var Version = "dev"

var routerModeChoices = []string{routercli.ConsoleModeLocal, routercli.ConsoleModeSSH}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common        ApplicationCommonConfiguration `mapstructure:"common"`
	Router        routercli.Configuration        `mapstructure:"router"`
	RemoteManager remotemanager.Config           `mapstructure:"remote_manager"`
	Tools         ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`
}

// ApplicationToolsConfiguration holds configuration for each script.
type ApplicationToolsConfiguration struct {
	Reboot       reboot.CommandConfiguration       `mapstructure:"reboot"`
	GPIO         gpio.CommandConfiguration         `mapstructure:"gpio"`
	DoorMonitor  doormonitor.CommandConfiguration  `mapstructure:"door_monitor"`
	Voltage      voltage.CommandConfiguration      `mapstructure:"voltage"`
	SIMWatch     simwatch.CommandConfiguration     `mapstructure:"sim_watch"`
	GPSReport    gpsreport.CommandConfiguration    `mapstructure:"gps_report"`
	Provision    provision.CommandConfiguration    `mapstructure:"provision"`
	DeviceExport deviceexport.CommandConfiguration `mapstructure:"device_export"`
}

// commandBuilder is satisfied by every script's CommandBuilder.
type commandBuilder interface {
	Build() (*cobra.Command, error)
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	routerModeFlagValue    string
	routerHostFlagValue    string
	commandContextAccessor utils.CommandContextAccessor
	clock                  func() time.Time
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(embeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		clock:                  time.Now,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	flags.AddChoiceFlag(cobraCommand.PersistentFlags(), &application.routerModeFlagValue, routerModeFlagNameConstant, routercli.ConsoleModeLocal, routerModeChoices, routerModeFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.routerHostFlagValue, routerHostFlagNameConstant, "", routerHostFlagUsageConstant)

	for _, builder := range application.commandBuilders() {
		subcommand, buildError := builder.Build()
		if buildError == nil {
			cobraCommand.AddCommand(subcommand)
		}
	}

	application.rootCommand = cobraCommand

	return application
}

func (application *Application) commandBuilders() []commandBuilder {
	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	return []commandBuilder{
		&reboot.CommandBuilder{
			LoggerProvider:               loggerProvider,
			RouterConfigurationProvider:  application.routerConfiguration,
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			ConfigurationProvider: func() reboot.CommandConfiguration {
				return application.configuration.Tools.Reboot
			},
		},
		&gpio.CommandBuilder{
			LoggerProvider:               loggerProvider,
			RouterConfigurationProvider:  application.routerConfiguration,
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			ConfigurationProvider: func() gpio.CommandConfiguration {
				return application.configuration.Tools.GPIO
			},
		},
		&doormonitor.CommandBuilder{
			LoggerProvider:                     loggerProvider,
			RouterConfigurationProvider:        application.routerConfiguration,
			RemoteManagerConfigurationProvider: application.remoteManagerConfiguration,
			HumanReadableLoggingProvider:       application.humanReadableLoggingEnabled,
			ConfigurationProvider: func() doormonitor.CommandConfiguration {
				return application.configuration.Tools.DoorMonitor
			},
		},
		&voltage.CommandBuilder{
			LoggerProvider:                     loggerProvider,
			RouterConfigurationProvider:        application.routerConfiguration,
			RemoteManagerConfigurationProvider: application.remoteManagerConfiguration,
			HumanReadableLoggingProvider:       application.humanReadableLoggingEnabled,
			ConfigurationProvider: func() voltage.CommandConfiguration {
				return application.configuration.Tools.Voltage
			},
		},
		&simwatch.CommandBuilder{
			LoggerProvider:                     loggerProvider,
			RouterConfigurationProvider:        application.routerConfiguration,
			RemoteManagerConfigurationProvider: application.remoteManagerConfiguration,
			HumanReadableLoggingProvider:       application.humanReadableLoggingEnabled,
			ConfigurationProvider: func() simwatch.CommandConfiguration {
				return application.configuration.Tools.SIMWatch
			},
		},
		&gpsreport.CommandBuilder{
			LoggerProvider:                     loggerProvider,
			RouterConfigurationProvider:        application.routerConfiguration,
			RemoteManagerConfigurationProvider: application.remoteManagerConfiguration,
			HumanReadableLoggingProvider:       application.humanReadableLoggingEnabled,
			TriggerProvider:                    gpsreport.NotifyReportRequests,
			ConfigurationProvider: func() gpsreport.CommandConfiguration {
				return application.configuration.Tools.GPSReport
			},
		},
		&provision.CommandBuilder{
			LoggerProvider:       loggerProvider,
			ResultsLoggerFactory: application.createResultsLogger,
			Clock:                application.clock,
			ConfigurationProvider: func() provision.CommandConfiguration {
				return application.configuration.Tools.Provision
			},
		},
		&deviceexport.CommandBuilder{
			LoggerProvider:                     loggerProvider,
			RemoteManagerConfigurationProvider: application.remoteManagerConfiguration,
			ConfigurationProvider: func() deviceexport.CommandConfiguration {
				return application.configuration.Tools.DeviceExport
			},
		},
	}
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
// SIGINT and SIGTERM cancel the command context so long-running loops return cleanly.
func (application *Application) Execute() error {
	signalContext, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	executionError := application.rootCommand.ExecuteContext(signalContext)
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// SetArgs overrides the command-line arguments of the root command.
func (application *Application) SetArgs(arguments []string) {
	application.rootCommand.SetArgs(arguments)
}

// SetOutput redirects command output and errors.
func (application *Application) SetOutput(output io.Writer) {
	application.rootCommand.SetOut(output)
	application.rootCommand.SetErr(output)
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
		commonLogFileConfigKeyConstant:   "",
	}
	defaultSources := []map[string]any{
		routercli.DefaultConfigurationValues(routerConfigurationKeyConstant),
		remotemanager.DefaultConfigurationValues(remoteManagerConfigurationKeyConstant),
		reboot.DefaultConfigurationValues(rebootConfigurationKeyConstant),
		gpio.DefaultConfigurationValues(gpioConfigurationKeyConstant),
		doormonitor.DefaultConfigurationValues(doorMonitorConfigurationKeyConstant),
		voltage.DefaultConfigurationValues(voltageConfigurationKeyConstant),
		simwatch.DefaultConfigurationValues(simWatchConfigurationKeyConstant),
		gpsreport.DefaultConfigurationValues(gpsReportConfigurationKeyConstant),
		provision.DefaultConfigurationValues(provisionConfigurationKeyConstant),
		deviceexport.DefaultConfigurationValues(deviceExportConfigurationKeyConstant),
	}
	for _, defaultSource := range defaultSources {
		for configurationKey, configurationValue := range defaultSource {
			defaultValues[configurationKey] = configurationValue
		}
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.persistentFlagChanged(command, routerModeFlagNameConstant) {
		application.configuration.Router.Mode = application.routerModeFlagValue
	}
	if application.persistentFlagChanged(command, routerHostFlagNameConstant) {
		application.configuration.Router.SSH.Host = application.routerHostFlagValue
	}
	application.configuration.Router = application.configuration.Router.Sanitize()

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
		application.configuration.Common.LogFile,
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationRouterModeFieldConstant, application.configuration.Router.Mode),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithRunTimestamp(updatedContext, pathutils.FormatRunTimestamp(application.clock()))
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) routerConfiguration() routercli.Configuration {
	return application.configuration.Router
}

func (application *Application) remoteManagerConfiguration() remotemanager.Config {
	return application.configuration.RemoteManager
}

// createResultsLogger tees the provisioning log into the per-run results file.
func (application *Application) createResultsLogger(logFilePath string) (*zap.Logger, error) {
	logger, loggerError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
		application.configuration.Common.LogFile,
		logFilePath,
	)
	if loggerError != nil {
		return nil, loggerError
	}
	application.logger = logger
	return logger, nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	if syncError := application.syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
