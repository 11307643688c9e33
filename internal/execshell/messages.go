package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	describedFailureTemplateConstant        = "%s failed (exit code %d%s)"
	describedExecutionFailureTemplate       = "%s failed: %s"
	commandArgumentsJoinSeparatorConstant   = " "
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	routerGPIOVerbConstant            = "gpio"
	routerGPIODigitalSubcommand       = "dio"
	routerGPIOAnalogSubcommand        = "ain"
	routerGPIOCalibrationSubcommand   = "aincal"
	routerRebootVerbConstant          = "reboot"
	routerShowVerbConstant            = "show"
	routerTechSupportSubcommand       = "tech-support"
	routerModemStatusVerbConstant     = "modemstat"
	routerSendSMSVerbConstant         = "sendsms"
	routerMIBSVerbPrefixConstant      = "at\\mibs="
	routerCloudVerbConstant           = "cloud"
	routerCloudClientConnSubcommand   = "clientconn"
	routerCloudServerSubcommand       = "server"
	routerConfigVerbConstant          = "config"
	routerConfigSaveSubcommand        = "save"
	routerHardwareVerbConstant        = "hw"
	routerDigitalChannelFlagPrefix    = "-"
	routerCommandTokenQuoteCharacters = "\""
)

const (
	readDigitalStartConstant         = "Reading digital I/O"
	readDigitalSuccessConstant       = "Read digital I/O"
	readAnalogStartConstant          = "Reading analog input"
	readAnalogSuccessConstant        = "Read analog input"
	switchAnalogStartTemplate        = "Switching analog input to %s mode"
	switchAnalogSuccessTemplate      = "Analog input is in %s mode"
	setDigitalStartTemplate          = "Setting %s to %s"
	setDigitalSuccessTemplate        = "%s is now %s"
	calibrateStartTemplate           = "Running analog calibration %s"
	calibrateSuccessTemplate         = "Analog calibration %s completed"
	rebootStartConstant              = "Rebooting router"
	rebootSuccessConstant            = "Reboot requested"
	techSupportStartTemplate         = "Capturing tech support report to %s"
	techSupportSuccessTemplate       = "Tech support report saved to %s"
	modemStatusStartConstant         = "Reading modem status"
	modemStatusSuccessConstant       = "Read modem status"
	sendSMSStartTemplate             = "Sending SMS to %s"
	sendSMSSuccessTemplate           = "SMS sent to %s"
	readMIBSStartTemplate            = "Reading %s statistics"
	readMIBSSuccessTemplate          = "Read %s statistics"
	enableCloudStartConstant         = "Enabling Remote Manager client"
	enableCloudSuccessConstant       = "Remote Manager client enabled"
	setCloudServerStartTemplate      = "Pointing Remote Manager client at %s"
	setCloudServerSuccessTemplate    = "Remote Manager server set to %s"
	saveConfigurationStartConstant   = "Saving router configuration"
	saveConfigurationSuccessConstant = "Router configuration saved"
	readHardwareStartConstant        = "Reading hardware information"
	readHardwareSuccessConstant      = "Read hardware information"
	calibrationDescriptionSeparator  = " "
	describedMessagePairStartIndex   = 0
	describedMessagePairSuccessIndex = 1
)

// CommandMessageFormatter renders human-readable messages for command lifecycle events.
// Vendor router CLI commands get task-oriented descriptions; everything else falls back to the command line.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage describes a command that exited with status zero.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage describes a command that exited with a non-zero status.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage describes a command that could not be run.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	descriptions, described := formatter.describeRouterCommand(command.Details.RouterCommand)
	if !described {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch stage {
	case messageStageStart:
		return descriptions[describedMessagePairStartIndex]
	case messageStageSuccess:
		return descriptions[describedMessagePairSuccessIndex]
	case messageStageFailure:
		return fmt.Sprintf(describedFailureTemplateConstant, descriptions[describedMessagePairStartIndex], result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(describedExecutionFailureTemplate, descriptions[describedMessagePairStartIndex], formatter.describeFailure(failure))
	}
}

// describeRouterCommand returns the start and success descriptions for a vendor command.
func (formatter CommandMessageFormatter) describeRouterCommand(routerCommand string) ([]string, bool) {
	tokens := strings.Fields(strings.TrimSpace(routerCommand))
	if len(tokens) == 0 {
		return nil, false
	}

	verb := strings.ToLower(tokens[0])
	switch {
	case verb == routerGPIOVerbConstant:
		return formatter.describeGPIOCommand(tokens[1:])
	case verb == routerRebootVerbConstant:
		return []string{rebootStartConstant, rebootSuccessConstant}, true
	case verb == routerShowVerbConstant && formatter.argumentAtIndex(tokens, 1) == routerTechSupportSubcommand:
		reportFile := formatter.ensureValue(formatter.argumentAtIndex(tokens, 2))
		return []string{fmt.Sprintf(techSupportStartTemplate, reportFile), fmt.Sprintf(techSupportSuccessTemplate, reportFile)}, true
	case verb == routerModemStatusVerbConstant:
		return []string{modemStatusStartConstant, modemStatusSuccessConstant}, true
	case verb == routerSendSMSVerbConstant:
		destination := formatter.ensureValue(strings.Trim(formatter.argumentAtIndex(tokens, 1), routerCommandTokenQuoteCharacters))
		return []string{fmt.Sprintf(sendSMSStartTemplate, destination), fmt.Sprintf(sendSMSSuccessTemplate, destination)}, true
	case strings.HasPrefix(verb, routerMIBSVerbPrefixConstant):
		mibName := formatter.ensureValue(strings.TrimPrefix(verb, routerMIBSVerbPrefixConstant))
		label := strings.ToUpper(mibName)
		return []string{fmt.Sprintf(readMIBSStartTemplate, label), fmt.Sprintf(readMIBSSuccessTemplate, label)}, true
	case verb == routerCloudVerbConstant:
		return formatter.describeCloudCommand(tokens)
	case verb == routerConfigVerbConstant && formatter.argumentAtIndex(tokens, 2) == routerConfigSaveSubcommand:
		return []string{saveConfigurationStartConstant, saveConfigurationSuccessConstant}, true
	case verb == routerHardwareVerbConstant:
		return []string{readHardwareStartConstant, readHardwareSuccessConstant}, true
	default:
		return nil, false
	}
}

func (formatter CommandMessageFormatter) describeGPIOCommand(arguments []string) ([]string, bool) {
	subcommand := strings.ToLower(formatter.argumentAtIndex(arguments, 0))
	switch subcommand {
	case routerGPIODigitalSubcommand:
		channelArgument := formatter.argumentAtIndex(arguments, 1)
		if !strings.HasPrefix(channelArgument, routerDigitalChannelFlagPrefix) {
			return []string{readDigitalStartConstant, readDigitalSuccessConstant}, true
		}
		channel := strings.TrimPrefix(channelArgument, routerDigitalChannelFlagPrefix)
		value := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))
		return []string{fmt.Sprintf(setDigitalStartTemplate, channel, value), fmt.Sprintf(setDigitalSuccessTemplate, channel, value)}, true
	case routerGPIOAnalogSubcommand:
		analogMode := formatter.argumentAtIndex(arguments, 1)
		if len(analogMode) == 0 {
			return []string{readAnalogStartConstant, readAnalogSuccessConstant}, true
		}
		return []string{fmt.Sprintf(switchAnalogStartTemplate, analogMode), fmt.Sprintf(switchAnalogSuccessTemplate, analogMode)}, true
	case routerGPIOCalibrationSubcommand:
		calibrationDescription := formatter.ensureValue(strings.Join(arguments[1:], calibrationDescriptionSeparator))
		return []string{fmt.Sprintf(calibrateStartTemplate, calibrationDescription), fmt.Sprintf(calibrateSuccessTemplate, calibrationDescription)}, true
	default:
		return nil, false
	}
}

func (formatter CommandMessageFormatter) describeCloudCommand(tokens []string) ([]string, bool) {
	switch strings.ToLower(formatter.argumentAtIndex(tokens, 2)) {
	case routerCloudClientConnSubcommand:
		return []string{enableCloudStartConstant, enableCloudSuccessConstant}, true
	case routerCloudServerSubcommand:
		server := formatter.ensureValue(formatter.argumentAtIndex(tokens, 3))
		return []string{fmt.Sprintf(setCloudServerStartTemplate, server), fmt.Sprintf(setCloudServerSuccessTemplate, server)}, true
	default:
		return nil, false
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant) + formatter.formatWorkingDirectorySuffix(command)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return emptyStringConstant
	}
	return strings.TrimSpace(arguments[index])
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	if len(strings.TrimSpace(value)) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return value
}
