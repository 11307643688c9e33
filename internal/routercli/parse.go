package routercli

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultDeviceID is reported when no MAC address could be parsed.
	DefaultDeviceID = "00000000-00000000-00000000-00000000"

	gpioStatusTerminatorConstant  = "OK"
	gpioChannelSeparatorConstant  = ": "
	iccidLabelConstant            = "ICCID:"
	iccidLineSeparatorConstant    = "\r\n"
	macLabelConstant              = "MAC 0:"
	deviceIDPrefixConstant        = "00000000-00000000-"
	deviceIDInfixConstant         = "FF-FF"
	deviceIDMACSplitIndexConstant = 6
	lineFeedConstant              = "\n"
	fieldValueOffsetConstant      = 2
	analogVoltageLabelConstant    = "voltage="
	analogVoltageUnitConstant     = "V"
	analogVoltageParseTemplate    = "parse analog voltage %q: %w"
	analogVoltageMissingMessage   = "analog voltage reading not found"
	lineTrimCharacters            = "\r\n"
)

// ErrAnalogVoltageNotFound indicates that a `gpio ain` response did not contain a voltage reading.
var ErrAnalogVoltageNotFound = errors.New(analogVoltageMissingMessage)

var macSeparatorPattern = regexp.MustCompile(`[-: ]`)

// GPIOReading is one `<channel>: <value>` line of a gpio response.
type GPIOReading struct {
	Channel string
	Value   string
}

// ParseGPIOResponse splits a gpio response into channel readings, dropping the trailing OK.
func ParseGPIOResponse(response string) []GPIOReading {
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(response), "\r\n", lineFeedConstant), lineFeedConstant)
	readings := make([]GPIOReading, 0, len(lines))
	for _, line := range lines {
		trimmedLine := strings.TrimRight(line, lineTrimCharacters)
		if len(strings.TrimSpace(trimmedLine)) == 0 || strings.TrimSpace(trimmedLine) == gpioStatusTerminatorConstant {
			continue
		}
		channel, value, _ := strings.Cut(trimmedLine, gpioChannelSeparatorConstant)
		readings = append(readings, GPIOReading{Channel: channel, Value: value})
	}
	return readings
}

// ParseICCID returns the ICCID reported by `modemstat ?`, or an empty string.
func ParseICCID(response string) string {
	for _, line := range strings.Split(response, iccidLineSeparatorConstant) {
		if strings.Contains(line, iccidLabelConstant) {
			return strings.TrimSpace(strings.ReplaceAll(strings.Trim(line, lineTrimCharacters), iccidLabelConstant, ""))
		}
	}
	return ""
}

// ParseMACAddress returns the upper-cased MAC address from `hw ?` output lines.
func ParseMACAddress(lines []string) (string, bool) {
	for _, line := range lines {
		if strings.Contains(line, macLabelConstant) {
			macAddress := strings.ToUpper(strings.TrimSpace(strings.Trim(strings.ReplaceAll(line, macLabelConstant, ""), lineTrimCharacters)))
			return macAddress, true
		}
	}
	return "", false
}

// SplitResponseLines splits a CLI response into lines, keeping line terminators out.
func SplitResponseLines(response string) []string {
	return strings.Split(strings.ReplaceAll(response, "\r\n", lineFeedConstant), lineFeedConstant)
}

// FormatDeviceID derives the Remote Manager device ID from a MAC address.
func FormatDeviceID(macAddress string) string {
	normalizedMAC := strings.ToUpper(macSeparatorPattern.ReplaceAllString(macAddress, ""))
	if len(normalizedMAC) == 0 {
		return DefaultDeviceID
	}
	splitIndex := deviceIDMACSplitIndexConstant
	if len(normalizedMAC) < splitIndex {
		splitIndex = len(normalizedMAC)
	}
	return deviceIDPrefixConstant + normalizedMAC[:splitIndex] + deviceIDInfixConstant + normalizedMAC[splitIndex:]
}

// DeviceIDFromHardwareInfo parses `hw ?` output into a device ID, falling back to DefaultDeviceID.
func DeviceIDFromHardwareInfo(response string) (string, string) {
	macAddress, found := ParseMACAddress(SplitResponseLines(response))
	if !found {
		return DefaultDeviceID, ""
	}
	return FormatDeviceID(macAddress), macAddress
}

// ParseField extracts the value of a named statistic.
// The value starts two characters after the separator and stops one character before the line feed.
// An empty string is returned when the response does not have that shape.
func ParseField(response string, name string, separator string) string {
	nameIndex := strings.Index(response, name)
	if nameIndex < 0 {
		return ""
	}

	lineFeedOffset := strings.Index(response[nameIndex:], lineFeedConstant)
	separatorOffset := strings.Index(response[nameIndex:], separator)
	if lineFeedOffset <= 0 || separatorOffset <= 0 {
		return ""
	}

	lineFeedIndex := nameIndex + lineFeedOffset
	separatorIndex := nameIndex + separatorOffset
	if lineFeedIndex <= separatorIndex {
		return ""
	}

	valueStart := separatorIndex + fieldValueOffsetConstant
	valueEnd := lineFeedIndex - 1
	if valueStart >= valueEnd {
		return ""
	}
	return response[valueStart:valueEnd]
}

// ParseAnalogVoltage extracts the raw voltage from a `gpio ain` response.
func ParseAnalogVoltage(response string) (float64, error) {
	labelIndex := strings.Index(response, analogVoltageLabelConstant)
	if labelIndex < 0 {
		return 0, ErrAnalogVoltageNotFound
	}
	valueStart := labelIndex + len(analogVoltageLabelConstant)
	unitOffset := strings.Index(response[valueStart:], analogVoltageUnitConstant)
	if unitOffset < 0 {
		return 0, ErrAnalogVoltageNotFound
	}

	rawValue := strings.TrimSpace(response[valueStart : valueStart+unitOffset])
	voltage, parseError := strconv.ParseFloat(rawValue, 64)
	if parseError != nil {
		return 0, fmt.Errorf(analogVoltageParseTemplate, rawValue, parseError)
	}
	return voltage, nil
}
