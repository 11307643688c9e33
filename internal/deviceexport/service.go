package deviceexport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/digiscripts/internal/filesystem"
	"github.com/temirov/digiscripts/internal/remotemanager"
)

const (
	openingTemplateConstant          = "Opening %s"
	completeTemplateConstant         = "DONE! Device export complete. Open %s to verify file complete."
	deviceLogMessageConstant         = "Registered device"
	listErrorTemplateConstant        = "export devices: %w"
	writeErrorTemplateConstant       = "write %s: %w"
	encodeDeviceErrorTemplate        = "encode device: %w"
	outputMissingMessageConstant     = "export file path is required"
	listerMissingMessageConstant     = "device lister not configured"
	csvQuoteConstant                 = `"`
	csvEscapedQuoteConstant          = `""`
	csvFieldSeparatorConstant        = ","
	csvRecordTerminatorConstant      = "\r\n"
	jsonIndentConstant               = "    "
	exportFilePermissionsConstant    = 0o644
	logFieldDeviceConstant           = "device"
	logFieldDeviceCountConstant      = "device_count"
	exportCompleteLogMessageConstant = "Device export written"
	logFieldPathConstant             = "path"
)

// FieldNames are the exported DeviceCore properties in column order.
var FieldNames = []string{
	"devMac", "devCellularModemId", "devConnectwareId", "xpExtAddr", "dpLastKnownIp",
	"dpGlobalIp", "dpDeviceType", "dpDescription", "dpConnectionStatus", "dpRestrictedStatus",
	"dpFirmwareLevelDesc", "dpLastConnectTime", "dpContact", "dpLocation", "dpMapLat", "dpMapLong",
	"dpCapabilities", "dvVendorId", "dpUserMetaData", "dpTags", "dpLastDisconnectTime",
	"dpLastUpdateTime", "dpHealthStatus", "grpPath", "dpPanId", "dpFirmwareLevel",
	"devTerminated", "devEffectiveStartDate", "grpId", "cstId", "devRecordStartDate", "id",
	"dpZigbeeCapabilities",
}

var (
	// ErrOutputPathRequired indicates that no export file was given.
	ErrOutputPathRequired = errors.New(outputMissingMessageConstant)
	// ErrListerNotConfigured indicates the Remote Manager dependency is missing.
	ErrListerNotConfigured = errors.New(listerMissingMessageConstant)
)

// DeviceLister lists the devices of a Remote Manager account.
type DeviceLister interface {
	ListDevices(listContext context.Context) ([]remotemanager.Device, error)
}

// Options configure an export.
type Options struct {
	OutputPath string
	Debug      bool
}

// ServiceDependencies enumerates collaborators required by the export service.
type ServiceDependencies struct {
	Logger     *zap.Logger
	Lister     DeviceLister
	FileSystem filesystem.FileSystem
	Output     io.Writer
}

// Service exports devices to CSV.
type Service struct {
	logger     *zap.Logger
	lister     DeviceLister
	fileSystem filesystem.FileSystem
	output     io.Writer
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Lister == nil {
		return nil, ErrListerNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	output := dependencies.Output
	if output == nil {
		output = io.Discard
	}
	return &Service{logger: logger, lister: dependencies.Lister, fileSystem: fileSystem, output: output}, nil
}

// Export lists every device and writes the CSV, returning the number of exported devices.
func (service *Service) Export(executionContext context.Context, options Options) (int, error) {
	outputPath := strings.TrimSpace(options.OutputPath)
	if len(outputPath) == 0 {
		return 0, ErrOutputPathRequired
	}

	fmt.Fprintf(service.output, openingTemplateConstant+"\n", outputPath)

	devices, listError := service.lister.ListDevices(executionContext)
	if listError != nil {
		return 0, fmt.Errorf(listErrorTemplateConstant, listError)
	}

	var builder strings.Builder
	writeRecord(&builder, FieldNames)
	for _, device := range devices {
		if options.Debug {
			if debugError := service.printDevice(device); debugError != nil {
				return 0, debugError
			}
		}
		service.logger.Debug(deviceLogMessageConstant, zap.Any(logFieldDeviceConstant, device.Map()))
		writeRecord(&builder, RecordValues(device))
	}

	if writeError := service.fileSystem.WriteFile(outputPath, []byte(builder.String()), exportFilePermissionsConstant); writeError != nil {
		return 0, fmt.Errorf(writeErrorTemplateConstant, outputPath, writeError)
	}
	service.logger.Info(exportCompleteLogMessageConstant, zap.String(logFieldPathConstant, outputPath), zap.Int(logFieldDeviceCountConstant, len(devices)))

	fmt.Fprintf(service.output, completeTemplateConstant+"\n", outputPath)
	return len(devices), nil
}

// RecordValues returns the device properties in FieldNames order.
func RecordValues(device remotemanager.Device) []string {
	properties := device.Map()
	values := make([]string, 0, len(FieldNames))
	for _, fieldName := range FieldNames {
		values = append(values, properties[fieldName])
	}
	return values
}

func (service *Service) printDevice(device remotemanager.Device) error {
	encoded, encodeError := json.MarshalIndent(device.Map(), "", jsonIndentConstant)
	if encodeError != nil {
		return fmt.Errorf(encodeDeviceErrorTemplate, encodeError)
	}
	fmt.Fprintln(service.output, string(encoded))
	return nil
}

// writeRecord quotes every field; encoding/csv only quotes fields that need it.
func writeRecord(builder *strings.Builder, fields []string) {
	for fieldIndex, field := range fields {
		if fieldIndex > 0 {
			builder.WriteString(csvFieldSeparatorConstant)
		}
		builder.WriteString(csvQuoteConstant)
		builder.WriteString(strings.ReplaceAll(field, csvQuoteConstant, csvEscapedQuoteConstant))
		builder.WriteString(csvQuoteConstant)
	}
	builder.WriteString(csvRecordTerminatorConstant)
}
