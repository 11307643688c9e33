package deviceexport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/digiscripts/internal/remotemanager"
)

type stubLister struct {
	devices []remotemanager.Device
	err     error
}

func (lister *stubLister) ListDevices(context.Context) ([]remotemanager.Device, error) {
	return lister.devices, lister.err
}

func testDevices() []remotemanager.Device {
	return []remotemanager.Device{
		{Fields: []remotemanager.DeviceField{
			{Name: "id", Value: "00000000-00000000-00409DFF-FF123456"},
			{Name: "devMac", Value: "00:40:9D:12:34:56"},
			{Name: "dpDescription", Value: `Pump "north"`},
			{Name: "dpConnectionStatus", Value: "1"},
			{Name: "unlisted", Value: "ignored"},
		}},
		{Fields: []remotemanager.DeviceField{
			{Name: "devMac", Value: "00:40:9D:AB:CD:EF"},
		}},
	}
}

func TestServiceExportWritesQuotedCSV(testInstance *testing.T) {
	outputPath := filepath.Join(testInstance.TempDir(), "devices.csv")
	output := &bytes.Buffer{}
	core, recorded := observer.New(zapcore.DebugLevel)

	service, serviceError := NewService(ServiceDependencies{Logger: zap.New(core), Lister: &stubLister{devices: testDevices()}, Output: output})
	require.NoError(testInstance, serviceError)

	exported, exportError := service.Export(context.Background(), Options{OutputPath: outputPath})
	require.NoError(testInstance, exportError)
	require.Equal(testInstance, 2, exported)

	contents, readError := os.ReadFile(outputPath)
	require.NoError(testInstance, readError)
	lines := strings.Split(strings.TrimSuffix(string(contents), "\r\n"), "\r\n")
	require.Len(testInstance, lines, 3)
	require.True(testInstance, strings.HasPrefix(lines[0], `"devMac","devCellularModemId","devConnectwareId",`))
	require.True(testInstance, strings.HasSuffix(lines[0], `"id","dpZigbeeCapabilities"`))

	firstRow := RecordValues(testDevices()[0])
	require.Len(testInstance, firstRow, len(FieldNames))
	require.Equal(testInstance, "00:40:9D:12:34:56", firstRow[0])
	require.Equal(testInstance, "00000000-00000000-00409DFF-FF123456", firstRow[31])
	require.Contains(testInstance, lines[1], `"Pump ""north"""`)
	require.True(testInstance, strings.HasPrefix(lines[2], `"00:40:9D:AB:CD:EF","",""`))
	require.Equal(testInstance, len(FieldNames)-1, strings.Count(lines[2], `","`))

	require.Equal(testInstance, "Opening "+outputPath+"\nDONE! Device export complete. Open "+outputPath+" to verify file complete.\n", output.String())
	require.Equal(testInstance, 2, recorded.FilterMessage(deviceLogMessageConstant).Len())
}

func TestServiceExportDebugPrintsDevices(testInstance *testing.T) {
	outputPath := filepath.Join(testInstance.TempDir(), "devices.csv")
	output := &bytes.Buffer{}

	service, serviceError := NewService(ServiceDependencies{Lister: &stubLister{devices: testDevices()[1:]}, Output: output})
	require.NoError(testInstance, serviceError)

	_, exportError := service.Export(context.Background(), Options{OutputPath: outputPath, Debug: true})
	require.NoError(testInstance, exportError)
	require.Contains(testInstance, output.String(), "{\n    \"devMac\": \"00:40:9D:AB:CD:EF\"\n}")
}

func TestServiceExportErrors(testInstance *testing.T) {
	_, listerError := NewService(ServiceDependencies{})
	require.ErrorIs(testInstance, listerError, ErrListerNotConfigured)

	listFailure := errors.New("unauthorized")
	service, serviceError := NewService(ServiceDependencies{Lister: &stubLister{err: listFailure}})
	require.NoError(testInstance, serviceError)

	_, missingPathError := service.Export(context.Background(), Options{})
	require.ErrorIs(testInstance, missingPathError, ErrOutputPathRequired)

	outputPath := filepath.Join(testInstance.TempDir(), "devices.csv")
	_, exportError := service.Export(context.Background(), Options{OutputPath: outputPath})
	require.ErrorIs(testInstance, exportError, listFailure)
	_, statError := os.Stat(outputPath)
	require.True(testInstance, os.IsNotExist(statError))
}
