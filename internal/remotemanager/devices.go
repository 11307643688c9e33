package remotemanager

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	deviceCoreResourceConstant        = "DeviceCore"
	defaultDevicePageSizeConstant     = 1000
	pageStartQueryKeyConstant         = "start"
	pageSizeQueryKeyConstant          = "size"
	deviceListErrorTemplateConstant   = "list devices: %w"
	deviceDecodeErrorTemplateConstant = "decode device page at %d: %w"
	unsupportedCharsetTemplate        = "unsupported response charset %q"
	latinCharsetLabelConstant         = "iso-8859-1"
	latinCharsetAliasConstant         = "latin1"
)

// DeviceField is one DeviceCore property.
type DeviceField struct {
	Name  string
	Value string
}

// Device is a DeviceCore record with its properties in response order.
type Device struct {
	Fields []DeviceField
}

// Map returns the properties keyed by name.
func (device Device) Map() map[string]string {
	properties := make(map[string]string, len(device.Fields))
	for _, field := range device.Fields {
		properties[field.Name] = field.Value
	}
	return properties
}

type deviceCoreResult struct {
	XMLName       xml.Name            `xml:"result"`
	TotalRows     int                 `xml:"resultTotalRows,attr"`
	ResultSize    int                 `xml:"resultSize,attr"`
	RemainingSize int                 `xml:"remainingSize,attr"`
	Devices       []deviceCoreElement `xml:"DeviceCore"`
}

type deviceCoreElement struct {
	Fields []deviceFieldElement `xml:",any"`
}

type deviceFieldElement struct {
	XMLName  xml.Name
	Text     string               `xml:",chardata"`
	Children []deviceFieldElement `xml:",any"`
}

// value flattens nested properties such as <id><devId>..</devId></id> to their first child.
func (element deviceFieldElement) value() string {
	if len(element.Children) > 0 {
		return element.Children[0].value()
	}
	return strings.TrimSpace(element.Text)
}

// ListDevices pages through every DeviceCore record of the account.
func (client *Client) ListDevices(listContext context.Context) ([]Device, error) {
	return client.listDevicesWithPageSize(listContext, defaultDevicePageSizeConstant)
}

func (client *Client) listDevicesWithPageSize(listContext context.Context, pageSize int) ([]Device, error) {
	devices := make([]Device, 0)
	pageStart := 0

	for {
		query := url.Values{}
		query.Set(pageStartQueryKeyConstant, strconv.Itoa(pageStart))
		query.Set(pageSizeQueryKeyConstant, strconv.Itoa(pageSize))

		responseBody, requestError := client.doRequest(listContext, http.MethodGet, deviceCoreResourceConstant, query, nil)
		if requestError != nil {
			return nil, fmt.Errorf(deviceListErrorTemplateConstant, requestError)
		}

		var page deviceCoreResult
		if decodeError := decodeDeviceCorePage(responseBody, &page); decodeError != nil {
			return nil, fmt.Errorf(deviceDecodeErrorTemplateConstant, pageStart, decodeError)
		}

		for _, element := range page.Devices {
			device := Device{Fields: make([]DeviceField, 0, len(element.Fields))}
			for _, fieldElement := range element.Fields {
				device.Fields = append(device.Fields, DeviceField{Name: fieldElement.XMLName.Local, Value: fieldElement.value()})
			}
			devices = append(devices, device)
		}

		if page.RemainingSize <= 0 || len(page.Devices) == 0 {
			return devices, nil
		}
		pageStart += len(page.Devices)
	}
}

// decodeDeviceCorePage decodes a page; Remote Manager declares ISO-8859-1 on its XML responses.
func decodeDeviceCorePage(responseBody []byte, page *deviceCoreResult) error {
	decoder := xml.NewDecoder(bytes.NewReader(responseBody))
	decoder.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(strings.TrimSpace(label)) {
		case latinCharsetLabelConstant, latinCharsetAliasConstant:
			return charmap.ISO8859_1.NewDecoder().Reader(input), nil
		default:
			return nil, fmt.Errorf(unsupportedCharsetTemplate, label)
		}
	}
	return decoder.Decode(page)
}
