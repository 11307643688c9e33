package remotemanager

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DataTypeString marks a datapoint carrying text.
	DataTypeString = "STRING"
	// DataTypeFloat marks a datapoint carrying a floating point reading.
	DataTypeFloat = "float"

	dataPointResourceConstant    = "DataPoint"
	dataPointEncodeErrorTemplate = "encode datapoints: %w"
	dataPointUploadErrorTemplate = "upload datapoints to %s: %w"
	noDataPointsMessageConstant  = "no datapoints to upload"
	streamPathSeparatorConstant  = "/"
)

// ErrNoDataPoints indicates an upload with an empty datapoint list.
var ErrNoDataPoints = errors.New(noDataPointsMessageConstant)

// DataPoint is one telemetry value for a Remote Manager data stream.
type DataPoint struct {
	XMLName     xml.Name `xml:"DataPoint"`
	DataType    string   `xml:"dataType,omitempty"`
	Data        string   `xml:"data"`
	Units       string   `xml:"units,omitempty"`
	Description string   `xml:"description,omitempty"`
	Timestamp   int64    `xml:"timestamp,omitempty"`
	StreamID    string   `xml:"streamId"`
}

type dataPointList struct {
	XMLName    xml.Name    `xml:"list"`
	DataPoints []DataPoint `xml:"DataPoint"`
}

// MillisecondTimestamp converts a time to Unix milliseconds.
func MillisecondTimestamp(moment time.Time) int64 {
	return moment.UnixMilli()
}

// EncodeDataPoints renders one datapoint as <DataPoint> and several as <list>.
func EncodeDataPoints(dataPoints []DataPoint) ([]byte, error) {
	if len(dataPoints) == 0 {
		return nil, ErrNoDataPoints
	}

	var encodedPayload bytes.Buffer
	encoder := xml.NewEncoder(&encodedPayload)
	var encodeError error
	if len(dataPoints) == 1 {
		encodeError = encoder.Encode(dataPoints[0])
	} else {
		encodeError = encoder.Encode(dataPointList{DataPoints: dataPoints})
	}
	if encodeError != nil {
		return nil, fmt.Errorf(dataPointEncodeErrorTemplate, encodeError)
	}
	return encodedPayload.Bytes(), nil
}

// UploadDataPoints posts datapoints to /ws/DataPoint/<streamPath>, or /ws/DataPoint when streamPath is empty.
func (client *Client) UploadDataPoints(uploadContext context.Context, streamPath string, dataPoints []DataPoint) error {
	payload, encodeError := EncodeDataPoints(dataPoints)
	if encodeError != nil {
		return encodeError
	}

	resource := dataPointResourceConstant
	trimmedStreamPath := strings.Trim(streamPath, streamPathSeparatorConstant)
	if len(trimmedStreamPath) > 0 {
		resource = resource + streamPathSeparatorConstant + trimmedStreamPath
	}

	if _, requestError := client.doRequest(uploadContext, http.MethodPost, resource, url.Values{}, payload); requestError != nil {
		return fmt.Errorf(dataPointUploadErrorTemplate, resource, requestError)
	}
	return nil
}
