package remotemanager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testUsernameConstant = "operator"
	testPasswordConstant = "secret"
)

type recordedRequest struct {
	method      string
	path        string
	query       string
	contentType string
	body        string
}

type fakeRemoteManager struct {
	mutex    sync.Mutex
	requests []recordedRequest
	handler  func(writer http.ResponseWriter, request *http.Request)
}

func newFakeRemoteManager(testInstance *testing.T, handler func(writer http.ResponseWriter, request *http.Request)) (*fakeRemoteManager, *Client) {
	testInstance.Helper()

	fake := &fakeRemoteManager{handler: handler}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		username, password, hasAuth := request.BasicAuth()
		if !hasAuth || username != testUsernameConstant || password != testPasswordConstant {
			writer.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(writer, "<error>Invalid credentials</error>")
			return
		}
		body, _ := io.ReadAll(request.Body)
		fake.mutex.Lock()
		fake.requests = append(fake.requests, recordedRequest{
			method:      request.Method,
			path:        request.URL.Path,
			query:       request.URL.RawQuery,
			contentType: request.Header.Get("Content-Type"),
			body:        string(body),
		})
		fake.mutex.Unlock()
		fake.handler(writer, request)
	}))
	testInstance.Cleanup(server.Close)

	client, creationError := NewClient(Config{BaseURL: server.URL, Username: testUsernameConstant, Password: testPasswordConstant, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(testInstance, creationError)
	return fake, client
}

func TestNewClientRequiresCredentials(testInstance *testing.T) {
	_, creationError := NewClient(Config{Username: "operator"}, nil)
	require.ErrorIs(testInstance, creationError, ErrCredentialsNotConfigured)

	client, defaultError := NewClient(Config{Username: "operator", Password: "secret"}, nil)
	require.NoError(testInstance, defaultError)
	require.Equal(testInstance, DefaultBaseURL, client.baseURL.String())
	require.Equal(testInstance, defaultTimeoutConstant, client.httpClient.Timeout)
}

func TestEncodeDataPointsSingleAndList(testInstance *testing.T) {
	single, singleError := EncodeDataPoints([]DataPoint{{DataType: DataTypeString, Data: "OPEN", Timestamp: 1700000000123, StreamID: "WR31_door"}})
	require.NoError(testInstance, singleError)
	require.Equal(testInstance, "<DataPoint><dataType>STRING</dataType><data>OPEN</data><timestamp>1700000000123</timestamp><streamId>WR31_door</streamId></DataPoint>", string(single))

	list, listError := EncodeDataPoints([]DataPoint{
		{DataType: DataTypeFloat, Data: "3.125", Units: "V", Description: "Raw voltage reading", StreamID: "wr31ain"},
		{DataType: DataTypeFloat, Data: "10.44", Units: "V", Description: "Calculated voltage reading", StreamID: "wr31vin"},
	})
	require.NoError(testInstance, listError)
	require.Equal(testInstance,
		"<list><DataPoint><dataType>float</dataType><data>3.125</data><units>V</units><description>Raw voltage reading</description><streamId>wr31ain</streamId></DataPoint>"+
			"<DataPoint><dataType>float</dataType><data>10.44</data><units>V</units><description>Calculated voltage reading</description><streamId>wr31vin</streamId></DataPoint></list>",
		string(list))

	_, emptyError := EncodeDataPoints(nil)
	require.ErrorIs(testInstance, emptyError, ErrNoDataPoints)
}

func TestMillisecondTimestamp(testInstance *testing.T) {
	moment := time.Unix(1700000000, 123456789)
	require.Equal(testInstance, int64(1700000000123), MillisecondTimestamp(moment))
}

func TestUploadDataPointsPostsXML(testInstance *testing.T) {
	fake, client := newFakeRemoteManager(testInstance, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusCreated)
	})

	uploadError := client.UploadDataPoints(context.Background(), "geolocation", []DataPoint{{Data: `{"type": "Point", "coordinates": [44.9778, 93.265]}`, StreamID: "geolocation"}})
	require.NoError(testInstance, uploadError)

	require.Len(testInstance, fake.requests, 1)
	require.Equal(testInstance, http.MethodPost, fake.requests[0].method)
	require.Equal(testInstance, "/ws/DataPoint/geolocation", fake.requests[0].path)
	require.Equal(testInstance, "text/xml", fake.requests[0].contentType)
	require.Contains(testInstance, fake.requests[0].body, "<streamId>geolocation</streamId>")
	require.Contains(testInstance, fake.requests[0].body, "coordinates")
}

func TestUploadDataPointsReportsErrorStatus(testInstance *testing.T) {
	_, client := newFakeRemoteManager(testInstance, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(writer, "<error>Invalid stream</error>")
	})

	uploadError := client.UploadDataPoints(context.Background(), "", []DataPoint{{Data: "1", StreamID: "bad stream"}})
	require.Error(testInstance, uploadError)

	var responseError ResponseError
	require.ErrorAs(testInstance, uploadError, &responseError)
	require.Equal(testInstance, http.StatusBadRequest, responseError.StatusCode)
	require.Contains(testInstance, uploadError.Error(), "Invalid stream")
}

func TestListDevicesFollowsPages(testInstance *testing.T) {
	fake, client := newFakeRemoteManager(testInstance, func(writer http.ResponseWriter, request *http.Request) {
		start, _ := strconv.Atoi(request.URL.Query().Get("start"))
		remaining := 3 - start - 2
		if remaining < 0 {
			remaining = 0
		}
		fmt.Fprintf(writer, `<?xml version="1.0" encoding="ISO-8859-1"?>`+"\n")
		fmt.Fprintf(writer, `<result resultTotalRows="3" requestedStartRow="%d" resultSize="2" requestedSize="2" remainingSize="%d">`, start, remaining)
		for index := start; index < start+2 && index < 3; index++ {
			fmt.Fprintf(writer, `<DeviceCore><id><devId>%d</devId><devVersion>1</devVersion></id><devMac>00:40:9D:00:00:0%d</devMac><dpDescription>Site %d</dpDescription><dpConnectionStatus>1</dpConnectionStatus></DeviceCore>`, 100+index, index, index)
		}
		fmt.Fprint(writer, `</result>`)
	})

	devices, listError := client.listDevicesWithPageSize(context.Background(), 2)
	require.NoError(testInstance, listError)
	require.Len(testInstance, devices, 3)
	require.Equal(testInstance, "100", devices[0].Map()["id"])
	require.Equal(testInstance, "00:40:9D:00:00:02", devices[2].Map()["devMac"])
	require.Equal(testInstance, "Site 1", devices[1].Map()["dpDescription"])
	require.Equal(testInstance, []string{"id", "devMac", "dpDescription", "dpConnectionStatus"}, fieldNames(devices[0]))

	require.Len(testInstance, fake.requests, 2)
	require.Equal(testInstance, "/ws/DeviceCore", fake.requests[0].path)
	require.Equal(testInstance, "size=2&start=0", fake.requests[0].query)
	require.Equal(testInstance, "size=2&start=2", fake.requests[1].query)
}

func TestListDevicesRejectsBadCredentials(testInstance *testing.T) {
	_, client := newFakeRemoteManager(testInstance, func(writer http.ResponseWriter, _ *http.Request) {})
	client.password = "wrong"

	_, listError := client.ListDevices(context.Background())
	var responseError ResponseError
	require.ErrorAs(testInstance, listError, &responseError)
	require.Equal(testInstance, http.StatusUnauthorized, responseError.StatusCode)
}

func fieldNames(device Device) []string {
	names := make([]string, 0, len(device.Fields))
	for _, field := range device.Fields {
		names = append(names, field.Name)
	}
	return names
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	values := DefaultConfigurationValues("remote_manager")
	require.Equal(testInstance, DefaultBaseURL, values["remote_manager.base_url"])
	require.Equal(testInstance, "10s", values["remote_manager.timeout"])
	require.Contains(testInstance, values, "remote_manager.username")
}
