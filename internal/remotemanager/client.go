package remotemanager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the production Remote Manager endpoint.
	DefaultBaseURL = "https://remotemanager.digi.com"

	defaultTimeoutConstant            = 10 * time.Second
	webServicesPathPrefixConstant     = "/ws/"
	contentTypeHeaderConstant         = "Content-Type"
	acceptHeaderConstant              = "Accept"
	xmlContentTypeConstant            = "text/xml"
	requestBuildErrorTemplateConstant = "build %s %s request: %w"
	requestErrorTemplateConstant      = "%s %s: %w"
	responseReadErrorTemplateConstant = "read %s %s response: %w"
	responseErrorTemplateConstant     = "remote manager returned %d: %s"
	baseURLParseErrorTemplateConstant = "parse remote manager base url %q: %w"
	credentialsMissingMessageConstant = "remote manager credentials not configured"
	requestLogMessageConstant         = "Remote Manager request"
	responseLogMessageConstant        = "Remote Manager response"
	methodFieldConstant               = "method"
	urlFieldConstant                  = "url"
	statusFieldConstant               = "status"
	maximumErrorBodyLengthConstant    = 512
	errorBodyTruncationSuffixConstant = "..."
	pathSeparatorConstant             = "/"
	configurationKeySeparatorConstant = "."
	baseURLKeyConstant                = "base_url"
	usernameKeyConstant               = "username"
	passwordKeyConstant               = "password"
	timeoutKeyConstant                = "timeout"
)

// ErrCredentialsNotConfigured indicates that no username or password was supplied.
var ErrCredentialsNotConfigured = errors.New(credentialsMissingMessageConstant)

// ResponseError reports a non-success HTTP status from Remote Manager.
type ResponseError struct {
	StatusCode int
	Body       string
}

// Error describes the response failure.
func (responseError ResponseError) Error() string {
	body := strings.TrimSpace(responseError.Body)
	if len(body) > maximumErrorBodyLengthConstant {
		body = body[:maximumErrorBodyLengthConstant] + errorBodyTruncationSuffixConstant
	}
	return fmt.Sprintf(responseErrorTemplateConstant, responseError.StatusCode, body)
}

// Config holds Remote Manager connection settings.
type Config struct {
	BaseURL  string        `mapstructure:"base_url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the baseline Remote Manager settings.
func DefaultConfig() Config {
	return Config{BaseURL: DefaultBaseURL, Timeout: defaultTimeoutConstant}
}

// DefaultConfigurationValues exposes the defaults as configuration keys under the prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfig()
	keyPrefix := strings.TrimSpace(prefix)
	if len(keyPrefix) > 0 {
		keyPrefix += configurationKeySeparatorConstant
	}
	return map[string]any{
		keyPrefix + baseURLKeyConstant:  defaults.BaseURL,
		keyPrefix + usernameKeyConstant: defaults.Username,
		keyPrefix + passwordKeyConstant: defaults.Password,
		keyPrefix + timeoutKeyConstant:  defaults.Timeout.String(),
	}
}

// Client talks to the Remote Manager web services API.
type Client struct {
	baseURL    *url.URL
	username   string
	password   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates the configuration and constructs a Client.
func NewClient(configuration Config, logger *zap.Logger) (*Client, error) {
	if len(strings.TrimSpace(configuration.Username)) == 0 || len(configuration.Password) == 0 {
		return nil, ErrCredentialsNotConfigured
	}

	rawBaseURL := strings.TrimSpace(configuration.BaseURL)
	if len(rawBaseURL) == 0 {
		rawBaseURL = DefaultBaseURL
	}
	parsedBaseURL, parseError := url.Parse(strings.TrimRight(rawBaseURL, pathSeparatorConstant))
	if parseError != nil {
		return nil, fmt.Errorf(baseURLParseErrorTemplateConstant, rawBaseURL, parseError)
	}

	timeout := configuration.Timeout
	if timeout <= 0 {
		timeout = defaultTimeoutConstant
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    parsedBaseURL,
		username:   strings.TrimSpace(configuration.Username),
		password:   configuration.Password,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// doRequest performs an authenticated request against a /ws/ resource and returns the body.
func (client *Client) doRequest(requestContext context.Context, method string, resource string, query url.Values, body []byte) ([]byte, error) {
	requestURL := *client.baseURL
	requestURL.Path = client.baseURL.Path + webServicesPathPrefixConstant + strings.TrimLeft(resource, pathSeparatorConstant)
	if len(query) > 0 {
		requestURL.RawQuery = query.Encode()
	}
	target := requestURL.String()

	request, buildError := http.NewRequestWithContext(requestContext, method, target, bytes.NewReader(body))
	if buildError != nil {
		return nil, fmt.Errorf(requestBuildErrorTemplateConstant, method, target, buildError)
	}
	request.SetBasicAuth(client.username, client.password)
	request.Header.Set(acceptHeaderConstant, xmlContentTypeConstant)
	if body != nil {
		request.Header.Set(contentTypeHeaderConstant, xmlContentTypeConstant)
	}

	client.logger.Debug(requestLogMessageConstant, zap.String(methodFieldConstant, method), zap.String(urlFieldConstant, target))

	response, requestError := client.httpClient.Do(request)
	if requestError != nil {
		return nil, fmt.Errorf(requestErrorTemplateConstant, method, target, requestError)
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		return nil, fmt.Errorf(responseReadErrorTemplateConstant, method, target, readError)
	}

	client.logger.Debug(responseLogMessageConstant, zap.String(urlFieldConstant, target), zap.Int(statusFieldConstant, response.StatusCode))

	if response.StatusCode >= http.StatusBadRequest {
		return nil, ResponseError{StatusCode: response.StatusCode, Body: string(responseBody)}
	}
	return responseBody, nil
}
