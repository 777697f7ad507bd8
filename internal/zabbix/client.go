package zabbix

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-version"
	"github.com/sirupsen/logrus"
	"github.com/thand-io/zabbix-user/internal/common"
)

const (
	apiPath        = "api_jsonrpc.php"
	DefaultTimeout = 10 * time.Second
)

// Methods that must be called without a session token.
var unauthenticatedMethods = map[string]bool{
	"apiinfo.version": true,
	"user.login":      true,
}

type Options struct {
	// URL of the Zabbix frontend. api_jsonrpc.php is appended unless present.
	URL           string
	Timeout       time.Duration
	ValidateCerts bool

	// Basic auth credentials for a web server in front of the frontend
	HTTPUser     string
	HTTPPassword string
}

// Credentials authenticate against the API itself. Token takes precedence.
type Credentials struct {
	User     string
	Password string
	Token    string
}

// Client talks JSON-RPC 2.0 to a Zabbix frontend.
type Client struct {
	http     *resty.Client
	endpoint string
	basic    bool

	id        uuid.UUID
	requestID atomic.Int64

	token   string
	session bool
	version *version.Version
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
	Auth    string `json:"auth,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *APIError       `json:"error"`
	ID      int64           `json:"id"`
}

func NewClient(opts Options) (*Client, error) {

	if !common.IsValidServerURL(opts.URL) {
		return nil, fmt.Errorf("invalid server URL: %q", opts.URL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", common.GetUserAgent()).
		SetHeader("Accept", "application/json")

	if !opts.ValidateCerts {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	client := &Client{
		http:     httpClient,
		endpoint: buildEndpoint(opts.URL),
		id:       uuid.New(),
	}

	if len(opts.HTTPUser) > 0 {
		httpClient.SetBasicAuth(opts.HTTPUser, opts.HTTPPassword)
		client.basic = true
	}

	logrus.WithFields(logrus.Fields{
		"client":         client.id.String(),
		"endpoint":       client.endpoint,
		"validate_certs": opts.ValidateCerts,
	}).Debug("Created Zabbix API client")

	return client, nil
}

func buildEndpoint(serverURL string) string {
	serverURL = strings.TrimRight(serverURL, "/")
	if strings.HasSuffix(serverURL, ".php") {
		return serverURL
	}
	return serverURL + "/" + apiPath
}

// Connect creates a client and authenticates it with creds.
func Connect(ctx context.Context, opts Options, creds Credentials) (*Client, error) {
	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}

	if len(creds.Token) > 0 {
		client.UseToken(creds.Token)
		return client, nil
	}

	if err := client.Login(ctx, creds.User, creds.Password); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Call invokes method with params and decodes the result into result, which
// may be nil when the caller does not need it.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {

	if params == nil {
		params = []any{}
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.requestID.Add(1),
	}

	builder := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json-rpc")

	if len(c.token) > 0 && !unauthenticatedMethods[method] {
		f, err := c.features(ctx)
		if err != nil {
			return err
		}
		// The Authorization header is taken when basic auth is in use
		if f.UseBearer && !c.basic {
			builder.SetAuthToken(c.token)
		} else {
			req.Auth = c.token
		}
	}

	builder.SetBody(req)

	logger := logrus.WithFields(logrus.Fields{
		"client":     c.id.String(),
		"method":     method,
		"request_id": req.ID,
	})
	logger.Debug("Calling Zabbix API")

	resp, err := builder.Post(c.endpoint)
	if err != nil {
		logger.WithError(err).Debug("Zabbix API request failed")
		return fmt.Errorf("%s request failed: %w", method, err)
	}

	if resp.IsError() {
		return &HTTPError{
			StatusCode: resp.StatusCode(),
			URL:        c.endpoint,
			Body:       strings.TrimSpace(string(resp.Body())),
		}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(resp.Body(), &rpcResp); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", method, err)
	}

	if rpcResp.Error != nil {
		logger.WithError(rpcResp.Error).Debug("Zabbix API returned an error")
		return rpcResp.Error
	}

	if rpcResp.ID != req.ID {
		logger.WithField("response_id", rpcResp.ID).Warn("Zabbix API response id does not match the request")
	}

	if result == nil || len(rpcResp.Result) == 0 {
		return nil
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}

	return nil
}
