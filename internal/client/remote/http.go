package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/aowusu/birthsync/internal/common"
)

const (
	requestTimeout = 30 * time.Second

	// Transport-level failures are retried inside a single logical attempt;
	// HTTP status errors are not (they count as the attempt's failure).
	transportRetries = 2
	transportBackoff = 200 * time.Millisecond
)

// HTTPClient implements Service against the registry's HTTP JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	mu   sync.RWMutex
	sess session
}

// NewHTTPClient creates a client for the service at baseURL
// (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	ExpiresIn   int64  `json:"expires_in"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, nil); err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	var resp loginResponse
	req := loginRequest{Username: username, Password: password}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusUnauthorized {
			return common.ErrUnauthorized
		}
		return common.RemoteError("login", err)
	}

	c.mu.Lock()
	c.sess = newSession(resp.AccessToken, resp.UserID, resp.ExpiresIn)
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) Logout() {
	c.mu.Lock()
	c.sess = session{}
	c.mu.Unlock()
}

func (c *HTTPClient) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.valid()
}

func (c *HTTPClient) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.userID
}

func (c *HTTPClient) Create(ctx context.Context, collection string, data json.RawMessage) (*Document, error) {
	var doc Document
	path := fmt.Sprintf("/api/v1/collections/%s/documents", url.PathEscape(collection))
	if err := c.doRequest(ctx, http.MethodPost, path, data, &doc); err != nil {
		return nil, common.RemoteError("create "+collection, err)
	}
	return &doc, nil
}

func (c *HTTPClient) Update(ctx context.Context, collection, documentID string, data json.RawMessage) error {
	path := fmt.Sprintf("/api/v1/collections/%s/documents/%s",
		url.PathEscape(collection), url.PathEscape(documentID))
	if err := c.doRequest(ctx, http.MethodPut, path, data, nil); err != nil {
		return common.RemoteError("update "+collection, err)
	}
	return nil
}

func (c *HTTPClient) Delete(ctx context.Context, collection, documentID string) error {
	path := fmt.Sprintf("/api/v1/collections/%s/documents/%s",
		url.PathEscape(collection), url.PathEscape(documentID))
	err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil // idempotent
		}
		return common.RemoteError("delete "+collection, err)
	}
	return nil
}

func (c *HTTPClient) Get(ctx context.Context, collection, documentID string) (*Document, error) {
	var doc Document
	path := fmt.Sprintf("/api/v1/collections/%s/documents/%s",
		url.PathEscape(collection), url.PathEscape(documentID))
	err := c.doRequest(ctx, http.MethodGet, path, nil, &doc)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, common.ErrNotFound
		}
		return nil, common.RemoteError("get "+collection, err)
	}
	return &doc, nil
}

func (c *HTTPClient) Query(ctx context.Context, collection string, q Query) (*Page, error) {
	values := url.Values{}
	for k, v := range q.Filters {
		values.Set("filter."+k, v)
	}
	if q.OrderBy != "" {
		values.Set("order_by", q.OrderBy)
		values.Set("desc", strconv.FormatBool(q.Descending))
	}
	if q.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Cursor != "" {
		values.Set("cursor", q.Cursor)
	}

	path := fmt.Sprintf("/api/v1/collections/%s/documents", url.PathEscape(collection))
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var page Page
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, common.RemoteError("query "+collection, err)
	}
	return &page, nil
}

// statusError carries a non-2xx HTTP response.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("server error (%d): %s", e.code, e.message)
	}
	return fmt.Sprintf("request failed with status %d", e.code)
}

// doRequest marshals body (unless it is already raw JSON), performs the HTTP
// call with the session token attached, and unmarshals a 2xx response into
// result. Transport failures are retried with a short fibonacci backoff;
// status errors are returned as *statusError.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		switch b := body.(type) {
		case json.RawMessage:
			payload = b
		default:
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
			payload = data
		}
	}

	c.mu.RLock()
	sess := c.sess
	c.mu.RUnlock()
	if sess.token != "" && !sess.valid() {
		return common.ErrTokenExpired
	}
	token := sess.token

	var respBody []byte
	var statusCode int

	backoff := retry.WithMaxRetries(transportRetries, retry.NewFibonacci(transportBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to read response body: %w", err))
		}
		statusCode = resp.StatusCode
		return nil
	})
	if err != nil {
		return err
	}

	if statusCode < 200 || statusCode >= 300 {
		se := &statusError{code: statusCode}
		var errResp errorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil {
			se.message = errResp.Message
		}
		return se
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
