package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/offlinehq/tidesync/internal/client/models"
	"github.com/offlinehq/tidesync/internal/client/session"
	"github.com/offlinehq/tidesync/internal/common"
)

// HTTPClient talks JSON over HTTP to the central store. Every authenticated
// call carries the session's bearer token; an expired-token response is
// retried once after a refresh, so callers never see a transient 401 for a
// merely stale token.
type HTTPClient struct {
	baseURL string
	session *session.Session
	client  *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, sess *session.Session) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		session: sess,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/auth/register",
		credentialsRequest{Username: username, Password: password}, nil, false)
}

// Login authenticates and installs the issued token pair into the session.
func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	var resp tokenPairResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login",
		credentialsRequest{Username: username, Password: password}, &resp, false)
	if err != nil {
		return err
	}
	return c.session.SetTokens(resp.AccessToken, resp.RefreshToken)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.doJSON(ctx, http.MethodGet, "/api/v1/ping", nil, nil, false)
}

func (c *HTTPClient) Upsert(ctx context.Context, table string, rec models.Record) error {
	path := fmt.Sprintf("/api/v1/tables/%s/records/%s", url.PathEscape(table), url.PathEscape(rec.ID))
	return c.doJSON(ctx, http.MethodPut, path, rec, nil, true)
}

func (c *HTTPClient) SelectUpdatedSince(ctx context.Context, table string, since time.Time) ([]models.Record, error) {
	path := fmt.Sprintf("/api/v1/tables/%s/records", url.PathEscape(table))
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}

	var resp deltaResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *HTTPClient) Search(ctx context.Context, table, text string) ([]models.Record, error) {
	path := fmt.Sprintf("/api/v1/tables/%s/records?q=%s", url.PathEscape(table), url.QueryEscape(text))

	var resp deltaResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *HTTPClient) PresignPut(ctx context.Context) (string, string, error) {
	var resp presignPutResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/attachments/presign-put", nil, &resp, true); err != nil {
		return "", "", err
	}
	return resp.Key, resp.URL, nil
}

func (c *HTTPClient) PresignGet(ctx context.Context, key string) (string, error) {
	var resp presignGetResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/attachments/presign-get",
		presignGetRequest{Key: key}, &resp, true); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// refresh exchanges the refresh token for a fresh pair.
func (c *HTTPClient) refresh(ctx context.Context) error {
	rt := c.session.RefreshToken()
	if rt == "" {
		return ErrUnauthorized
	}

	var resp tokenPairResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/refresh",
		refreshRequest{RefreshToken: rt}, &resp, false); err != nil {
		return err
	}
	return c.session.SetTokens(resp.AccessToken, resp.RefreshToken)
}

// doJSON performs one request. When authed, the access token is attached
// and an expired-token 401 triggers a single refresh-and-retry.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any, authed bool) error {
	body, status, err := c.roundTrip(ctx, method, path, in, authed)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && authed {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error == common.TokenExpiredMessage {
			if err := c.refresh(ctx); err != nil {
				return err
			}
			body, status, err = c.roundTrip(ctx, method, path, in, authed)
			if err != nil {
				return err
			}
		}
	}

	if err := mapStatus(status, body); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, in any, authed bool) ([]byte, int, error) {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+c.session.AccessToken())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Network-level failures all funnel into the retry-next-cycle path.
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, resp.StatusCode, nil
}

func mapStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	default:
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%w: %s", ErrRejected, e.Error)
		}
		return fmt.Errorf("%w: status %d", ErrRejected, status)
	}
}
