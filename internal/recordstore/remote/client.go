// Package remote implements the record store contract as an HTTP client for a
// TaskFlow server.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"taskflow/internal/recordstore"
)

const (
	defaultTimeout  = 15 * time.Second
	tokenLifetime   = 5 * time.Minute
	maxResponseSize = 8 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	ProjectID string
	// PublicKey signs the bearer token. Empty sends no Authorization header.
	PublicKey  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to a record store server.
type Client struct {
	baseURL   string
	projectID string
	key       []byte
	http      *http.Client
	now       func() time.Time
}

var _ recordstore.Client = (*Client)(nil)

// StatusError is a non-2xx response without a JSON body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// New validates opts and creates a Client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("store url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", base, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:   base,
		projectID: opts.ProjectID,
		key:       []byte(opts.PublicKey),
		http:      httpClient,
		now:       time.Now,
	}, nil
}

func recordsPath(kind recordstore.Kind) string {
	return "/api/records/" + url.PathEscape(string(kind))
}

func (c *Client) FetchRecords(ctx context.Context, kind recordstore.Kind, params recordstore.FetchParams) (*recordstore.FetchResponse, error) {
	var out recordstore.FetchResponse
	if err := c.do(ctx, http.MethodPost, recordsPath(kind)+"/fetch", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRecordByID(ctx context.Context, kind recordstore.Kind, id int64, params recordstore.GetParams) (*recordstore.GetResponse, error) {
	path := recordsPath(kind) + "/" + strconv.FormatInt(id, 10)
	if len(params.Fields) > 0 {
		path += "?fields=" + url.QueryEscape(strings.Join(params.Fields, ","))
	}
	var out recordstore.GetResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRecord(ctx context.Context, kind recordstore.Kind, params recordstore.CreateParams) (*recordstore.MutationResponse, error) {
	var out recordstore.MutationResponse
	if err := c.do(ctx, http.MethodPost, recordsPath(kind), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRecord(ctx context.Context, kind recordstore.Kind, params recordstore.UpdateParams) (*recordstore.MutationResponse, error) {
	var out recordstore.MutationResponse
	if err := c.do(ctx, http.MethodPut, recordsPath(kind), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRecord(ctx context.Context, kind recordstore.Kind, params recordstore.DeleteParams) (*recordstore.MutationResponse, error) {
	var out recordstore.MutationResponse
	if err := c.do(ctx, http.MethodDelete, recordsPath(kind), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends body as JSON and decodes the reply into out. JSON error bodies
// decode normally so the caller sees success=false; anything else that is
// not 2xx becomes a StatusError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(c.key) > 0 {
		token, err := c.token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) token() (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"projectId": c.projectID,
		"iat":       now.Unix(),
		"exp":       now.Add(tokenLifetime).Unix(),
	})
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
