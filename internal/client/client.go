// Package client talks to a running daemon's control API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/bokehpreview/internal/api"
	"github.com/user/bokehpreview/internal/extension"
)

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return e.Message
}

// IsStatus reports whether err is an API error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Preview sends the document and runs the preview command.
func (c *Client) Preview(ctx context.Context, ed extension.Editor) (*api.StatusResponse, error) {
	var st api.StatusResponse
	if err := c.do(ctx, http.MethodPost, "/api/preview", ed, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) SetEditor(ctx context.Context, ed extension.Editor) error {
	return c.do(ctx, http.MethodPut, "/api/editor", ed, nil)
}

func (c *Client) ClearEditor(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/editor", nil, nil)
}

func (c *Client) Commands(ctx context.Context) ([]string, error) {
	var resp struct {
		Commands []string `json:"commands"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/commands", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Commands, nil
}

func (c *Client) Execute(ctx context.Context, command string) (*api.StatusResponse, error) {
	var st api.StatusResponse
	if err := c.do(ctx, http.MethodPost, "/api/commands/"+url.PathEscape(command), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var st api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Output returns the log surface. plain strips terminal escapes.
func (c *Client) Output(ctx context.Context, plain bool) (string, error) {
	path := "/api/output"
	if plain {
		path += "?plain=1"
	}
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read output: %w", err)
	}
	return string(data), nil
}

func (c *Client) ClosePanel(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/panel", nil, nil)
}

// PanelURL returns the browser URL for a panel, token included.
func (c *Client) PanelURL(panelURL string) string {
	if panelURL == "" {
		return ""
	}
	return panelURL + "?token=" + url.QueryEscape(c.token)
}

func (c *Client) do(ctx context.Context, method, path string, payload, dst any) error {
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *Error.
func (c *Client) send(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &Error{StatusCode: resp.StatusCode}
	var eb struct {
		Error string `json:"error"`
	}
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Message = eb.Error
		}
	}
	return nil, apiErr
}
