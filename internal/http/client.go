package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// RequestError reports a non-success response from a named endpoint.
// The raw body is preserved for diagnostics; requests are never retried.
type RequestError struct {
	// Endpoint is the human-readable name of the endpoint that failed.
	Endpoint string

	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Body is the raw response body.
	Body string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed with status code %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a RequestError with the given status code.
func IsStatus(err error, code int) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == code
}

// Client wraps HTTP operations with service-specific configuration.
//
// A single Client carries the base headers and cookies every request
// needs (browser identification, bearer tokens once authenticated) and
// converts non-2xx responses into *RequestError values.
type Client struct {
	httpClient *http.Client
	header     http.Header
	cookies    map[string]string
}

// NewClient creates a client with a 60 second timeout and no base headers.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		header:  http.Header{},
		cookies: map[string]string{},
	}
}

// SetHeader sets a base header applied to every subsequent request.
func (c *Client) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// Header returns the base header value set for key, if any.
func (c *Client) Header(key string) string {
	return c.header.Get(key)
}

// SetCookie attaches a cookie to every subsequent request.
func (c *Client) SetCookie(name, value string) {
	c.cookies[name] = value
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, query url.Values, body io.Reader) (*http.Request, error) {
	if query != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req, nil
}

// Do issues a request and returns the response body. Non-2xx statuses
// become a *RequestError named after endpoint. Extra headers override the
// client's base headers for this request only.
func (c *Client) Do(ctx context.Context, endpoint, method, rawURL string, query url.Values, body io.Reader, extra http.Header) ([]byte, error) {
	req, err := c.newRequest(ctx, method, rawURL, query, body)
	if err != nil {
		return nil, err
	}
	for key, values := range extra {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, endpoint, rawURL string, query url.Values, out any) error {
	data, err := c.Do(ctx, endpoint, http.MethodGet, rawURL, query, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RequestError{Endpoint: endpoint, StatusCode: http.StatusOK, Body: string(data)}
	}
	return nil
}

// PostJSON performs a POST request with a JSON payload. When out is
// non-nil the JSON response is decoded into it.
func (c *Client) PostJSON(ctx context.Context, endpoint, rawURL string, query url.Values, payload, out any, extra http.Header) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if extra == nil {
		extra = http.Header{}
	}
	if extra.Get("Content-Type") == "" {
		extra.Set("Content-Type", "application/json")
	}
	data, err := c.Do(ctx, endpoint, http.MethodPost, rawURL, query, bytes.NewReader(body), extra)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RequestError{Endpoint: endpoint, StatusCode: http.StatusOK, Body: string(data)}
	}
	return nil
}

// PostForm performs a POST request with URL-encoded form values and
// decodes the JSON response into out.
func (c *Client) PostForm(ctx context.Context, endpoint, rawURL string, form url.Values, out any, extra http.Header) error {
	if extra == nil {
		extra = http.Header{}
	}
	extra.Set("Content-Type", "application/x-www-form-urlencoded")
	data, err := c.Do(ctx, endpoint, http.MethodPost, rawURL, nil, bytes.NewReader([]byte(form.Encode())), extra)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RequestError{Endpoint: endpoint, StatusCode: http.StatusOK, Body: string(data)}
	}
	return nil
}

// PostRaw performs a POST request with an opaque binary body and returns
// the raw response bytes. License exchanges use this.
func (c *Client) PostRaw(ctx context.Context, endpoint, rawURL string, body []byte) ([]byte, error) {
	return c.Do(ctx, endpoint, http.MethodPost, rawURL, nil, bytes.NewReader(body), nil)
}

// GetPage performs a GET request following redirects and returns the final
// URL alongside the body. The device pairing flow needs the final URL to
// recover query parameters added during redirection.
func (c *Client) GetPage(ctx context.Context, endpoint, rawURL string) (string, []byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return resp.Request.URL.String(), data, nil
}

// ProgressWriter wraps a writer to track download progress.
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// DownloadFile streams a URL to the given path, creating parent
// directories as needed. onProgress may be nil.
func (c *Client) DownloadFile(ctx context.Context, rawURL, destPath string, onProgress func(written, total int64)) error {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return &RequestError{Endpoint: "download", StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer file.Close()

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	_, err = io.Copy(writer, resp.Body)
	return err
}
