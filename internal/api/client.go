// Package api uploads finished battle logs to a results server.
package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mechcore/firecontrol/pkg/core"
)

const (
	HealthPath = "/healthcheck"
	UploadPath = "/api/v1/battles/add"
)

// StatusError is a non-200 answer from the results server.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: results server answered %d %s", e.Op, e.Code, http.StatusText(e.Code))
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Healthcheck returns nil when the server answers 200.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	return c.do(req, "healthcheck")
}

// Upload posts the battle log at path with its metadata as a multipart
// form. The file is streamed, not buffered.
func (c *Client) Upload(ctx context.Context, path string, meta core.UploadMetadata) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(c.writeForm(form, f, filepath.Base(path), meta))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("upload: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	err = c.do(req, "upload")
	pr.Close()
	return err
}

func (c *Client) writeForm(form *multipart.Writer, file io.Reader, name string, meta core.UploadMetadata) error {
	fields := [][2]string{
		{"secret", c.apiKey},
		{"filename", name},
		{"sessionName", meta.SessionName},
		{"duration", strconv.FormatFloat(meta.Duration, 'f', 1, 64)},
		{"attacks", strconv.Itoa(meta.Attacks)},
		{"tag", meta.Tag},
	}
	for _, kv := range fields {
		if err := form.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy battle log: %w", err)
	}
	return form.Close()
}

func (c *Client) do(req *http.Request, op string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: op, Code: resp.StatusCode}
	}
	return nil
}
