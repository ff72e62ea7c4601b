// Package imagehost forwards profile images to an external image hosting API
// and returns the hosted URL.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"ems/internal/platform/metrics"
)

var (
	ErrNotConfigured = errors.New("image host is not configured")
	ErrNotImage      = errors.New("file is not a supported image")
	ErrTooLarge      = errors.New("image exceeds the size limit")
	ErrUpload        = errors.New("image host rejected the upload")
)

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

type Client struct {
	endpoint string
	apiKey   string
	maxBytes int64
	http     *http.Client
	metrics  *metrics.Collector
	log      *zap.Logger
}

func New(endpoint, apiKey string, maxBytes int64, m *metrics.Collector, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		maxBytes: maxBytes,
		http:     &http.Client{Timeout: 30 * time.Second},
		metrics:  m,
		log:      log,
	}
}

func (c *Client) MaxBytes() int64 {
	return c.maxBytes
}

type hostResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload checks the file is an image within the size limit and posts it as
// the multipart field "image".
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	hosted, err := c.upload(ctx, filename, data)
	status := "ok"
	switch {
	case errors.Is(err, ErrNotImage), errors.Is(err, ErrTooLarge):
		status = "rejected"
	case err != nil:
		status = "failed"
	}
	c.metrics.ImageUpload(status)
	return hosted, err
}

func (c *Client) upload(ctx context.Context, filename string, data []byte) (string, error) {
	if c.endpoint == "" || c.apiKey == "" {
		return "", ErrNotConfigured
	}
	if int64(len(data)) > c.maxBytes {
		return "", ErrTooLarge
	}
	if len(data) == 0 {
		return "", ErrNotImage
	}
	mtype := mimetype.Detect(data)
	if _, ok := allowedTypes[mtype.String()]; !ok {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	name := sanitizeName(filename, mtype.Extension())
	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	target, err := c.requestURL()
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		// *url.Error quotes the request URL, which carries the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("post image to %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read image host response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("image host error", zap.Int("status", resp.StatusCode), zap.ByteString("body", truncate(raw, 256)))
		return "", fmt.Errorf("%w: status %d", ErrUpload, resp.StatusCode)
	}

	var parsed hostResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: unreadable response", ErrUpload)
	}
	if !parsed.Success || parsed.Data.URL == "" {
		msg := "success=false"
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("%w: %s", ErrUpload, msg)
	}
	return parsed.Data.URL, nil
}

func (c *Client) requestURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse IMAGE_HOST_URL: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sanitizeName(filename, ext string) string {
	name := filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		name = "upload" + ext
	}
	return name
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
