package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"modpack-launcher/model"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api request failed: status %d, body: %s", e.Code, e.Body)
}

// IsAuthFailure reports whether err is a 401/403 response.
func IsAuthFailure(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
	}
	return false
}

// Requester performs JSON and binary requests against one catalog.
type Requester struct {
	BaseURL         string
	UserAgent       string
	Headers         map[string]string
	HTTPClient      *http.Client
	Timeout         time.Duration // applied to JSON calls
	DownloadTimeout time.Duration // applied until a download stream is closed
}

func (r *Requester) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

func (r *Requester) newRequest(ctx context.Context, fullURL string, query url.Values, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", accept)
	return req, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	// Try to read body for more error info, but don't fail if it's unreadable
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return &StatusError{Code: resp.StatusCode, Body: string(body)}
}

// GetJSON requests BaseURL+path and decodes the response into target.
func (r *Requester) GetJSON(ctx context.Context, path string, query url.Values, target any) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	req, err := r.newRequest(ctx, r.BaseURL+path, query, "application/json")
	if err != nil {
		return err
	}
	resp, err := r.client().Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode json response: %w", err)
	}
	return nil
}

// Download opens a binary stream from an absolute URL. The returned body must be
// closed; the download deadline is released with it.
func (r *Requester) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	cancel := context.CancelFunc(func() {})
	if r.DownloadTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.DownloadTimeout)
	}
	req, err := r.newRequest(ctx, rawURL, nil, "application/octet-stream")
	if err != nil {
		cancel()
		return nil, model.NewTransportError("invalid download url", err)
	}
	resp, err := r.client().Do(req)
	if err != nil {
		cancel()
		return nil, model.NewTransportError("download failed", err)
	}
	if err := checkStatus(resp); err != nil {
		cancel()
		return nil, model.NewTransportError("download failed", err)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// Absorb applies the listing failure policy: credential faults surface as
// InvalidCatalogCredential, everything else is logged and turned into "no results".
func Absorb(log *zap.SugaredLogger, source model.Source, op string, err error) error {
	if err == nil {
		return nil
	}
	if IsAuthFailure(err) {
		return model.NewInvalidCatalogCredentialError(source, err)
	}
	if model.Is(err, model.InvalidCatalogCredential) {
		return err
	}
	log.Warnw("Catalog request failed, treating as empty result",
		zap.String("source", string(source)),
		zap.String("operation", op),
		zap.Error(err),
	)
	return nil
}
