package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/docchat/internal/adapters/driven/device"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.IndexingService = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout   = 120 * time.Second
	DefaultRateLimit = 5.0
	DefaultBurst     = 5

	// maxErrorBody caps how much of an error reply is kept for messages.
	maxErrorBody = 4 << 10
)

// Config holds configuration for the indexing service client.
type Config struct {
	// BaseURL is the service root (required).
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds each HTTP exchange (default: 120s).
	Timeout time.Duration

	// RateLimit and Burst size the token bucket (default: 5/s, burst 5).
	RateLimit float64
	Burst     int

	// Transport overrides the base round tripper. Used by tests.
	Transport http.RoundTripper
}

// Client talks to the remote indexing service over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *limiter
}

// descriptor is the JSON form of a URL or webpage item.
type descriptor struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// manifestEntry places one item in submission order. Device items name
// their position among the "files" parts, remote items their URL.
type manifestEntry struct {
	TempID string `json:"tempId"`
	Kind   string `json:"kind"`
	Part   string `json:"part,omitempty"`
	URL    string `json:"url,omitempty"`
}

// errorReply is the service's error body.
type errorReply struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("indexer: base URL is required: %w", domain.ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("indexer: base URL %q: %w", cfg.BaseURL, domain.ErrInvalidInput)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: cfg.Token,
				TokenType:   "Bearer",
			}),
			Base: transport,
		}
	}

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: newLimiter(cfg.RateLimit, cfg.Burst),
	}, nil
}

// UploadBatch submits every item of a batch in one multipart request.
func (c *Client) UploadBatch(ctx context.Context, req driven.UploadRequest) (*driven.UploadResponse, error) {
	body, contentType, err := encodeUpload(req)
	if err != nil {
		return nil, err
	}

	var out driven.UploadResponse
	if err := c.do(ctx, http.MethodPost, "/upload", contentType, body, &out); err != nil {
		return nil, err
	}
	logger.Debug("indexer: upload processed %d file(s), %d descriptor(s) returned",
		out.FilesProcessed, len(out.Files))
	return &out, nil
}

// DeleteFile removes one indexed file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return domain.ErrInvalidInput
	}
	return c.do(ctx, http.MethodDelete, "/file/"+url.PathEscape(fileID), "", nil, nil)
}

// DeleteWorkspace removes a workspace and its files.
func (c *Client) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	if workspaceID == "" {
		return domain.ErrInvalidInput
	}
	return c.do(ctx, http.MethodDelete, "/workspace/"+url.PathEscape(workspaceID), "", nil, nil)
}

// Query answers a question over indexed content.
func (c *Client) Query(ctx context.Context, req driven.QueryRequest) (*driven.QueryAnswer, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out driven.QueryAnswer
	if err := c.do(ctx, http.MethodPost, "/query", "application/json", bytes.NewReader(raw), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and decodes a 2xx reply into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRemoteUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrRemoteUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", domain.ErrRemoteUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.limiter.Backoff(retryAfter(resp.Header.Get("Retry-After")))
		}
		return statusError(method, path, resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: %s %s: empty body", domain.ErrProtocol, method, path)
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s %s: decode response: %w", domain.ErrProtocol, method, path, err)
	}
	return nil
}

// statusError maps a non-2xx reply to a domain sentinel.
func statusError(method, path string, status int, body []byte) error {
	var sentinel error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = domain.ErrUnauthorized
	case status == http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case status == http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimited
	case status >= 500:
		sentinel = domain.ErrRemoteUnavailable
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		sentinel = domain.ErrUploadRejected
	default:
		sentinel = domain.ErrProtocol
	}
	return fmt.Errorf("%w: %s %s: status %d%s", sentinel, method, path, status, replyMessage(body))
}

func replyMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var reply errorReply
	if err := json.Unmarshal(body, &reply); err == nil {
		if reply.Message != "" {
			return ": " + reply.Message
		}
		if reply.Error != "" {
			return ": " + reply.Error
		}
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return ": " + strings.TrimSpace(string(body))
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

// encodeUpload builds the multipart body of a batch upload.
func encodeUpload(req driven.UploadRequest) (io.Reader, string, error) {
	if len(req.Items) == 0 {
		return nil, "", fmt.Errorf("indexer: empty batch: %w", domain.ErrInvalidInput)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("workspaceId", req.WorkspaceID); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("userId", req.UserID); err != nil {
		return nil, "", err
	}

	descriptors := []descriptor{}
	manifest := make([]manifestEntry, 0, len(req.Items))
	devices := 0
	for _, item := range req.Items {
		entry := manifestEntry{TempID: item.TempID, Kind: item.Source.String()}
		if item.Source == domain.FileSourceDevice {
			entry.Part = fmt.Sprintf("files[%d]", devices)
			devices++
			if err := writeFilePart(mw, item); err != nil {
				return nil, "", err
			}
		} else {
			entry.URL = item.URL
			descriptors = append(descriptors, descriptor{URL: item.URL, Kind: item.Source.String()})
		}
		manifest = append(manifest, entry)
	}

	if err := writeJSONField(mw, "urls", descriptors); err != nil {
		return nil, "", err
	}
	if err := writeJSONField(mw, "manifest", manifest); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func writeFilePart(mw *multipart.Writer, item driven.UploadItem) error {
	path := device.LocalPath(item.LocalURI)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("indexer: open %s: %w", item.LocalURI, err)
	}
	defer f.Close()

	name := item.Name
	if name == "" {
		name = filepath.Base(path)
	}
	mimeType := item.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
	h.Set("Content-Type", mimeType)
	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("indexer: read %s: %w", item.LocalURI, err)
	}
	return nil
}

func writeJSONField(mw *multipart.Writer, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return mw.WriteField(name, string(raw))
}
