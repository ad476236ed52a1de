package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ab2005/whatsapp-mcp/internal/constants"
	"github.com/ab2005/whatsapp-mcp/internal/errors"
	"github.com/ab2005/whatsapp-mcp/internal/metrics"
	"github.com/ab2005/whatsapp-mcp/internal/validation"

	"github.com/sirupsen/logrus"
)

const userAgent = "whatsapp-mcp-client/1.0"

// Client is the façade over the external bridge's REST API. Send
// operations report a uniform (success, detail) outcome; download
// reports the local file path or absence. No operation retries and
// none of them panic or raise for HTTP-level failures.
type Client interface {
	SendMessage(ctx context.Context, recipient, message string) (bool, string)
	SendFile(ctx context.Context, recipient, filePath string) (bool, string)
	DownloadMedia(ctx context.Context, messageID, chatJID string) (string, bool)
	HealthCheck(ctx context.Context) bool
	Close()
}

type client struct {
	baseURL          string
	httpClient       *http.Client
	logger           *logrus.Logger
	maxMessageLength int
	maxFileSize      int64
	allowedFileTypes []string
}

// Option customizes the client beyond the required construction
// parameters.
type Option func(*client)

// WithHTTPClient substitutes the underlying HTTP client; mostly for
// tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithSendPolicy sets the outbound message and file limits enforced
// before any network call.
func WithSendPolicy(maxMessageLength int, maxFileSize int64, allowedFileTypes []string) Option {
	return func(c *client) {
		c.maxMessageLength = maxMessageLength
		c.maxFileSize = maxFileSize
		c.allowedFileTypes = allowedFileTypes
	}
}

// NewClient constructs a bridge client. One pooled HTTP client backs
// every call for the process lifetime; Close releases it.
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger, opts ...Option) Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	if timeout <= 0 {
		timeout = constants.DefaultBridgeTimeoutSec * time.Second
	}

	c := &client{
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		httpClient:       &http.Client{Timeout: timeout},
		logger:           logger,
		maxMessageLength: constants.DefaultMaxMessageLength,
		maxFileSize:      constants.DefaultMaxFileSizeBytes,
		allowedFileTypes: strings.Split(constants.DefaultAllowedFileTypes, ","),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SendMessage posts a text message. All failure sources collapse into
// (false, detail); callers distinguish them by detail text only.
func (c *client) SendMessage(ctx context.Context, recipient, message string) (bool, string) {
	if err := validation.ValidateRecipient(recipient); err != nil {
		return false, errors.GetUserMessage(err)
	}
	if err := validation.ValidateMessageContent(message, c.maxMessageLength); err != nil {
		return false, errors.GetUserMessage(err)
	}

	body, err := json.Marshal(sendRequest{Recipient: recipient, Message: message})
	if err != nil {
		return false, fmt.Sprintf("Unexpected error: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Sprintf("Unexpected error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return c.doSend(req, "send_message")
}

// SendFile validates and resolves the file, then posts it as a
// multipart form. A file that disappears between validation and open
// is its own failure detail.
func (c *client) SendFile(ctx context.Context, recipient, filePath string) (bool, string) {
	if err := validation.ValidateRecipient(recipient); err != nil {
		return false, errors.GetUserMessage(err)
	}

	resolvedPath, err := validation.ValidateFilePath(filePath, c.maxFileSize, c.allowedFileTypes)
	if err != nil {
		return false, errors.GetUserMessage(err)
	}

	file, err := os.Open(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("File not found: %s", filePath)
		}
		return false, fmt.Sprintf("Unexpected error: %v", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			c.logger.WithError(closeErr).Warn("Failed to close outbound file")
		}
	}()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("recipient", recipient); err != nil {
		return false, fmt.Sprintf("Unexpected error: %v", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(resolvedPath))
	if err != nil {
		return false, fmt.Sprintf("Unexpected error: %v", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return false, fmt.Sprintf("Unexpected error: %v", err)
	}
	if err := writer.Close(); err != nil {
		return false, fmt.Sprintf("Unexpected error: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", &buf)
	if err != nil {
		return false, fmt.Sprintf("Unexpected error: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	return c.doSend(req, "send_file")
}

// doSend executes a send request and maps every failure mode into the
// uniform (success, detail) shape.
func (c *client) doSend(req *http.Request, operation string) (bool, string) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordTimer("bridge_request_duration", time.Since(start),
		map[string]string{"operation": operation}, "Bridge API request duration")

	if err != nil {
		metrics.IncrementCounter("bridge_errors_total",
			map[string]string{"operation": operation, "kind": "network"}, "Bridge API failures")
		c.logger.WithError(err).WithField("operation", operation).Error("Bridge request failed")
		return false, fmt.Sprintf("Network error: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Sprintf("Unexpected error: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncrementCounter("bridge_errors_total",
			map[string]string{"operation": operation, "kind": "http"}, "Bridge API failures")
		c.logger.WithFields(logrus.Fields{
			"operation":   operation,
			"status_code": resp.StatusCode,
		}).Warn("Bridge rejected request")

		// A JSON error body still carries the application's reason.
		var apiResp apiResponse
		if json.Unmarshal(bodyBytes, &apiResp) == nil && apiResp.Message != "" {
			return false, apiResp.Message
		}
		return false, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return false, fmt.Sprintf("Unexpected error: invalid bridge response: %v", err)
	}

	detail := apiResp.Message
	if detail == "" && !apiResp.Success {
		detail = "Unknown error"
	}
	return apiResp.Success, detail
}

// DownloadMedia asks the bridge to fetch a message's media to local
// storage. Callers only learn success or absence; the cause goes to
// the log.
func (c *client) DownloadMedia(ctx context.Context, messageID, chatJID string) (string, bool) {
	if messageID == "" || chatJID == "" {
		c.logger.Error("Message ID and chat JID are required for media download")
		return "", false
	}

	body, err := json.Marshal(downloadRequest{MessageID: messageID, ChatJID: chatJID})
	if err != nil {
		c.logger.WithError(err).Error("Failed to encode download request")
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/download", bytes.NewReader(body))
	if err != nil {
		c.logger.WithError(err).Error("Failed to create download request")
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordTimer("bridge_request_duration", time.Since(start),
		map[string]string{"operation": "download_media"}, "Bridge API request duration")
	if err != nil {
		c.logger.WithError(err).Error("Failed to download media")
		return "", false
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.WithError(err).Error("Failed to read download response")
		return "", false
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(bodyBytes),
		}).Error("Download HTTP error")
		return "", false
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		c.logger.WithError(err).Error("Failed to decode download response")
		return "", false
	}

	if !apiResp.Success {
		c.logger.WithField("detail", apiResp.Message).Error("Download rejected by bridge")
		return "", false
	}

	return apiResp.FilePath, true
}

// HealthCheck probes the bridge's liveness endpoint. Best effort: it
// swallows every failure and just answers false.
func (c *client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	metrics.SetGauge("bridge_health_latency_ms", float64(time.Since(start).Milliseconds()),
		nil, "Latency of the last bridge health probe")

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// Close releases idle connections held by the pooled HTTP client.
func (c *client) Close() {
	c.httpClient.CloseIdleConnections()
}
