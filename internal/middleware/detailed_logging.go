package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ab2005/whatsapp-mcp/internal/httputil"
	"github.com/ab2005/whatsapp-mcp/internal/privacy"
	"github.com/ab2005/whatsapp-mcp/internal/service"
	"github.com/ab2005/whatsapp-mcp/internal/tracing"

	"github.com/sirupsen/logrus"
)

// DetailedLoggingConfig controls what the debug logging middleware
// records. Bodies are off by default: message text and recipients are
// the most sensitive data flowing through this API.
type DetailedLoggingConfig struct {
	LogRequestHeaders  bool     `json:"log_request_headers"`
	LogResponseHeaders bool     `json:"log_response_headers"`
	LogRequestBody     bool     `json:"log_request_body"`
	LogResponseBody    bool     `json:"log_response_body"`
	MaxBodySize        int      `json:"max_body_size"`
	SensitiveHeaders   []string `json:"sensitive_headers"`
	SkipEndpoints      []string `json:"skip_endpoints"`
}

// DefaultDetailedLoggingConfig returns sensible defaults
func DefaultDetailedLoggingConfig() DetailedLoggingConfig {
	return DetailedLoggingConfig{
		LogRequestHeaders: true,
		MaxBodySize:       1024,
		SensitiveHeaders: []string{
			"authorization", "x-api-key",
			"cookie", "set-cookie", "x-auth-token",
		},
		SkipEndpoints: []string{"/metrics", "/health"},
	}
}

// DetailedLoggingMiddleware records request and response detail at debug
// level. Enabled only in verbose mode; high-churn operational endpoints
// are skipped.
func DetailedLoggingMiddleware(logger *logrus.Logger, config DetailedLoggingConfig) func(http.Handler) http.Handler {
	masked := make(map[string]bool, len(config.SensitiveHeaders))
	for _, name := range config.SensitiveHeaders {
		masked[strings.ToLower(name)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range config.SkipEndpoints {
				if strings.Contains(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			requestInfo := tracing.GetRequestInfo(r.Context())
			logRequestDetail(logger, r, requestInfo, config, masked)

			var capture *bodyCapture
			writer := w
			if config.LogResponseBody || config.LogResponseHeaders {
				capture = &bodyCapture{ResponseWriter: w, body: &bytes.Buffer{}, headers: make(http.Header)}
				writer = capture
			}

			next.ServeHTTP(writer, r)

			if capture != nil {
				logResponseDetail(logger, capture, requestInfo, config, masked)
			}
		})
	}
}

func logRequestDetail(logger *logrus.Logger, r *http.Request, requestInfo *tracing.RequestInfo, config DetailedLoggingConfig, masked map[string]bool) {
	fields := logrus.Fields{
		service.LogFieldRequestID: requestInfo.RequestID,
		service.LogFieldTraceID:   requestInfo.TraceID,
		service.LogFieldMethod:    r.Method,
		service.LogFieldURL:       r.URL.String(),
		service.LogFieldRemoteIP:  httputil.GetClientIP(r),
		"content_length":          r.ContentLength,
		"protocol":                r.Proto,
	}

	if config.LogRequestHeaders {
		fields["request_headers"] = collectHeaders(r.Header, masked)
	}

	if config.LogRequestBody && isTextContent(r.Header.Get("Content-Type")) &&
		r.ContentLength > 0 && r.ContentLength <= int64(config.MaxBodySize) {
		if body, err := io.ReadAll(r.Body); err == nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			redacted := privacy.MaskSensitiveFields(map[string]interface{}{"body": string(body)})
			fields["request_body"] = redacted["body"]
		}
	}

	logger.WithFields(fields).Debug("API request detail")
}

func logResponseDetail(logger *logrus.Logger, capture *bodyCapture, requestInfo *tracing.RequestInfo, config DetailedLoggingConfig, masked map[string]bool) {
	fields := logrus.Fields{
		service.LogFieldRequestID: requestInfo.RequestID,
		service.LogFieldTraceID:   requestInfo.TraceID,
		"status_code":             capture.statusCode,
		"response_size":           capture.body.Len(),
	}

	if config.LogResponseHeaders {
		fields["response_headers"] = collectHeaders(capture.headers, masked)
	}

	if config.LogResponseBody && capture.body.Len() > 0 {
		if capture.body.Len() <= config.MaxBodySize {
			redacted := privacy.MaskSensitiveFields(map[string]interface{}{"body": capture.body.String()})
			fields["response_body"] = redacted["body"]
		} else {
			fields["response_body"] = fmt.Sprintf("***TRUNCATED*** (size: %d bytes)", capture.body.Len())
		}
	}

	logger.WithFields(fields).Debug("API response detail")
}

func collectHeaders(src http.Header, masked map[string]bool) map[string]string {
	out := make(map[string]string, len(src))
	for name, values := range src {
		if masked[strings.ToLower(name)] {
			out[name] = "***MASKED***"
		} else {
			out[name] = strings.Join(values, ", ")
		}
	}
	return out
}

// isTextContent limits body logging to content types that are safe to
// render in a log line.
func isTextContent(contentType string) bool {
	for _, textType := range []string{
		"application/json",
		"application/xml",
		"text/",
		"application/x-www-form-urlencoded",
	} {
		if strings.Contains(contentType, textType) {
			return true
		}
	}
	return false
}

// bodyCapture buffers the response so it can be logged after the
// handler runs.
type bodyCapture struct {
	http.ResponseWriter
	body       *bytes.Buffer
	headers    http.Header
	statusCode int
}

func (bc *bodyCapture) Write(data []byte) (int, error) {
	n, err := bc.ResponseWriter.Write(data)
	if err == nil {
		bc.body.Write(data[:n])
	}
	return n, err
}

func (bc *bodyCapture) WriteHeader(statusCode int) {
	bc.statusCode = statusCode
	for name, values := range bc.ResponseWriter.Header() {
		bc.headers[name] = values
	}
	bc.ResponseWriter.WriteHeader(statusCode)
}
