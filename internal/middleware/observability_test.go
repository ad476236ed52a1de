package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ab2005/whatsapp-mcp/internal/metrics"
	"github.com/ab2005/whatsapp-mcp/internal/tracing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaptureLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)
	return logger, &buf
}

func counterRecorded(t *testing.T, name string) bool {
	t.Helper()
	for key := range metrics.GetAllMetrics().Counters {
		if strings.Contains(key, name) {
			return true
		}
	}
	return false
}

func timerRecorded(t *testing.T, name string) bool {
	t.Helper()
	for key := range metrics.GetAllMetrics().Timers {
		if strings.Contains(key, name) {
			return true
		}
	}
	return false
}

func TestObservabilityMiddleware(t *testing.T) {
	logger, buf := newCaptureLogger()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := tracing.GetRequestInfo(r.Context())
		assert.NotEmpty(t, info.RequestID)
		assert.NotEmpty(t, info.TraceID)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := ObservabilityMiddleware(logger)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	req.Header.Set("User-Agent", "store-client")
	req.RemoteAddr = "192.168.1.100:12345"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, counterRecorded(t, "http_requests_total"))
	assert.True(t, timerRecorded(t, "http_request_duration"))

	logOutput := buf.String()
	assert.Contains(t, logOutput, "HTTP request started")
	assert.Contains(t, logOutput, "HTTP request completed")
	assert.Contains(t, logOutput, "request_id")
	assert.Contains(t, logOutput, "trace_id")
}

func TestObservabilityMiddlewareErrorStatus(t *testing.T) {
	logger, buf := newCaptureLogger()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	handler := ObservabilityMiddleware(logger)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestObservabilityMiddlewareTraceIDNotAllZeros(t *testing.T) {
	logger, buf := newCaptureLogger()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := tracing.GetRequestInfo(r.Context())
		assert.NotEqual(t, strings.Repeat("0", 32), info.TraceID)
		assert.NotEqual(t, strings.Repeat("0", 16), info.SpanID)
		w.WriteHeader(http.StatusOK)
	})

	handler := ObservabilityMiddleware(logger)(inner)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, buf.String(), `"trace_id":"`+strings.Repeat("0", 32)+`"`)
}

func TestOutboundObservabilityMiddleware(t *testing.T) {
	logger, buf := newCaptureLogger()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("delivered"))
	})

	handler := OutboundObservabilityMiddleware(logger, "send_message")(inner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(`{"recipient":"1234567890"}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(tracing.WithFullTracing(req.Context()))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, counterRecorded(t, "outbound_requests_total"))
	assert.True(t, counterRecorded(t, "outbound_success_total"))
	assert.True(t, timerRecorded(t, "outbound_processing_duration"))

	logOutput := buf.String()
	assert.Contains(t, logOutput, "Outbound request started")
	assert.Contains(t, logOutput, "Outbound request completed")
	assert.Contains(t, logOutput, `"component":"send_message"`)
}

func TestOutboundObservabilityMiddlewareError(t *testing.T) {
	logger, buf := newCaptureLogger()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	handler := OutboundObservabilityMiddleware(logger, "media_download")(inner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/download", nil)
	req = req.WithContext(tracing.WithFullTracing(req.Context()))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, counterRecorded(t, "outbound_errors_total"))
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestResponseWrapper(t *testing.T) {
	wrapper := &responseWrapper{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	wrapper.WriteHeader(http.StatusCreated)
	assert.Equal(t, http.StatusCreated, wrapper.statusCode)

	n, err := wrapper.Write([]byte("first"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = wrapper.Write([]byte(" second"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("first second")), wrapper.responseSize)
}

func TestObservabilityMetricsAccumulate(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	handler := ObservabilityMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	before := float64(0)
	for key, counter := range metrics.GetAllMetrics().Counters {
		if strings.Contains(key, "http_requests_total") {
			before += counter.Value
		}
	}

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil))
	}

	after := float64(0)
	for key, counter := range metrics.GetAllMetrics().Counters {
		if strings.Contains(key, "http_requests_total") {
			after += counter.Value
		}
	}
	assert.GreaterOrEqual(t, after-before, float64(5))
}

func TestObservabilityConcurrentRequests(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	handler := ObservabilityMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func() {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil))
			done <- struct{}{}
		}()
	}
	for i := 0; i < 3; i++ {
		<-done
	}

	assert.True(t, counterRecorded(t, "http_requests_total"))
}

func TestDetailedLoggingDefaults(t *testing.T) {
	config := DefaultDetailedLoggingConfig()

	assert.True(t, config.LogRequestHeaders)
	assert.False(t, config.LogResponseHeaders)
	assert.False(t, config.LogRequestBody)
	assert.False(t, config.LogResponseBody)
	assert.Equal(t, 1024, config.MaxBodySize)
	assert.Contains(t, config.SensitiveHeaders, "authorization")
	assert.Contains(t, config.SkipEndpoints, "/health")
	assert.Contains(t, config.SkipEndpoints, "/metrics")
}

func TestDetailedLoggingMasksHeaders(t *testing.T) {
	logger, buf := newCaptureLogger()

	handler := DetailedLoggingMiddleware(logger, DefaultDetailedLoggingConfig())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(`{"recipient":"123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret-token")
	req = req.WithContext(tracing.WithFullTracing(req.Context()))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	logOutput := buf.String()
	assert.Contains(t, logOutput, "API request detail")
	assert.Contains(t, logOutput, "***MASKED***")
	assert.NotContains(t, logOutput, "secret-token")
	// Bodies stay out of logs under the default config.
	assert.NotContains(t, logOutput, "request_body")
}

func TestDetailedLoggingFullCapture(t *testing.T) {
	logger, buf := newCaptureLogger()

	config := DetailedLoggingConfig{
		LogRequestHeaders:  true,
		LogResponseHeaders: true,
		LogRequestBody:     true,
		LogResponseBody:    true,
		MaxBodySize:        1024,
		SensitiveHeaders:   []string{"x-api-key"},
	}

	handler := DetailedLoggingMiddleware(logger, config)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"delivered":true}`))
		}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send",
		strings.NewReader(`{"recipient":"123","message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret-key")
	req = req.WithContext(tracing.WithFullTracing(req.Context()))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	logOutput := buf.String()
	assert.Contains(t, logOutput, "API request detail")
	assert.Contains(t, logOutput, "API response detail")
	assert.Contains(t, logOutput, "***MASKED***")
	assert.Contains(t, logOutput, "request_body")
	assert.Contains(t, logOutput, "response_body")
	assert.Contains(t, logOutput, "response_headers")
	assert.Contains(t, logOutput, "201")
}

func TestDetailedLoggingSkipsOperationalEndpoints(t *testing.T) {
	logger, buf := newCaptureLogger()

	handler := DetailedLoggingMiddleware(logger, DefaultDetailedLoggingConfig())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for _, path := range []string{"/metrics", "/health"} {
		buf.Reset()

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(tracing.WithFullTracing(req.Context()))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, buf.String(), "API request detail", "path %s must be skipped", path)
	}
}

func TestDetailedLoggingTruncatesLargeResponse(t *testing.T) {
	logger, buf := newCaptureLogger()

	config := DetailedLoggingConfig{
		LogRequestBody:  true,
		LogResponseBody: true,
		MaxBodySize:     1024,
	}

	handler := DetailedLoggingMiddleware(logger, config)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
		}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages",
		strings.NewReader(strings.Repeat("a", 500)))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(tracing.WithFullTracing(req.Context()))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	logOutput := buf.String()
	assert.Contains(t, logOutput, "request_body")
	assert.Contains(t, logOutput, "***TRUNCATED***")
}

func TestDetailedLoggingSkipsBinaryBodies(t *testing.T) {
	logger, buf := newCaptureLogger()

	config := DetailedLoggingConfig{LogRequestBody: true, MaxBodySize: 1024}

	handler := DetailedLoggingMiddleware(logger, config)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/send", strings.NewReader("binary data"))
	req.Header.Set("Content-Type", "application/octet-stream")
	req = req.WithContext(tracing.WithFullTracing(req.Context()))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.NotContains(t, buf.String(), "request_body")
}

func TestBodyCapture(t *testing.T) {
	capture := &bodyCapture{
		ResponseWriter: httptest.NewRecorder(),
		body:           &bytes.Buffer{},
		headers:        make(http.Header),
	}

	capture.Header().Set("X-Test", "value")
	capture.WriteHeader(http.StatusAccepted)
	assert.Equal(t, http.StatusAccepted, capture.statusCode)
	assert.Equal(t, "value", capture.headers.Get("X-Test"))

	_, err := capture.Write([]byte("part one"))
	require.NoError(t, err)
	_, err = capture.Write([]byte(" part two"))
	require.NoError(t, err)
	assert.Equal(t, "part one part two", capture.body.String())
}

func TestIsTextContent(t *testing.T) {
	tests := []struct {
		contentType string
		expected    bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"application/xml", true},
		{"text/plain", true},
		{"application/x-www-form-urlencoded", true},
		{"application/octet-stream", false},
		{"image/jpeg", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isTextContent(tt.contentType), tt.contentType)
	}
}

func TestCollectHeaders(t *testing.T) {
	masked := map[string]bool{"authorization": true, "x-api-key": true}

	src := http.Header{}
	src.Set("Authorization", "Bearer token")
	src.Set("X-API-Key", "key")
	src.Set("Content-Type", "application/json")
	src.Add("Accept", "application/json")
	src.Add("Accept", "text/plain")

	out := collectHeaders(src, masked)
	assert.Equal(t, "***MASKED***", out["Authorization"])
	assert.Equal(t, "***MASKED***", out["X-Api-Key"])
	assert.Equal(t, "application/json", out["Content-Type"])
	assert.Equal(t, "application/json, text/plain", out["Accept"])
}
