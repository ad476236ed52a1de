package service

// Logging standards for the query service.
//
// Use these exact field names in every logging call so log lines stay
// machine-filterable across packages.
const (
	// Core identifiers
	LogFieldRequestID = "request_id"
	LogFieldTraceID   = "trace_id"
	LogFieldMessageID = "message_id"
	LogFieldChatJID   = "chat_jid"
	LogFieldRecipient = "recipient"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Performance and metrics
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// Network and external services
	LogFieldURL        = "url"
	LogFieldEndpoint   = "endpoint"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// File and media
	LogFieldFilePath  = "file_path"
	LogFieldMediaType = "media_type"

	// Error and debugging
	LogFieldErrorCode = "error_code"
)

// Log level usage:
//
// DEBUG — raw query parameters and bridge payloads (sanitized), only
// useful when diagnosing a specific request.
// INFO — one line per operation: searches, sends, downloads.
// WARN — degraded but functional: bridge unreachable on health checks,
// send rejections.
// ERROR — storage failures and anything that maps to a 5xx.
