package service

import (
	"context"

	"github.com/ab2005/whatsapp-mcp/internal/privacy"
)

// ContextKey is a package-local type to prevent context key collisions.
type ContextKey string

// VerboseContextKey is the strongly-typed context key for the verbose
// logging flag. When verbose is off, identifiers are masked before
// they reach the log stream.
const VerboseContextKey ContextKey = "verbose"

// IsVerboseLogging checks if verbose logging is enabled from context.
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// LoggableJID masks a chat JID unless verbose logging is enabled.
func LoggableJID(ctx context.Context, jid string) string {
	if IsVerboseLogging(ctx) {
		return jid
	}
	return privacy.MaskJID(jid)
}

// LoggableMessageID masks a message ID unless verbose logging is enabled.
func LoggableMessageID(ctx context.Context, messageID string) string {
	if IsVerboseLogging(ctx) {
		return messageID
	}
	return privacy.MaskMessageID(messageID)
}

// LoggableRecipient masks a send target (phone or JID) unless verbose
// logging is enabled.
func LoggableRecipient(ctx context.Context, recipient string) string {
	if IsVerboseLogging(ctx) {
		return recipient
	}
	return privacy.MaskContactID(recipient)
}
