package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ab2005/whatsapp-mcp/internal/constants"
	"github.com/ab2005/whatsapp-mcp/internal/errors"
)

var (
	phonePattern    = regexp.MustCompile(`^\d{10,15}$`)
	jidUserPattern  = regexp.MustCompile(`^\d{10,15}@s\.whatsapp\.net$`)
	jidGroupPattern = regexp.MustCompile(`^\d+-\d+@g\.us$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
)

// ValidatePhoneNumber validates a bare phone number: 10-15 ASCII digits,
// no separators and no country-code symbols.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return errors.New(errors.ErrCodeInvalidInput, "phone number cannot be empty").
			WithUserMessage("Phone number cannot be empty")
	}

	if !phonePattern.MatchString(phone) {
		return errors.NewValidationError("phone_number", phone,
			fmt.Sprintf("should be %d-%d digits", constants.MinPhoneNumberLength, constants.MaxPhoneNumberLength))
	}

	return nil
}

// ValidateJID validates a chat identifier: either a user JID
// (digits + @s.whatsapp.net) or a group JID (digits-digits + @g.us).
func ValidateJID(jid string) error {
	if jid == "" {
		return errors.New(errors.ErrCodeInvalidInput, "JID cannot be empty").
			WithUserMessage("JID cannot be empty")
	}

	if !jidUserPattern.MatchString(jid) && !jidGroupPattern.MatchString(jid) {
		return errors.NewValidationError("jid", jid, "invalid JID format")
	}

	return nil
}

// ValidateRecipient accepts either a bare phone number or a full JID.
func ValidateRecipient(recipient string) error {
	if recipient == "" {
		return errors.New(errors.ErrCodeInvalidInput, "recipient cannot be empty").
			WithUserMessage("Recipient cannot be empty")
	}

	if ValidatePhoneNumber(recipient) == nil {
		return nil
	}
	if ValidateJID(recipient) == nil {
		return nil
	}

	return errors.NewValidationError("recipient", recipient,
		"must be a phone number (10-15 digits) or a JID")
}

// ValidateMessageContent checks outbound text against the configured cap.
func ValidateMessageContent(content string, maxLength int) error {
	if maxLength <= 0 {
		maxLength = constants.DefaultMaxMessageLength
	}

	if strings.TrimSpace(content) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "message content cannot be empty").
			WithUserMessage("Message content cannot be empty")
	}

	if n := utf8.RuneCountInString(content); n > maxLength {
		return errors.NewValidationError("message", "",
			fmt.Sprintf("message too long: %d characters (max %d)", n, maxLength))
	}

	return nil
}

// ValidateFilePath resolves an outbound file path and checks existence,
// regular-file status, size, and extension policy. Returns the absolute
// path on success. The only validator that touches the filesystem.
func ValidateFilePath(path string, maxSize int64, allowedTypes []string) (string, error) {
	if path == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "file path cannot be empty").
			WithUserMessage("File path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid file path").
			WithUserMessage(fmt.Sprintf("Invalid file path: %v", err))
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewValidationError("file_path", path, "file does not exist")
		}
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid file path").
			WithUserMessage(fmt.Sprintf("Invalid file path: %v", err))
	}

	if !info.Mode().IsRegular() {
		return "", errors.NewValidationError("file_path", path, "path is not a file")
	}

	if maxSize <= 0 {
		maxSize = constants.DefaultMaxFileSizeBytes
	}
	if info.Size() > maxSize {
		return "", errors.NewValidationError("file_path", path,
			fmt.Sprintf("file too large: %d bytes (max %d)", info.Size(), maxSize))
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(absPath), "."))
	if !extensionAllowed(ext, allowedTypes) {
		return "", errors.NewValidationError("file_path", path,
			fmt.Sprintf("unsupported file type: %s (allowed: %s)", ext, strings.Join(allowedTypes, ", ")))
	}

	return absPath, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == strings.ToLower(strings.TrimSpace(a)) {
			return true
		}
	}
	return false
}

// ValidateDateString parses an ISO-8601 date-and-time string. A trailing
// Z is treated as the UTC offset. Format errors and calendar errors
// (month 13) produce distinct reasons.
func ValidateDateString(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, errors.New(errors.ErrCodeInvalidInput, "date string cannot be empty").
			WithUserMessage("Date string cannot be empty")
	}

	if !datePattern.MatchString(dateStr) {
		return time.Time{}, errors.NewValidationError("date", dateStr,
			"invalid date format (expected ISO format, e.g. 2024-01-02T15:04:05Z)")
	}

	// Accept both offset-qualified and naive timestamps; naive values
	// are taken as UTC, matching how the bridge stores them.
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		t, err := time.Parse(layout, dateStr)
		if err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, errors.NewValidationError("date", dateStr, "invalid date value")
}

// ValidatePaginationParams checks limit/page bounds and computes the
// row offset. Zero is out of range: callers that want a default page
// size supply it before validating.
func ValidatePaginationParams(limit, page int) (int, int, error) {
	if limit < constants.MinSearchLimit || limit > constants.MaxSearchLimit {
		return 0, 0, errors.NewValidationError("limit", fmt.Sprintf("%d", limit),
			fmt.Sprintf("limit must be between %d and %d", constants.MinSearchLimit, constants.MaxSearchLimit))
	}

	if page < 0 {
		return 0, 0, errors.NewValidationError("page", fmt.Sprintf("%d", page),
			"page must be non-negative")
	}

	return limit, page * limit, nil
}

// ValidateContextParams checks the context window bounds.
func ValidateContextParams(before, after int) (int, int, error) {
	if before < 0 || before > constants.MaxContextMessages {
		return 0, 0, errors.NewValidationError("before", fmt.Sprintf("%d", before),
			fmt.Sprintf("before context must be between 0 and %d", constants.MaxContextMessages))
	}

	if after < 0 || after > constants.MaxContextMessages {
		return 0, 0, errors.NewValidationError("after", fmt.Sprintf("%d", after),
			fmt.Sprintf("after context must be between 0 and %d", constants.MaxContextMessages))
	}

	return before, after, nil
}

// SanitizeSearchQuery normalizes a LIKE search term: doubles single
// quotes, strips semicolons and double-hyphen sequences, and truncates
// to the query length cap. Hardening only; every query still binds the
// term as a parameter.
func SanitizeSearchQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := strings.ReplaceAll(query, "'", "''")
	sanitized = strings.ReplaceAll(sanitized, ";", "")
	sanitized = strings.ReplaceAll(sanitized, "--", "")

	if utf8.RuneCountInString(sanitized) > constants.MaxSearchQueryLength {
		runes := []rune(sanitized)
		sanitized = string(runes[:constants.MaxSearchQueryLength])
	}

	return strings.TrimSpace(sanitized)
}
