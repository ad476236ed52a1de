package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "standard number", input: "1234567890", expected: "******7890"},
		{name: "long number", input: "123456789012345", expected: "***********2345"},
		{name: "short string fully masked", input: "123", expected: "***"},
		{name: "exactly four digits", input: "1234", expected: "****"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskPhoneNumber(tt.input))
		})
	}
}

func TestMaskJID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "user JID keeps domain",
			input:    "1234567890@s.whatsapp.net",
			expected: "******7890@s.whatsapp.net",
		},
		{
			name:     "group JID masks both segments",
			input:    "1234567890-9876543210@g.us",
			expected: "******7890-******3210@g.us",
		},
		{
			name:     "no domain falls back to generic masking",
			input:    "12345678",
			expected: "****5678",
		},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskJID(tt.input))
		})
	}
}

func TestMaskMessageID(t *testing.T) {
	t.Run("plain ID keeps last 8", func(t *testing.T) {
		assert.Equal(t, "****************F6A7B8C9", MaskMessageID("3EB0D4A1B2C3D4E5F6A7B8C9"))
	})

	t.Run("composite ID masks embedded JID", func(t *testing.T) {
		got := MaskMessageID("true_1234567890@s.whatsapp.net_ABCDEF123456")
		assert.Equal(t, "true_******7890@s.whatsapp.net_********3456", got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", MaskMessageID(""))
	})
}

func TestMaskContactID(t *testing.T) {
	assert.Equal(t, "******7890@s.whatsapp.net", MaskContactID("1234567890@s.whatsapp.net"))
	assert.Equal(t, "******7890", MaskContactID("1234567890"))
	assert.Equal(t, "****-doe", MaskContactID("john-doe"))
	assert.Equal(t, "", MaskContactID(""))
}

func TestMaskSensitiveFields(t *testing.T) {
	fields := map[string]interface{}{
		"chat_jid":   "1234567890@s.whatsapp.net",
		"message_id": "ABCDEF123456",
		"recipient":  "9876543210",
		"count":      3,
	}

	masked := MaskSensitiveFields(fields)

	assert.Equal(t, "******7890@s.whatsapp.net", masked["chat_jid"])
	assert.Equal(t, "****EF123456", masked["message_id"])
	assert.Equal(t, "******3210", masked["recipient"])
	assert.Equal(t, 3, masked["count"])
}

func TestMaskSensitiveFieldsNil(t *testing.T) {
	assert.Nil(t, MaskSensitiveFields(nil))
}
