package privacy

import (
	"strings"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits.
// Example: "1234567890" -> "******7890"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskJID masks a chat JID, keeping the domain suffix so group and
// direct chats stay distinguishable in logs.
// Example: "1234567890@s.whatsapp.net" -> "******7890@s.whatsapp.net"
func MaskJID(jid string) string {
	if jid == "" {
		return ""
	}

	if at := strings.Index(jid, "@"); at >= 0 {
		numberPart := jid[:at]
		domainPart := jid[at:]

		// Group JIDs have two numeric segments; mask each one.
		if dash := strings.Index(numberPart, "-"); dash >= 0 {
			return MaskPhoneNumber(numberPart[:dash]) + "-" + MaskPhoneNumber(numberPart[dash+1:]) + domainPart
		}
		return MaskPhoneNumber(numberPart) + domainPart
	}

	return maskString(jid, 4)
}

// MaskMessageID masks a message ID while preserving some structure for
// debugging.
// Example: "3EB0D4A1B2C3D4E5F6A7" -> "************F6A7" (last 8 kept)
func MaskMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}

	// Some bridge message IDs carry a chat JID segment
	// ("true_12345@s.whatsapp.net_ABCDEF"): mask the JID as a JID.
	if strings.Contains(messageID, "_") {
		parts := strings.Split(messageID, "_")
		if len(parts) >= 3 {
			prefix := parts[0]
			chatPart := parts[1]
			messagePart := strings.Join(parts[2:], "_")

			return prefix + "_" + MaskJID(chatPart) + "_" + maskString(messagePart, 4)
		}
	}

	return maskString(messageID, 8)
}

// MaskContactID masks a send target, which may be a bare phone number
// or a full JID.
func MaskContactID(contactID string) string {
	if contactID == "" {
		return ""
	}

	if strings.Contains(contactID, "@") {
		return MaskJID(contactID)
	}
	if len(contactID) >= 10 && isNumeric(contactID) {
		return MaskPhoneNumber(contactID)
	}

	return maskString(contactID, 4)
}

// maskString masks a string showing only the last n characters.
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// isNumeric checks if a string contains only digits.
func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fieldMaskers maps log field names to the masker for their value
// kind. Fields not listed here pass through untouched.
var fieldMaskers = map[string]func(string) string{
	"phone":        MaskContactID,
	"phone_number": MaskContactID,
	"sender":       MaskContactID,
	"recipient":    MaskContactID,
	"jid":          MaskJID,
	"chat_jid":     MaskJID,
	"chatJid":      MaskJID,
	"chat":         MaskJID,
	"message_id":   MaskMessageID,
	"messageId":    MaskMessageID,
	"msg_id":       MaskMessageID,
}

// MaskSensitiveFields returns a copy of fields with known identifier
// fields masked. Non-string values under those keys are left alone.
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if mask, sensitive := fieldMaskers[k]; sensitive {
			if s, ok := v.(string); ok {
				masked[k] = mask(s)
				continue
			}
		}
		masked[k] = v
	}
	return masked
}
