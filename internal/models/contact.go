package models

// Contact is the direct-chat projection of the chats table: one entry
// per user JID the store holds a conversation with.
type Contact struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	JID         string `json:"jid"`
}

// GetDisplayName returns the contact book name when present, falling
// back to the phone number.
func (c *Contact) GetDisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.PhoneNumber
}

// ContactQuery carries validated contact search parameters.
type ContactQuery struct {
	Query  string
	Limit  int
	Offset int
}
