package models

import (
	"strings"
	"time"
)

const (
	// GroupJIDSuffix marks group conversations in the bridge's store.
	GroupJIDSuffix = "@g.us"
	// ContactJIDSuffix marks direct conversations with a single contact.
	ContactJIDSuffix = "@s.whatsapp.net"
)

// Chat is a row from the bridge's chats table plus a preview of its most
// recent message. Preview fields are nil for chats with no messages.
type Chat struct {
	JID             string     `json:"jid"`
	Name            string     `json:"name"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	LastMessage     *string    `json:"last_message,omitempty"`
	LastSender      *string    `json:"last_sender,omitempty"`
	LastIsFromMe    *bool      `json:"last_is_from_me,omitempty"`
}

// IsGroup reports whether the chat is a group conversation.
func (c *Chat) IsGroup() bool {
	return strings.HasSuffix(c.JID, GroupJIDSuffix)
}

// IsContact reports whether the chat is a direct conversation.
func (c *Chat) IsContact() bool {
	return strings.HasSuffix(c.JID, ContactJIDSuffix)
}

type ChatSortOrder string

const (
	ChatSortLastActive ChatSortOrder = "last_active"
	ChatSortName       ChatSortOrder = "name"
)

// ChatQuery carries validated chat search parameters.
type ChatQuery struct {
	Query  string
	SortBy ChatSortOrder
	Limit  int
	Offset int
}
