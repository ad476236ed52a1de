package models

import (
	"time"
)

// Message is a single row from the bridge's messages table, joined with
// the chat name when one is recorded.
type Message struct {
	ID        string    `json:"id"`
	ChatJID   string    `json:"chat_jid"`
	ChatName  string    `json:"chat_name,omitempty"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsFromMe  bool      `json:"is_from_me"`
	MediaType string    `json:"media_type,omitempty"`
	Filename  string    `json:"filename,omitempty"`
}

// MessageContext is a pivot message together with its surrounding
// conversation window. Both sides are in chronological order.
type MessageContext struct {
	Message Message   `json:"message"`
	Before  []Message `json:"before"`
	After   []Message `json:"after"`
}

// StoreStats reports row counts for the health surface.
type StoreStats struct {
	Messages int64 `json:"messages"`
	Chats    int64 `json:"chats"`
}

// MessageQuery carries validated, normalized message search parameters.
// Zero values mean "no filter"; Limit and Offset are always set by the
// validation layer.
type MessageQuery struct {
	Query   string
	ChatJID string
	Sender  string
	After   *time.Time
	Before  *time.Time
	Limit   int
	Offset  int
}
