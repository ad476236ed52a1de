package database

import "strings"

// Message queries. Every message row is joined with its chat so results
// carry the chat display name; the join is LEFT so a message whose chat
// record is missing still returns.
const (
	selectMessageColumns = `
		SELECT messages.id, messages.chat_jid, messages.sender, messages.content,
		       messages.timestamp, messages.is_from_me, messages.media_type,
		       messages.filename, chats.name AS chat_name
		FROM messages
		LEFT JOIN chats ON messages.chat_jid = chats.jid
	`

	selectMessageByIDQuery = selectMessageColumns + `
		WHERE messages.id = ? AND messages.chat_jid = ?
	`

	selectMessagesBeforeQuery = selectMessageColumns + `
		WHERE messages.chat_jid = ? AND messages.timestamp < ?
		ORDER BY messages.timestamp DESC
		LIMIT ?
	`

	selectMessagesAfterQuery = selectMessageColumns + `
		WHERE messages.chat_jid = ? AND messages.timestamp > ?
		ORDER BY messages.timestamp ASC
		LIMIT ?
	`
)

// Chat queries. The preview join pulls the message whose timestamp
// matches the chat's recorded last activity.
const (
	selectChatColumns = `
		SELECT chats.jid, chats.name, chats.last_message_time,
		       last.content AS last_message, last.sender AS last_sender,
		       last.is_from_me AS last_is_from_me
		FROM chats
		LEFT JOIN messages last
		       ON last.chat_jid = chats.jid AND last.timestamp = chats.last_message_time
	`

	selectChatByJIDQuery = selectChatColumns + `
		WHERE chats.jid = ?
	`
)

// Contact queries: the direct-chat projection of the chats table.
const (
	selectContactsQuery = `
		SELECT jid, name
		FROM chats
		WHERE jid LIKE '%@s.whatsapp.net'
	`
)

// Stats queries for the health surface.
const (
	countMessagesQuery = `SELECT COUNT(*) FROM messages`
	countChatsQuery    = `SELECT COUNT(*) FROM chats`
)

// whereBuilder accumulates (clause, arg) pairs and joins them with AND.
// Caller-controlled values are always bound, never spliced into the
// query text.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (b *whereBuilder) add(clause string, args ...interface{}) {
	b.clauses = append(b.clauses, clause)
	b.args = append(b.args, args...)
}

// clause returns the assembled WHERE clause, or the empty string when
// no predicates were added.
func (b *whereBuilder) clause() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// and returns the predicates joined with AND, for appending to a query
// that already has a WHERE clause.
func (b *whereBuilder) and() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " AND " + strings.Join(b.clauses, " AND ")
}
