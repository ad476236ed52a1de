package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ab2005/whatsapp-mcp/internal/constants"
	"github.com/ab2005/whatsapp-mcp/internal/errors"
	"github.com/ab2005/whatsapp-mcp/internal/metrics"
	"github.com/ab2005/whatsapp-mcp/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Database is a read-only view over the message store the external
// bridge maintains. It only ever issues SELECT statements; schema
// creation and writes belong to the bridge's ingest path.
type Database struct {
	db *sql.DB
}

// New opens the store at dbPath and verifies the bridge schema is
// reachable. Naive timestamps in the file are interpreted as UTC.
func New(dbPath string) (*Database, error) {
	if dbPath == "" {
		return nil, errors.New(errors.ErrCodeDatabaseConnection, "database path cannot be empty")
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&loc=UTC", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseConnection, "failed to open database")
	}

	db.SetMaxOpenConns(constants.DefaultMaxOpenConns)
	db.SetMaxIdleConns(constants.DefaultMaxIdleConns)

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseConnection,
				fmt.Sprintf("failed to ping database (close error: %v)", closeErr))
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseConnection, "failed to ping database")
	}

	d := &Database{db: db}
	if err := d.verifySchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w (close error: %v)", err, closeErr)
		}
		return nil, err
	}

	return d, nil
}

// verifySchema confirms both bridge tables exist. The store is created
// by the bridge, so a missing table means we are pointed at the wrong
// file rather than something we should repair.
func (d *Database) verifySchema() error {
	const query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('chats', 'messages')`

	var count int
	if err := d.db.QueryRow(query).Scan(&count); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseConnection, "failed to inspect schema")
	}
	if count != 2 {
		return errors.New(errors.ErrCodeDatabaseConnection,
			"store is missing the chats/messages tables; is the bridge pointed at this file?")
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SearchMessages runs a filtered, paginated message query. Each present
// filter contributes one predicate; an empty query matches everything.
// Results are ordered most-recent-first.
func (d *Database) SearchMessages(ctx context.Context, q models.MessageQuery) ([]models.Message, error) {
	start := time.Now()
	defer func() {
		metrics.RecordTimer("db_query_duration", time.Since(start),
			map[string]string{"query": "search_messages"}, "Database query duration")
	}()

	var where whereBuilder
	if q.Query != "" {
		where.add("LOWER(messages.content) LIKE LOWER(?)", "%"+q.Query+"%")
	}
	if q.ChatJID != "" {
		where.add("messages.chat_jid = ?", q.ChatJID)
	}
	if q.Sender != "" {
		where.add("messages.sender LIKE ?", "%"+q.Sender+"%")
	}
	if q.After != nil {
		where.add("messages.timestamp >= ?", q.After.UTC())
	}
	if q.Before != nil {
		where.add("messages.timestamp <= ?", q.Before.UTC())
	}

	query := selectMessageColumns + where.clause() + `
		ORDER BY messages.timestamp DESC
		LIMIT ? OFFSET ?
	`
	args := append(where.args, q.Limit, q.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("search messages", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetMessageByID fetches a single message by its (id, chat_jid) key.
// Absence is (nil, nil), not an error.
func (d *Database) GetMessageByID(ctx context.Context, id, chatJID string) (*models.Message, error) {
	row := d.db.QueryRowContext(ctx, selectMessageByIDQuery, id, chatJID)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get message", err)
	}
	return msg, nil
}

// GetMessagesBefore returns up to limit messages in the chat strictly
// earlier than pivot, in chronological order. Messages that share the
// pivot's exact timestamp fall outside both windows; identifiers, not
// timestamps, are the uniqueness key.
func (d *Database) GetMessagesBefore(ctx context.Context, chatJID string, pivot time.Time, limit int) ([]models.Message, error) {
	rows, err := d.db.QueryContext(ctx, selectMessagesBeforeQuery, chatJID, pivot.UTC(), limit)
	if err != nil {
		return nil, errors.NewDatabaseError("get messages before", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Fetched newest-first to honor the limit; flip to chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// GetMessagesAfter returns up to limit messages in the chat strictly
// later than pivot, in chronological order.
func (d *Database) GetMessagesAfter(ctx context.Context, chatJID string, pivot time.Time, limit int) ([]models.Message, error) {
	rows, err := d.db.QueryContext(ctx, selectMessagesAfterQuery, chatJID, pivot.UTC(), limit)
	if err != nil {
		return nil, errors.NewDatabaseError("get messages after", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// SearchChats runs a filtered, paginated chat query with a preview of
// each chat's most recent message.
func (d *Database) SearchChats(ctx context.Context, q models.ChatQuery) ([]models.Chat, error) {
	start := time.Now()
	defer func() {
		metrics.RecordTimer("db_query_duration", time.Since(start),
			map[string]string{"query": "search_chats"}, "Database query duration")
	}()

	var where whereBuilder
	if q.Query != "" {
		where.add("(chats.name LIKE ? OR chats.jid LIKE ?)", "%"+q.Query+"%", "%"+q.Query+"%")
	}

	// Binary choice: last-activity descending unless name order is
	// explicitly requested.
	orderBy := "chats.last_message_time DESC"
	if q.SortBy == models.ChatSortName {
		orderBy = "chats.name ASC"
	}

	query := selectChatColumns + where.clause() + " ORDER BY " + orderBy + " LIMIT ? OFFSET ?"
	args := append(where.args, q.Limit, q.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("search chats", err)
	}
	defer rows.Close()

	chats := make([]models.Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("scan chat", err)
		}
		chats = append(chats, *chat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("search chats", err)
	}

	return chats, nil
}

// GetChatByJID fetches a single chat. Absence is (nil, nil).
func (d *Database) GetChatByJID(ctx context.Context, jid string) (*models.Chat, error) {
	row := d.db.QueryRowContext(ctx, selectChatByJIDQuery, jid)
	chat, err := scanChat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get chat", err)
	}
	return chat, nil
}

// ListContacts projects direct chats into contact entries, filtered by
// an optional name/JID substring and ordered alphabetically.
func (d *Database) ListContacts(ctx context.Context, q models.ContactQuery) ([]models.Contact, error) {
	var where whereBuilder
	if q.Query != "" {
		where.add("(name LIKE ? OR jid LIKE ?)", "%"+q.Query+"%", "%"+q.Query+"%")
	}

	query := selectContactsQuery + where.and() + " ORDER BY name ASC LIMIT ? OFFSET ?"
	args := append(where.args, q.Limit, q.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("list contacts", err)
	}
	defer rows.Close()

	contacts := make([]models.Contact, 0)
	for rows.Next() {
		var jid string
		var name sql.NullString
		if err := rows.Scan(&jid, &name); err != nil {
			return nil, errors.NewDatabaseError("scan contact", err)
		}
		contacts = append(contacts, models.Contact{
			PhoneNumber: phoneFromJID(jid),
			Name:        name.String,
			JID:         jid,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list contacts", err)
	}

	return contacts, nil
}

// Stats reports row counts for the health surface.
func (d *Database) Stats(ctx context.Context) (models.StoreStats, error) {
	var stats models.StoreStats
	if err := d.db.QueryRowContext(ctx, countMessagesQuery).Scan(&stats.Messages); err != nil {
		return models.StoreStats{}, errors.NewDatabaseError("count messages", err)
	}
	if err := d.db.QueryRowContext(ctx, countChatsQuery).Scan(&stats.Chats); err != nil {
		return models.StoreStats{}, errors.NewDatabaseError("count chats", err)
	}
	return stats, nil
}

// Ping reports storage reachability for the health surface.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseConnection, "database ping failed")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var msg models.Message
	var content, mediaType, filename, chatName sql.NullString

	err := row.Scan(
		&msg.ID,
		&msg.ChatJID,
		&msg.Sender,
		&content,
		&msg.Timestamp,
		&msg.IsFromMe,
		&mediaType,
		&filename,
		&chatName,
	)
	if err != nil {
		return nil, err
	}

	msg.Content = content.String
	msg.MediaType = mediaType.String
	msg.Filename = filename.String
	msg.ChatName = chatName.String
	msg.Timestamp = msg.Timestamp.UTC()

	return &msg, nil
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("scan message", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("read messages", err)
	}
	return messages, nil
}

func scanChat(row rowScanner) (*models.Chat, error) {
	var chat models.Chat
	var name, lastMessage, lastSender sql.NullString
	var lastMessageTime sql.NullTime
	var lastIsFromMe sql.NullBool

	err := row.Scan(
		&chat.JID,
		&name,
		&lastMessageTime,
		&lastMessage,
		&lastSender,
		&lastIsFromMe,
	)
	if err != nil {
		return nil, err
	}

	chat.Name = name.String
	if lastMessageTime.Valid {
		t := lastMessageTime.Time.UTC()
		chat.LastMessageTime = &t
	}
	if lastMessage.Valid {
		chat.LastMessage = &lastMessage.String
	}
	if lastSender.Valid {
		chat.LastSender = &lastSender.String
	}
	if lastIsFromMe.Valid {
		chat.LastIsFromMe = &lastIsFromMe.Bool
	}

	return &chat, nil
}

func phoneFromJID(jid string) string {
	for i := 0; i < len(jid); i++ {
		if jid[i] == '@' {
			return jid[:i]
		}
	}
	return jid
}
