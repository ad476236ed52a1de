package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/ab2005/whatsapp-mcp/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bridgeSchema mirrors the tables the external bridge creates. Tests
// own schema setup since the service itself never issues DDL.
const bridgeSchema = `
CREATE TABLE chats (
    jid               TEXT PRIMARY KEY,
    name              TEXT,
    last_message_time TIMESTAMP
);
CREATE TABLE messages (
    id         TEXT,
    chat_jid   TEXT,
    sender     TEXT,
    content    TEXT,
    timestamp  TIMESTAMP,
    is_from_me BOOLEAN,
    media_type TEXT,
    filename   TEXT,
    PRIMARY KEY (id, chat_jid),
    FOREIGN KEY (chat_jid) REFERENCES chats(jid)
);
`

func setupTestDB(t *testing.T) (*Database, *sql.DB) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "messages.db")

	raw, err := sql.Open("sqlite3", "file:"+dbPath+"?loc=UTC")
	require.NoError(t, err)
	_, err = raw.Exec(bridgeSchema)
	require.NoError(t, err)

	db, err := New(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, db.Close())
		assert.NoError(t, raw.Close())
	})

	return db, raw
}

func seedChat(t *testing.T, raw *sql.DB, jid, name string, lastMessageTime *time.Time) {
	t.Helper()
	_, err := raw.Exec(
		`INSERT INTO chats (jid, name, last_message_time) VALUES (?, ?, ?)`,
		jid, name, lastMessageTime,
	)
	require.NoError(t, err)
}

func seedMessage(t *testing.T, raw *sql.DB, id, chatJID, sender, content string, ts time.Time, fromMe bool) {
	t.Helper()
	_, err := raw.Exec(
		`INSERT INTO messages (id, chat_jid, sender, content, timestamp, is_from_me) VALUES (?, ?, ?, ?, ?, ?)`,
		id, chatJID, sender, content, ts.UTC(), fromMe,
	)
	require.NoError(t, err)
}

func TestNew(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := New("")
		assert.Error(t, err)
	})

	t.Run("missing bridge schema", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "empty.db")
		_, err := New(dbPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing the chats/messages tables")
	})

	t.Run("valid store", func(t *testing.T) {
		db, _ := setupTestDB(t)
		assert.NoError(t, db.Ping(context.Background()))
	})
}

func TestSearchMessages(t *testing.T) {
	db, raw := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	alice := "1234567890@s.whatsapp.net"
	group := "123456-789012@g.us"

	seedChat(t, raw, alice, "Alice", ptrTime(base.Add(4*time.Minute)))
	seedChat(t, raw, group, "Project Team", ptrTime(base.Add(3*time.Minute)))

	seedMessage(t, raw, "m1", alice, "1234567890", "Hello there", base, false)
	seedMessage(t, raw, "m2", alice, "me", "General Kenobi", base.Add(1*time.Minute), true)
	seedMessage(t, raw, "m3", group, "9876543210", "meeting at noon", base.Add(2*time.Minute), false)
	seedMessage(t, raw, "m4", group, "5551234567", "HELLO everyone", base.Add(3*time.Minute), false)
	seedMessage(t, raw, "m5", alice, "1234567890", "see you", base.Add(4*time.Minute), false)
	// A message whose chat row is gone must still come back.
	seedMessage(t, raw, "m6", "999@s.whatsapp.net", "999", "orphan", base.Add(5*time.Minute), false)

	t.Run("no filters returns most recent first", func(t *testing.T) {
		msgs, err := db.SearchMessages(ctx, models.MessageQuery{Limit: 20})
		require.NoError(t, err)
		require.Len(t, msgs, 6)
		for i := 1; i < len(msgs); i++ {
			assert.True(t, !msgs[i-1].Timestamp.Before(msgs[i].Timestamp),
				"expected descending order at index %d", i)
		}
		assert.Equal(t, "m6", msgs[0].ID)
	})

	t.Run("orphan message carries empty chat name", func(t *testing.T) {
		msgs, err := db.SearchMessages(ctx, models.MessageQuery{Limit: 1})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "m6", msgs[0].ID)
		assert.Empty(t, msgs[0].ChatName)
	})

	t.Run("text filter is case-insensitive", func(t *testing.T) {
		msgs, err := db.SearchMessages(ctx, models.MessageQuery{Query: "hello", Limit: 20})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "m4", msgs[0].ID)
		assert.Equal(t, "m1", msgs[1].ID)
	})

	t.Run("chat filter", func(t *testing.T) {
		msgs, err := db.SearchMessages(ctx, models.MessageQuery{ChatJID: group, Limit: 20})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "Project Team", msgs[0].ChatName)
	})

	t.Run("sender substring filter", func(t *testing.T) {
		msgs, err := db.SearchMessages(ctx, models.MessageQuery{Sender: "98765", Limit: 20})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "m3", msgs[0].ID)
	})

	t.Run("time bounds are inclusive", func(t *testing.T) {
		after := base.Add(1 * time.Minute)
		before := base.Add(3 * time.Minute)
		msgs, err := db.SearchMessages(ctx, models.MessageQuery{After: &after, Before: &before, Limit: 20})
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "m4", msgs[0].ID)
		assert.Equal(t, "m2", msgs[2].ID)
	})

	t.Run("filters combine with AND", func(t *testing.T) {
		msgs, err := db.SearchMessages(ctx, models.MessageQuery{Query: "hello", ChatJID: alice, Limit: 20})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "m1", msgs[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		page1, err := db.SearchMessages(ctx, models.MessageQuery{Limit: 2, Offset: 0})
		require.NoError(t, err)
		page2, err := db.SearchMessages(ctx, models.MessageQuery{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page1, 2)
		require.Len(t, page2, 2)
		assert.NotEqual(t, page1[0].ID, page2[0].ID)
		assert.Equal(t, "m6", page1[0].ID)
		assert.Equal(t, "m4", page2[0].ID)
	})

	t.Run("no matches yields empty list", func(t *testing.T) {
		msgs, err := db.SearchMessages(ctx, models.MessageQuery{Query: "zzz-no-such-text", Limit: 20})
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestGetMessageByID(t *testing.T) {
	db, raw := setupTestDB(t)
	ctx := context.Background()

	chat := "1234567890@s.whatsapp.net"
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedChat(t, raw, chat, "Alice", &ts)
	seedMessage(t, raw, "m1", chat, "1234567890", "hi", ts, false)

	t.Run("found", func(t *testing.T) {
		msg, err := db.GetMessageByID(ctx, "m1", chat)
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, "hi", msg.Content)
		assert.Equal(t, "Alice", msg.ChatName)
		assert.True(t, ts.Equal(msg.Timestamp))
	})

	t.Run("absent is nil not error", func(t *testing.T) {
		msg, err := db.GetMessageByID(ctx, "nope", chat)
		require.NoError(t, err)
		assert.Nil(t, msg)
	})

	t.Run("wrong chat is absent", func(t *testing.T) {
		msg, err := db.GetMessageByID(ctx, "m1", "999@s.whatsapp.net")
		require.NoError(t, err)
		assert.Nil(t, msg)
	})
}

func TestGetMessagesBeforeAfter(t *testing.T) {
	db, raw := setupTestDB(t)
	ctx := context.Background()

	chat := "1234567890@s.whatsapp.net"
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedChat(t, raw, chat, "Alice", ptrTime(base.Add(4*time.Minute)))

	for i, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		seedMessage(t, raw, id, chat, "1234567890", "msg "+id, base.Add(time.Duration(i)*time.Minute), false)
	}
	pivot := base.Add(2 * time.Minute) // t3

	t.Run("before window is chronological", func(t *testing.T) {
		msgs, err := db.GetMessagesBefore(ctx, chat, pivot, 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "t1", msgs[0].ID)
		assert.Equal(t, "t2", msgs[1].ID)
	})

	t.Run("after window is chronological", func(t *testing.T) {
		msgs, err := db.GetMessagesAfter(ctx, chat, pivot, 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "t4", msgs[0].ID)
		assert.Equal(t, "t5", msgs[1].ID)
	})

	t.Run("window limit honors nearest messages", func(t *testing.T) {
		msgs, err := db.GetMessagesBefore(ctx, chat, base.Add(4*time.Minute), 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "t3", msgs[0].ID)
		assert.Equal(t, "t4", msgs[1].ID)
	})

	t.Run("timestamp ties at the pivot are excluded", func(t *testing.T) {
		seedMessage(t, raw, "tie", chat, "1234567890", "same instant", pivot, false)

		before, err := db.GetMessagesBefore(ctx, chat, pivot, 10)
		require.NoError(t, err)
		after, err := db.GetMessagesAfter(ctx, chat, pivot, 10)
		require.NoError(t, err)

		for _, m := range append(before, after...) {
			assert.NotEqual(t, "tie", m.ID)
		}
	})

	t.Run("shorter than requested is not an error", func(t *testing.T) {
		msgs, err := db.GetMessagesBefore(ctx, chat, base, 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestSearchChats(t *testing.T) {
	db, raw := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	alice := "1234567890@s.whatsapp.net"
	bob := "9876543210@s.whatsapp.net"
	group := "123456-789012@g.us"

	seedChat(t, raw, alice, "Alice", ptrTime(base.Add(2*time.Minute)))
	seedChat(t, raw, bob, "Bob", ptrTime(base.Add(5*time.Minute)))
	seedChat(t, raw, group, "Project Team", ptrTime(base))

	seedMessage(t, raw, "m1", alice, "1234567890", "latest from alice", base.Add(2*time.Minute), false)
	seedMessage(t, raw, "m2", bob, "me", "latest from bob", base.Add(5*time.Minute), true)

	t.Run("default sort is last activity descending", func(t *testing.T) {
		chats, err := db.SearchChats(ctx, models.ChatQuery{Limit: 20})
		require.NoError(t, err)
		require.Len(t, chats, 3)
		assert.Equal(t, "Bob", chats[0].Name)
		assert.Equal(t, "Alice", chats[1].Name)
		assert.Equal(t, "Project Team", chats[2].Name)
	})

	t.Run("name sort is ascending", func(t *testing.T) {
		chats, err := db.SearchChats(ctx, models.ChatQuery{Limit: 20, SortBy: models.ChatSortName})
		require.NoError(t, err)
		require.Len(t, chats, 3)
		assert.Equal(t, "Alice", chats[0].Name)
		assert.Equal(t, "Bob", chats[1].Name)
	})

	t.Run("preview carries the latest message", func(t *testing.T) {
		chats, err := db.SearchChats(ctx, models.ChatQuery{Query: "Bob", Limit: 20})
		require.NoError(t, err)
		require.Len(t, chats, 1)
		require.NotNil(t, chats[0].LastMessage)
		assert.Equal(t, "latest from bob", *chats[0].LastMessage)
		require.NotNil(t, chats[0].LastIsFromMe)
		assert.True(t, *chats[0].LastIsFromMe)
	})

	t.Run("text filter matches name or JID", func(t *testing.T) {
		byName, err := db.SearchChats(ctx, models.ChatQuery{Query: "Project", Limit: 20})
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.True(t, byName[0].IsGroup())

		byJID, err := db.SearchChats(ctx, models.ChatQuery{Query: "9876543210", Limit: 20})
		require.NoError(t, err)
		require.Len(t, byJID, 1)
		assert.Equal(t, bob, byJID[0].JID)
	})

	t.Run("chat without messages has nil preview", func(t *testing.T) {
		chats, err := db.SearchChats(ctx, models.ChatQuery{Query: "Project", Limit: 20})
		require.NoError(t, err)
		require.Len(t, chats, 1)
		assert.Nil(t, chats[0].LastMessage)
	})
}

func TestGetChatByJID(t *testing.T) {
	db, raw := setupTestDB(t)
	ctx := context.Background()

	jid := "1234567890@s.whatsapp.net"
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedChat(t, raw, jid, "Alice", &ts)

	t.Run("found", func(t *testing.T) {
		chat, err := db.GetChatByJID(ctx, jid)
		require.NoError(t, err)
		require.NotNil(t, chat)
		assert.Equal(t, "Alice", chat.Name)
		assert.True(t, chat.IsContact())
	})

	t.Run("absent is nil not error", func(t *testing.T) {
		chat, err := db.GetChatByJID(ctx, "000@s.whatsapp.net")
		require.NoError(t, err)
		assert.Nil(t, chat)
	})
}

func TestListContacts(t *testing.T) {
	db, raw := setupTestDB(t)
	ctx := context.Background()

	seedChat(t, raw, "1234567890@s.whatsapp.net", "Alice", nil)
	seedChat(t, raw, "9876543210@s.whatsapp.net", "Bob", nil)
	seedChat(t, raw, "123456-789012@g.us", "Project Team", nil)

	t.Run("groups are excluded", func(t *testing.T) {
		contacts, err := db.ListContacts(ctx, models.ContactQuery{Limit: 20})
		require.NoError(t, err)
		require.Len(t, contacts, 2)
		assert.Equal(t, "Alice", contacts[0].Name)
		assert.Equal(t, "1234567890", contacts[0].PhoneNumber)
		assert.Equal(t, "Bob", contacts[1].Name)
	})

	t.Run("filter by partial number", func(t *testing.T) {
		contacts, err := db.ListContacts(ctx, models.ContactQuery{Query: "98765", Limit: 20})
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, "Bob", contacts[0].Name)
	})
}

func TestStats(t *testing.T) {
	db, raw := setupTestDB(t)
	ctx := context.Background()

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Messages)
	assert.Zero(t, stats.Chats)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedChat(t, raw, "1234567890@s.whatsapp.net", "Alice", &ts)
	seedMessage(t, raw, "m1", "1234567890@s.whatsapp.net", "1234567890", "hi", ts, false)

	stats, err = db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Messages)
	assert.Equal(t, int64(1), stats.Chats)
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
