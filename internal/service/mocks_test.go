package service

import (
	"context"
	"time"

	"github.com/ab2005/whatsapp-mcp/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SearchMessages(ctx context.Context, q models.MessageQuery) ([]models.Message, error) {
	args := m.Called(ctx, q)
	if msgs, ok := args.Get(0).([]models.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetMessageByID(ctx context.Context, id, chatJID string) (*models.Message, error) {
	args := m.Called(ctx, id, chatJID)
	if msg, ok := args.Get(0).(*models.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetMessagesBefore(ctx context.Context, chatJID string, pivot time.Time, limit int) ([]models.Message, error) {
	args := m.Called(ctx, chatJID, pivot, limit)
	if msgs, ok := args.Get(0).([]models.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetMessagesAfter(ctx context.Context, chatJID string, pivot time.Time, limit int) ([]models.Message, error) {
	args := m.Called(ctx, chatJID, pivot, limit)
	if msgs, ok := args.Get(0).([]models.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) SearchChats(ctx context.Context, q models.ChatQuery) ([]models.Chat, error) {
	args := m.Called(ctx, q)
	if chats, ok := args.Get(0).([]models.Chat); ok {
		return chats, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetChatByJID(ctx context.Context, jid string) (*models.Chat, error) {
	args := m.Called(ctx, jid)
	if chat, ok := args.Get(0).(*models.Chat); ok {
		return chat, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListContacts(ctx context.Context, q models.ContactQuery) ([]models.Contact, error) {
	args := m.Called(ctx, q)
	if contacts, ok := args.Get(0).([]models.Contact); ok {
		return contacts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Stats(ctx context.Context) (models.StoreStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.StoreStats), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
