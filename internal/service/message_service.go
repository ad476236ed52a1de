package service

import (
	"context"
	"time"

	"github.com/ab2005/whatsapp-mcp/internal/errors"
	"github.com/ab2005/whatsapp-mcp/internal/models"
	"github.com/ab2005/whatsapp-mcp/internal/validation"

	"github.com/sirupsen/logrus"
)

// Store is the read-only slice of the message store this service needs.
type Store interface {
	SearchMessages(ctx context.Context, q models.MessageQuery) ([]models.Message, error)
	GetMessageByID(ctx context.Context, id, chatJID string) (*models.Message, error)
	GetMessagesBefore(ctx context.Context, chatJID string, pivot time.Time, limit int) ([]models.Message, error)
	GetMessagesAfter(ctx context.Context, chatJID string, pivot time.Time, limit int) ([]models.Message, error)
	SearchChats(ctx context.Context, q models.ChatQuery) ([]models.Chat, error)
	GetChatByJID(ctx context.Context, jid string) (*models.Chat, error)
	ListContacts(ctx context.Context, q models.ContactQuery) ([]models.Contact, error)
	Stats(ctx context.Context) (models.StoreStats, error)
	Ping(ctx context.Context) error
}

// MessageSearchParams carries raw, caller-supplied message filters.
// Every field is optional except pagination, which defaults when zero.
type MessageSearchParams struct {
	Query   string
	ChatJID string
	Sender  string
	After   string
	Before  string
	Limit   int
	Page    int
}

// ChatSearchParams carries raw, caller-supplied chat filters.
type ChatSearchParams struct {
	Query  string
	SortBy string
	Limit  int
	Page   int
}

// ContactSearchParams carries raw, caller-supplied contact filters.
type ContactSearchParams struct {
	Query string
	Limit int
	Page  int
}

// MessageService validates caller input and runs queries and context
// assembly against the store. All methods are safe for concurrent use.
type MessageService interface {
	SearchMessages(ctx context.Context, params MessageSearchParams) ([]models.Message, error)
	GetMessageContext(ctx context.Context, messageID, chatJID string, before, after int) (*models.MessageContext, error)
	SearchChats(ctx context.Context, params ChatSearchParams) ([]models.Chat, error)
	GetChatByJID(ctx context.Context, jid string) (*models.Chat, error)
	ListContacts(ctx context.Context, params ContactSearchParams) ([]models.Contact, error)
	Stats(ctx context.Context) (models.StoreStats, error)
}

type messageService struct {
	store  Store
	logger *logrus.Logger
}

// NewMessageService constructs the query service over an opened store.
func NewMessageService(store Store, logger *logrus.Logger) MessageService {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &messageService{store: store, logger: logger}
}

func (s *messageService) SearchMessages(ctx context.Context, params MessageSearchParams) ([]models.Message, error) {
	limit, offset, err := validation.ValidatePaginationParams(params.Limit, params.Page)
	if err != nil {
		return nil, err
	}

	q := models.MessageQuery{
		Query:  validation.SanitizeSearchQuery(params.Query),
		Sender: validation.SanitizeSearchQuery(params.Sender),
		Limit:  limit,
		Offset: offset,
	}

	if params.ChatJID != "" {
		if err := validation.ValidateJID(params.ChatJID); err != nil {
			return nil, err
		}
		q.ChatJID = params.ChatJID
	}

	if params.After != "" {
		after, err := validation.ValidateDateString(params.After)
		if err != nil {
			return nil, err
		}
		q.After = &after
	}

	if params.Before != "" {
		before, err := validation.ValidateDateString(params.Before)
		if err != nil {
			return nil, err
		}
		q.Before = &before
	}

	messages, err := s.store.SearchMessages(ctx, q)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldOperation: "search_messages",
		LogFieldChatJID:   LoggableJID(ctx, q.ChatJID),
		LogFieldCount:     len(messages),
	}).Info("Message search completed")

	return messages, nil
}

// GetMessageContext assembles the chronological window around a pivot
// message. A missing pivot is NotFound; short windows are not errors.
func (s *messageService) GetMessageContext(ctx context.Context, messageID, chatJID string, before, after int) (*models.MessageContext, error) {
	if messageID == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "message ID cannot be empty").
			WithUserMessage("Message ID cannot be empty")
	}
	if err := validation.ValidateJID(chatJID); err != nil {
		return nil, err
	}

	before, after, err := validation.ValidateContextParams(before, after)
	if err != nil {
		return nil, err
	}

	pivot, err := s.store.GetMessageByID(ctx, messageID, chatJID)
	if err != nil {
		return nil, err
	}
	if pivot == nil {
		return nil, errors.NewNotFoundError("message", messageID)
	}

	beforeMsgs := []models.Message{}
	if before > 0 {
		beforeMsgs, err = s.store.GetMessagesBefore(ctx, pivot.ChatJID, pivot.Timestamp, before)
		if err != nil {
			return nil, err
		}
	}

	afterMsgs := []models.Message{}
	if after > 0 {
		afterMsgs, err = s.store.GetMessagesAfter(ctx, pivot.ChatJID, pivot.Timestamp, after)
		if err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldOperation: "get_message_context",
		LogFieldMessageID: LoggableMessageID(ctx, messageID),
		LogFieldChatJID:   LoggableJID(ctx, pivot.ChatJID),
		"before":          len(beforeMsgs),
		"after":           len(afterMsgs),
	}).Info("Message context assembled")

	return &models.MessageContext{
		Message: *pivot,
		Before:  beforeMsgs,
		After:   afterMsgs,
	}, nil
}

func (s *messageService) SearchChats(ctx context.Context, params ChatSearchParams) ([]models.Chat, error) {
	limit, offset, err := validation.ValidatePaginationParams(params.Limit, params.Page)
	if err != nil {
		return nil, err
	}

	// Binary sort choice: anything other than "last_active" means name
	// order, matching the documented contract.
	sortBy := models.ChatSortLastActive
	if params.SortBy != "" && params.SortBy != string(models.ChatSortLastActive) {
		sortBy = models.ChatSortName
	}

	chats, err := s.store.SearchChats(ctx, models.ChatQuery{
		Query:  validation.SanitizeSearchQuery(params.Query),
		SortBy: sortBy,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldOperation: "search_chats",
		LogFieldCount:     len(chats),
	}).Info("Chat search completed")

	return chats, nil
}

// GetChatByJID returns NotFound when no chat matches; the repository's
// absence signal becomes a typed error at this boundary.
func (s *messageService) GetChatByJID(ctx context.Context, jid string) (*models.Chat, error) {
	if err := validation.ValidateJID(jid); err != nil {
		return nil, err
	}

	chat, err := s.store.GetChatByJID(ctx, jid)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, errors.NewNotFoundError("chat", jid)
	}

	return chat, nil
}

func (s *messageService) ListContacts(ctx context.Context, params ContactSearchParams) ([]models.Contact, error) {
	limit, offset, err := validation.ValidatePaginationParams(params.Limit, params.Page)
	if err != nil {
		return nil, err
	}

	return s.store.ListContacts(ctx, models.ContactQuery{
		Query:  validation.SanitizeSearchQuery(params.Query),
		Limit:  limit,
		Offset: offset,
	})
}

func (s *messageService) Stats(ctx context.Context) (models.StoreStats, error) {
	return s.store.Stats(ctx)
}
