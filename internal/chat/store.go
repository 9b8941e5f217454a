package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/sensei/internal/models"
	"gorm.io/gorm"
)

// Store is the conversation store. Lookups return (nil, nil) when the
// record does not exist.
type Store interface {
	FindConversation(ctx context.Context, owner, externalID string) (*models.Conversation, error)
	ConversationByID(ctx context.Context, id uint) (*models.Conversation, error)
	RecentConversations(ctx context.Context, owner string, limit int) ([]models.Conversation, error)
	SaveConversation(ctx context.Context, conv *models.Conversation) error
	SaveMessage(ctx context.Context, msg *models.Message) error
	MessagesForConversation(ctx context.Context, convID uint) ([]models.Message, error)
	// RecentMessages returns up to n messages newest-first. An empty role
	// matches every role.
	RecentMessages(ctx context.Context, convID uint, role string, n int) ([]models.Message, error)
	CountMessages(ctx context.Context, convID uint) (int64, error)
	FindMessage(ctx context.Context, id uint) (*models.Message, error)
	DeleteMessage(ctx context.Context, id uint) error
	// NextAssistantMessage returns the nearest assistant message after msg
	// in the same conversation.
	NextAssistantMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
	// WithinTx runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// GormStore implements Store on the chat tables.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) first(ctx context.Context, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := s.db.WithContext(ctx).Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) FindConversation(ctx context.Context, owner, externalID string) (*models.Conversation, error) {
	var conv models.Conversation
	ok, err := s.first(ctx, &conv, "owner = ? AND external_id = ?", owner, externalID)
	if err != nil {
		return nil, fmt.Errorf("chat: find conversation: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

func (s *GormStore) ConversationByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	ok, err := s.first(ctx, &conv, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("chat: conversation %d: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

func (s *GormStore) RecentConversations(ctx context.Context, owner string, limit int) ([]models.Conversation, error) {
	var convs []models.Conversation
	q := s.db.WithContext(ctx).Where("owner = ?", owner).Order("updated_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("chat: recent conversations: %w", err)
	}
	return convs, nil
}

// SaveConversation inserts conv when it has no ID; otherwise it writes the
// title and UpdatedAt exactly as given.
func (s *GormStore) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	db := s.db.WithContext(ctx)
	if conv.ID == 0 {
		if err := db.Omit("Messages").Create(conv).Error; err != nil {
			return fmt.Errorf("chat: create conversation: %w", err)
		}
		return nil
	}
	err := db.Model(&models.Conversation{ID: conv.ID}).UpdateColumns(map[string]interface{}{
		"title":      conv.Title,
		"updated_at": conv.UpdatedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("chat: update conversation %d: %w", conv.ID, err)
	}
	return nil
}

// SaveMessage inserts msg when it has no ID; otherwise it rewrites its body
// and metadata. CreatedAt is never changed by an update.
func (s *GormStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	db := s.db.WithContext(ctx)
	if msg.ID == 0 {
		if err := db.Create(msg).Error; err != nil {
			return fmt.Errorf("chat: create message: %w", err)
		}
		return nil
	}
	err := db.Model(&models.Message{ID: msg.ID}).UpdateColumns(map[string]interface{}{
		"content":        msg.Content,
		"content_type":   msg.ContentType,
		"transaction_id": msg.TransactionID,
		"category":       msg.Category,
	}).Error
	if err != nil {
		return fmt.Errorf("chat: update message %d: %w", msg.ID, err)
	}
	return nil
}

func (s *GormStore) MessagesForConversation(ctx context.Context, convID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).Where("conversation_id = ?", convID).
		Order("created_at, id").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("chat: messages for conversation %d: %w", convID, err)
	}
	return msgs, nil
}

func (s *GormStore) RecentMessages(ctx context.Context, convID uint, role string, n int) ([]models.Message, error) {
	var msgs []models.Message
	q := s.db.WithContext(ctx).Where("conversation_id = ?", convID)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Order("created_at DESC, id DESC").Limit(n).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("chat: recent messages for conversation %d: %w", convID, err)
	}
	return msgs, nil
}

func (s *GormStore) CountMessages(ctx context.Context, convID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", convID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("chat: count messages: %w", err)
	}
	return count, nil
}

func (s *GormStore) FindMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	ok, err := s.first(ctx, &msg, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("chat: find message %d: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &msg, nil
}

func (s *GormStore) DeleteMessage(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Message{}, id).Error; err != nil {
		return fmt.Errorf("chat: delete message %d: %w", id, err)
	}
	return nil
}

func (s *GormStore) NextAssistantMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	var next models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND role = ?", msg.ConversationID, models.RoleAssistant).
		Where("created_at > ? OR (created_at = ? AND id > ?)", msg.CreatedAt, msg.CreatedAt, msg.ID).
		Order("created_at, id").First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat: next assistant message: %w", err)
	}
	return &next, nil
}

// PruneEmptyConversations deletes conversations that have no messages and
// were last touched before cutoff.
func (s *GormStore) PruneEmptyConversations(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM messages WHERE messages.conversation_id = conversations.id)").
		Delete(&models.Conversation{})
	if result.Error != nil {
		return 0, fmt.Errorf("chat: prune empty conversations: %w", result.Error)
	}
	return result.RowsAffected, nil
}
