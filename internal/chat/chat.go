// Package chat resolves the conversation a turn belongs to, carries the
// transaction id across turns, titles conversations and applies threaded
// message deletion.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/sensei/internal/models"
)

// Defaults for Resolver.
const (
	DefaultTitleMaxLen   = 60
	DefaultHistoryWindow = 10
)

var (
	// ErrNotFound means the conversation or message does not exist for the
	// requesting owner. Another owner's conversations are reported the same
	// way since they are looked up by owner.
	ErrNotFound = errors.New("chat: not found")
	// ErrAccessDenied means the message exists but belongs to another
	// owner's conversation.
	ErrAccessDenied = errors.New("chat: access denied")
	// ErrNotUserMessage rejects direct deletion of assistant messages.
	ErrNotUserMessage = errors.New("chat: only user messages can be deleted")
)

// TurnMeta is stored alongside a persisted turn.
type TurnMeta struct {
	TransactionID        string
	Category             string
	AssistantContentType string
}

// Resolver implements the conversation rules on top of a Store.
type Resolver struct {
	store         Store
	titleMaxLen   int
	historyWindow int
	now           func() time.Time
}

// ResolverOpts holds parameters for creating a Resolver.
type ResolverOpts struct {
	Store         Store
	TitleMaxLen   int              // defaults to DefaultTitleMaxLen
	HistoryWindow int              // defaults to DefaultHistoryWindow
	Now           func() time.Time // defaults to time.Now
}

// NewResolver creates a Resolver.
func NewResolver(opts ResolverOpts) (*Resolver, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("chat: resolver: store is required")
	}
	r := &Resolver{
		store:         opts.Store,
		titleMaxLen:   opts.TitleMaxLen,
		historyWindow: opts.HistoryWindow,
		now:           opts.Now,
	}
	if r.titleMaxLen < 2 {
		r.titleMaxLen = DefaultTitleMaxLen
	}
	if r.historyWindow <= 0 {
		r.historyWindow = DefaultHistoryWindow
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// ResolveOrCreateConversation returns the conversation a turn belongs to.
// An explicit id must belong to owner; otherwise the owner's most recently
// updated conversation is used, and a new one is created if none exists.
func (r *Resolver) ResolveOrCreateConversation(ctx context.Context, owner, explicitID string) (*models.Conversation, error) {
	if id := strings.TrimSpace(explicitID); id != "" {
		conv, err := r.store.FindConversation(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, fmt.Errorf("conversation %q: %w", id, ErrNotFound)
		}
		return conv, nil
	}
	recent, err := r.store.RecentConversations(ctx, owner, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		return &recent[0], nil
	}
	return r.newConversation(ctx, owner)
}

// CreateConversation starts a new conversation for owner, unless the most
// recent one is still empty, in which case that one is returned.
func (r *Resolver) CreateConversation(ctx context.Context, owner string) (*models.Conversation, error) {
	recent, err := r.store.RecentConversations(ctx, owner, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		n, err := r.store.CountMessages(ctx, recent[0].ID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return &recent[0], nil
		}
	}
	return r.newConversation(ctx, owner)
}

func (r *Resolver) newConversation(ctx context.Context, owner string) (*models.Conversation, error) {
	now := r.now()
	conv := &models.Conversation{
		ExternalID: uuid.NewString(),
		Owner:      owner,
		Title:      models.PlaceholderTitle,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Conversations lists owner's conversations, most recently updated first.
func (r *Resolver) Conversations(ctx context.Context, owner string, limit int) ([]models.Conversation, error) {
	return r.store.RecentConversations(ctx, owner, limit)
}

// ResolvePriorTransactionID looks at the most recent messages of the
// conversation and returns the transaction id of the oldest one in that
// window that carries one. It returns "" when none does.
func (r *Resolver) ResolvePriorTransactionID(ctx context.Context, convID uint) (string, error) {
	recent, err := r.store.RecentMessages(ctx, convID, "", r.historyWindow)
	if err != nil {
		return "", err
	}
	for i := len(recent) - 1; i >= 0; i-- {
		if id := strings.TrimSpace(recent[i].TransactionID); id != "" {
			return id, nil
		}
	}
	return "", nil
}

// RecentUserPrompts returns up to n prior user prompts, newest first.
func (r *Resolver) RecentUserPrompts(ctx context.Context, convID uint, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	msgs, err := r.store.RecentMessages(ctx, convID, models.RoleUser, n)
	if err != nil {
		return nil, err
	}
	prompts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		prompts = append(prompts, m.Content)
	}
	return prompts, nil
}

// PriorTurns returns the last n messages in chronological order.
func (r *Resolver) PriorTurns(ctx context.Context, convID uint, n int) ([]models.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	msgs, err := r.store.RecentMessages(ctx, convID, "", n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// PersistTurn appends the user prompt and the assistant answer, rewrites a
// placeholder title from the prompt and bumps the conversation to the
// assistant message's timestamp. All writes share one transaction and the
// title check runs against the stored row, so conv is refreshed on success.
func (r *Resolver) PersistTurn(ctx context.Context, conv *models.Conversation, userText, assistantText string, meta TurnMeta) error {
	if conv == nil || conv.ID == 0 {
		return fmt.Errorf("chat: persist turn: conversation is not saved")
	}
	contentType := meta.AssistantContentType
	if contentType == "" {
		contentType = models.ContentText
	}

	var saved *models.Conversation
	err := r.store.WithinTx(ctx, func(tx Store) error {
		current, err := tx.ConversationByID(ctx, conv.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("conversation %d: %w", conv.ID, ErrNotFound)
		}

		userAt := r.now()
		user := &models.Message{
			ConversationID: current.ID,
			Role:           models.RoleUser,
			Content:        userText,
			ContentType:    models.ContentText,
			TransactionID:  meta.TransactionID,
			Category:       meta.Category,
			CreatedAt:      userAt,
		}
		if err := tx.SaveMessage(ctx, user); err != nil {
			return err
		}

		assistantAt := r.now()
		if assistantAt.Before(userAt) {
			assistantAt = userAt
		}
		assistant := &models.Message{
			ConversationID: current.ID,
			Role:           models.RoleAssistant,
			Content:        assistantText,
			ContentType:    contentType,
			TransactionID:  meta.TransactionID,
			Category:       meta.Category,
			CreatedAt:      assistantAt,
		}
		if err := tx.SaveMessage(ctx, assistant); err != nil {
			return err
		}

		if current.Title == "" || current.Title == models.PlaceholderTitle {
			current.Title = Title(userText, r.titleMaxLen)
		}
		current.UpdatedAt = assistantAt
		if err := tx.SaveConversation(ctx, current); err != nil {
			return err
		}
		saved = current
		return nil
	})
	if err != nil {
		return err
	}
	*conv = *saved
	return nil
}

// Reload refreshes conv from the store. It reports ErrNotFound when the
// conversation has been removed.
func (r *Resolver) Reload(ctx context.Context, conv *models.Conversation) error {
	if conv == nil || conv.ID == 0 {
		return fmt.Errorf("chat: reload: conversation is not saved")
	}
	current, err := r.store.ConversationByID(ctx, conv.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("conversation %d: %w", conv.ID, ErrNotFound)
	}
	*conv = *current
	return nil
}

// History returns a conversation and its messages. A blank chatID selects
// the owner's most recent conversation; (nil, nil, nil) means the owner has
// none.
func (r *Resolver) History(ctx context.Context, owner, chatID string) (*models.Conversation, []models.Message, error) {
	var conv *models.Conversation
	if id := strings.TrimSpace(chatID); id != "" {
		c, err := r.store.FindConversation(ctx, owner, id)
		if err != nil {
			return nil, nil, err
		}
		if c == nil {
			return nil, nil, fmt.Errorf("conversation %q: %w", id, ErrNotFound)
		}
		conv = c
	} else {
		recent, err := r.store.RecentConversations(ctx, owner, 1)
		if err != nil {
			return nil, nil, err
		}
		if len(recent) == 0 {
			return nil, nil, nil
		}
		conv = &recent[0]
	}
	msgs, err := r.store.MessagesForConversation(ctx, conv.ID)
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

// ownedMessage loads a message and checks that its conversation belongs to
// owner.
func ownedMessage(ctx context.Context, store Store, owner string, id uint) (*models.Message, error) {
	msg, err := store.FindMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	conv, err := store.ConversationByID(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	if conv.Owner != owner {
		return nil, fmt.Errorf("message %d: %w", id, ErrAccessDenied)
	}
	return msg, nil
}

// DeleteUserMessageCascade deletes a user message and the nearest assistant
// message that follows it in the same conversation, if any. Both deletes
// commit together.
func (r *Resolver) DeleteUserMessageCascade(ctx context.Context, owner string, id uint) error {
	return r.store.WithinTx(ctx, func(tx Store) error {
		msg, err := ownedMessage(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if msg.Role != models.RoleUser {
			return fmt.Errorf("message %d has role %s: %w", id, msg.Role, ErrNotUserMessage)
		}
		next, err := tx.NextAssistantMessage(ctx, msg)
		if err != nil {
			return err
		}
		if err := tx.DeleteMessage(ctx, msg.ID); err != nil {
			return err
		}
		if next != nil {
			return tx.DeleteMessage(ctx, next.ID)
		}
		return nil
	})
}

// UpdateMessage rewrites the body of one of owner's messages. An empty
// contentType keeps the current one.
func (r *Resolver) UpdateMessage(ctx context.Context, owner string, id uint, content, contentType string) (*models.Message, error) {
	msg, err := ownedMessage(ctx, r.store, owner, id)
	if err != nil {
		return nil, err
	}
	msg.Content = content
	if contentType != "" {
		msg.ContentType = contentType
	}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Title derives a conversation title from a user message: whitespace is
// collapsed and text longer than maxLen is cut to maxLen-1 characters plus
// an ellipsis. Blank text yields the placeholder.
func Title(text string, maxLen int) string {
	t := strings.Join(strings.Fields(text), " ")
	if t == "" {
		return models.PlaceholderTitle
	}
	if maxLen < 2 {
		maxLen = DefaultTitleMaxLen
	}
	runes := []rune(t)
	if len(runes) <= maxLen {
		return t
	}
	return strings.TrimSpace(string(runes[:maxLen-1])) + "…"
}
