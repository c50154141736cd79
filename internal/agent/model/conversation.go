package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository is the checkpoint store keyed by conversation id.
type ConversationRepository interface {
	// AppendMessages adds messages to the conversation history in order
	AppendMessages(ctx context.Context, conversationID string, messages ...*schema.Message) error

	// LoadHistory retrieves the stored messages and business context
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// SaveBusinessContext replaces the stored business context
	SaveBusinessContext(ctx context.Context, conversationID string, bc BusinessContext) error

	// ClearHistory removes everything stored for a conversation
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID  string
	Messages        []*schema.Message
	BusinessContext BusinessContext
}

// UnlockFunc releases a lock acquired from a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker serializes turns that share a conversation id across processes.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
