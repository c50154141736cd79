package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/ax5-sect/server/internal/agent/model"
)

type memoryConversation struct {
	messages []*schema.Message
	context  model.BusinessContext
}

// MemoryConversationRepository keeps conversations in process memory.
// Used when REDIS_URL is empty and in tests.
type MemoryConversationRepository struct {
	mu    sync.RWMutex
	convs map[string]*memoryConversation
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{convs: make(map[string]*memoryConversation)}
}

func (r *MemoryConversationRepository) get(conversationID string) *memoryConversation {
	c, ok := r.convs[conversationID]
	if !ok {
		c = &memoryConversation{}
		r.convs[conversationID] = c
	}
	return c
}

func (r *MemoryConversationRepository) AppendMessages(_ context.Context, conversationID string, messages ...*schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(conversationID)
	for _, m := range messages {
		cp := *m
		c.messages = append(c.messages, &cp)
	}
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	history := &model.ConversationHistory{ConversationID: conversationID, Messages: []*schema.Message{}}
	if c, ok := r.convs[conversationID]; ok {
		for _, m := range c.messages {
			cp := *m
			history.Messages = append(history.Messages, &cp)
		}
		history.BusinessContext = c.context
	}
	return history, nil
}

func (r *MemoryConversationRepository) SaveBusinessContext(_ context.Context, conversationID string, bc model.BusinessContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(conversationID).context = bc
	return nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, conversationID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.convs[conversationID]; ok {
		return len(c.messages), nil
	}
	return 0, nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
