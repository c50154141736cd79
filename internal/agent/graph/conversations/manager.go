package conversations

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/ax5-sect/server/internal/agent/model"
	logx "github.com/ax5-sect/server/pkg/logger"
)

// TurnContext is what a turn starts from: prior messages and business context.
type TurnContext struct {
	History         []*schema.Message
	BusinessContext model.BusinessContext
}

// MessagesManager loads and saves conversation checkpoints and refreshes the
// business context a turn runs with.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	business         model.BusinessReader
	ragLimit         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, business model.BusinessReader, ragLimit int) *MessagesManager {
	if ragLimit <= 0 {
		ragLimit = 5
	}
	return &MessagesManager{
		conversationRepo: conversationRepo,
		business:         business,
		ragLimit:         ragLimit,
	}
}

// LoadTurn reads the checkpoint for in.ConversationID and reloads the
// supplier, campaign and knowledge documents relevant to this message.
func (mm *MessagesManager) LoadTurn(ctx context.Context, in model.RunInput) (*TurnContext, error) {
	history, err := mm.conversationRepo.LoadHistory(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	bc := history.BusinessContext
	if in.SupplierID != 0 {
		bc.CurrentSupplierID = in.SupplierID
	}
	if in.CampaignID != 0 {
		bc.CurrentCampaignID = in.CampaignID
	}

	if err := mm.refreshBusinessContext(ctx, &bc, in.Message); err != nil {
		return nil, err
	}

	return &TurnContext{History: history.Messages, BusinessContext: bc}, nil
}

func (mm *MessagesManager) refreshBusinessContext(ctx context.Context, bc *model.BusinessContext, message string) error {
	if mm.business == nil {
		return nil
	}

	bc.LoadedSupplier = nil
	if bc.CurrentSupplierID != 0 {
		supplier, err := mm.business.GetSupplier(ctx, bc.CurrentSupplierID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			logx.Warn().Int64("supplier_id", bc.CurrentSupplierID).Msg("Active supplier not found; continuing without it")
		case err != nil:
			return fmt.Errorf("load supplier %d: %w", bc.CurrentSupplierID, err)
		default:
			bc.LoadedSupplier = supplier
		}
	}

	bc.LoadedCampaign = nil
	if bc.CurrentCampaignID != 0 {
		campaign, err := mm.business.GetCampaign(ctx, bc.CurrentCampaignID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			logx.Warn().Int64("campaign_id", bc.CurrentCampaignID).Msg("Active campaign not found; continuing without it")
		case err != nil:
			return fmt.Errorf("load campaign %d: %w", bc.CurrentCampaignID, err)
		default:
			bc.LoadedCampaign = campaign
		}
	}

	bc.RAGResults = nil
	if tags := KeywordTags(message); len(tags) > 0 {
		docs, err := mm.business.SearchKnowledgeByTags(ctx, tags, mm.ragLimit)
		if err != nil {
			return fmt.Errorf("search knowledge: %w", err)
		}
		bc.RAGResults = docs
	}
	return nil
}

// SaveTurn appends the messages produced by a completed turn and stores its
// business context.
func (mm *MessagesManager) SaveTurn(ctx context.Context, conversationID string, messages []*schema.Message, bc model.BusinessContext) error {
	if len(messages) > 0 {
		if err := mm.conversationRepo.AppendMessages(ctx, conversationID, messages...); err != nil {
			return fmt.Errorf("append messages: %w", err)
		}
	}
	// RAG hits are recomputed every turn
	bc.RAGResults = nil
	if err := mm.conversationRepo.SaveBusinessContext(ctx, conversationID, bc); err != nil {
		return fmt.Errorf("save business context: %w", err)
	}
	return nil
}
