package commands

import (
	"errors"

	"engram/domain/core/entities"
)

// SubmitTurnCommand processes one user chat turn through the full
// pipeline: extraction, retrieval, strategy selection, generation,
// learning and accounting.
type SubmitTurnCommand struct {
	UserID         string `json:"user_id" validate:"required"`
	Message        string `json:"message" validate:"required,max=20000"`
	ThreadID       string `json:"thread_id,omitempty"`
	Provider       string `json:"provider,omitempty"`
	AssistantStyle string `json:"assistant_style,omitempty"`
	Confidential   bool   `json:"confidential,omitempty"`
	StoreOnChain   bool   `json:"store_on_chain,omitempty"`
	SkipMemory     bool   `json:"skip_memory,omitempty"`
}

// Validate validates the command
func (cmd SubmitTurnCommand) Validate() error {
	if cmd.UserID == "" {
		return errors.New("user ID is required")
	}
	if cmd.Message == "" {
		return errors.New("message is required")
	}
	if len(cmd.Message) > 20000 {
		return errors.New("message exceeds maximum length")
	}
	if len(cmd.AssistantStyle) > 200 {
		return errors.New("assistant style exceeds maximum length")
	}
	return nil
}

// TurnResult is everything one processed turn produced
type TurnResult struct {
	Reply              string                  `json:"reply"`
	Strategy           entities.StrategyRecord `json:"strategy"`
	ReferencedMemories []string                `json:"referenced_memories"`
	FactsStored        int                     `json:"facts_stored"`
	CyclesCharged      uint64                  `json:"cycles_charged"`
	ThreadID           string                  `json:"thread_id,omitempty"`
	Sentiment          string                  `json:"sentiment"`
}
