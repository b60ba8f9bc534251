package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/knowledge"
)

// NewSummarizeHandler catches the user up on the chat's recent messages.
func NewSummarizeHandler(deps HandlerDeps) HandlerFunc {
	return summarizeHandler{deps}.Handle
}

type summarizeHandler struct {
	deps HandlerDeps
}

func (h summarizeHandler) Handle(ctx context.Context, msg *database.Message) error {
	log := h.deps.Logger.With("handler", "summarize")
	cfg := h.deps.Config.Bot

	since := h.deps.now().Add(-cfg.SummaryWindow)
	history, err := h.deps.Store.GetMessagesSince(ctx, msg.ChatJID, since, cfg.SummaryLimit)
	if err != nil {
		return fmt.Errorf("failed to load messages to summarize: %w", err)
	}
	log.DebugContext(ctx, "Summarizing chat", "chat_jid", msg.ChatJID, "messages", len(history))

	aiCtx, cancel := context.WithTimeout(ctx, aiProcessingTimeout)
	defer cancel()
	summary, err := h.deps.GeminiClient.Generate(aiCtx, gemini.Request{
		SystemInstruction: gemini.SummarizeInstruction,
		Prompt:            fmt.Sprintf("%s: %s\n\n# History:\n%s", senderTag(msg), msg.Content(), knowledge.FormatHistory(history)),
	})
	if err != nil {
		return fmt.Errorf("failed to summarize: %w", err)
	}
	if summary = strings.TrimSpace(summary); summary == "" {
		return fmt.Errorf("failed to summarize: %w", gemini.ErrEmptyResponse)
	}
	return SendAndSaveReply(ctx, h.deps, msg, summary)
}
