package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
)

type mentionHandler struct {
	deps    HandlerDeps
	intents map[Intent]HandlerFunc
}

// NewMentionHandler creates the router for messages addressed to the bot.
// It classifies the intent and delegates to the matching strategy; any
// failure before a reply was attempted falls back to the can't-help text.
func NewMentionHandler(deps HandlerDeps, intents map[Intent]HandlerFunc) HandlerFunc {
	return mentionHandler{deps: deps, intents: intents}.Handle
}

func (h mentionHandler) Handle(ctx context.Context, msg *database.Message) error {
	log := h.deps.Logger.With("handler", "mention")

	err := h.route(ctx, msg)
	if err == nil {
		return nil
	}
	if errors.Is(err, errSendFailed) {
		return err
	}

	log.ErrorContext(ctx, "Failed to handle mention, sending fallback", "error", err, "chat_jid", msg.ChatJID, "message_id", msg.MessageID)
	if fbErr := SendAndSaveReply(ctx, h.deps, msg, h.deps.Config.Bot.Messages.CantHelp); fbErr != nil {
		return errors.Join(err, fbErr)
	}
	return nil
}

func (h mentionHandler) route(ctx context.Context, msg *database.Message) error {
	log := h.deps.Logger.With("handler", "mention")

	intent, err := h.classify(ctx, msg)
	if err != nil {
		return err
	}

	handle, ok := h.intents[intent]
	if !ok {
		log.WarnContext(ctx, "No handler for intent, using other", "intent", intent)
		handle, ok = h.intents[IntentOther]
		if !ok {
			return fmt.Errorf("no handler for intent %q", intent)
		}
	}
	log.InfoContext(ctx, "Routing mention", "intent", intent, "chat_jid", msg.ChatJID, "message_id", msg.MessageID)
	return handle(ctx, msg)
}

func (h mentionHandler) classify(ctx context.Context, msg *database.Message) (Intent, error) {
	self, err := h.deps.Transport.SelfJID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve own identity: %w", err)
	}

	aiCtx, cancel := context.WithTimeout(ctx, aiProcessingTimeout)
	defer cancel()

	var out struct {
		Intent Intent `json:"intent"`
	}
	err = gemini.GenerateJSON(aiCtx, h.deps.GeminiClient, gemini.Request{
		SystemInstruction: fmt.Sprintf(gemini.IntentInstruction, self.User),
		Prompt:            fmt.Sprintf("%s: %s", senderTag(msg), msg.Content()),
		Schema:            gemini.IntentSchema,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("failed to classify intent: %w", err)
	}
	if out.Intent == "" {
		return IntentOther, nil
	}
	return out.Intent, nil
}
