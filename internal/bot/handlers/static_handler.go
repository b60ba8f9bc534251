package handlers

import (
	"context"

	"github.com/edgard/zmanimbot/internal/database"
)

// NewStaticHandler replies with a fixed text.
func NewStaticHandler(deps HandlerDeps, name, text string) HandlerFunc {
	return staticHandler{deps: deps, name: name, text: text}.Handle
}

type staticHandler struct {
	deps HandlerDeps
	name string
	text string
}

func (h staticHandler) Handle(ctx context.Context, msg *database.Message) error {
	log := h.deps.Logger.With("handler", h.name)
	log.InfoContext(ctx, "Sending fixed reply", "chat_jid", msg.ChatJID, "message_id", msg.MessageID)
	return SendAndSaveReply(ctx, h.deps, msg, h.text)
}
