package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

const (
	aiProcessingTimeout = 2 * time.Minute
	sendMessageTimeout  = 15 * time.Second
	dbSaveTimeout       = 5 * time.Second
)

// errSendFailed marks a reply that was attempted and failed. A failed send
// is never followed by a second reply to the same message.
var errSendFailed = errors.New("failed to send reply")

// SendAndSaveReply sends text to the message's chat as a reply and stores the
// sent message under the bot's own identity.
func SendAndSaveReply(ctx context.Context, deps HandlerDeps, msg *database.Message, text string) error {
	return SendAndSave(ctx, deps, msg.ChatJID, text, msg.MessageID)
}

// SendAndSave sends text to chatJID, optionally quoting replyTo, and stores it.
func SendAndSave(ctx context.Context, deps HandlerDeps, chatJID, text, replyTo string) error {
	log := deps.Logger.With("handler", "reply")
	if chatJID == "" || text == "" {
		return fmt.Errorf("%w: chat jid and text are required", errSendFailed)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()
	sentID, err := deps.Transport.SendMessage(sendCtx, chatJID, text, replyTo)
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_jid", chatJID)
		return fmt.Errorf("%w: %w", errSendFailed, err)
	}
	log.InfoContext(ctx, "Sent reply", "chat_jid", chatJID, "message_id", sentID)

	self, err := deps.Transport.SelfJID(ctx)
	if err != nil {
		log.WarnContext(ctx, "Own identity unknown, skipping reply save", "error", err)
		return nil
	}

	out := &database.Message{
		MessageID: sentID,
		Timestamp: deps.now(),
		Text:      sql.NullString{String: text, Valid: true},
		ChatJID:   whatsapp.NormalizeJID(chatJID),
		SenderJID: self.String(),
	}
	if j, err := whatsapp.ParseJID(chatJID); err == nil && j.IsGroup() {
		out.GroupJID = sql.NullString{String: out.ChatJID, Valid: true}
	}
	if replyTo != "" {
		out.ReplyToID = sql.NullString{String: replyTo, Valid: true}
	}
	SaveMessageWithRetry(ctx, deps, out, "bot reply")
	return nil
}

// SaveMessageWithRetry attempts to save a message with retries.
func SaveMessageWithRetry(ctx context.Context, deps HandlerDeps, msg *database.Message, msgType string) {
	log := deps.Logger.With("handler", "reply")
	const maxRetries = 3
	var err error

	for i := range maxRetries {
		if ctx.Err() != nil {
			log.WarnContext(ctx, "Context cancelled, aborting save attempts",
				"type", msgType, "error", ctx.Err(), "chat_jid", msg.ChatJID, "attempt", i+1)
			return
		}

		dbCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
		err = deps.Store.SaveMessage(dbCtx, msg)
		cancel()

		if err == nil {
			log.DebugContext(ctx, "Message saved", "type", msgType, "message_id", msg.MessageID, "chat_jid", msg.ChatJID)
			return
		}
		if errors.Is(err, database.ErrEmptyMessage) {
			return
		}

		log.ErrorContext(ctx, "Failed to save message, retrying", "type", msgType, "error", err, "chat_jid", msg.ChatJID, "attempt", i+1)
		if i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			log.WarnContext(ctx, "Context cancelled, aborting save attempts", "type", msgType, "error", ctx.Err(), "chat_jid", msg.ChatJID)
			return
		case <-time.After(time.Duration(100*(i+1)) * time.Millisecond):
		}
	}

	log.ErrorContext(ctx, "Failed to save message after retries", "type", msgType, "retries", maxRetries, "error", err, "chat_jid", msg.ChatJID)
}

// addressesBot reports whether text tags the bot and carries one of the
// bot-addressing keywords.
func addressesBot(text string, self whatsapp.JID, keywords []string) bool {
	if self.User == "" || !strings.Contains(text, self.Mention()) {
		return false
	}
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// senderTag is the @mention of the message author.
func senderTag(msg *database.Message) string {
	j, err := whatsapp.ParseJID(msg.SenderJID)
	if err != nil {
		return "@" + msg.SenderJID
	}
	return j.Mention()
}
