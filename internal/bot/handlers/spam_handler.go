package handlers

import (
	"context"
	"fmt"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

// InviteLinkPrefix marks messages that share a WhatsApp group invite.
const InviteLinkPrefix = "https://chat.whatsapp.com/"

type spamVerdict struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// NewSpamHandler scores a message carrying a group invite link and alerts the
// group owner in the chat.
func NewSpamHandler(deps HandlerDeps) HandlerFunc {
	return spamHandler{deps}.Handle
}

type spamHandler struct {
	deps HandlerDeps
}

func (h spamHandler) Handle(ctx context.Context, msg *database.Message) error {
	log := h.deps.Logger.With("handler", "spam")

	if msg.Group == nil {
		log.DebugContext(ctx, "Invite link outside a group, skipping", "chat_jid", msg.ChatJID)
		return nil
	}
	if !msg.Group.OwnerJID.Valid || msg.Group.OwnerJID.String == "" {
		log.WarnContext(ctx, "Group owner unknown, skipping spam check", "group_jid", msg.Group.GroupJID)
		return nil
	}

	aiCtx, cancel := context.WithTimeout(ctx, aiProcessingTimeout)
	defer cancel()

	var verdict spamVerdict
	err := gemini.GenerateJSON(aiCtx, h.deps.GeminiClient, gemini.Request{
		SystemInstruction: gemini.SpamInstruction,
		Prompt: fmt.Sprintf("%s: %s\n\nThe message is from a group chat. The group name is %q and the group description is %q.",
			senderTag(msg), msg.Content(), msg.Group.Name(), msg.Group.GroupTopic.String),
		Schema: gemini.SpamSchema,
	}, &verdict)
	if err != nil {
		return fmt.Errorf("failed to score invite link: %w", err)
	}
	verdict.Score = min(max(verdict.Score, 1), 5)
	log.InfoContext(ctx, "Invite link scored", "group_jid", msg.Group.GroupJID, "score", verdict.Score)

	return SendAndSaveReply(ctx, h.deps, msg, spamNotice(msg.Group.OwnerJID.String, verdict))
}

func spamNotice(owner string, v spamVerdict) string {
	mention := "@" + owner
	if j, err := whatsapp.ParseJID(owner); err == nil {
		mention = j.Mention()
	}
	return fmt.Sprintf("%s - A Whatsapp group link was shared in the group. "+
		"This might be a spam. Please check and remove if it is spam.\n\n"+
		"Spam Confidence Level: (1 not spam - 5 spam) %d\n"+
		"Explanation: %s", mention, v.Score, v.Explanation)
}
