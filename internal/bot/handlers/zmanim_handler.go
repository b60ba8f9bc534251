package handlers

import (
	"context"
	"errors"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/zmanim"
)

// NewZmanimHandler answers a classified zmanim query.
func NewZmanimHandler(deps HandlerDeps) func(ctx context.Context, msg *database.Message, q zmanim.Query) error {
	return zmanimHandler{deps}.Handle
}

type zmanimHandler struct {
	deps HandlerDeps
}

func (h zmanimHandler) Handle(ctx context.Context, msg *database.Message, q zmanim.Query) error {
	log := h.deps.Logger.With("handler", "zmanim")
	loc := h.deps.Zmanim.Location()
	day := q.Day(loc, h.deps.now())

	result, err := h.deps.Zmanim.Compute(ctx, day)
	if err != nil {
		if errors.Is(err, zmanim.ErrSunNeverRisesOrSets) {
			log.WarnContext(ctx, "No sunrise or sunset for the day", "date", day.Format("2006-01-02"))
		} else {
			log.ErrorContext(ctx, "Failed to compute zmanim", "error", err, "date", day.Format("2006-01-02"))
		}
		return SendAndSaveReply(ctx, h.deps, msg, h.deps.Config.Bot.Messages.ZmanimUnavailable)
	}

	header := h.deps.Dates.Header(ctx, day)
	text := zmanim.Formatter{Location: loc}.Render(result, header, q)
	if text == "" {
		log.DebugContext(ctx, "Nothing to render for query", "type", q.Type, "zman", q.Zman)
		return nil
	}

	log.InfoContext(ctx, "Answering zmanim query", "type", q.Type, "zman", q.Zman, "target", q.Target, "chat_jid", msg.ChatJID)
	return SendAndSaveReply(ctx, h.deps, msg, text)
}
