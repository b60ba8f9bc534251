package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/zmanim"
)

// Dispatcher routes every stored incoming message through the zmanim path,
// the mention router and the invite-link spam check.
type Dispatcher struct {
	deps    HandlerDeps
	zmanim  func(ctx context.Context, msg *database.Message, q zmanim.Query) error
	mention HandlerFunc
	spam    HandlerFunc
	handle  HandlerFunc
}

// NewDispatcher wires the message pipeline.
func NewDispatcher(deps HandlerDeps) *Dispatcher {
	d := &Dispatcher{
		deps:    deps,
		zmanim:  NewZmanimHandler(deps),
		mention: NewMentionHandler(deps, RegisterIntentHandlers(deps)),
		spam:    NewSpamHandler(deps),
	}
	d.handle = Chain(d.route, ManagedOnly(deps))
	return d
}

// Dispatch processes one message. Errors from independent paths are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *database.Message) error {
	return d.handle(ctx, msg)
}

func (d *Dispatcher) route(ctx context.Context, msg *database.Message) error {
	log := d.deps.Logger.With("component", "dispatcher")
	text := msg.Content()
	var errs []error

	if q, ok := d.deps.Classifier.Match(ctx, text); ok {
		log.DebugContext(ctx, "Zmanim query matched", "message_id", msg.MessageID, "type", q.Type)
		errs = append(errs, d.zmanim(ctx, msg, q))
	} else if d.mentioned(ctx, text) {
		errs = append(errs, d.mention(ctx, msg))
	}

	if strings.Contains(text, InviteLinkPrefix) {
		errs = append(errs, d.spam(ctx, msg))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) mentioned(ctx context.Context, text string) bool {
	self, err := d.deps.Transport.SelfJID(ctx)
	if err != nil {
		d.deps.Logger.WarnContext(ctx, "Own identity unknown, mention check skipped", "component", "dispatcher", "error", err)
		return false
	}
	return addressesBot(text, self, d.deps.Config.Bot.Keywords)
}
