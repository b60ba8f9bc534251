// Package handlers holds the message dispatch pipeline: the zmanim path,
// the intent router with its strategies and the invite-link spam check.
package handlers

import (
	"context"

	"github.com/edgard/zmanimbot/internal/database"
)

// HandlerFunc processes one stored message.
type HandlerFunc func(ctx context.Context, msg *database.Message) error

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// ManagedOnly stops messages without text and messages from groups the bot
// does not manage. Direct messages pass.
func ManagedOnly(deps HandlerDeps) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg *database.Message) error {
			log := deps.Logger.With("middleware", "ManagedOnly")
			if msg == nil || msg.Content() == "" {
				log.DebugContext(ctx, "Ignoring message without text")
				return nil
			}
			if msg.Group != nil && !msg.Group.Managed {
				log.DebugContext(ctx, "Ignoring message from unmanaged group", "group_jid", msg.Group.GroupJID)
				return nil
			}
			return next(ctx, msg)
		}
	}
}

// Chain applies middlewares so the first one runs outermost.
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
