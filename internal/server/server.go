// Package server exposes the gateway webhook and the health probe over gin.
package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/logger"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

// Dispatcher processes one stored incoming message.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *database.Message) error
}

// Server receives gateway events and hands stored messages to the dispatcher.
type Server struct {
	logger         *slog.Logger
	store          database.Store
	dispatcher     Dispatcher
	handlerTimeout time.Duration
	now            func() time.Time
	engine         *gin.Engine

	inflight sync.WaitGroup
}

// New creates a webhook server running gin in the given mode.
func New(log *slog.Logger, store database.Store, dispatcher Dispatcher, handlerTimeout time.Duration, mode string) *Server {
	s := &Server{
		logger:         log.With("component", "webhook"),
		store:          store,
		dispatcher:     dispatcher,
		handlerTimeout: handlerTimeout,
		now:            time.Now,
	}

	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(s.logger))
	s.RegisterRoutes(r)
	s.engine = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// RegisterRoutes registers all routes.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.Health)
	r.POST("/webhook", s.Webhook)
}

// Wait blocks until every dispatched message has been handled.
func (s *Server) Wait() {
	s.inflight.Wait()
}

// Health reports whether the store is reachable.
func (s *Server) Health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.ErrorContext(c.Request.Context(), "Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Webhook stores the posted message and dispatches it in the background.
func (s *Server) Webhook(c *gin.Context) {
	ctx := c.Request.Context()

	var payload whatsapp.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to bind webhook payload", "error", err)
		c.String(http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Message.ID == "" {
		s.logger.DebugContext(ctx, "Ignoring event without message id", "from", payload.From)
		c.String(http.StatusOK, "ok")
		return
	}

	msg, err := s.toMessage(&payload)
	if err != nil {
		s.logger.WarnContext(ctx, "Ignoring webhook with invalid source", "error", err)
		c.String(http.StatusBadRequest, "invalid source")
		return
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		if errors.Is(err, database.ErrEmptyMessage) {
			s.logger.DebugContext(ctx, "Ignoring message without content", "message_id", msg.MessageID)
			c.String(http.StatusOK, "ok")
			return
		}
		s.logger.ErrorContext(ctx, "Failed to store message", "error", err, "message_id", msg.MessageID)
		c.String(http.StatusInternalServerError, "storage error")
		return
	}

	stored, err := s.store.GetMessage(ctx, msg.MessageID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to reload message", "error", err, "message_id", msg.MessageID)
		c.String(http.StatusInternalServerError, "storage error")
		return
	}

	s.dispatch(context.WithoutCancel(ctx), stored)
	c.String(http.StatusOK, "ok")
}

func (s *Server) dispatch(ctx context.Context, msg *database.Message) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, s.handlerTimeout)
		defer cancel()

		if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
			s.logger.ErrorContext(ctx, "Failed to handle message", "error", err, "message_id", msg.MessageID, "chat_jid", msg.ChatJID)
		}
	}()
}

func (s *Server) toMessage(p *whatsapp.WebhookPayload) (*database.Message, error) {
	sender, group, err := p.Source()
	if err != nil {
		return nil, err
	}

	text := p.Message.Text
	if text == "" {
		text = p.Caption()
	}
	msg := &database.Message{
		MessageID: p.Message.ID,
		Timestamp: p.Time(s.now()),
		Text:      nullString(text),
		MediaURL:  nullString(p.MediaPath()),
		ChatJID:   sender.String(),
		SenderJID: sender.String(),
		ReplyToID: nullString(p.Message.RepliedID),
		PushName:  p.PushName,
	}
	if group != nil {
		msg.ChatJID = group.String()
		msg.GroupJID = nullString(group.String())
	}
	return msg, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
