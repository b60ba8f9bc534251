package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/zmanimbot/internal/classifier"
	"github.com/edgard/zmanimbot/internal/config"
	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/whatsapp"
	"github.com/edgard/zmanimbot/internal/zmanim"
)

// Transport sends chat messages and knows the bot's own identity.
type Transport interface {
	SendMessage(ctx context.Context, chatJID, text, replyTo string) (string, error)
	SelfJID(ctx context.Context) (whatsapp.JID, error)
}

// ZmanimProvider computes one day's zmanim.
type ZmanimProvider interface {
	Compute(ctx context.Context, day time.Time) (zmanim.Result, error)
	Location() zmanim.Location
}

// DateHeader renders the date line opening every zmanim reply.
type DateHeader interface {
	Header(ctx context.Context, date time.Time) string
}

// HandlerDeps provides dependencies for message handlers.
type HandlerDeps struct {
	Logger       *slog.Logger
	Config       *config.Config
	Store        database.Store
	GeminiClient gemini.Client
	Transport    Transport
	Zmanim       ZmanimProvider
	Dates        DateHeader
	Classifier   classifier.Matcher
	Now          func() time.Time
}

func (d HandlerDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
