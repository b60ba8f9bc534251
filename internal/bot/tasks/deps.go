// Package tasks implements the bot's scheduled tasks: database maintenance,
// group metadata sync, knowledge-base ingestion and the group digest.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/zmanimbot/internal/config"
	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

// Gateway is the slice of the WhatsApp client used by tasks.
type Gateway interface {
	SendMessage(ctx context.Context, chatJID, text, replyTo string) (string, error)
	SelfJID(ctx context.Context) (whatsapp.JID, error)
	ListGroups(ctx context.Context) ([]whatsapp.GroupInfo, error)
}

// TopicExtractor distills a group conversation into knowledge-base topics.
type TopicExtractor interface {
	Topics(ctx context.Context, groupJID string, messages []*database.Message, selfUser string) ([]*database.KBTopic, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger       *slog.Logger
	Store        database.Store
	GeminiClient gemini.Client
	Config       *config.Config
	Gateway      Gateway
	Ingester     TopicExtractor
	Now          func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// since is the stored mark or the zero time when the group was never processed.
func since(mark sql.NullTime) time.Time {
	if mark.Valid {
		return mark.Time
	}
	return time.Time{}
}

// messageBatchSize is the page size used to walk a group's backlog.
const messageBatchSize = 200

// forEachBatch pages through the chat's messages newer than after, oldest
// first, calling fn once per page. It stops at the first error.
func forEachBatch(ctx context.Context, store database.Store, chatJID string, after time.Time, fn func([]*database.Message) error) error {
	for {
		batch, err := store.GetMessagesAfter(ctx, chatJID, after, messageBatchSize)
		if err != nil {
			return fmt.Errorf("failed to load messages: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < messageBatchSize {
			return nil
		}
		after = newest(batch)
	}
}

// newest is the timestamp of the last message of an oldest-first page.
func newest(messages []*database.Message) time.Time {
	return messages[len(messages)-1].Timestamp
}

// withoutSelf drops the bot's own messages.
func withoutSelf(messages []*database.Message, self whatsapp.JID) []*database.Message {
	out := make([]*database.Message, 0, len(messages))
	own := self.Normalize().String()
	for _, m := range messages {
		if whatsapp.NormalizeJID(m.SenderJID) == own {
			continue
		}
		out = append(out, m)
	}
	return out
}
