package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrEmptyMessage is returned for messages carrying neither text nor media.
	ErrEmptyMessage = errors.New("message has no text or media")
)

// Store defines the interface for database operations.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage stores a message together with its sender and group.
	SaveMessage(ctx context.Context, message *Message) error

	// GetMessage loads a message and its group.
	GetMessage(ctx context.Context, messageID string) (*Message, error)

	// GetGroup loads one group.
	GetGroup(ctx context.Context, groupJID string) (*Group, error)

	// UpsertGroup creates a group or refreshes its metadata. The managed flag
	// is only written on insert.
	UpsertGroup(ctx context.Context, group *Group) error

	// SetGroupManaged turns replies and ingestion on or off for a group.
	SetGroupManaged(ctx context.Context, groupJID string, managed bool) error

	// GetManagedGroups lists groups the bot serves.
	GetManagedGroups(ctx context.Context) ([]*Group, error)

	// GetRelatedGroups lists other groups sharing a community key with groupJID.
	GetRelatedGroups(ctx context.Context, groupJID string) ([]*Group, error)

	// GetMessagesSince returns up to limit messages of a chat newer than since, newest first.
	GetMessagesSince(ctx context.Context, chatJID string, since time.Time, limit int) ([]*Message, error)

	// GetMessagesAfter returns up to limit messages of a chat strictly newer
	// than after, oldest first, so a caller can page through a backlog.
	GetMessagesAfter(ctx context.Context, chatJID string, after time.Time, limit int) ([]*Message, error)

	// GetRecentMessages returns the last limit messages of a chat, newest first.
	GetRecentMessages(ctx context.Context, chatJID string, limit int) ([]*Message, error)

	// MarkGroupIngested records the timestamp of the newest ingested message.
	MarkGroupIngested(ctx context.Context, groupJID string, at time.Time) error

	// MarkGroupSummarized records the timestamp of the newest summarized message.
	MarkGroupSummarized(ctx context.Context, groupJID string, at time.Time) error

	// SaveKBTopics upserts knowledge-base topics.
	SaveKBTopics(ctx context.Context, topics []*KBTopic) error

	// GetKBTopics returns every topic of the given groups.
	GetKBTopics(ctx context.Context, groupJIDs []string) ([]*KBTopic, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// maxQueryLimit caps message reads.
const maxQueryLimit = 500

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}
}

// dbTime normalises instants so stored values compare lexically in order.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.MessageID == "" {
		return fmt.Errorf("message must have a message_id")
	}
	if message.ChatJID == "" || message.SenderJID == "" {
		return fmt.Errorf("message must have chat_jid and sender_jid")
	}
	if message.Content() == "" && (!message.MediaURL.Valid || message.MediaURL.String == "") {
		return ErrEmptyMessage
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = s.now()
	}
	message.Timestamp = dbTime(message.Timestamp)
	now := dbTime(s.now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving message", "message_id", message.MessageID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	pushName := sql.NullString{String: message.PushName, Valid: message.PushName != ""}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO senders (jid, push_name, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (jid) DO UPDATE SET
            push_name = COALESCE(excluded.push_name, senders.push_name),
            updated_at = excluded.updated_at;
    `, message.SenderJID, pushName, now, now); err != nil {
		return fmt.Errorf("failed to upsert sender %s: %w", message.SenderJID, err)
	}

	if message.GroupJID.Valid {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO chat_groups (group_jid, managed, community_keys, created_at, updated_at)
            VALUES (?, 0, '', ?, ?)
            ON CONFLICT (group_jid) DO NOTHING;
        `, message.GroupJID.String, now, now); err != nil {
			return fmt.Errorf("failed to ensure group %s: %w", message.GroupJID.String, err)
		}
	}

	if _, err := tx.NamedExecContext(ctx, `
        INSERT INTO messages (message_id, timestamp, text, media_url, chat_jid, sender_jid, group_jid, reply_to_id)
        VALUES (:message_id, :timestamp, :text, :media_url, :chat_jid, :sender_jid, :group_jid, :reply_to_id)
        ON CONFLICT (message_id) DO UPDATE SET
            text = excluded.text,
            media_url = excluded.media_url;
    `, message); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "message_id", message.MessageID, "error", err)
		return fmt.Errorf("failed to save message %s: %w", message.MessageID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "message_id", message.MessageID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Message saved successfully", "message_id", message.MessageID, "chat_jid", message.ChatJID)
	return nil
}

const messageColumns = `message_id, timestamp, text, media_url, chat_jid, sender_jid, group_jid, reply_to_id`

func (s *sqlxStore) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	var m Message
	err := s.db.GetContext(ctx, &m, `SELECT `+messageColumns+` FROM messages WHERE message_id = ?;`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	if err := s.db.GetContext(ctx, &m.PushName, `SELECT COALESCE(push_name, '') FROM senders WHERE jid = ?;`, m.SenderJID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get sender of message %s: %w", messageID, err)
	}

	if m.GroupJID.Valid {
		g, err := s.GetGroup(ctx, m.GroupJID.String)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		m.Group = g
	}
	return &m, nil
}

const groupColumns = `group_jid, group_name, group_topic, owner_jid, managed, community_keys, last_ingest, last_summary_sync, created_at, updated_at`

func (s *sqlxStore) GetGroup(ctx context.Context, groupJID string) (*Group, error) {
	var g Group
	err := s.db.GetContext(ctx, &g, `SELECT `+groupColumns+` FROM chat_groups WHERE group_jid = ?;`, groupJID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupJID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group %s: %w", groupJID, err)
	}
	return &g, nil
}

func (s *sqlxStore) UpsertGroup(ctx context.Context, group *Group) error {
	if group == nil || group.GroupJID == "" {
		return fmt.Errorf("group must have a group_jid")
	}
	now := dbTime(s.now())
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
        INSERT INTO chat_groups (group_jid, group_name, group_topic, owner_jid, managed, community_keys, created_at, updated_at)
        VALUES (:group_jid, :group_name, :group_topic, :owner_jid, :managed, :community_keys, :created_at, :updated_at)
        ON CONFLICT (group_jid) DO UPDATE SET
            group_name = excluded.group_name,
            group_topic = excluded.group_topic,
            owner_jid = excluded.owner_jid,
            community_keys = excluded.community_keys,
            updated_at = excluded.updated_at;
    `, group)
	if err != nil {
		return fmt.Errorf("failed to upsert group %s: %w", group.GroupJID, err)
	}
	return nil
}

func (s *sqlxStore) SetGroupManaged(ctx context.Context, groupJID string, managed bool) error {
	return s.updateGroup(ctx, groupJID, `UPDATE chat_groups SET managed = ?, updated_at = ? WHERE group_jid = ?;`, managed)
}

func (s *sqlxStore) MarkGroupIngested(ctx context.Context, groupJID string, at time.Time) error {
	return s.updateGroup(ctx, groupJID, `UPDATE chat_groups SET last_ingest = ?, updated_at = ? WHERE group_jid = ?;`, dbTime(at))
}

func (s *sqlxStore) MarkGroupSummarized(ctx context.Context, groupJID string, at time.Time) error {
	return s.updateGroup(ctx, groupJID, `UPDATE chat_groups SET last_summary_sync = ?, updated_at = ? WHERE group_jid = ?;`, dbTime(at))
}

func (s *sqlxStore) updateGroup(ctx context.Context, groupJID, query string, value any) error {
	res, err := s.db.ExecContext(ctx, query, value, dbTime(s.now()), groupJID)
	if err != nil {
		return fmt.Errorf("failed to update group %s: %w", groupJID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("group %s: %w", groupJID, ErrNotFound)
	}
	return nil
}

func (s *sqlxStore) GetManagedGroups(ctx context.Context) ([]*Group, error) {
	var groups []*Group
	if err := s.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM chat_groups WHERE managed = 1 ORDER BY group_jid;`); err != nil {
		return nil, fmt.Errorf("failed to list managed groups: %w", err)
	}
	return groups, nil
}

func (s *sqlxStore) GetRelatedGroups(ctx context.Context, groupJID string) ([]*Group, error) {
	group, err := s.GetGroup(ctx, groupJID)
	if err != nil {
		return nil, err
	}
	keys := group.Keys()
	if len(keys) == 0 {
		return nil, nil
	}

	var candidates []*Group
	if err := s.db.SelectContext(ctx, &candidates, `
        SELECT `+groupColumns+` FROM chat_groups
        WHERE group_jid != ? AND community_keys != ''
        ORDER BY group_jid;
    `, groupJID); err != nil {
		return nil, fmt.Errorf("failed to list community groups: %w", err)
	}

	var related []*Group
	for _, c := range candidates {
		if slices.ContainsFunc(c.Keys(), func(k string) bool { return slices.Contains(keys, k) }) {
			related = append(related, c)
		}
	}
	return related, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

func (s *sqlxStore) GetMessagesSince(ctx context.Context, chatJID string, since time.Time, limit int) ([]*Message, error) {
	var messages []*Message
	err := s.db.SelectContext(ctx, &messages, `
        SELECT `+messageColumns+` FROM messages
        WHERE chat_jid = ? AND timestamp >= ?
        ORDER BY timestamp DESC, message_id DESC
        LIMIT ?;
    `, chatJID, dbTime(since), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get messages of %s since %s: %w", chatJID, since.Format(time.RFC3339), err)
	}
	return messages, nil
}

func (s *sqlxStore) GetMessagesAfter(ctx context.Context, chatJID string, after time.Time, limit int) ([]*Message, error) {
	var messages []*Message
	err := s.db.SelectContext(ctx, &messages, `
        SELECT `+messageColumns+` FROM messages
        WHERE chat_jid = ? AND timestamp > ?
        ORDER BY timestamp, message_id
        LIMIT ?;
    `, chatJID, dbTime(after), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get messages of %s after %s: %w", chatJID, after.Format(time.RFC3339), err)
	}
	return messages, nil
}

func (s *sqlxStore) GetRecentMessages(ctx context.Context, chatJID string, limit int) ([]*Message, error) {
	var messages []*Message
	err := s.db.SelectContext(ctx, &messages, `
        SELECT `+messageColumns+` FROM messages
        WHERE chat_jid = ?
        ORDER BY timestamp DESC, message_id DESC
        LIMIT ?;
    `, chatJID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages of %s: %w", chatJID, err)
	}
	return messages, nil
}

func (s *sqlxStore) SaveKBTopics(ctx context.Context, topics []*KBTopic) error {
	if len(topics) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	for _, t := range topics {
		t.StartTime = dbTime(t.StartTime)
		if _, err := tx.NamedExecContext(ctx, `
            INSERT INTO kb_topics (id, group_jid, start_time, speakers, subject, summary, embedding)
            VALUES (:id, :group_jid, :start_time, :speakers, :subject, :summary, :embedding)
            ON CONFLICT (id) DO UPDATE SET
                speakers = excluded.speakers,
                subject = excluded.subject,
                summary = excluded.summary,
                embedding = excluded.embedding;
        `, t); err != nil {
			return fmt.Errorf("failed to save topic %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Knowledge-base topics saved", "count", len(topics))
	return nil
}

func (s *sqlxStore) GetKBTopics(ctx context.Context, groupJIDs []string) ([]*KBTopic, error) {
	if len(groupJIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
        SELECT id, group_jid, start_time, speakers, subject, summary, embedding
        FROM kb_topics
        WHERE group_jid IN (?)
        ORDER BY start_time DESC, id;
    `, groupJIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build topics query: %w", err)
	}

	var topics []*KBTopic
	if err := s.db.SelectContext(ctx, &topics, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	return topics, nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Running SQL maintenance (VACUUM)")
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	return nil
}
