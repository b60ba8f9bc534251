package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })
	return NewStore(db, nil)
}

func text(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func groupMessage(id, group, sender, body string, at time.Time) *Message {
	return &Message{
		MessageID: id,
		Timestamp: at,
		Text:      text(body),
		ChatJID:   group,
		SenderJID: sender,
		GroupJID:  text(group),
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "twice.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	CloseDB(db)

	db, err = NewDB(path)
	require.NoError(t, err)
	defer CloseDB(db)

	version, err := ApplyMigrations(db.DB)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestSaveAndGetMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2025, time.March, 20, 10, 0, 0, 0, time.UTC)

	t.Run("stores sender and group", func(t *testing.T) {
		m := groupMessage("m1", "120363@g.us", "972500000001@s.whatsapp.net", "שלום", at)
		m.PushName = "Dana"
		require.NoError(t, s.SaveMessage(ctx, m))

		got, err := s.GetMessage(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "שלום", got.Content())
		assert.Equal(t, "Dana", got.PushName)
		assert.True(t, got.Timestamp.Equal(at))
		require.NotNil(t, got.Group)
		assert.Equal(t, "120363@g.us", got.Group.GroupJID)
		assert.False(t, got.Group.Managed)
	})

	t.Run("direct message has no group", func(t *testing.T) {
		m := &Message{MessageID: "dm1", Timestamp: at, Text: text("hi"), ChatJID: "972500000002@s.whatsapp.net", SenderJID: "972500000002@s.whatsapp.net"}
		require.NoError(t, s.SaveMessage(ctx, m))

		got, err := s.GetMessage(ctx, "dm1")
		require.NoError(t, err)
		assert.Nil(t, got.Group)
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		m := &Message{MessageID: "e1", Timestamp: at, ChatJID: "c", SenderJID: "s"}
		assert.ErrorIs(t, s.SaveMessage(ctx, m), ErrEmptyMessage)
	})

	t.Run("media only message is stored", func(t *testing.T) {
		m := &Message{MessageID: "img1", Timestamp: at, MediaURL: text("https://example.com/a.jpg"), ChatJID: "c@s.whatsapp.net", SenderJID: "c@s.whatsapp.net"}
		require.NoError(t, s.SaveMessage(ctx, m))
	})

	t.Run("resaving updates text", func(t *testing.T) {
		m := groupMessage("m1", "120363@g.us", "972500000001@s.whatsapp.net", "edited", at)
		require.NoError(t, s.SaveMessage(ctx, m))

		got, err := s.GetMessage(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Content())
		assert.Equal(t, "Dana", got.PushName)
	})

	t.Run("missing message", func(t *testing.T) {
		_, err := s.GetMessage(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMessageQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2025, time.March, 20, 8, 0, 0, 0, time.UTC)
	group := "120363@g.us"

	for i := range 10 {
		m := groupMessage(string(rune('a'+i)), group, "972500000001@s.whatsapp.net", "msg", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.SaveMessage(ctx, m))
	}
	require.NoError(t, s.SaveMessage(ctx, groupMessage("other", "999@g.us", "972500000001@s.whatsapp.net", "x", base)))

	t.Run("since is inclusive and newest first", func(t *testing.T) {
		got, err := s.GetMessagesSince(ctx, group, base.Add(7*time.Hour), 30)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "j", got[0].MessageID)
		assert.Equal(t, "h", got[2].MessageID)
	})

	t.Run("since honours the limit", func(t *testing.T) {
		got, err := s.GetMessagesSince(ctx, group, base, 4)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "j", got[0].MessageID)
	})

	t.Run("since accepts local times", func(t *testing.T) {
		jerusalem, err := time.LoadLocation("Asia/Jerusalem")
		require.NoError(t, err)
		got, err := s.GetMessagesSince(ctx, group, base.Add(9*time.Hour).In(jerusalem), 30)
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("after is exclusive and oldest first", func(t *testing.T) {
		got, err := s.GetMessagesAfter(ctx, group, base.Add(6*time.Hour), 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "h", got[0].MessageID)
		assert.Equal(t, "i", got[1].MessageID)

		got, err = s.GetMessagesAfter(ctx, group, got[1].Timestamp, 2)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "j", got[0].MessageID)

		got, err = s.GetMessagesAfter(ctx, group, time.Time{}, 0)
		require.NoError(t, err)
		assert.Len(t, got, 10)
	})

	t.Run("recent", func(t *testing.T) {
		got, err := s.GetRecentMessages(ctx, group, 7)
		require.NoError(t, err)
		require.Len(t, got, 7)
		assert.Equal(t, "j", got[0].MessageID)
		assert.Equal(t, "d", got[6].MessageID)
	})
}

func TestGroups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertGroup(ctx, &Group{GroupJID: "a@g.us", GroupName: text("A"), CommunityKeys: "genai", Managed: true}))
	require.NoError(t, s.UpsertGroup(ctx, &Group{GroupJID: "b@g.us", GroupName: text("B"), CommunityKeys: "genai,dev"}))
	require.NoError(t, s.UpsertGroup(ctx, &Group{GroupJID: "c@g.us", GroupName: text("C"), CommunityKeys: "other"}))
	require.NoError(t, s.UpsertGroup(ctx, &Group{GroupJID: "d@g.us"}))

	t.Run("upsert keeps managed flag", func(t *testing.T) {
		require.NoError(t, s.UpsertGroup(ctx, &Group{GroupJID: "a@g.us", GroupName: text("A renamed"), CommunityKeys: "genai", Managed: false}))
		g, err := s.GetGroup(ctx, "a@g.us")
		require.NoError(t, err)
		assert.True(t, g.Managed)
		assert.Equal(t, "A renamed", g.Name())
	})

	t.Run("managed groups", func(t *testing.T) {
		require.NoError(t, s.SetGroupManaged(ctx, "c@g.us", true))
		groups, err := s.GetManagedGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "a@g.us", groups[0].GroupJID)
		assert.Equal(t, "c@g.us", groups[1].GroupJID)

		assert.ErrorIs(t, s.SetGroupManaged(ctx, "zzz@g.us", true), ErrNotFound)
	})

	t.Run("related by community key", func(t *testing.T) {
		related, err := s.GetRelatedGroups(ctx, "a@g.us")
		require.NoError(t, err)
		require.Len(t, related, 1)
		assert.Equal(t, "b@g.us", related[0].GroupJID)

		none, err := s.GetRelatedGroups(ctx, "d@g.us")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("marks", func(t *testing.T) {
		at := time.Date(2025, time.March, 21, 2, 30, 0, 0, time.UTC)
		require.NoError(t, s.MarkGroupIngested(ctx, "a@g.us", at))
		require.NoError(t, s.MarkGroupSummarized(ctx, "a@g.us", at))
		g, err := s.GetGroup(ctx, "a@g.us")
		require.NoError(t, err)
		require.True(t, g.LastIngest.Valid)
		assert.True(t, g.LastIngest.Time.Equal(at))
		assert.True(t, g.LastSummarySync.Valid)
	})

	t.Run("name falls back to jid", func(t *testing.T) {
		g, err := s.GetGroup(ctx, "d@g.us")
		require.NoError(t, err)
		assert.Equal(t, "d@g.us", g.Name())
		assert.Empty(t, g.Keys())
	})
}

func TestKBTopics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.UpsertGroup(ctx, &Group{GroupJID: "a@g.us"}))
	require.NoError(t, s.UpsertGroup(ctx, &Group{GroupJID: "b@g.us"}))

	start := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)
	topics := []*KBTopic{
		{ID: "t1", GroupJID: "a@g.us", StartTime: start, Subject: "RAG", Summary: "chunking", Embedding: Vector{0.5, -1.25, 3}},
		{ID: "t2", GroupJID: "b@g.us", StartTime: start.Add(time.Hour), Subject: "Evals", Summary: "judges", Embedding: Vector{1}},
	}
	require.NoError(t, s.SaveKBTopics(ctx, topics))

	got, err := s.GetKBTopics(ctx, []string{"a@g.us"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Vector{0.5, -1.25, 3}, got[0].Embedding)

	topics[0].Summary = "chunking and reranking"
	require.NoError(t, s.SaveKBTopics(ctx, topics[:1]))

	got, err = s.GetKBTopics(ctx, []string{"a@g.us", "b@g.us"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].ID)
	assert.Equal(t, "chunking and reranking", got[1].Summary)

	none, err := s.GetKBTopics(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestVectorScan(t *testing.T) {
	t.Parallel()
	var v Vector
	assert.Error(t, v.Scan([]byte{1, 2, 3}))
	assert.Error(t, v.Scan(42))
	require.NoError(t, v.Scan(nil))
	assert.Nil(t, v)
}

func TestMaintenanceAndPing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.RunSQLMaintenance(context.Background()))
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/tmp/a b.db", ExtractDBNameFromPath("file:/tmp/a%20b.db?_pragma=x"))
	assert.Equal(t, "storage.db", ExtractDBNameFromPath("storage.db"))
	assert.Equal(t, "storage.db", ExtractDBNameFromPath(dsn("storage.db")))
	assert.Equal(t, "x.db?mode=ro", dsn("x.db?mode=ro"))
}
