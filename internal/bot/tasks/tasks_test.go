package tasks

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

const (
	botJID   = "972500000000@s.whatsapp.net"
	groupA   = "120363000000000001@g.us"
	groupB   = "120363000000000002@g.us"
	groupNew = "120363000000000003@g.us"
)

var now = time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	mu      sync.Mutex
	groups  []whatsapp.GroupInfo
	sent    map[string][]string
	sendErr error
}

func (g *fakeGateway) SendMessage(_ context.Context, chatJID, text, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return "", g.sendErr
	}
	if g.sent == nil {
		g.sent = map[string][]string{}
	}
	g.sent[chatJID] = append(g.sent[chatJID], text)
	return "ID", nil
}

func (g *fakeGateway) SelfJID(context.Context) (whatsapp.JID, error) {
	return whatsapp.ParseJID(botJID)
}

func (g *fakeGateway) ListGroups(context.Context) ([]whatsapp.GroupInfo, error) {
	return g.groups, nil
}

type fakeIngester struct {
	mu      sync.Mutex
	calls   map[string][]*database.Message
	batches int
	self    string
}

func (f *fakeIngester) Topics(_ context.Context, groupJID string, messages []*database.Message, selfUser string) ([]*database.KBTopic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string][]*database.Message{}
	}
	f.calls[groupJID] = append(f.calls[groupJID], messages...)
	f.batches++
	f.self = selfUser
	return []*database.KBTopic{{
		ID:        "topic-" + groupJID + messages[0].MessageID,
		GroupJID:  groupJID,
		StartTime: messages[0].Timestamp,
		Subject:   "Lunch",
		Summary:   "pizza it is",
		Embedding: database.Vector{1, 0},
	}}, nil
}

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []gemini.Request
}

func (f *fakeLLM) Generate(_ context.Context, req gemini.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeLLM) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }

type fixture struct {
	deps     TaskDeps
	store    database.Store
	gateway  *fakeGateway
	ingester *fakeIngester
	llm      *fakeLLM
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	f := &fixture{
		store:    database.NewStore(db, nil),
		gateway:  &fakeGateway{},
		ingester: &fakeIngester{},
		llm:      &fakeLLM{reply: "quick summary"},
	}
	f.deps = TaskDeps{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:        f.store,
		GeminiClient: f.llm,
		Gateway:      f.gateway,
		Ingester:     f.ingester,
		Now:          func() time.Time { return now },
	}
	return f
}

func (f *fixture) group(t *testing.T, jid string, managed bool, keys string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.UpsertGroup(ctx, &database.Group{
		GroupJID:      jid,
		GroupName:     sql.NullString{String: "name of " + jid, Valid: true},
		CommunityKeys: keys,
	}))
	if managed {
		require.NoError(t, f.store.SetGroupManaged(ctx, jid, true))
	}
}

func (f *fixture) messages(t *testing.T, group string, n int, from string, start time.Time) {
	t.Helper()
	for i := range n {
		m := &database.Message{
			MessageID: group + from + start.Format(time.TimeOnly) + string(rune('a'+i)),
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Text:      sql.NullString{String: "hello", Valid: true},
			ChatJID:   group,
			SenderJID: from,
			GroupJID:  sql.NullString{String: group, Valid: true},
		}
		require.NoError(t, f.store.SaveMessage(context.Background(), m))
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()
	tasks := RegisterAllTasks(newFixture(t).deps)
	for _, name := range []string{SQLMaintenance, GroupSync, KnowledgeIngest, GroupSummary} {
		assert.Contains(t, tasks, name)
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	require.NoError(t, newSQLMaintenanceTask(f.deps)(context.Background()))
}

func TestGroupSyncKeepsManagedFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.group(t, groupA, true, "community-1")
	f.gateway.groups = []whatsapp.GroupInfo{
		{JID: groupA, Name: "Renamed", Topic: "new topic", OwnerJID: "123@lid", OwnerPN: "972500000009@s.whatsapp.net"},
		{JID: groupNew, Name: "Fresh", OwnerJID: "972500000008:3@s.whatsapp.net"},
	}

	require.NoError(t, newGroupSyncTask(f.deps)(ctx))

	a, err := f.store.GetGroup(ctx, groupA)
	require.NoError(t, err)
	assert.True(t, a.Managed)
	assert.Equal(t, "community-1", a.CommunityKeys)
	assert.Equal(t, "Renamed", a.Name())
	assert.Equal(t, "new topic", a.GroupTopic.String)
	assert.Equal(t, "972500000009@s.whatsapp.net", a.OwnerJID.String)

	fresh, err := f.store.GetGroup(ctx, groupNew)
	require.NoError(t, err)
	assert.False(t, fresh.Managed)
	assert.Equal(t, "972500000008@s.whatsapp.net", fresh.OwnerJID.String)
	assert.False(t, fresh.GroupTopic.Valid)
}

func TestKnowledgeIngest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.group(t, groupA, true, "")
	f.group(t, groupB, false, "")
	start := now.Add(-2 * time.Hour)
	f.messages(t, groupA, 3, "972500000001@s.whatsapp.net", start)
	f.messages(t, groupA, 2, botJID, start)
	f.messages(t, groupB, 3, "972500000001@s.whatsapp.net", start)

	task := newKnowledgeIngestTask(f.deps)
	require.NoError(t, task(ctx))

	require.Len(t, f.ingester.calls, 1)
	assert.Len(t, f.ingester.calls[groupA], 3)
	assert.Equal(t, "972500000000", f.ingester.self)

	topics, err := f.store.GetKBTopics(ctx, []string{groupA})
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Lunch", topics[0].Subject)

	g, err := f.store.GetGroup(ctx, groupA)
	require.NoError(t, err)
	require.True(t, g.LastIngest.Valid)
	assert.True(t, g.LastIngest.Time.Equal(start.Add(2*time.Minute)), "mark is the newest message, got %s", g.LastIngest.Time)

	f.ingester.calls = nil
	require.NoError(t, task(ctx))
	assert.Empty(t, f.ingester.calls)

	// A message stored while the previous run was in flight is older than
	// the run's clock but newer than the mark.
	f.messages(t, groupA, 1, "972500000002@s.whatsapp.net", start.Add(30*time.Minute))
	require.NoError(t, task(ctx))
	require.Len(t, f.ingester.calls[groupA], 1)
	assert.Equal(t, "972500000002@s.whatsapp.net", f.ingester.calls[groupA][0].SenderJID)
}

func TestKnowledgeIngestPagesThroughBacklog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.group(t, groupA, true, "")
	start := now.Add(-24 * time.Hour)
	total := messageBatchSize + 50
	f.messages(t, groupA, total, "972500000001@s.whatsapp.net", start)

	require.NoError(t, newKnowledgeIngestTask(f.deps)(ctx))
	assert.Len(t, f.ingester.calls[groupA], total)
	assert.Equal(t, 2, f.ingester.batches)

	g, err := f.store.GetGroup(ctx, groupA)
	require.NoError(t, err)
	assert.True(t, g.LastIngest.Time.Equal(start.Add(time.Duration(total-1)*time.Minute)))
}

func TestGroupSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("needs enough activity", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.group(t, groupA, true, "")
		start := now.Add(-time.Hour)
		f.messages(t, groupA, 6, "972500000001@s.whatsapp.net", start)
		f.messages(t, groupA, 5, botJID, start)

		require.NoError(t, newGroupSummaryTask(f.deps)(ctx))
		assert.Empty(t, f.gateway.sent)
		assert.Empty(t, f.llm.requests)

		g, err := f.store.GetGroup(ctx, groupA)
		require.NoError(t, err)
		assert.False(t, g.LastSummarySync.Valid)
	})

	t.Run("sends to group and community", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.group(t, groupA, true, "community-1")
		f.group(t, groupB, false, "community-1")
		f.messages(t, groupA, 7, "972500000001@s.whatsapp.net", now.Add(-time.Hour))

		require.NoError(t, newGroupSummaryTask(f.deps)(ctx))
		assert.Equal(t, []string{"quick summary"}, f.gateway.sent[groupA])
		assert.Equal(t, []string{"quick summary"}, f.gateway.sent[groupB])
		require.Len(t, f.llm.requests, 1)
		assert.Contains(t, f.llm.requests[0].SystemInstruction, `"name of `+groupA+`"`)

		g, err := f.store.GetGroup(ctx, groupA)
		require.NoError(t, err)
		require.True(t, g.LastSummarySync.Valid)
		assert.True(t, g.LastSummarySync.Time.Equal(now.Add(-time.Hour+6*time.Minute)))

		f.messages(t, groupA, 7, "972500000002@s.whatsapp.net", now.Add(-30*time.Minute))
		require.NoError(t, newGroupSummaryTask(f.deps)(ctx))
		assert.Len(t, f.gateway.sent[groupA], 2)
	})

	t.Run("failed send still moves the mark", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.group(t, groupA, true, "")
		f.gateway.sendErr = errors.New("gateway down")
		f.messages(t, groupA, 7, "972500000001@s.whatsapp.net", now.Add(-time.Hour))

		require.Error(t, newGroupSummaryTask(f.deps)(ctx))

		g, err := f.store.GetGroup(ctx, groupA)
		require.NoError(t, err)
		assert.True(t, g.LastSummarySync.Valid)
	})

	t.Run("failed summary keeps the mark", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.group(t, groupA, true, "")
		f.llm.err = errors.New("quota")
		f.messages(t, groupA, 7, "972500000001@s.whatsapp.net", now.Add(-time.Hour))

		require.Error(t, newGroupSummaryTask(f.deps)(ctx))
		assert.Empty(t, f.gateway.sent)

		g, err := f.store.GetGroup(ctx, groupA)
		require.NoError(t, err)
		assert.False(t, g.LastSummarySync.Valid)
	})
}
