package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

const (
	ingestTimeout = 10 * time.Minute
	// groupWorkers bounds the groups processed at once.
	groupWorkers = 4
)

// newKnowledgeIngestTask distills every managed group's new messages into
// knowledge-base topics.
func newKnowledgeIngestTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", KnowledgeIngest)

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting knowledge ingest")
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(ctx, ingestTimeout)
		defer cancel()

		self, err := deps.Gateway.SelfJID(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve own identity: %w", err)
		}
		groups, err := deps.Store.GetManagedGroups(ctx)
		if err != nil {
			return fmt.Errorf("failed to load managed groups: %w", err)
		}

		var g errgroup.Group
		g.SetLimit(groupWorkers)
		results := make([]error, len(groups))
		for i, group := range groups {
			g.Go(func() error {
				results[i] = ingestGroup(ctx, deps, group, self)
				if results[i] != nil {
					log.ErrorContext(ctx, "Failed to ingest group", "error", results[i], "group_jid", group.GroupJID)
				}
				return nil
			})
		}
		_ = g.Wait()

		duration := time.Since(startTime)
		if err := errors.Join(results...); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				log.WarnContext(ctx, "Knowledge ingest timed out or was cancelled", "error", err, "duration", duration)
			}
			return fmt.Errorf("knowledge ingest failed: %w", err)
		}
		log.InfoContext(ctx, "Knowledge ingest completed", "groups", len(groups), "duration", duration)
		return nil
	}
}

// ingestGroup walks the backlog page by page. Each page moves the mark to
// its newest message, so later arrivals and unread pages stay pending.
func ingestGroup(ctx context.Context, deps TaskDeps, group *database.Group, self whatsapp.JID) error {
	log := deps.Logger.With("task", KnowledgeIngest, "group_jid", group.GroupJID)

	var read, ingested, saved int
	err := forEachBatch(ctx, deps.Store, group.GroupJID, since(group.LastIngest), func(batch []*database.Message) error {
		read += len(batch)
		if messages := withoutSelf(batch, self); len(messages) > 0 {
			topics, err := deps.Ingester.Topics(ctx, group.GroupJID, messages, self.User)
			if err != nil {
				return fmt.Errorf("failed to extract topics: %w", err)
			}
			if err := deps.Store.SaveKBTopics(ctx, topics); err != nil {
				return fmt.Errorf("failed to save topics: %w", err)
			}
			ingested += len(messages)
			saved += len(topics)
		}
		if err := deps.Store.MarkGroupIngested(ctx, group.GroupJID, newest(batch)); err != nil {
			return fmt.Errorf("failed to mark group ingested: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if read == 0 {
		log.InfoContext(ctx, "No new messages to ingest", "group", group.Name())
		return nil
	}
	log.InfoContext(ctx, "Group ingested", "group", group.Name(), "messages", ingested, "topics", saved)
	return nil
}
