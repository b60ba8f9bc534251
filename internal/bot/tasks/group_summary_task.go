package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/knowledge"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

const (
	summaryTimeout = 10 * time.Minute
	// minSummaryMessages is the activity needed before a digest is written.
	minSummaryMessages = 7
	// maxSummaryMessages bounds the prompt of one digest.
	maxSummaryMessages = 1000
)

// newGroupSummaryTask posts a digest of each managed group's activity since
// the previous one to the group and the groups of its community.
func newGroupSummaryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", GroupSummary)

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting group summary")
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
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
				results[i] = summarizeGroup(ctx, deps, group, self)
				if results[i] != nil {
					log.ErrorContext(ctx, "Failed to summarize group", "error", results[i], "group_jid", group.GroupJID)
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := errors.Join(results...); err != nil {
			return fmt.Errorf("group summary failed: %w", err)
		}
		log.InfoContext(ctx, "Group summary completed", "groups", len(groups), "duration", time.Since(startTime))
		return nil
	}
}

func summarizeGroup(ctx context.Context, deps TaskDeps, group *database.Group, self whatsapp.JID) error {
	log := deps.Logger.With("task", GroupSummary, "group_jid", group.GroupJID)

	var all []*database.Message
	err := forEachBatch(ctx, deps.Store, group.GroupJID, since(group.LastSummarySync), func(batch []*database.Message) error {
		all = append(all, batch...)
		return nil
	})
	if err != nil {
		return err
	}
	if len(all) == 0 {
		log.InfoContext(ctx, "No new messages to summarize", "group", group.Name())
		return nil
	}
	mark := newest(all)

	messages := withoutSelf(all, self)
	if len(messages) < minSummaryMessages {
		log.InfoContext(ctx, "Not enough messages to summarize", "group", group.Name(), "messages", len(messages))
		return nil
	}
	if over := len(messages) - maxSummaryMessages; over > 0 {
		log.WarnContext(ctx, "Digest backlog too long, summarizing the newest messages", "group", group.Name(), "skipped", over)
		messages = messages[over:]
	}

	summary, err := deps.GeminiClient.Generate(ctx, gemini.Request{
		SystemInstruction: fmt.Sprintf(gemini.GroupSummaryInstruction, group.Name()),
		Prompt:            knowledge.FormatHistory(messages),
	})
	if err != nil {
		return fmt.Errorf("failed to summarize: %w", err)
	}
	if summary = strings.TrimSpace(summary); summary == "" {
		return fmt.Errorf("failed to summarize: %w", gemini.ErrEmptyResponse)
	}

	// A failed send still moves the mark so the same window is not retried.
	sendErr := broadcast(ctx, deps, group, summary)
	if err := deps.Store.MarkGroupSummarized(ctx, group.GroupJID, mark); err != nil {
		return errors.Join(sendErr, fmt.Errorf("failed to mark group summarized: %w", err))
	}
	if sendErr != nil {
		return sendErr
	}

	log.InfoContext(ctx, "Group summary sent", "group", group.Name(), "messages", len(messages))
	return nil
}

// broadcast sends text to the group and then to its related groups, stopping
// at the first failure.
func broadcast(ctx context.Context, deps TaskDeps, group *database.Group, text string) error {
	if _, err := deps.Gateway.SendMessage(ctx, group.GroupJID, text, ""); err != nil {
		return fmt.Errorf("failed to send summary to %s: %w", group.GroupJID, err)
	}

	related, err := deps.Store.GetRelatedGroups(ctx, group.GroupJID)
	if err != nil {
		return fmt.Errorf("failed to load related groups: %w", err)
	}
	for _, rg := range related {
		if _, err := deps.Gateway.SendMessage(ctx, rg.GroupJID, text, ""); err != nil {
			return fmt.Errorf("failed to send summary to %s: %w", rg.GroupJID, err)
		}
	}
	return nil
}
