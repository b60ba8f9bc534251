package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

const groupSyncTimeout = 2 * time.Minute

// newGroupSyncTask refreshes group names, topics and owners from the gateway.
// The managed flag and community keys are never changed.
func newGroupSyncTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", GroupSync)

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting group sync")
		startTime := time.Now()

		ctx, cancel := context.WithTimeout(ctx, groupSyncTimeout)
		defer cancel()

		groups, err := deps.Gateway.ListGroups(ctx)
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}

		var synced int
		var errs []error
		for _, info := range groups {
			if err := syncGroup(ctx, deps.Store, info); err != nil {
				log.ErrorContext(ctx, "Failed to sync group", "error", err, "group_jid", info.JID)
				errs = append(errs, err)
				continue
			}
			synced++
		}

		log.InfoContext(ctx, "Group sync completed", "groups", len(groups), "synced", synced, "duration", time.Since(startTime))
		if len(errs) > 0 {
			return fmt.Errorf("group sync failed for %d groups: %w", len(errs), errors.Join(errs...))
		}
		return nil
	}
}

func syncGroup(ctx context.Context, store database.Store, info whatsapp.GroupInfo) error {
	jid := whatsapp.NormalizeJID(info.JID)
	if jid == "" {
		return fmt.Errorf("group without jid")
	}

	group := &database.Group{GroupJID: jid}
	existing, err := store.GetGroup(ctx, jid)
	switch {
	case err == nil:
		group.CommunityKeys = existing.CommunityKeys
		group.CreatedAt = existing.CreatedAt
	case !errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("failed to load group %s: %w", jid, err)
	}

	group.GroupName = nullString(info.Name)
	group.GroupTopic = nullString(info.Topic)
	group.OwnerJID = nullString(info.Owner())
	return store.UpsertGroup(ctx, group)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
