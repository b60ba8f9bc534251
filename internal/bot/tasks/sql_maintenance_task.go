package tasks

import (
	"context"
	"fmt"
	"time"
)

const maintenanceTimeout = 15 * time.Minute

// newSQLMaintenanceTask compacts and re-analyzes the database file.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", SQLMaintenance)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
		defer cancel()

		start := time.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "Database maintenance failed", "error", err, "duration", time.Since(start))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}
		log.InfoContext(ctx, "Database maintenance done", "duration", time.Since(start))
		return nil
	}
}
