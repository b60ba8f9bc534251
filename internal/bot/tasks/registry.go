package tasks

import (
	"context"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names, matching the keys of scheduler.tasks in the configuration.
const (
	SQLMaintenance  = "sql_maintenance"
	GroupSync       = "group_sync"
	KnowledgeIngest = "knowledge_ingest"
	GroupSummary    = "group_summary"
)

// RegisterAllTasks initializes and returns a map of all registered scheduled tasks.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		SQLMaintenance:  newSQLMaintenanceTask(deps),
		GroupSync:       newGroupSyncTask(deps),
		KnowledgeIngest: newKnowledgeIngestTask(deps),
		GroupSummary:    newGroupSummaryTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
