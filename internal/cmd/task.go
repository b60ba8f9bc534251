package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task <name>",
	Short: "Run one scheduled task immediately",
	Long: `Run one registered task (sql_maintenance, group_sync, knowledge_ingest,
group_summary) once and exit, regardless of its schedule.`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func init() {
	rootCmd.AddCommand(taskCmd)
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	if err := a.scheduler.RunNow(ctx, args[0]); err != nil {
		return fmt.Errorf("task %s failed: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "task %s finished in %s\n", args[0], time.Since(start).Round(time.Millisecond))
	return nil
}
