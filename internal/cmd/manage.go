package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/whatsapp"
)

var manageOff bool

var manageCmd = &cobra.Command{
	Use:   "manage <group_jid>",
	Short: "Turn replies and ingestion on or off for a group",
	Long: `Mark a group as managed so the bot answers and ingests it. Groups are
created unmanaged when first seen; run group_sync first to discover them.`,
	Args: cobra.ExactArgs(1),
	RunE: runManage,
}

func init() {
	rootCmd.AddCommand(manageCmd)
	manageCmd.Flags().BoolVar(&manageOff, "off", false, "Stop managing the group")
}

func runManage(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	db, store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	jid := whatsapp.NormalizeJID(args[0])
	if err := store.SetGroupManaged(cmd.Context(), jid, !manageOff); err != nil {
		return fmt.Errorf("failed to update group %s: %w", jid, err)
	}

	state := "managed"
	if manageOff {
		state = "unmanaged"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", jid, state)
	return nil
}
