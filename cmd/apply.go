package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"listing-manager/core/config"
	"listing-manager/core/database"
	"listing-manager/core/logger"
	"listing-manager/core/storage"
	"listing-manager/feature/extraction"
	"listing-manager/feature/inventory"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	applySession    string
	applyChanges    []string
	applyAllPending bool
	applyActor      string
	applyYes        bool
)

// applyCmd applies operator-selected changes of a session to inventory.
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply selected changes of an extraction session",
	Long: `Apply the selected change records of a session to the inventory store.

Selected pending changes are applied in create, update, delete order;
pending changes not selected are discarded. Per-change failures are
reported and do not abort the batch.

Examples:
  # Apply two specific changes
  listing-manager apply --session 7b0c... --changes id1,id2 --actor jens

  # Apply everything still pending, without the confirmation prompt
  listing-manager apply --session 7b0c... --all-pending --actor jens --yes`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVar(&applySession, "session", "", "Extraction session id")
	applyCmd.Flags().StringSliceVar(&applyChanges, "changes", nil, "Comma-separated change record ids to apply")
	applyCmd.Flags().BoolVar(&applyAllPending, "all-pending", false, "Apply every pending change of the session")
	applyCmd.Flags().StringVar(&applyActor, "actor", "", "Name of the operator applying the changes")
	applyCmd.Flags().BoolVar(&applyYes, "yes", false, "Auto-confirm (non-interactive)")
	_ = applyCmd.MarkFlagRequired("session")
	_ = applyCmd.MarkFlagRequired("actor")
	applyCmd.MarkFlagsMutuallyExclusive("changes", "all-pending")
	applyCmd.MarkFlagsOneRequired("changes", "all-pending")

	RootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	cache := inventory.NewSnapshotCache(db, 0)
	svc := extraction.NewService(db, store, cfg.Storage.Bucket, cfg.Storage.PayloadPrefix, l, cache)

	changeIDs := applyChanges
	if applyAllPending {
		changeIDs, err = svc.PendingChangeIDs(ctx, applySession)
		if err != nil {
			return err
		}
		if len(changeIDs) == 0 {
			l.Info("Session has no pending changes", zap.String("session_id", applySession))
			return nil
		}
	}

	fmt.Printf("About to apply %d change(s) of session %s as %s.\n", len(changeIDs), applySession, applyActor)
	fmt.Println("Unselected pending changes of this session will be discarded.")
	if !confirmApply() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	l.Info("Applying changes...",
		zap.String("session_id", applySession),
		zap.Int("selected", len(changeIDs)))

	summary, err := svc.Apply(ctx, applySession, changeIDs, applyActor)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Apply Summary ===")
	fmt.Printf("Session:   %s\n", summary.SessionID)
	fmt.Printf("Creates:   %d\n", summary.AppliedCreates)
	fmt.Printf("Updates:   %d\n", summary.AppliedUpdates)
	fmt.Printf("Deletes:   %d\n", summary.AppliedDeletes)
	fmt.Printf("Discarded: %d\n", summary.DiscardedCount)
	fmt.Printf("Errors:    %d\n", summary.ErrorCount)

	if len(summary.ErrorDetails) > 0 {
		fmt.Println("\nFailed changes (re-select and retry after fixing the cause):")
		for _, e := range summary.ErrorDetails {
			if e.ListingID != nil {
				fmt.Printf("- %s (listing %d): %s\n", e.ChangeID, *e.ListingID, e.Message)
			} else {
				fmt.Printf("- %s: %s\n", e.ChangeID, e.Message)
			}
		}
	}

	return nil
}

// confirmApply prompts the user for confirmation or uses the --yes flag.
func confirmApply() bool {
	if applyYes {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to apply the selected changes: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
