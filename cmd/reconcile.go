package cmd

import (
	"fmt"
	"os"

	"listing-manager/core/config"
	"listing-manager/core/database"
	"listing-manager/core/logger"
	"listing-manager/core/storage"
	"listing-manager/feature/extraction"
	extmodels "listing-manager/feature/extraction/models"
	"listing-manager/feature/inventory"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reconcileDealer string
	reconcileFile   string
	reconcileObject string
)

// reconcileCmd ingests one extraction payload and builds its change set.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Ingest an extraction payload and build its change set",
	Long: `Ingest a batch of extracted vehicle records, diff it against the dealer's
current inventory and persist the pending change records for review.

The payload comes either from a local file or from an object in the
configured storage bucket. Nothing is applied; use the apply command once
the change set has been reviewed.

Examples:
  # Ingest a local payload file
  listing-manager reconcile --file pricesheet.json

  # Ingest a payload object from the storage bucket
  listing-manager reconcile --object 2026/08/dealer-42.json

  # Guard against ingesting a payload for the wrong dealer
  listing-manager reconcile --file pricesheet.json --dealer AUTO-NORD`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileDealer, "dealer", "", "Expected dealer code (ingest fails if the payload names another dealer)")
	reconcileCmd.Flags().StringVar(&reconcileFile, "file", "", "Path to a local payload file")
	reconcileCmd.Flags().StringVar(&reconcileObject, "object", "", "Payload object key in the storage bucket")
	reconcileCmd.MarkFlagsMutuallyExclusive("file", "object")
	reconcileCmd.MarkFlagsOneRequired("file", "object")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
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

	// Diffs load fresh snapshots; no display cache involved here.
	cache := inventory.NewSnapshotCache(db, 0)
	svc := extraction.NewService(db, store, cfg.Storage.Bucket, cfg.Storage.PayloadPrefix, l, cache)

	l.Info("Building change set...")

	var summary *extmodels.BuildSummary
	if reconcileObject != "" {
		summary, err = svc.IngestObject(ctx, reconcileObject)
	} else {
		var data []byte
		data, err = os.ReadFile(reconcileFile)
		if err != nil {
			return fmt.Errorf("failed to read payload file: %w", err)
		}

		if reconcileDealer != "" {
			payload, decodeErr := extraction.DecodePayload(data)
			if decodeErr != nil {
				return decodeErr
			}
			if payload.Dealer.Code != reconcileDealer {
				return fmt.Errorf("payload names dealer %q, expected %q", payload.Dealer.Code, reconcileDealer)
			}
		}

		summary, err = svc.Ingest(ctx, data, reconcileFile)
	}
	if err != nil {
		return err
	}

	// Object payloads are only decoded inside the service, so the dealer
	// guard runs after the fact there.
	if reconcileDealer != "" && summary.DealerCode != reconcileDealer {
		return fmt.Errorf("payload names dealer %q, expected %q; session %s was created but should not be applied",
			summary.DealerCode, reconcileDealer, summary.SessionID)
	}

	l.Info("Change set built",
		zap.String("session_id", summary.SessionID),
		zap.String("dealer", summary.DealerCode))

	fmt.Println("\n=== Change Set Summary ===")
	fmt.Printf("Session:   %s\n", summary.SessionID)
	fmt.Printf("Dealer:    %s\n", summary.DealerCode)
	fmt.Printf("Records:   %d\n", summary.TotalRecords)
	fmt.Printf("Creates:   %d\n", summary.Creates)
	fmt.Printf("Updates:   %d\n", summary.Updates)
	fmt.Printf("Deletes:   %d\n", summary.Deletes)
	fmt.Printf("Unchanged: %d\n", summary.Unchanged)
	fmt.Printf("Invalid:   %d\n", summary.Invalid)
	fmt.Printf("\nReview the changes, then run: listing-manager apply --session %s\n", summary.SessionID)

	return nil
}
