package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"listing-manager/core/config"
	"listing-manager/core/database"
	"listing-manager/core/logger"
	"listing-manager/feature/audit"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	auditJSON bool
	auditFix  bool
)

// auditCmd runs the store invariant checks.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check store invariants (offers, references, sessions)",
	Long: `Checks the invariants the reconciliation pipeline relies on: offer tuple
uniqueness, referential integrity between change records and listings,
stale apply state and session counter accuracy.

Outputs metrics by default or a detailed JSON report with --json.
Run with --fix to repair the violations that have a safe automatic repair.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Save the detailed report as JSON")
	auditCmd.Flags().BoolVar(&auditFix, "fix", false, "Repair violations where a safe repair exists")

	RootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	startTime := time.Now()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection required: %w", err)
	}

	svc := audit.NewService(db, logg)

	logg.Info("Running audit checks...")
	report, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if auditJSON {
		filename := fmt.Sprintf("audit_%d.json", time.Now().Unix())
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		if err := os.WriteFile(filename, data, 0644); err != nil {
			return fmt.Errorf("failed to save JSON file: %w", err)
		}
		logg.Info("Detailed JSON report saved", zap.String("file", filename))
	}

	executionTime := time.Since(startTime)

	fmt.Println("\n=== Audit Metrics ===")
	fmt.Printf("Missing Tables:         %d\n", len(report.Schema.MissingTables))
	fmt.Printf("Missing Columns:        %d\n", len(report.Schema.MissingColumns))
	fmt.Printf("Duplicate Offer Tuples: %d\n", len(report.Offers.DuplicateTuples))
	fmt.Printf("Orphaned Offers:        %d\n", len(report.Offers.OrphanedOffers))
	fmt.Printf("Dangling Changes:       %d\n", len(report.References.DanglingChanges))
	fmt.Printf("Stale Selected Changes: %d\n", len(report.References.StaleSelected))
	fmt.Printf("Session Counter Drift:  %d\n", len(report.Sessions.CounterDrift))
	fmt.Printf("Claim Violations:       %d\n", len(report.Sessions.ClaimViolations))
	fmt.Printf("Execution Time:         %s\n", executionTime.String())

	if report.Healthy() {
		logg.Info("Store is healthy", zap.Duration("execution_time", executionTime))
		return nil
	}

	if !auditFix {
		logg.Warn("Violations found. Run with --fix to repair what can be repaired automatically.")
		return nil
	}

	logg.Info("Repairing violations...")
	summary, err := svc.Fix(ctx, report)
	if err != nil {
		return fmt.Errorf("audit fix failed: %w", err)
	}

	logg.Info("Audit repairs completed",
		zap.Int("offers_removed", summary.OffersRemoved),
		zap.Int("references_repaired", summary.ReferencesRepaired),
		zap.Int("sessions_recomputed", summary.SessionsRecomputed))

	if len(report.Sessions.ClaimViolations) > 0 {
		logg.Warn("Claim violations have no automatic repair and need manual review",
			zap.Int("count", len(report.Sessions.ClaimViolations)))
	}
	if !report.Schema.Healthy() {
		logg.Warn("Schema drift is not repaired by --fix; run the migrate command")
	}

	return nil
}
