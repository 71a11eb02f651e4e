package checks

import (
	"context"
	"fmt"

	"listing-manager/core/database"

	"gorm.io/gorm"
)

// requiredColumns maps each audited table to the columns the engine reads
// and writes. Missing entries mean the schema drifted behind the models and
// `migrate` needs to run before the other checks can be trusted.
var requiredColumns = map[string][]string{
	"inventory_listings": {
		"id", "dealer_id", "make_id", "model_id", "variant", "horsepower", "all_wheel_drive",
	},
	"pricing_offers": {
		"id", "listing_id", "monthly_price", "term_months", "mileage_per_year", "first_payment",
	},
	"extraction_sessions": {
		"id", "dealer_id", "status", "total_records", "unchanged_count",
	},
	"change_records": {
		"id", "session_id", "type", "status", "listing_id",
	},
}

// MissingColumn is one column the models define but the live table lacks.
type MissingColumn struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// SchemaReport lists drift between the live schema and the models.
type SchemaReport struct {
	MissingTables  []string        `json:"missing_tables,omitempty"`
	MissingColumns []MissingColumn `json:"missing_columns,omitempty"`
}

// Healthy reports whether the check found no violations.
func (r *SchemaReport) Healthy() bool {
	return len(r.MissingTables) == 0 && len(r.MissingColumns) == 0
}

// CheckSchema verifies that every audited table exists and carries the
// columns the engine depends on. There is no fix; schema repair is the
// migrate command's job.
func CheckSchema(ctx context.Context, db *gorm.DB) (*SchemaReport, error) {
	report := &SchemaReport{}
	tx := db.WithContext(ctx)

	for _, table := range []string{"inventory_listings", "pricing_offers", "extraction_sessions", "change_records"} {
		if !tx.Migrator().HasTable(table) {
			report.MissingTables = append(report.MissingTables, table)
			continue
		}

		columns, err := database.GetTableColumns(tx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
		}
		present := make(map[string]bool, len(columns))
		for _, col := range columns {
			present[col.Field] = true
		}
		for _, want := range requiredColumns[table] {
			if !present[want] {
				report.MissingColumns = append(report.MissingColumns, MissingColumn{Table: table, Column: want})
			}
		}
	}

	return report, nil
}
