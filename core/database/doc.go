// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly configure
// MySQL connections based on the application's configuration. A sqlite driver branch
// exists for in-memory databases in tests.
//
// # Connect
//
// The generic Connect function establishes a connection to the database. Schema
// ownership lives with the feature model packages; the migrate command applies them.
//
// # Schema Inspection
//
// The package includes tools to inspect the database schema, used by the audit
// feature to verify that live tables match the expected models.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "inventory_listings")
package database
