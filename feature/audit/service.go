package audit

import (
	"context"
	"time"

	"listing-manager/feature/audit/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Report aggregates the outcome of all audit checks.
type Report struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Schema      *checks.SchemaReport     `json:"schema"`
	Offers      *checks.OffersReport     `json:"offers"`
	References  *checks.ReferencesReport `json:"references"`
	Sessions    *checks.SessionsReport   `json:"sessions"`
}

// Healthy reports whether every check came back clean.
func (r *Report) Healthy() bool {
	return r.Schema.Healthy() && r.Offers.Healthy() && r.References.Healthy() && r.Sessions.Healthy()
}

// FixSummary reports what a repair pass changed.
type FixSummary struct {
	OffersRemoved      int `json:"offers_removed"`
	ReferencesRepaired int `json:"references_repaired"`
	SessionsRecomputed int `json:"sessions_recomputed"`
}

// Service runs the audit checks.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new audit service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Run executes every check and aggregates the reports.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	schema, err := checks.CheckSchema(ctx, s.db)
	if err != nil {
		return nil, err
	}
	offers, err := checks.CheckOffers(ctx, s.db)
	if err != nil {
		return nil, err
	}
	references, err := checks.CheckReferences(ctx, s.db)
	if err != nil {
		return nil, err
	}
	sessions, err := checks.CheckSessions(ctx, s.db)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: time.Now().UTC(),
		Schema:      schema,
		Offers:      offers,
		References:  references,
		Sessions:    sessions,
	}, nil
}

// Fix repairs the violations a report found. References are repaired before
// offers so a dangling change is resolved while its context still exists.
func (s *Service) Fix(ctx context.Context, report *Report) (*FixSummary, error) {
	summary := &FixSummary{}

	repaired, err := checks.FixReferences(ctx, s.db, s.logger, report.References)
	if err != nil {
		return summary, err
	}
	summary.ReferencesRepaired = repaired

	removed, err := checks.FixOffers(ctx, s.db, s.logger, report.Offers)
	if err != nil {
		return summary, err
	}
	summary.OffersRemoved = removed

	recomputed, err := checks.FixSessions(ctx, s.db, s.logger, report.Sessions)
	if err != nil {
		return summary, err
	}
	summary.SessionsRecomputed = recomputed

	return summary, nil
}
