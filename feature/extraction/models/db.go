package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionStatus is the lifecycle state of an extraction session.
type SessionStatus string

const (
	SessionPending          SessionStatus = "pending"
	SessionCompleted        SessionStatus = "completed"
	SessionPartiallyApplied SessionStatus = "partially_applied"
	SessionFailed           SessionStatus = "failed"
)

// ChangeType classifies a proposed inventory mutation.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeStatus is the review lifecycle state of a change record.
//
// pending → selected → applied|failed is the apply path; pending → discarded
// happens for changes not selected when their session is applied; pending →
// rejected is an explicit operator decision before apply. The intermediate
// selected state exists so a crash mid-batch leaves rows distinguishable
// from both pending and applied ones.
type ChangeStatus string

const (
	ChangePending   ChangeStatus = "pending"
	ChangeSelected  ChangeStatus = "selected"
	ChangeApplied   ChangeStatus = "applied"
	ChangeFailed    ChangeStatus = "failed"
	ChangeDiscarded ChangeStatus = "discarded"
	ChangeRejected  ChangeStatus = "rejected"
)

// MatchMethod records how the identity resolver paired a record.
type MatchMethod string

const (
	MatchExact        MatchMethod = "exact"
	MatchCompositeKey MatchMethod = "composite_key"
	MatchConfidence   MatchMethod = "confidence"
	MatchNone         MatchMethod = "none"
)

// ExtractionSession is one batch of extracted vehicle records from a single
// source run, scoped to one dealer. Counters are written twice: totals and
// the unchanged count at build time, the applied/discarded/error counts when
// the session is finalized by the apply engine.
type ExtractionSession struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	DealerID       uint          `gorm:"index;not null" json:"dealer_id"`
	Source         string        `gorm:"size:512" json:"source"`
	Status         SessionStatus `gorm:"size:32;index;not null;default:pending" json:"status"`
	TotalRecords   int           `gorm:"not null;default:0" json:"total_records"`
	UnchangedCount int           `gorm:"not null;default:0" json:"unchanged_count"`
	AppliedCreates int           `gorm:"not null;default:0" json:"applied_creates"`
	AppliedUpdates int           `gorm:"not null;default:0" json:"applied_updates"`
	AppliedDeletes int           `gorm:"not null;default:0" json:"applied_deletes"`
	DiscardedCount int           `gorm:"not null;default:0" json:"discarded_count"`
	ErrorCount     int           `gorm:"not null;default:0" json:"error_count"`
	AppliedAt      *time.Time    `json:"applied_at,omitempty"`
	AppliedBy      string        `gorm:"size:128" json:"applied_by,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Changes []ChangeRecord `gorm:"foreignKey:SessionID" json:"changes,omitempty"`
}

func (ExtractionSession) TableName() string {
	return "extraction_sessions"
}

// ChangeRecord is one proposed create/update/delete with its review
// lifecycle. ListingID is set for update/delete from the start and
// backfilled on create once the row exists. Payload columns are JSON:
// Extracted holds the vehicle record, Existing the listing snapshot at diff
// time, FieldChanges the field-level delta shown to reviewers.
type ChangeRecord struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	SessionID    string         `gorm:"size:36;index;not null" json:"session_id"`
	Type         ChangeType     `gorm:"size:16;not null" json:"type"`
	Status       ChangeStatus   `gorm:"size:16;index;not null;default:pending" json:"status"`
	ListingID    *uint          `gorm:"index" json:"listing_id,omitempty"`
	Extracted    datatypes.JSON `json:"extracted,omitempty"`
	Existing     datatypes.JSON `json:"existing,omitempty"`
	FieldChanges datatypes.JSON `json:"field_changes,omitempty"`
	MatchMethod  MatchMethod    `gorm:"size:32" json:"match_method,omitempty"`
	Confidence   float64        `gorm:"not null;default:0" json:"confidence"`
	ErrorDetail  string         `gorm:"size:1024" json:"error_detail,omitempty"`
	AppliedAt    *time.Time     `json:"applied_at,omitempty"`
	AppliedBy    string         `gorm:"size:128" json:"applied_by,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (ChangeRecord) TableName() string {
	return "change_records"
}

// All returns every model in this package for schema migration.
func All() []any {
	return []any{
		&ExtractionSession{},
		&ChangeRecord{},
	}
}
