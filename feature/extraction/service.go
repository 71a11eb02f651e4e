// Package extraction is the ingest and review surface for extracted vehicle
// batches: payload intake, change set building, operator review and the
// apply command.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"

	"listing-manager/core/storage"
	"listing-manager/feature/extraction/apply"
	"listing-manager/feature/extraction/changeset"
	"listing-manager/feature/extraction/models"
	"listing-manager/feature/inventory"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sentinel errors the transport layer maps to client responses.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrChangeNotFound  = errors.New("change not found")
)

// Service orchestrates extraction sessions: payload intake, diffing against
// the dealer's inventory and the review/apply lifecycle of the resulting
// change records.
type Service struct {
	db        *gorm.DB
	client    storage.Client
	bucket    string
	keyPrefix string
	logger    *zap.Logger
	engine    *apply.Engine
	vocab     *inventory.Vocabulary
	snapshots *inventory.SnapshotCache
}

// NewService creates the extraction service. The snapshot cache is shared
// with the inventory display feature so applies can invalidate it.
func NewService(db *gorm.DB, client storage.Client, bucket, keyPrefix string, logger *zap.Logger, snapshots *inventory.SnapshotCache) *Service {
	return &Service{
		db:        db,
		client:    client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		logger:    logger,
		engine:    apply.NewEngine(db, logger),
		vocab:     inventory.NewVocabulary(),
		snapshots: snapshots,
	}
}

// Ingest validates and decodes one raw extraction payload, creates the
// session and builds its pending change set against a fresh inventory
// snapshot. The source names where the payload came from (upload, object
// key) for the session's audit trail.
func (s *Service) Ingest(ctx context.Context, data []byte, source string) (*models.BuildSummary, error) {
	payload, err := DecodePayload(data)
	if err != nil {
		return nil, err
	}

	dealerID, err := s.vocab.ResolveDealer(ctx, s.db, payload.Dealer.Code, payload.Dealer.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if source == "" {
		source = payload.Source
	}

	session := &models.ExtractionSession{
		ID:       uuid.NewString(),
		DealerID: dealerID,
		Source:   source,
		Status:   models.SessionPending,
	}

	// The session row and its change set commit together; a failed build
	// must not leave an empty pending session behind.
	var summary *models.BuildSummary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		// Diffs always run against a fresh snapshot, never the display cache.
		snap, err := inventory.LoadSnapshot(ctx, tx, dealerID)
		if err != nil {
			return err
		}

		summary, err = changeset.Build(ctx, tx, session, payload.Records, snap)
		return err
	})
	if err != nil {
		return nil, err
	}
	summary.DealerCode = payload.Dealer.Code

	s.logger.Info("Extraction session built",
		zap.String("session_id", session.ID),
		zap.String("dealer", payload.Dealer.Code),
		zap.Int("records", summary.TotalRecords),
		zap.Int("creates", summary.Creates),
		zap.Int("updates", summary.Updates),
		zap.Int("deletes", summary.Deletes),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("invalid", summary.Invalid))

	return summary, nil
}

// IngestObject fetches a payload object from the storage bucket and ingests
// it. The object key is recorded as the session source.
func (s *Service) IngestObject(ctx context.Context, objectKey string) (*models.BuildSummary, error) {
	key := s.keyPrefix + objectKey

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payload object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload object %s: %w", key, err)
	}

	return s.Ingest(ctx, data, key)
}

// ListSessions returns sessions, optionally filtered by dealer code and
// status, newest first.
func (s *Service) ListSessions(ctx context.Context, dealerCode string, status models.SessionStatus) ([]models.ExtractionSession, error) {
	q := s.db.WithContext(ctx).Model(&models.ExtractionSession{})

	if dealerCode != "" {
		q = q.Where("dealer_id IN (?)",
			s.db.Table("dealers").Select("id").Where("code = ?", dealerCode))
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var sessions []models.ExtractionSession
	if err := q.Order("created_at DESC, id").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns one session by id.
func (s *Service) GetSession(ctx context.Context, id string) (*models.ExtractionSession, error) {
	var session models.ExtractionSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return &session, nil
}

// ListChanges returns a session's change records, optionally filtered by
// status and type, in diff order.
func (s *Service) ListChanges(ctx context.Context, sessionID string, status models.ChangeStatus, changeType models.ChangeType) ([]models.ChangeRecord, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if changeType != "" {
		q = q.Where("type = ?", changeType)
	}

	var changes []models.ChangeRecord
	if err := q.Order("created_at, id").Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("failed to list changes for session %s: %w", sessionID, err)
	}
	return changes, nil
}

// Reject marks a pending change rejected. A rejected change is never swept
// into an apply; the transition only works while the change is pending.
func (s *Service) Reject(ctx context.Context, sessionID, changeID, actor string) error {
	res := s.db.WithContext(ctx).Model(&models.ChangeRecord{}).
		Where("id = ? AND session_id = ? AND status = ?", changeID, sessionID, models.ChangePending).
		Updates(map[string]any{
			"status":     models.ChangeRejected,
			"applied_by": actor,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to reject change %s: %w", changeID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s is not a pending change of session %s", ErrChangeNotFound, changeID, sessionID)
	}

	s.logger.Info("Change rejected",
		zap.String("session_id", sessionID),
		zap.String("change_id", changeID),
		zap.String("actor", actor))
	return nil
}

// Apply runs the apply engine for the selected changes and invalidates the
// dealer's display snapshot so consumers see the mutated inventory.
func (s *Service) Apply(ctx context.Context, sessionID string, changeIDs []string, actor string) (*models.ApplySummary, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary, err := s.engine.Apply(ctx, sessionID, changeIDs, actor)
	if summary != nil && s.snapshots != nil {
		s.snapshots.Invalidate(session.DealerID)
	}
	return summary, err
}

// PendingChangeIDs returns the ids of a session's pending changes, for the
// CLI's --all-pending selection.
func (s *Service) PendingChangeIDs(ctx context.Context, sessionID string) ([]string, error) {
	changes, err := s.ListChanges(ctx, sessionID, models.ChangePending, "")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(changes))
	for i := range changes {
		ids = append(ids, changes[i].ID)
	}
	return ids, nil
}
