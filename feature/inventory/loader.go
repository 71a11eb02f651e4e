package inventory

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the inventory display feature with its own snapshot
// cache. The cache is shared with the extraction feature for invalidation
// after applies.
func NewFeature(db *gorm.DB, logger *zap.Logger, snapshotTTL time.Duration) *Feature {
	svc := NewService(db, logger, NewSnapshotCache(db, snapshotTTL))
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "inventory"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the underlying service for feature wiring.
func (f *Feature) Service() *Service {
	return f.service
}
