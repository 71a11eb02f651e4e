package extraction

import (
	"listing-manager/core/storage"
	"listing-manager/feature/inventory"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the extraction feature.
func NewFeature(db *gorm.DB, client storage.Client, bucket, keyPrefix string, logger *zap.Logger, snapshots *inventory.SnapshotCache) *Feature {
	svc := NewService(db, client, bucket, keyPrefix, logger, snapshots)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "extraction"
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

// Service exposes the underlying service for CLI commands that share the
// feature's wiring.
func (f *Feature) Service() *Service {
	return f.service
}
