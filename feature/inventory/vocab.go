package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"listing-manager/core/database"
	"listing-manager/feature/inventory/models"

	"gorm.io/gorm"
)

// ErrEmptyName is returned when a required dimension name is blank.
var ErrEmptyName = errors.New("empty dimension name")

// Vocabulary resolves dimension names (make, model, body type, fuel type,
// transmission, dealer) to row ids, creating rows on first use. Every
// resolve is an idempotent upsert-by-name: a lost insert race falls back to
// re-reading the winner's row. Callers pass the transaction the resolution
// should take part in so created rows commit or roll back with the change
// that needed them.
//
// Resolved ids are memoized, but only for rows that were already committed
// when looked up: a row created inside the caller's transaction is not
// cached, because that transaction may still roll back. Dimension rows are
// never deleted, so a cached id stays valid.
type Vocabulary struct {
	mu  sync.Mutex
	ids map[string]uint
}

// NewVocabulary returns a reference vocabulary resolver.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]uint)}
}

func vocabKey(kind string, scope uint, name string) string {
	return fmt.Sprintf("%s:%d:%s", kind, scope, strings.ToLower(name))
}

func (v *Vocabulary) cached(key string) (uint, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.ids[key]
	return id, ok
}

func (v *Vocabulary) remember(key string, id uint) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ids[key] = id
}

// ResolveDealer finds or creates a dealer by its external code. The name is
// only written on first creation; later payloads do not rename dealers.
func (v *Vocabulary) ResolveDealer(ctx context.Context, tx *gorm.DB, code, name string) (uint, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, fmt.Errorf("resolve dealer: %w", ErrEmptyName)
	}
	key := vocabKey("dealer", 0, code)
	if id, ok := v.cached(key); ok {
		return id, nil
	}

	var row models.Dealer
	err := tx.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if err == nil {
		v.remember(key, row.ID)
		return row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("resolve dealer %q: %w", code, err)
	}

	row = models.Dealer{Code: code, Name: strings.TrimSpace(name)}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		if database.IsDuplicateKeyErr(err) {
			return v.ResolveDealer(ctx, tx, code, name)
		}
		return 0, fmt.Errorf("create dealer %q: %w", code, err)
	}
	return row.ID, nil
}

// ResolveMake finds or creates a make by name, case-insensitively.
func (v *Vocabulary) ResolveMake(ctx context.Context, tx *gorm.DB, name string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("resolve make: %w", ErrEmptyName)
	}
	key := vocabKey("make", 0, name)
	if id, ok := v.cached(key); ok {
		return id, nil
	}

	var row models.Make
	err := tx.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&row).Error
	if err == nil {
		v.remember(key, row.ID)
		return row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("resolve make %q: %w", name, err)
	}

	row = models.Make{Name: name}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		if database.IsDuplicateKeyErr(err) {
			return v.ResolveMake(ctx, tx, name)
		}
		return 0, fmt.Errorf("create make %q: %w", name, err)
	}
	return row.ID, nil
}

// ResolveModel finds or creates a model by name under a make.
func (v *Vocabulary) ResolveModel(ctx context.Context, tx *gorm.DB, makeID uint, name string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("resolve model: %w", ErrEmptyName)
	}
	key := vocabKey("model", makeID, name)
	if id, ok := v.cached(key); ok {
		return id, nil
	}

	var row models.VehicleModel
	err := tx.WithContext(ctx).Where("make_id = ? AND LOWER(name) = LOWER(?)", makeID, name).First(&row).Error
	if err == nil {
		v.remember(key, row.ID)
		return row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("resolve model %q: %w", name, err)
	}

	row = models.VehicleModel{MakeID: makeID, Name: name}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		if database.IsDuplicateKeyErr(err) {
			return v.ResolveModel(ctx, tx, makeID, name)
		}
		return 0, fmt.Errorf("create model %q: %w", name, err)
	}
	return row.ID, nil
}

// ResolveBodyType finds or creates a body type. Empty input resolves to
// nil: body type is optional on listings.
func (v *Vocabulary) ResolveBodyType(ctx context.Context, tx *gorm.DB, name string) (*uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	key := vocabKey("body", 0, name)
	if id, ok := v.cached(key); ok {
		return &id, nil
	}

	var row models.BodyType
	err := tx.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&row).Error
	if err == nil {
		v.remember(key, row.ID)
		return &row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("resolve body type %q: %w", name, err)
	}

	row = models.BodyType{Name: name}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		if !database.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("create body type %q: %w", name, err)
		}
		// Lost the race, the winner's row is there now.
		if err := tx.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&row).Error; err != nil {
			return nil, fmt.Errorf("re-read body type %q: %w", name, err)
		}
		v.remember(key, row.ID)
	}
	return &row.ID, nil
}

// ResolveFuelType finds or creates a fuel type. Empty input resolves to nil.
func (v *Vocabulary) ResolveFuelType(ctx context.Context, tx *gorm.DB, name string) (*uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	key := vocabKey("fuel", 0, name)
	if id, ok := v.cached(key); ok {
		return &id, nil
	}

	var row models.FuelType
	err := tx.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&row).Error
	if err == nil {
		v.remember(key, row.ID)
		return &row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("resolve fuel type %q: %w", name, err)
	}

	row = models.FuelType{Name: name}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		if !database.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("create fuel type %q: %w", name, err)
		}
		if err := tx.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&row).Error; err != nil {
			return nil, fmt.Errorf("re-read fuel type %q: %w", name, err)
		}
		v.remember(key, row.ID)
	}
	return &row.ID, nil
}

// ResolveTransmission finds or creates a transmission type from its
// canonical name. Empty input resolves to nil.
func (v *Vocabulary) ResolveTransmission(ctx context.Context, tx *gorm.DB, name string) (*uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	key := vocabKey("transmission", 0, name)
	if id, ok := v.cached(key); ok {
		return &id, nil
	}

	var row models.TransmissionType
	err := tx.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&row).Error
	if err == nil {
		v.remember(key, row.ID)
		return &row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("resolve transmission %q: %w", name, err)
	}

	row = models.TransmissionType{Name: name}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		if !database.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("create transmission %q: %w", name, err)
		}
		if err := tx.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&row).Error; err != nil {
			return nil, fmt.Errorf("re-read transmission %q: %w", name, err)
		}
		v.remember(key, row.ID)
	}
	return &row.ID, nil
}
