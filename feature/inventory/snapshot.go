package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"listing-manager/feature/inventory/models"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Listing is a denormalized view of one inventory listing: dimension ids
// resolved to names, child offers attached. This is the shape identity
// matching and the display surface work against.
type Listing struct {
	ID            uint                  `json:"listing_id"`
	DealerID      uint                  `json:"dealer_id"`
	Make          string                `json:"make"`
	Model         string                `json:"model"`
	Variant       string                `json:"variant"`
	Horsepower    *int                  `json:"horsepower,omitempty"`
	Transmission  string                `json:"transmission,omitempty"`
	FuelType      string                `json:"fuel_type,omitempty"`
	BodyType      string                `json:"body_type,omitempty"`
	AllWheelDrive bool                  `json:"all_wheel_drive"`
	Offers        []models.PricingOffer `json:"offers,omitempty"`
}

// Snapshot is one dealer's full inventory at load time. Reconciliation
// reads only from a snapshot; it never touches live rows.
type Snapshot struct {
	DealerID uint
	LoadedAt time.Time
	Listings []Listing
}

type dimensionIndex struct {
	makes         map[uint]string
	vehicleModels map[uint]string
	bodyTypes     map[uint]string
	fuelTypes     map[uint]string
	transmissions map[uint]string
}

// LoadSnapshot reads a dealer's listings, their offers and the dimension
// names in three concurrent queries and assembles the denormalized view.
// Listings come back ordered by id so downstream candidate iteration is
// deterministic.
func LoadSnapshot(ctx context.Context, db *gorm.DB, dealerID uint) (*Snapshot, error) {
	var (
		listings []models.InventoryListing
		offers   []models.PricingOffer
		dims     dimensionIndex

		listErr, offerErr, dimErr error
	)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		listErr = db.WithContext(ctx).
			Where("dealer_id = ?", dealerID).
			Order("id").
			Find(&listings).Error
	}()

	go func() {
		defer wg.Done()
		sub := db.Model(&models.InventoryListing{}).Select("id").Where("dealer_id = ?", dealerID)
		offerErr = db.WithContext(ctx).
			Where("listing_id IN (?)", sub).
			Order("listing_id, id").
			Find(&offers).Error
	}()

	go func() {
		defer wg.Done()
		dims, dimErr = loadDimensions(ctx, db)
	}()

	wg.Wait()

	if listErr != nil {
		return nil, fmt.Errorf("load listings for dealer %d: %w", dealerID, listErr)
	}
	if offerErr != nil {
		return nil, fmt.Errorf("load offers for dealer %d: %w", dealerID, offerErr)
	}
	if dimErr != nil {
		return nil, fmt.Errorf("load dimensions: %w", dimErr)
	}

	offersByListing := make(map[uint][]models.PricingOffer, len(listings))
	for _, offer := range offers {
		offersByListing[offer.ListingID] = append(offersByListing[offer.ListingID], offer)
	}

	snap := &Snapshot{
		DealerID: dealerID,
		LoadedAt: time.Now(),
		Listings: make([]Listing, 0, len(listings)),
	}
	for _, l := range listings {
		snap.Listings = append(snap.Listings, Listing{
			ID:            l.ID,
			DealerID:      l.DealerID,
			Make:          dims.makes[l.MakeID],
			Model:         dims.vehicleModels[l.ModelID],
			Variant:       l.Variant,
			Horsepower:    l.Horsepower,
			Transmission:  derefName(dims.transmissions, l.TransmissionID),
			FuelType:      derefName(dims.fuelTypes, l.FuelTypeID),
			BodyType:      derefName(dims.bodyTypes, l.BodyTypeID),
			AllWheelDrive: l.AllWheelDrive,
			Offers:        offersByListing[l.ID],
		})
	}
	return snap, nil
}

func loadDimensions(ctx context.Context, db *gorm.DB) (dimensionIndex, error) {
	dims := dimensionIndex{
		makes:         make(map[uint]string),
		vehicleModels: make(map[uint]string),
		bodyTypes:     make(map[uint]string),
		fuelTypes:     make(map[uint]string),
		transmissions: make(map[uint]string),
	}

	var makes []models.Make
	if err := db.WithContext(ctx).Find(&makes).Error; err != nil {
		return dims, fmt.Errorf("load makes: %w", err)
	}
	for _, m := range makes {
		dims.makes[m.ID] = m.Name
	}

	var vehicleModels []models.VehicleModel
	if err := db.WithContext(ctx).Find(&vehicleModels).Error; err != nil {
		return dims, fmt.Errorf("load models: %w", err)
	}
	for _, m := range vehicleModels {
		dims.vehicleModels[m.ID] = m.Name
	}

	var bodyTypes []models.BodyType
	if err := db.WithContext(ctx).Find(&bodyTypes).Error; err != nil {
		return dims, fmt.Errorf("load body types: %w", err)
	}
	for _, b := range bodyTypes {
		dims.bodyTypes[b.ID] = b.Name
	}

	var fuelTypes []models.FuelType
	if err := db.WithContext(ctx).Find(&fuelTypes).Error; err != nil {
		return dims, fmt.Errorf("load fuel types: %w", err)
	}
	for _, f := range fuelTypes {
		dims.fuelTypes[f.ID] = f.Name
	}

	var transmissions []models.TransmissionType
	if err := db.WithContext(ctx).Find(&transmissions).Error; err != nil {
		return dims, fmt.Errorf("load transmissions: %w", err)
	}
	for _, tr := range transmissions {
		dims.transmissions[tr.ID] = tr.Name
	}

	return dims, nil
}

func derefName(names map[uint]string, id *uint) string {
	if id == nil {
		return ""
	}
	return names[*id]
}

// SnapshotCache caches dealer snapshots with a TTL. A TTL of zero means
// every Get loads fresh, which is what reconciliation uses so diffs never
// run against stale inventory; the display surface runs with a positive
// TTL. Concurrent loads for the same dealer are collapsed via singleflight.
type SnapshotCache struct {
	db  *gorm.DB
	ttl time.Duration

	mu      sync.RWMutex
	entries map[uint]*Snapshot

	group singleflight.Group
}

// NewSnapshotCache creates a snapshot cache over the given database.
func NewSnapshotCache(db *gorm.DB, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		db:      db,
		ttl:     ttl,
		entries: make(map[uint]*Snapshot),
	}
}

func (c *SnapshotCache) fresh(dealerID uint) *Snapshot {
	if c.ttl <= 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[dealerID]
	if !ok || time.Since(snap.LoadedAt) > c.ttl {
		return nil
	}
	return snap
}

// Get returns the dealer's snapshot, loading it if the cached one is
// missing or expired.
func (c *SnapshotCache) Get(ctx context.Context, dealerID uint) (*Snapshot, error) {
	if snap := c.fresh(dealerID); snap != nil {
		return snap, nil
	}

	v, err, _ := c.group.Do(fmt.Sprintf("dealer-%d", dealerID), func() (any, error) {
		// Double-check: another caller may have finished the load while
		// this one waited on the group.
		if snap := c.fresh(dealerID); snap != nil {
			return snap, nil
		}

		snap, err := LoadSnapshot(ctx, c.db, dealerID)
		if err != nil {
			return nil, err
		}

		if c.ttl > 0 {
			c.mu.Lock()
			c.entries[dealerID] = snap
			c.mu.Unlock()
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the cached snapshot for a dealer. The apply engine calls
// this after mutating inventory so the display surface does not serve rows
// that no longer exist.
func (c *SnapshotCache) Invalidate(dealerID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, dealerID)
}
