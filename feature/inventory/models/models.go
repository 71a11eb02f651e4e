package models

import "time"

// Dealer is one dealership whose inventory is reconciled. The code is the
// stable external identifier used by the extraction service.
type Dealer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Dealer) TableName() string {
	return "dealers"
}

// Make is a vehicle manufacturer dimension row.
type Make struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Make) TableName() string {
	return "makes"
}

// VehicleModel is a model dimension row scoped to a make.
type VehicleModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MakeID    uint      `gorm:"uniqueIndex:idx_model_make_name;not null" json:"make_id"`
	Name      string    `gorm:"size:128;uniqueIndex:idx_model_make_name;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (VehicleModel) TableName() string {
	return "vehicle_models"
}

// BodyType is a body style dimension row (SUV, Stationcar, ...).
type BodyType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

func (BodyType) TableName() string {
	return "body_types"
}

// FuelType is a fuel dimension row (Diesel, Benzin, El, ...).
type FuelType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

func (FuelType) TableName() string {
	return "fuel_types"
}

// TransmissionType is a transmission dimension row (automatic, manual).
type TransmissionType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

func (TransmissionType) TableName() string {
	return "transmission_types"
}

// InventoryListing is one vehicle a dealer currently offers. The variant
// keeps the raw trim text as extracted; structured attributes live in the
// dedicated columns. Optional attributes stay NULL when unknown so absence
// is distinguishable from zero.
type InventoryListing struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	DealerID       uint           `gorm:"index;not null" json:"dealer_id"`
	MakeID         uint           `gorm:"not null" json:"make_id"`
	ModelID        uint           `gorm:"not null" json:"model_id"`
	Variant        string         `gorm:"size:255;not null" json:"variant"`
	Horsepower     *int           `json:"horsepower,omitempty"`
	TransmissionID *uint          `json:"transmission_id,omitempty"`
	FuelTypeID     *uint          `json:"fuel_type_id,omitempty"`
	BodyTypeID     *uint          `json:"body_type_id,omitempty"`
	AllWheelDrive  bool           `gorm:"not null;default:false" json:"all_wheel_drive"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Offers         []PricingOffer `gorm:"foreignKey:ListingID" json:"offers,omitempty"`
}

func (InventoryListing) TableName() string {
	return "inventory_listings"
}

// PricingOffer is one lease pricing tuple under a listing. The composite
// unique index enforces that no duplicate (price, term, mileage) tuple can
// exist under one listing; first payment is descriptive, not identifying.
type PricingOffer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ListingID      uint      `gorm:"uniqueIndex:idx_offer_tuple,priority:1;not null" json:"listing_id"`
	MonthlyPrice   int       `gorm:"uniqueIndex:idx_offer_tuple,priority:2;not null" json:"monthly_price"`
	TermMonths     int       `gorm:"uniqueIndex:idx_offer_tuple,priority:3;not null" json:"term_months"`
	MileagePerYear int       `gorm:"uniqueIndex:idx_offer_tuple,priority:4;not null" json:"mileage_per_year"`
	FirstPayment   int       `gorm:"not null;default:0" json:"first_payment"`
	CreatedAt      time.Time `json:"created_at"`
}

func (PricingOffer) TableName() string {
	return "pricing_offers"
}

// All returns every model in this package for schema migration.
func All() []any {
	return []any{
		&Dealer{},
		&Make{},
		&VehicleModel{},
		&BodyType{},
		&FuelType{},
		&TransmissionType{},
		&InventoryListing{},
		&PricingOffer{},
	}
}
