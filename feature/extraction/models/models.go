package models

import (
	"encoding/json"
	"strings"

	"listing-manager/core/utils"
)

// ExtractionPayload is the envelope the extraction service delivers: one
// dealer, one source document, all records extracted from it.
type ExtractionPayload struct {
	Dealer  DealerRef       `json:"dealer"`
	Source  string          `json:"source"`
	Records []VehicleRecord `json:"records"`
}

// DealerRef identifies the dealer a payload belongs to.
type DealerRef struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// VehicleRecord is one extracted vehicle. Make, model and variant are the
// extraction's raw text; horsepower/transmission/fuel/body are optional
// structured attributes the extraction may or may not have produced.
type VehicleRecord struct {
	Make         string           `json:"make"`
	Model        string           `json:"model"`
	Variant      string           `json:"variant"`
	Horsepower   *int             `json:"horsepower,omitempty"`
	Transmission string           `json:"transmission,omitempty"`
	FuelType     string           `json:"fuel_type,omitempty"`
	BodyType     string           `json:"body_type,omitempty"`
	Offers       []ExtractedOffer `json:"offers,omitempty"`
}

// UnmarshalJSON decodes a record leniently. Extraction output carries
// numbers inconsistently (150, "150", 150.0), so scalar fields go through
// the tolerant converters instead of failing the whole payload.
func (r *VehicleRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Make = stringField(raw, "make")
	r.Model = stringField(raw, "model")
	r.Variant = stringField(raw, "variant")
	r.Horsepower = utils.ToIntPtr(raw["horsepower"])
	r.Transmission = stringField(raw, "transmission")
	r.FuelType = stringField(raw, "fuel_type")
	r.BodyType = stringField(raw, "body_type")

	r.Offers = nil
	if rawOffers, ok := raw["offers"].([]any); ok {
		for _, ro := range rawOffers {
			m, ok := ro.(map[string]any)
			if !ok {
				continue
			}
			r.Offers = append(r.Offers, offerFromMap(m))
		}
	}

	return nil
}

// Validate returns a non-empty reason if the record cannot be reconciled.
func (r *VehicleRecord) Validate() string {
	if r.Make == "" {
		return "missing make"
	}
	if r.Model == "" {
		return "missing model"
	}
	if r.Variant == "" {
		return "missing variant"
	}
	return ""
}

// ExtractedOffer is one pricing tuple as extracted. Zero values mean the
// source did not state the field; canonical defaults are applied by the
// offer reconciler, not here.
type ExtractedOffer struct {
	MonthlyPrice   int `json:"monthly_price"`
	FirstPayment   int `json:"first_payment,omitempty"`
	TermMonths     int `json:"term_months,omitempty"`
	MileagePerYear int `json:"mileage_per_year,omitempty"`
}

// UnmarshalJSON decodes an offer leniently, mirroring VehicleRecord.
func (o *ExtractedOffer) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = offerFromMap(raw)
	return nil
}

func stringField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(utils.ToString(v))
}

func offerFromMap(m map[string]any) ExtractedOffer {
	return ExtractedOffer{
		MonthlyPrice:   utils.ToInt(m["monthly_price"]),
		FirstPayment:   utils.ToInt(m["first_payment"]),
		TermMonths:     utils.ToInt(m["term_months"]),
		MileagePerYear: utils.ToInt(m["mileage_per_year"]),
	}
}

// FieldChange is one field-level difference between an extracted record and
// the listing it matched, recorded on update change records for review.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old"`
	NewValue any    `json:"new"`
}

// BuildSummary reports what the change set builder produced for a session.
type BuildSummary struct {
	SessionID    string `json:"session_id"`
	DealerCode   string `json:"dealer_code"`
	TotalRecords int    `json:"total_records"`
	Creates      int    `json:"creates"`
	Updates      int    `json:"updates"`
	Deletes      int    `json:"deletes"`
	Unchanged    int    `json:"unchanged"`
	Invalid      int    `json:"invalid"`
}

// ApplySummary reports the outcome of one apply invocation.
type ApplySummary struct {
	SessionID      string       `json:"session_id"`
	AppliedCreates int          `json:"applied_creates"`
	AppliedUpdates int          `json:"applied_updates"`
	AppliedDeletes int          `json:"applied_deletes"`
	DiscardedCount int          `json:"discarded_count"`
	ErrorCount     int          `json:"error_count"`
	ErrorDetails   []ApplyError `json:"error_details,omitempty"`
}

// ApplyError attributes one per-change failure to its change and listing so
// an operator can re-select and retry just the failed subset.
type ApplyError struct {
	ChangeID  string `json:"change_id"`
	ListingID *uint  `json:"listing_id,omitempty"`
	Message   string `json:"message"`
}
