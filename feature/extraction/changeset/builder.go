// Package changeset diffs one extraction batch against a dealer's inventory
// snapshot and turns the outcome into reviewable pending change records.
// Classification is pure; persistence happens once, in a single transaction.
package changeset

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"listing-manager/feature/extraction/match"
	extmodels "listing-manager/feature/extraction/models"
	"listing-manager/feature/extraction/offers"
	"listing-manager/feature/inventory"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Classification is the outcome of diffing a batch, before persistence.
// Unchanged pairings are counted rather than materialized; they claim their
// listing but produce no change record.
type Classification struct {
	Creates   []extmodels.VehicleRecord
	Updates   []Update
	Deletes   []inventory.Listing
	Unchanged int
	Invalid   int
}

// Update is one matched record whose tracked fields or offer set differ
// from the listing it claimed.
type Update struct {
	Record     extmodels.VehicleRecord
	Listing    inventory.Listing
	Result     match.Result
	FieldDiffs []extmodels.FieldChange
}

// Classify runs the resolver over every valid record against the shrinking
// pool of unclaimed listings. Matching runs in rounds: when two records
// claim the same listing in a round, the higher confidence wins and the
// loser re-resolves against what remains. A record without a match now can
// never match later, the pool only shrinks, so it becomes a create
// immediately. Listings left unclaimed at the end are delete candidates.
func Classify(records []extmodels.VehicleRecord, snap *inventory.Snapshot) *Classification {
	cls := &Classification{}

	byID := make(map[uint]*inventory.Listing, len(snap.Listings))
	pool := make([]match.Candidate, 0, len(snap.Listings))
	for i := range snap.Listings {
		l := &snap.Listings[i]
		byID[l.ID] = l
		pool = append(pool, match.Candidate{ListingID: l.ID, Profile: match.ProfileFromListing(l)})
	}

	profiles := make([]match.Profile, len(records))
	pending := make([]int, 0, len(records))
	for i := range records {
		if reason := records[i].Validate(); reason != "" {
			cls.Invalid++
			continue
		}
		profiles[i] = match.ProfileFromRecord(&records[i])
		pending = append(pending, i)
	}

	type resolved struct {
		index  int
		result match.Result
	}
	claimed := make(map[uint]resolved)

	for len(pending) > 0 {
		remaining := make([]match.Candidate, 0, len(pool))
		for _, c := range pool {
			if _, taken := claimed[c.ListingID]; !taken {
				remaining = append(remaining, c)
			}
		}

		contested := make(map[uint][]resolved)
		for _, idx := range pending {
			res := match.Resolve(profiles[idx], remaining)
			if res.ListingID == nil {
				cls.Creates = append(cls.Creates, records[idx])
				continue
			}
			contested[*res.ListingID] = append(contested[*res.ListingID], resolved{index: idx, result: res})
		}

		var losers []int
		for listingID, rivals := range contested {
			// Rivals arrive in record order, so on equal confidence the
			// earliest record keeps the claim.
			winner := rivals[0]
			for _, r := range rivals[1:] {
				if r.result.Confidence > winner.result.Confidence {
					winner = r
				}
			}
			claimed[listingID] = winner
			for _, r := range rivals {
				if r.index != winner.index {
					losers = append(losers, r.index)
				}
			}
		}

		sort.Ints(losers)
		pending = losers
	}

	type claim struct {
		listingID uint
		res       resolved
	}
	claims := make([]claim, 0, len(claimed))
	for id, r := range claimed {
		claims = append(claims, claim{listingID: id, res: r})
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].res.index < claims[j].res.index })

	for _, c := range claims {
		listing := byID[c.listingID]
		rec := &records[c.res.index]
		diffs := fieldChanges(rec, &profiles[c.res.index], listing)
		if len(diffs) == 0 {
			cls.Unchanged++
			continue
		}
		cls.Updates = append(cls.Updates, Update{
			Record:     *rec,
			Listing:    *listing,
			Result:     c.res.result,
			FieldDiffs: diffs,
		})
	}

	for i := range snap.Listings {
		if _, taken := claimed[snap.Listings[i].ID]; !taken {
			cls.Deletes = append(cls.Deletes, snap.Listings[i])
		}
	}

	return cls
}

// fieldChanges compares the tracked listing fields. A field only counts
// when the extracted side carries a value; extraction gaps never null out
// stored data. Offer sets are compared through their canonical form and
// reported as one aggregate change.
func fieldChanges(rec *extmodels.VehicleRecord, p *match.Profile, l *inventory.Listing) []extmodels.FieldChange {
	var diffs []extmodels.FieldChange

	if rec.Variant != "" && !strings.EqualFold(rec.Variant, l.Variant) {
		diffs = append(diffs, extmodels.FieldChange{Field: "variant", OldValue: l.Variant, NewValue: rec.Variant})
	}
	if p.Horsepower != nil && (l.Horsepower == nil || *l.Horsepower != *p.Horsepower) {
		diffs = append(diffs, extmodels.FieldChange{Field: "horsepower", OldValue: l.Horsepower, NewValue: *p.Horsepower})
	}
	if p.Transmission != "" && !strings.EqualFold(p.Transmission, l.Transmission) {
		diffs = append(diffs, extmodels.FieldChange{Field: "transmission", OldValue: l.Transmission, NewValue: p.Transmission})
	}
	if rec.FuelType != "" && !strings.EqualFold(rec.FuelType, l.FuelType) {
		diffs = append(diffs, extmodels.FieldChange{Field: "fuel_type", OldValue: l.FuelType, NewValue: rec.FuelType})
	}
	if rec.BodyType != "" && !strings.EqualFold(rec.BodyType, l.BodyType) {
		diffs = append(diffs, extmodels.FieldChange{Field: "body_type", OldValue: l.BodyType, NewValue: rec.BodyType})
	}
	if p.AllWheelDrive && !l.AllWheelDrive {
		diffs = append(diffs, extmodels.FieldChange{Field: "all_wheel_drive", OldValue: false, NewValue: true})
	}

	extracted := offers.Canonicalize(offers.FromExtracted(rec.Offers))
	existing := offers.Canonicalize(offers.FromRows(l.Offers))
	if offers.Differ(extracted, existing) {
		diffs = append(diffs, extmodels.FieldChange{Field: "offers", OldValue: existing, NewValue: extracted})
	}

	return diffs
}

// Build classifies the batch and persists the pending change records plus
// the session's build-time counters in one transaction. The session row is
// expected to exist already; its in-memory counters are refreshed on
// success.
func Build(ctx context.Context, db *gorm.DB, session *extmodels.ExtractionSession, records []extmodels.VehicleRecord, snap *inventory.Snapshot) (*extmodels.BuildSummary, error) {
	cls := Classify(records, snap)

	changes := make([]extmodels.ChangeRecord, 0, len(cls.Creates)+len(cls.Updates)+len(cls.Deletes))

	for i := range cls.Creates {
		extracted, err := marshalJSON(&cls.Creates[i])
		if err != nil {
			return nil, err
		}
		changes = append(changes, extmodels.ChangeRecord{
			ID:          uuid.NewString(),
			SessionID:   session.ID,
			Type:        extmodels.ChangeCreate,
			Status:      extmodels.ChangePending,
			Extracted:   extracted,
			MatchMethod: extmodels.MatchNone,
		})
	}

	for i := range cls.Updates {
		u := &cls.Updates[i]
		extracted, err := marshalJSON(&u.Record)
		if err != nil {
			return nil, err
		}
		existing, err := marshalJSON(&u.Listing)
		if err != nil {
			return nil, err
		}
		fieldDiffs, err := marshalJSON(u.FieldDiffs)
		if err != nil {
			return nil, err
		}
		listingID := u.Listing.ID
		changes = append(changes, extmodels.ChangeRecord{
			ID:           uuid.NewString(),
			SessionID:    session.ID,
			Type:         extmodels.ChangeUpdate,
			Status:       extmodels.ChangePending,
			ListingID:    &listingID,
			Extracted:    extracted,
			Existing:     existing,
			FieldChanges: fieldDiffs,
			MatchMethod:  u.Result.Method,
			Confidence:   u.Result.Confidence,
		})
	}

	for i := range cls.Deletes {
		existing, err := marshalJSON(&cls.Deletes[i])
		if err != nil {
			return nil, err
		}
		listingID := cls.Deletes[i].ID
		changes = append(changes, extmodels.ChangeRecord{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Type:      extmodels.ChangeDelete,
			Status:    extmodels.ChangePending,
			ListingID: &listingID,
			Existing:  existing,
		})
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(changes) > 0 {
			if err := tx.Create(&changes).Error; err != nil {
				return fmt.Errorf("failed to persist change records: %w", err)
			}
		}
		err := tx.Model(&extmodels.ExtractionSession{}).
			Where("id = ?", session.ID).
			Updates(map[string]any{
				"total_records":   len(records),
				"unchanged_count": cls.Unchanged,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update session counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session.TotalRecords = len(records)
	session.UnchangedCount = cls.Unchanged

	return &extmodels.BuildSummary{
		SessionID:    session.ID,
		TotalRecords: len(records),
		Creates:      len(cls.Creates),
		Updates:      len(cls.Updates),
		Deletes:      len(cls.Deletes),
		Unchanged:    cls.Unchanged,
		Invalid:      cls.Invalid,
	}, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change payload: %w", err)
	}
	return datatypes.JSON(b), nil
}
