// Package match pairs extracted vehicle records against existing inventory
// listings. Trim descriptions diverge in wording between price sheets and
// stored inventory, so matching runs in layers from strict to fuzzy and
// records which layer paired, keeping every pairing auditable.
package match

import (
	"strings"

	extmodels "listing-manager/feature/extraction/models"
	"listing-manager/feature/extraction/normalize"
	"listing-manager/feature/inventory"
)

// Scoring weights and thresholds for the confidence level. A horsepower
// figure within the tolerance of the candidate counts half the exact weight.
const (
	compositeConfidence = 0.95

	weightCoreExact    = 0.4
	weightCorePartial  = 0.2
	weightPowerExact   = 0.3
	weightPowerNear    = 0.15
	weightTransmission = 0.2
	weightDrivetrain   = 0.1

	powerTolerance  = 5
	acceptThreshold = 0.8
)

// Profile is the normalized identity of one vehicle. Attributes parsed out
// of the variant text and structured payload fields are merged here so both
// sides of a match speak the same vocabulary.
type Profile struct {
	Make          string
	Model         string
	RawVariant    string
	CoreVariant   string
	Horsepower    *int
	Transmission  string
	AllWheelDrive bool
}

// Candidate is one inventory listing prepared for matching.
type Candidate struct {
	ListingID uint
	Profile   Profile
}

// Result describes how one extracted record was paired. ListingID is nil
// when Method is none.
type Result struct {
	ListingID  *uint
	Method     extmodels.MatchMethod
	Confidence float64
}

// ProfileFromRecord builds the matching profile for an extracted record.
// Attributes found in the variant text win over the structured payload
// fields; the payload fields fill the gaps.
func ProfileFromRecord(rec *extmodels.VehicleRecord) Profile {
	attrs := normalize.Normalize(rec.Variant)

	p := Profile{
		Make:          rec.Make,
		Model:         rec.Model,
		RawVariant:    rec.Variant,
		CoreVariant:   attrs.CoreVariant,
		Horsepower:    attrs.Horsepower,
		Transmission:  attrs.Transmission,
		AllWheelDrive: attrs.AllWheelDrive,
	}
	if p.Horsepower == nil {
		p.Horsepower = rec.Horsepower
	}
	if p.Transmission == "" {
		p.Transmission = normalize.Transmission(rec.Transmission)
	}
	return p
}

// ProfileFromListing builds the matching profile for an inventory listing.
// Stored variants can carry the same power and transmission tokens extraction
// output does, so the text goes through the same normalization before the
// structured columns fill the gaps.
func ProfileFromListing(l *inventory.Listing) Profile {
	attrs := normalize.Normalize(l.Variant)

	p := Profile{
		Make:          l.Make,
		Model:         l.Model,
		RawVariant:    l.Variant,
		CoreVariant:   attrs.CoreVariant,
		Horsepower:    attrs.Horsepower,
		Transmission:  attrs.Transmission,
		AllWheelDrive: attrs.AllWheelDrive || l.AllWheelDrive,
	}
	if p.Horsepower == nil {
		p.Horsepower = l.Horsepower
	}
	if p.Transmission == "" {
		p.Transmission = normalize.Transmission(l.Transmission)
	}
	return p
}

// Resolve pairs one extracted record against the candidate pool. Levels run
// in order and the first that pairs wins: exact raw-variant equality,
// composite-key equality at fixed confidence, then weighted scoring with an
// acceptance floor. Candidates are expected in listing id order; within the
// scoring level a later candidate wins only with a strictly higher score, so
// the result is a pure function of its inputs.
func Resolve(rec Profile, pool []Candidate) Result {
	pool = sameMakeModel(rec, pool)

	for i := range pool {
		if equalExact(rec, pool[i].Profile) {
			return matched(pool[i].ListingID, extmodels.MatchExact, 1)
		}
	}

	for i := range pool {
		if equalComposite(rec, pool[i].Profile) {
			return matched(pool[i].ListingID, extmodels.MatchCompositeKey, compositeConfidence)
		}
	}

	var best *Candidate
	var bestScore float64
	for i := range pool {
		if s := Score(rec, pool[i].Profile); s > bestScore {
			best = &pool[i]
			bestScore = s
		}
	}
	if best != nil && bestScore >= acceptThreshold {
		return matched(best.ListingID, extmodels.MatchConfidence, bestScore)
	}

	return Result{Method: extmodels.MatchNone}
}

// Score computes the weighted agreement between two profiles. Additional
// attribute agreement can only add weight, never subtract it.
func Score(a, b Profile) float64 {
	var score float64

	switch {
	case a.CoreVariant != "" && strings.EqualFold(a.CoreVariant, b.CoreVariant):
		score += weightCoreExact
	case coreContains(a.CoreVariant, b.CoreVariant):
		score += weightCorePartial
	}

	if a.Horsepower != nil && b.Horsepower != nil {
		switch diff := abs(*a.Horsepower - *b.Horsepower); {
		case diff == 0:
			score += weightPowerExact
		case diff <= powerTolerance:
			score += weightPowerNear
		}
	}

	if a.Transmission != "" && a.Transmission == b.Transmission {
		score += weightTransmission
	}

	if a.AllWheelDrive == b.AllWheelDrive {
		score += weightDrivetrain
	}

	return score
}

// sameMakeModel narrows the pool to candidates sharing the record's make and
// model. The scoring level only weighs variant-level attributes, so
// cross-model candidates must never reach it.
func sameMakeModel(rec Profile, pool []Candidate) []Candidate {
	narrowed := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if strings.EqualFold(rec.Make, c.Profile.Make) && strings.EqualFold(rec.Model, c.Profile.Model) {
			narrowed = append(narrowed, c)
		}
	}
	return narrowed
}

// equalExact compares the raw identity tuple case-insensitively.
func equalExact(a, b Profile) bool {
	return strings.EqualFold(a.Make, b.Make) &&
		strings.EqualFold(a.Model, b.Model) &&
		strings.EqualFold(a.RawVariant, b.RawVariant)
}

// equalComposite compares the normalized identity key (make, model, core
// variant, horsepower, transmission, drivetrain). Horsepower must agree on
// presence too: a side without a power figure never composite-matches a side
// with one.
func equalComposite(a, b Profile) bool {
	return strings.EqualFold(a.Make, b.Make) &&
		strings.EqualFold(a.Model, b.Model) &&
		strings.EqualFold(a.CoreVariant, b.CoreVariant) &&
		equalPower(a.Horsepower, b.Horsepower) &&
		a.Transmission == b.Transmission &&
		a.AllWheelDrive == b.AllWheelDrive
}

func equalPower(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// coreContains reports whether one core variant contains the other. Empty
// strings never take part, an empty core would otherwise partially match
// everything.
func coreContains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

func matched(id uint, method extmodels.MatchMethod, confidence float64) Result {
	return Result{ListingID: &id, Method: method, Confidence: confidence}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
