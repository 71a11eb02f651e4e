// Package offers compares and canonicalizes pricing-offer collections.
// Extraction sources legitimately emit duplicate tuples and omit fields the
// price sheet does not state, so every list passes through the same
// canonical form (defaults, dedup, deterministic order) before comparison
// or persistence.
package offers

import (
	"sort"

	extmodels "listing-manager/feature/extraction/models"
	invmodels "listing-manager/feature/inventory/models"
)

// Canonical defaults for fields a price sheet may omit.
const (
	DefaultFirstPayment   = 0
	DefaultTermMonths     = 36
	DefaultMileagePerYear = 15000
)

// Tuple is one pricing offer in canonical form.
type Tuple struct {
	MonthlyPrice   int `json:"monthly_price"`
	FirstPayment   int `json:"first_payment"`
	TermMonths     int `json:"term_months"`
	MileagePerYear int `json:"mileage_per_year"`
}

// identity is the uniqueness key of an offer under one listing. First
// payment is descriptive and deliberately not part of it.
type identity struct {
	price   int
	term    int
	mileage int
}

// FromExtracted converts extracted offers to tuples. Defaults are not
// applied here; Canonicalize owns that.
func FromExtracted(list []extmodels.ExtractedOffer) []Tuple {
	out := make([]Tuple, 0, len(list))
	for _, o := range list {
		out = append(out, Tuple{
			MonthlyPrice:   o.MonthlyPrice,
			FirstPayment:   o.FirstPayment,
			TermMonths:     o.TermMonths,
			MileagePerYear: o.MileagePerYear,
		})
	}
	return out
}

// FromRows converts persisted offer rows to tuples.
func FromRows(list []invmodels.PricingOffer) []Tuple {
	out := make([]Tuple, 0, len(list))
	for _, o := range list {
		out = append(out, Tuple{
			MonthlyPrice:   o.MonthlyPrice,
			FirstPayment:   o.FirstPayment,
			TermMonths:     o.TermMonths,
			MileagePerYear: o.MileagePerYear,
		})
	}
	return out
}

// Canonicalize applies defaults, drops duplicate (price, term, mileage)
// tuples keeping the first occurrence, and sorts the result by
// (price, first payment, mileage, term). The trailing term component makes
// the order total, so equal sets always compare element-wise equal. The
// returned list is the exact form that gets persisted.
func Canonicalize(list []Tuple) []Tuple {
	out := make([]Tuple, 0, len(list))
	seen := make(map[identity]struct{}, len(list))

	for _, t := range list {
		if t.TermMonths == 0 {
			t.TermMonths = DefaultTermMonths
		}
		if t.MileagePerYear == 0 {
			t.MileagePerYear = DefaultMileagePerYear
		}

		key := identity{price: t.MonthlyPrice, term: t.TermMonths, mileage: t.MileagePerYear}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MonthlyPrice != b.MonthlyPrice {
			return a.MonthlyPrice < b.MonthlyPrice
		}
		if a.FirstPayment != b.FirstPayment {
			return a.FirstPayment < b.FirstPayment
		}
		if a.MileagePerYear != b.MileagePerYear {
			return a.MileagePerYear < b.MileagePerYear
		}
		return a.TermMonths < b.TermMonths
	})

	return out
}

// Differ reports whether two offer collections describe different sets.
// Both sides are canonicalized first, so input order and duplicates never
// influence the verdict and the comparison is symmetric.
func Differ(a, b []Tuple) bool {
	ca := Canonicalize(a)
	cb := Canonicalize(b)

	if len(ca) != len(cb) {
		return true
	}
	for i := range ca {
		if ca[i] != cb[i] {
			return true
		}
	}
	return false
}
