// Package audit verifies the invariants the reconciliation pipeline relies
// on: offer tuple uniqueness, referential integrity between change records
// and listings, and session counter accuracy.
//
// Each check returns a typed report listing the violations it found. Checks
// never mutate; repairs are explicit Fix functions an operator opts into
// with --fix. A healthy store produces empty reports.
//
// The checks also surface crash evidence: change records stuck in the
// intermediate selected state mean an apply was interrupted mid-batch and
// the affected changes need operator review before a retry.
package audit
