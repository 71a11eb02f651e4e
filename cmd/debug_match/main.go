// Standalone binary for debugging identity resolution: scores one synthetic
// record against a dealer's live candidates and shows which level paired.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"listing-manager/core/config"
	"listing-manager/core/database"
	"listing-manager/feature/extraction/match"
	extmodels "listing-manager/feature/extraction/models"
	"listing-manager/feature/inventory"
	invmodels "listing-manager/feature/inventory/models"
)

func main() {
	dealer := flag.String("dealer", "", "dealer code")
	makeName := flag.String("make", "", "extracted make")
	modelName := flag.String("model", "", "extracted model")
	variant := flag.String("variant", "", "extracted variant text")
	flag.Parse()

	if *dealer == "" || *makeName == "" || *modelName == "" || *variant == "" {
		log.Fatal("usage: debug_match -dealer CODE -make MAKE -model MODEL -variant TEXT")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	var dealerRow invmodels.Dealer
	if err := db.Where("code = ?", *dealer).First(&dealerRow).Error; err != nil {
		log.Fatalf("dealer %s: %v", *dealer, err)
	}

	snap, err := inventory.LoadSnapshot(ctx, db, dealerRow.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Loaded %d listings for dealer %s\n\n", len(snap.Listings), *dealer)

	rec := extmodels.VehicleRecord{Make: *makeName, Model: *modelName, Variant: *variant}
	profile := match.ProfileFromRecord(&rec)

	fmt.Printf("Record profile: core=%q hp=%s transmission=%q awd=%v\n\n",
		profile.CoreVariant, hpString(profile.Horsepower), profile.Transmission, profile.AllWheelDrive)

	pool := make([]match.Candidate, 0, len(snap.Listings))
	for i := range snap.Listings {
		l := &snap.Listings[i]
		c := match.Candidate{ListingID: l.ID, Profile: match.ProfileFromListing(l)}
		pool = append(pool, c)

		fmt.Printf("Candidate %d: %s %s %q\n", l.ID, l.Make, l.Model, l.Variant)
		fmt.Printf("  core=%q hp=%s transmission=%q awd=%v score=%.2f\n",
			c.Profile.CoreVariant, hpString(c.Profile.Horsepower),
			c.Profile.Transmission, c.Profile.AllWheelDrive,
			match.Score(profile, c.Profile))
	}

	res := match.Resolve(profile, pool)
	fmt.Printf("\nResolution: method=%s confidence=%.2f", res.Method, res.Confidence)
	if res.ListingID != nil {
		fmt.Printf(" listing=%d", *res.ListingID)
	}
	fmt.Println()
}

func hpString(hp *int) string {
	if hp == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *hp)
}
