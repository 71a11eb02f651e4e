// Standalone binary for poking at variant normalization: pass variant
// strings as arguments and see what the normalizer extracts.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"listing-manager/feature/extraction/normalize"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: debug_normalize <variant string> [<variant string> ...]")
	}

	for _, variant := range os.Args[1:] {
		attrs := normalize.Normalize(variant)

		fmt.Printf("Input:         %q\n", variant)
		fmt.Printf("Core variant:  %q\n", attrs.CoreVariant)
		if attrs.Horsepower != nil {
			fmt.Printf("Horsepower:    %d\n", *attrs.Horsepower)
		} else {
			fmt.Println("Horsepower:    (not stated)")
		}
		if attrs.Transmission != "" {
			fmt.Printf("Transmission:  %s\n", attrs.Transmission)
		} else {
			fmt.Println("Transmission:  (not stated)")
		}
		fmt.Printf("AWD:           %v\n", attrs.AllWheelDrive)

		// Idempotence check: re-normalizing the core must be a fixpoint.
		again := normalize.Normalize(attrs.CoreVariant)
		if again.CoreVariant != attrs.CoreVariant {
			fmt.Printf("⚠️  NOT IDEMPOTENT: %q -> %q\n", attrs.CoreVariant, again.CoreVariant)
		}

		fmt.Println(strings.Repeat("-", 40))
	}
}
