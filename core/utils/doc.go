// Package utils provides common utility functions for the listing-manager application.
// It includes tolerant scalar conversion helpers used when decoding noisy
// extraction payloads and scanned database values.
package utils
