// Package normalize turns free-text variant strings into structured
// attributes. Extraction output mixes trim names with power figures,
// transmission codes and fuel qualifiers ("Selection 2.0 TDI DSG7 150 HK");
// identity matching needs those separated out and the remaining trim text in
// a stable form.
package normalize

import (
	"regexp"
	"strings"
)

// Attributes is the structured result of normalizing a variant string.
// Horsepower stays nil when the text carries no power token; zero is never
// used to mean unknown.
type Attributes struct {
	CoreVariant   string
	Horsepower    *int
	Transmission  string
	AllWheelDrive bool
}

// powerPattern matches a power figure with its unit abbreviation. Only the
// first match sets the horsepower value, but every match is stripped from
// the core so normalizing a core a second time cannot pick up a different
// figure.
var powerPattern = regexp.MustCompile(`(?i)\b(\d{2,4})\s*(hk|hp|ps|bhp)\b`)

// separatorPattern collapses punctuation separators to spaces. Hyphens are
// kept so codes like "S-tronic" survive as single tokens.
var separatorPattern = regexp.MustCompile(`[,;/|]+`)

var transmissionSynonyms = map[string]string{
	"automatic":   "automatic",
	"automatik":   "automatic",
	"automatgear": "automatic",
	"automat":     "automatic",
	"aut":         "automatic",
	"dsg":         "automatic",
	"dsg6":        "automatic",
	"dsg7":        "automatic",
	"s-tronic":    "automatic",
	"stronic":     "automatic",
	"tiptronic":   "automatic",
	"multitronic": "automatic",
	"steptronic":  "automatic",
	"xtronic":     "automatic",
	"dct":         "automatic",
	"dct7":        "automatic",
	"edc":         "automatic",
	"eat8":        "automatic",
	"cvt":         "automatic",
	"powershift":  "automatic",
	"pdk":         "automatic",
	"manual":      "manual",
	"manuel":      "manual",
	"manualgear":  "manual",
	"mt":          "manual",
}

var drivetrainSynonyms = map[string]struct{}{
	"awd":     {},
	"4wd":     {},
	"4x4":     {},
	"4motion": {},
	"4matic":  {},
	"quattro": {},
	"xdrive":  {},
	"allgrip": {},
	"all4":    {},
}

// fuelStoplist holds fuel and engine-family qualifiers that carry no trim
// identity. Displacement numbers ("2.0") are not listed, they distinguish
// variants.
var fuelStoplist = map[string]struct{}{
	"tdi":      {},
	"tsi":      {},
	"etsi":     {},
	"tfsi":     {},
	"fsi":      {},
	"tgi":      {},
	"gte":      {},
	"dci":      {},
	"bluedci":  {},
	"cdti":     {},
	"crdi":     {},
	"hdi":      {},
	"bluehdi":  {},
	"cdi":      {},
	"tce":      {},
	"ecoboost": {},
	"ecoblue":  {},
	"mhev":     {},
	"phev":     {},
	"hybrid":   {},
	"plug-in":  {},
	"plugin":   {},
	"diesel":   {},
	"benzin":   {},
	"petrol":   {},
	"gasoline": {},
	"el":       {},
	"ev":       {},
	"bev":      {},
}

// Normalize extracts structured attributes from a free-text variant string.
// Matching is case-insensitive; tokens that survive into CoreVariant keep
// their original casing. Normalize never fails: unparseable input simply
// yields fewer attributes.
func Normalize(variant string) Attributes {
	var attrs Attributes

	s := separatorPattern.ReplaceAllString(variant, " ")

	if m := powerPattern.FindStringSubmatch(s); m != nil {
		hp := parseDigits(m[1])
		attrs.Horsepower = &hp
	}
	s = powerPattern.ReplaceAllString(s, " ")

	var kept []string
	for _, token := range strings.Fields(s) {
		key := strings.ToLower(strings.TrimRight(token, "."))
		// Trailing punctuation orphaned by a stripped power suffix.
		if key == "" {
			continue
		}

		if canonical, ok := transmissionSynonyms[key]; ok {
			if attrs.Transmission == "" {
				attrs.Transmission = canonical
			}
			continue
		}
		if _, ok := drivetrainSynonyms[key]; ok {
			attrs.AllWheelDrive = true
			continue
		}
		if _, ok := fuelStoplist[key]; ok {
			continue
		}
		kept = append(kept, token)
	}

	attrs.CoreVariant = strings.Join(kept, " ")
	return attrs
}

// Transmission canonicalizes a stand-alone transmission value the way
// Normalize treats in-variant tokens, so structured payload fields and text
// extraction agree on the same vocabulary. Unknown values pass through
// lowercased.
func Transmission(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return ""
	}
	if canonical, ok := transmissionSynonyms[key]; ok {
		return canonical
	}
	return key
}

func parseDigits(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
