// Package contract holds the static instrument reference: multiplier,
// trading venue and per-lot fees keyed by product root code.
package contract

import "strings"

// Venue identifiers as the execution gateway expects them.
const (
	VenueCFFEX = "CFFEX"
	VenueSHFE  = "SHFE"
	VenueDCE   = "DCE"
	VenueCZCE  = "CZCE"
)

// Info describes one product family.
type Info struct {
	Root       string
	Venue      string
	Multiplier float64
	OpenFee    float64
	CloseFee   float64
}

var specs = map[string]Info{
	// CFFEX index futures
	"IF": {Venue: VenueCFFEX, Multiplier: 300},
	"IC": {Venue: VenueCFFEX, Multiplier: 200},
	"IH": {Venue: VenueCFFEX, Multiplier: 300},
	"IM": {Venue: VenueCFFEX, Multiplier: 200},

	// SHFE
	"AU": {Venue: VenueSHFE, Multiplier: 1000},
	"AG": {Venue: VenueSHFE, Multiplier: 15},
	"CU": {Venue: VenueSHFE, Multiplier: 5},
	"AL": {Venue: VenueSHFE, Multiplier: 5},
	"ZN": {Venue: VenueSHFE, Multiplier: 5},
	"NI": {Venue: VenueSHFE, Multiplier: 1},
	"FU": {Venue: VenueSHFE, Multiplier: 10},
	"RU": {Venue: VenueSHFE, Multiplier: 50},
	"AO": {Venue: VenueSHFE, Multiplier: 20, OpenFee: 24.17, CloseFee: 23.99},
	"RB": {Venue: VenueSHFE, Multiplier: 10, OpenFee: 3.35, CloseFee: 3.36},
	"BU": {Venue: VenueSHFE, Multiplier: 10, OpenFee: 1.67, CloseFee: 0.01},
	"SP": {Venue: VenueSHFE, Multiplier: 20, OpenFee: 2.92, CloseFee: 0.01},
	"HC": {Venue: VenueSHFE, Multiplier: 10},

	// DCE
	"M":  {Venue: VenueDCE, Multiplier: 10},
	"Y":  {Venue: VenueDCE, Multiplier: 10},
	"C":  {Venue: VenueDCE, Multiplier: 10},
	"I":  {Venue: VenueDCE, Multiplier: 100},
	"PP": {Venue: VenueDCE, Multiplier: 5},
	"V":  {Venue: VenueDCE, Multiplier: 5},
	"EB": {Venue: VenueDCE, Multiplier: 5},
	"L":  {Venue: VenueDCE, Multiplier: 5},
	"JD": {Venue: VenueDCE, Multiplier: 5},
	"LH": {Venue: VenueDCE, Multiplier: 16},

	// CZCE
	"SR": {Venue: VenueCZCE, Multiplier: 10},
	"MA": {Venue: VenueCZCE, Multiplier: 10},
	"TA": {Venue: VenueCZCE, Multiplier: 5},
	"AP": {Venue: VenueCZCE, Multiplier: 10},
	"CF": {Venue: VenueCZCE, Multiplier: 5},
	"SA": {Venue: VenueCZCE, Multiplier: 20},
	"FG": {Venue: VenueCZCE, Multiplier: 20},
	"UR": {Venue: VenueCZCE, Multiplier: 20},
	"RM": {Venue: VenueCZCE, Multiplier: 10},
	"OI": {Venue: VenueCZCE, Multiplier: 10},
	"PX": {Venue: VenueCZCE, Multiplier: 5},
	"SM": {Venue: VenueCZCE, Multiplier: 50},
}

// RootCode strips trailing month digits from a symbol, keeping only
// alphabetic characters, uppercased. "rb2510" -> "RB".
func RootCode(symbol string) string {
	var b strings.Builder
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// Reference resolves symbols to contract specs with a configurable
// default multiplier for unlisted roots.
type Reference struct {
	defaultMultiplier float64
}

// NewReference builds a reference. A non-positive default multiplier
// falls back to 1.
func NewReference(defaultMultiplier float64) *Reference {
	if defaultMultiplier <= 0 {
		defaultMultiplier = 1
	}
	return &Reference{defaultMultiplier: defaultMultiplier}
}

// Lookup returns the contract info for a symbol. Unknown roots get a
// permissive default (default multiplier, SHFE, zero fees) and
// found=false so the caller can log the miss.
func (r *Reference) Lookup(symbol string) (info Info, found bool) {
	root := RootCode(symbol)
	if spec, ok := specs[root]; ok {
		spec.Root = root
		return spec, true
	}
	return Info{
		Root:       root,
		Venue:      VenueSHFE,
		Multiplier: r.defaultMultiplier,
	}, false
}
