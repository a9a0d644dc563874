// Package species defines the species record domain: the kingdom
// enumeration and the normalization and validation rules applied to
// record edits before they reach the datastore.
package species

import (
	"fmt"
	"slices"
)

// Kingdom is the taxonomic kingdom of a species record.
type Kingdom string

const (
	KingdomAnimalia Kingdom = "Animalia"
	KingdomPlantae  Kingdom = "Plantae"
	KingdomFungi    Kingdom = "Fungi"
	KingdomProtista Kingdom = "Protista"
	KingdomArchaea  Kingdom = "Archaea"
	KingdomBacteria Kingdom = "Bacteria"
)

// DefaultKingdom is assigned to new records that do not specify one.
const DefaultKingdom = KingdomAnimalia

// kingdoms holds the closed set of valid kingdom values.
var kingdoms = []Kingdom{
	KingdomAnimalia,
	KingdomPlantae,
	KingdomFungi,
	KingdomProtista,
	KingdomArchaea,
	KingdomBacteria,
}

// Kingdoms returns the valid kingdom values in display order.
func Kingdoms() []Kingdom {
	return slices.Clone(kingdoms)
}

// ParseKingdom validates a raw kingdom value against the enumeration.
func ParseKingdom(value string) (Kingdom, error) {
	k := Kingdom(value)
	if !slices.Contains(kingdoms, k) {
		return "", fmt.Errorf("unknown kingdom %q", value)
	}
	return k, nil
}

// Fields holds the normalized, validated field set of a species record.
// Optional fields are nil when absent; they are never empty strings.
type Fields struct {
	ScientificName  string
	CommonName      *string
	Kingdom         Kingdom
	TotalPopulation *int64
	ImageURL        *string
	Description     *string
}
