package enums

import "fmt"

// PriceSource selects how a category's unminted stock is priced.
type PriceSource string

const (
	PriceSourceFixed  PriceSource = "fixed"
	PriceSourceOracle PriceSource = "oracle"
)

var validPriceSources = []PriceSource{
	PriceSourceFixed,
	PriceSourceOracle,
}

// String implements fmt.Stringer.
func (s PriceSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PriceSource.
func (s PriceSource) IsValid() bool {
	for _, candidate := range validPriceSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePriceSource converts raw input into a PriceSource.
func ParsePriceSource(value string) (PriceSource, error) {
	for _, candidate := range validPriceSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price source %q", value)
}
