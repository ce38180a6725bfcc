package enums

import (
	"fmt"
	"time"
)

// RentPeriod selects one of the preset vesting windows for a rent cycle.
type RentPeriod int

const (
	RentPeriod31Days RentPeriod = 0
	RentPeriod30Days RentPeriod = 1
	RentPeriod28Days RentPeriod = 2
	RentPeriod29Days RentPeriod = 3
)

var rentPeriodDurations = map[RentPeriod]time.Duration{
	RentPeriod31Days: 31 * 24 * time.Hour,
	RentPeriod30Days: 30 * 24 * time.Hour,
	RentPeriod28Days: 28 * 24 * time.Hour,
	RentPeriod29Days: 29 * 24 * time.Hour,
}

// Duration returns the vesting window length for the preset.
func (p RentPeriod) Duration() time.Duration {
	return rentPeriodDurations[p]
}

// IsValid reports whether the value is a known preset.
func (p RentPeriod) IsValid() bool {
	_, ok := rentPeriodDurations[p]
	return ok
}

// ParseRentPeriod converts raw input into a RentPeriod.
func ParseRentPeriod(value int) (RentPeriod, error) {
	period := RentPeriod(value)
	if !period.IsValid() {
		return 0, fmt.Errorf("invalid rent period %d", value)
	}
	return period, nil
}
