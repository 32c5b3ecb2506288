package sim

import (
	"log"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// PeriodNs returns the time between two consecutive ticks in nanoseconds.
func (f Freq) PeriodNs() float64 {
	return f.Period().Nanoseconds()
}

// ScaledPeriodNs returns the period in nanoseconds stretched by a fractional
// offset expressed in parts per billion.
func (f Freq) ScaledPeriodNs(ppb float64) float64 {
	return f.PeriodNs() * (1 + ppb*1e-9)
}
