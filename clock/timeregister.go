package clock

import (
	"fmt"
	"log"
	"math"
)

// NsPerSec is the number of nanoseconds in a second.
const NsPerSec = 1e9

// A TimeRegister is a seconds/nanoseconds counter. The nanoseconds field is
// always kept within [0, 1e9), carrying into the seconds field.
type TimeRegister struct {
	Sec int64
	Ns  float64
}

// MakeTimeRegister creates a normalized TimeRegister.
func MakeTimeRegister(sec int64, ns float64) TimeRegister {
	r := TimeRegister{Sec: sec}
	r.Add(ns)

	return r
}

// Add advances the register by deltaNs nanoseconds.
func (r *TimeRegister) Add(deltaNs float64) {
	total := r.Ns + deltaNs
	carry := math.Floor(total / NsPerSec)

	r.Sec += int64(carry)
	r.Ns = total - carry*NsPerSec

	// Rounding may land exactly on the upper bound.
	if r.Ns >= NsPerSec {
		r.Ns -= NsPerSec
		r.Sec++
	}

	if r.Ns < 0 {
		r.Ns = 0
	}

	if r.Sec < 0 {
		log.Panicf("time register became negative: %s", r)
	}
}

// Sub returns r - other in nanoseconds.
func (r TimeRegister) Sub(other TimeRegister) float64 {
	return float64(r.Sec-other.Sec)*NsPerSec + (r.Ns - other.Ns)
}

// Nanoseconds returns the register value in nanoseconds.
func (r TimeRegister) Nanoseconds() float64 {
	return float64(r.Sec)*NsPerSec + r.Ns
}

func (r TimeRegister) String() string {
	return fmt.Sprintf("%d sec, %.3f ns", r.Sec, r.Ns)
}
