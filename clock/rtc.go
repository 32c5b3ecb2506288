package clock

import (
	"math"

	"github.com/go-logr/logr"
	"github.com/sarchlab/ptpsim/sim"
)

// An RTC is a simulated real-time clock. It is driven by an oscillator with a
// fixed period and advances its time register by the increment value on every
// rising edge of that oscillator.
type RTC struct {
	Label string

	// Freq is the frequency of the driving clock signal.
	Freq sim.Freq

	// PeriodNs is the period of the driving clock signal.
	PeriodNs float64

	// IncrementNs is the amount added to the time register on each edge.
	// It differs from PeriodNs when the RTC carries a frequency offset.
	IncrementNs float64

	// PhaseNs locates the first rising edge within the driving period.
	PhaseNs float64

	IncrementCount int64
	Time           TimeRegister

	logger logr.Logger
}

// Update advances the RTC to the given simulation time. Updating to an earlier
// time than a previous update never moves the clock backwards.
func (r *RTC) Update(simTime sim.VTimeInSec) {
	simTimeNs := simTime.Nanoseconds()

	nIncs := int64(math.Floor((simTimeNs - r.PhaseNs) / r.PeriodNs))
	if nIncs < 0 {
		nIncs = 0
	}

	newIncs := nIncs - r.IncrementCount
	if newIncs <= 0 {
		return
	}

	elapsedNs := float64(newIncs) * r.IncrementNs
	r.IncrementCount = nIncs
	r.Time.Add(elapsedNs)

	l := r.logger.V(4)
	if l.Enabled() {
		l.Info("rtc update",
			"rtc", r.Label,
			"simTimeNs", simTimeNs,
			"advanceNs", elapsedNs,
			"time", r.Time.String())
	}
}

// Now returns a snapshot of the RTC time register.
func (r *RTC) Now() TimeRegister {
	return r.Time
}

// Name returns the label of the RTC.
func (r *RTC) Name() string {
	return r.Label
}
