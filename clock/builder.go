package clock

import (
	"math/rand/v2"

	"github.com/go-logr/logr"
	"github.com/sarchlab/ptpsim/sim"
)

// MaxInitialSec bounds the random initial seconds count of an RTC.
const MaxInitialSec = 1000

// A Builder can build RTCs.
type Builder struct {
	freq        sim.Freq
	offsetPPB   float64
	rng         *rand.Rand
	initialTime *TimeRegister
	phaseNs     *float64
	logger      logr.Logger
}

// MakeBuilder creates a builder with a 125 MHz driving clock and no frequency
// offset.
func MakeBuilder() Builder {
	return Builder{
		freq:   125 * sim.MHz,
		logger: logr.Discard(),
	}
}

// WithFreq sets the frequency of the driving clock signal.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithFreqOffsetPPB makes the increment value deviate from the driving period
// by the given fractional offset, so that the RTC runs fast (positive) or
// slow (negative).
func (b Builder) WithFreqOffsetPPB(ppb float64) Builder {
	b.offsetPPB = ppb
	return b
}

// WithRand sets the random source used to draw the initial time and phase.
func (b Builder) WithRand(rng *rand.Rand) Builder {
	b.rng = rng
	return b
}

// WithInitialTime fixes the initial time instead of drawing it.
func (b Builder) WithInitialTime(t TimeRegister) Builder {
	b.initialTime = &t
	return b
}

// WithPhase fixes the initial phase in nanoseconds instead of drawing it.
func (b Builder) WithPhase(phaseNs float64) Builder {
	b.phaseNs = &phaseNs
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger logr.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a new RTC. Without a random source, the initial time and phase
// default to zero unless given explicitly.
func (b Builder) Build(label string) *RTC {
	periodNs := b.freq.PeriodNs()

	r := &RTC{
		Label:       label,
		Freq:        b.freq,
		PeriodNs:    periodNs,
		IncrementNs: b.freq.ScaledPeriodNs(b.offsetPPB),
		logger:      b.logger.WithName(label),
	}

	switch {
	case b.initialTime != nil:
		r.Time = MakeTimeRegister(b.initialTime.Sec, b.initialTime.Ns)
	case b.rng != nil:
		r.Time = MakeTimeRegister(
			int64(b.rng.IntN(MaxInitialSec+1)),
			b.rng.Float64()*NsPerSec,
		)
	}

	switch {
	case b.phaseNs != nil:
		r.PhaseNs = *b.phaseNs
	case b.rng != nil:
		r.PhaseNs = b.rng.Float64() * periodNs
	}

	r.logger.V(3).Info("initialized rtc",
		"incrementNs", r.IncrementNs,
		"phaseNs", r.PhaseNs,
		"time", r.Time.String())

	return r
}
