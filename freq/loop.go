package freq

import (
	"fmt"
	"math"

	"github.com/sarchlab/ptpsim/ptp"
)

// SettlingMode selects how the number of discarded loop samples is found.
type SettlingMode int

// Settling modes.
const (
	// SettlingFraction discards a fixed fraction of the dataset.
	SettlingFraction SettlingMode = iota

	// SettlingAnalytic discards the analytic settling time of the loop.
	SettlingAnalytic
)

// LoopParams configures the PI loop.
type LoopParams struct {
	Damping float64
	LoopBW  float64

	Settling SettlingMode

	// SettlingFrac is the fraction of the dataset discarded in
	// SettlingFraction mode.
	SettlingFrac float64
}

// DefaultLoopParams returns a critically damped loop with a normalized
// bandwidth of 0.001, settling over 20% of the dataset.
func DefaultLoopParams() LoopParams {
	return LoopParams{
		Damping:      1.0,
		LoopBW:       0.001,
		Settling:     SettlingFraction,
		SettlingFrac: 0.2,
	}
}

// LoopGains returns the proportional and integral gains of a loop with the
// given damping and normalized bandwidth.
func LoopGains(damping, loopBW float64) (kp, ki float64) {
	theta := loopBW / (damping + 1/(4*damping))
	d := 1 + 2*damping*theta + theta*theta

	kp = 4 * damping * theta / d
	ki = 4 * theta * theta / d

	return kp, ki
}

// SettlingSamples returns the analytic settling time of the loop in samples.
func SettlingSamples(damping, loopBW float64) int {
	return int(math.Ceil(4 / (damping * loopBW)))
}

func (p LoopParams) validate(n int) (settleIdx int, err error) {
	if p.Damping <= 0 || p.LoopBW <= 0 {
		return 0, fmt.Errorf("%w: damping and bandwidth must be positive, got %g, %g",
			ErrInvalidConfig, p.Damping, p.LoopBW)
	}

	if n == 0 {
		return 0, ErrNotEnoughSamples
	}

	settling := SettlingSamples(p.Damping, p.LoopBW)
	if settling > n/2 {
		return 0, fmt.Errorf("%w: %w: %d samples for damping %g, bandwidth %g, dataset of %d",
			ErrInvalidConfig, ErrSettlingTooLong,
			settling, p.Damping, p.LoopBW, n)
	}

	switch p.Settling {
	case SettlingAnalytic:
		return settling, nil
	case SettlingFraction:
		if p.SettlingFrac < 0 || p.SettlingFrac >= 1 {
			return 0, fmt.Errorf("%w: settling fraction must be in [0, 1), got %g",
				ErrInvalidConfig, p.SettlingFrac)
		}

		return int(math.Floor(p.SettlingFrac * float64(n))), nil
	default:
		return 0, fmt.Errorf("%w: unknown settling mode %d",
			ErrInvalidConfig, p.Settling)
	}
}

// Loop estimates the time offset drifts with a PI loop tracking the two-way
// time offset estimates. Drifts and loop time offsets are only published past
// the settling index, so their presence marks a locked loop.
func (e *Estimator) Loop(p LoopParams) error {
	settleIdx, err := p.validate(len(e.Data))
	if err != nil {
		return err
	}

	e.LoopParams = p

	kp, ki := LoopGains(p.Damping, p.LoopBW)

	e.logger.V(3).Info("running loop",
		"damping", p.Damping,
		"loopBW", p.LoopBW,
		"kp", kp,
		"ki", ki,
		"settleIdx", settleIdx)

	for _, r := range e.Data {
		r.Drift.Clear()
		r.XLoop.Clear()
	}

	fInt := 0.0
	dds := e.Data[0].XEst

	for i, r := range e.Data {
		phaseErr := r.XEst - dds
		fInt += ki * phaseErr
		fErr := kp*phaseErr + fInt

		if i >= settleIdx {
			r.Drift = ptp.Some(fErr)
			r.XLoop = ptp.Some(dds)
		}

		dds += fErr
	}

	return nil
}
