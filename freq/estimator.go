// Package freq estimates the frequency offset and the time offset drift of a
// slave clock from exchange records, and tunes the estimators against ground
// truth.
package freq

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/sarchlab/ptpsim/cache"
	"github.com/sarchlab/ptpsim/ptp"
)

var (
	// ErrInvalidConfig is returned for unusable estimator parameters.
	ErrInvalidConfig = errors.New("invalid estimator configuration")

	// ErrSettlingTooLong is returned when the loop would need more than half
	// of the dataset to settle.
	ErrSettlingTooLong = errors.New("loop settling time exceeds half of the dataset")

	// ErrNotEnoughSamples is returned when the dataset is too short for the
	// requested evaluation.
	ErrNotEnoughSamples = errors.New("not enough samples")

	// ErrMissingTruth is returned when an evaluation needs ground truth that
	// the dataset does not carry.
	ErrMissingTruth = errors.New("dataset has no ground truth")

	// ErrNoValidCandidate is returned when every optimizer candidate was
	// skipped.
	ErrNoValidCandidate = errors.New("no valid candidate")
)

// A Progress is notified of every evaluated optimizer candidate.
type Progress interface {
	IncrementFinished(amount uint64)
}

// Estimator estimates frequency offsets and drifts over a dataset. It writes
// its results into the records, always clearing previous results first.
type Estimator struct {
	Data     ptp.Dataset
	Delta    int
	Strategy Strategy

	// LoopParams holds the parameters of the last loop run.
	LoopParams LoopParams

	cache    cache.Cache
	cacheID  string
	progress Progress
	logger   logr.Logger
}

// Builder can build estimators.
type Builder struct {
	delta    int
	strategy Strategy
	cache    cache.Cache
	cacheID  string
	progress Progress
	logger   logr.Logger
}

// MakeBuilder creates a builder for a two-way estimator over consecutive
// records.
func MakeBuilder() Builder {
	return Builder{
		delta:    1,
		strategy: TwoWay,
		cacheID:  "loop",
		logger:   logr.Discard(),
	}
}

// WithDelta sets the observation window in samples.
func (b Builder) WithDelta(delta int) Builder {
	b.delta = delta
	return b
}

// WithStrategy sets the estimation strategy.
func (b Builder) WithStrategy(s Strategy) Builder {
	b.strategy = s
	return b
}

// WithCache sets where optimal loop configurations are kept, and under which
// identifier.
func (b Builder) WithCache(c cache.Cache, id string) Builder {
	b.cache = c
	b.cacheID = id

	return b
}

// WithProgress sets a tracker of optimizer candidates.
func (b Builder) WithProgress(p Progress) Builder {
	b.progress = p
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger logr.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates an estimator over the dataset.
func (b Builder) Build(data ptp.Dataset) (*Estimator, error) {
	e := &Estimator{
		Data:       data,
		Delta:      b.delta,
		Strategy:   b.strategy,
		LoopParams: DefaultLoopParams(),
		cache:      b.cache,
		cacheID:    b.cacheID,
		progress:   b.progress,
		logger:     b.logger,
	}

	if err := e.validate(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Estimator) validate() error {
	if e.Delta <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d",
			ErrInvalidConfig, e.Delta)
	}

	if !validEnum(strategyNames, int(e.Strategy)) {
		return fmt.Errorf("%w: unknown strategy %s", ErrInvalidConfig, e.Strategy)
	}

	return nil
}

// Process estimates the frequency offset of every record that has a record
// Delta samples earlier.
func (e *Estimator) Process() error {
	if err := e.validate(); err != nil {
		return err
	}

	e.logger.V(2).Info("processing", "delta", e.Delta, "strategy", e.Strategy)

	for _, r := range e.Data {
		r.YEst.Clear()
	}

	for i := e.Delta; i < len(e.Data); i++ {
		cur, prev := e.Data[i], e.Data[i-e.Delta]

		var y float64

		switch e.Strategy {
		case TwoWay:
			y = (cur.XEst - prev.XEst) / (cur.T1 - prev.T1)
		case OneWay:
			master := cur.T1 - prev.T1
			slave := cur.T2 - prev.T2
			y = (slave - master) / master
		case OneWayReversed:
			master := cur.T4 - prev.T4
			slave := cur.T3 - prev.T3
			y = (slave - master) / master
		}

		cur.YEst = ptp.Some(y)
	}

	return nil
}

// SetTruth computes the true frequency offset from the true time offsets over
// a window of delta samples.
func (e *Estimator) SetTruth(delta int) error {
	if delta <= 0 {
		return fmt.Errorf("%w: truth window must be positive, got %d",
			ErrInvalidConfig, delta)
	}

	for _, r := range e.Data {
		r.RTCY.Clear()
	}

	for i := delta; i < len(e.Data); i++ {
		cur, prev := e.Data[i], e.Data[i-delta]
		if !cur.X.Set || !prev.X.Set {
			return fmt.Errorf("record %d: %w", i, ErrMissingTruth)
		}

		cur.RTCY = ptp.Some((cur.X.Value - prev.X.Value) / (cur.T1 - prev.T1))
	}

	return nil
}

// EstimateDrift converts frequency offset estimates into the time offset
// drift since the previous record.
func (e *Estimator) EstimateDrift() {
	for _, r := range e.Data {
		r.Drift.Clear()
	}

	for i := 1; i < len(e.Data); i++ {
		r := e.Data[i]

		y, ok := r.YEst.Get()
		if !ok {
			continue
		}

		r.Drift = ptp.Some(y * (r.T1 - e.Data[i-1].T1))
	}
}
