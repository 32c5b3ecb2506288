package freq

import (
	"fmt"
	"math"

	"github.com/sarchlab/ptpsim/cache"
)

// DampingGrid holds the damping factors tried by OptimizeLoop.
var DampingGrid = []float64{0.5, 0.707, 1.0, 1.2, 1.5, 1.8, 2.0}

// LoopBWGrid holds the normalized bandwidths tried by OptimizeLoop, nine
// values per decade from 1e-5 to 0.9.
var LoopBWGrid = func() []float64 {
	grid := make([]float64, 0, 45)

	for _, decade := range []float64{0.1, 0.01, 0.001, 1e-4, 1e-5} {
		for k := 1; k <= 9; k++ {
			grid = append(grid, float64(k)*decade)
		}
	}

	return grid
}()

// CandidateResult is the evaluation of one optimizer candidate.
type CandidateResult struct {
	Delta   int
	Damping float64
	LoopBW  float64

	Error float64

	Skipped bool
	Reason  string
}

// OptimizationResult summarizes an optimizer run.
type OptimizationResult struct {
	Best       CandidateResult
	Candidates []CandidateResult

	// NumSamples is the number of samples every candidate was scored on.
	NumSamples int

	// Cached tells if the result came from the cache without a sweep.
	Cached bool
}

func (e *Estimator) windowCandidates(maxWindowSpan float64) ([]int, int, error) {
	if maxWindowSpan <= 0 || maxWindowSpan > 1 {
		return nil, 0, fmt.Errorf("%w: max window span must be in (0, 1], got %g",
			ErrInvalidConfig, maxWindowSpan)
	}

	n := len(e.Data)

	logMax := int(math.Floor(math.Log2(maxWindowSpan * float64(n))))
	if logMax < 1 {
		return nil, 0, fmt.Errorf("%w: dataset of %d records is too short for window span %g",
			ErrNotEnoughSamples, n, maxWindowSpan)
	}

	windows := make([]int, 0, logMax)
	for k := 1; k <= logMax; k++ {
		windows = append(windows, 1<<k)
	}

	nSamples := n - windows[len(windows)-1]
	if nSamples <= 0 {
		return nil, 0, fmt.Errorf("%w: no sample left for window %d",
			ErrNotEnoughSamples, windows[len(windows)-1])
	}

	return windows, nSamples, nil
}

func (e *Estimator) sweepWindows(
	maxWindowSpan float64,
	score func(nSamples int) (float64, error),
) (*OptimizationResult, error) {
	windows, nSamples, err := e.windowCandidates(maxWindowSpan)
	if err != nil {
		return nil, err
	}

	e.logger.Info("optimizing observation window",
		"from", windows[0],
		"to", windows[len(windows)-1],
		"samples", nSamples)

	result := &OptimizationResult{NumSamples: nSamples}
	found := false

	for _, delta := range windows {
		e.Delta = delta

		c := CandidateResult{Delta: delta}

		if err := e.Process(); err != nil {
			return nil, err
		}

		c.Error, err = score(nSamples)
		if err != nil {
			c.Skipped = true
			c.Reason = err.Error()
			e.logger.Info("skipping window", "delta", delta, "reason", c.Reason)
		} else if !found || c.Error < result.Best.Error {
			result.Best = c
			found = true
		}

		result.Candidates = append(result.Candidates, c)
		e.incrementProgress()
	}

	if !found {
		return nil, ErrNoValidCandidate
	}

	e.Delta = result.Best.Delta

	return result, nil
}

// OptimizeToY finds the window that minimizes the error between the frequency
// offset estimates and the true frequency offsets, in parts per billion. The
// truth must be set beforehand. Windows are powers of two up to a fraction
// maxWindowSpan of the dataset, and every window is scored on the first
// estimates that the largest window also yields.
func (e *Estimator) OptimizeToY(
	loss Loss,
	maxWindowSpan float64,
) (*OptimizationResult, error) {
	if !validEnum(lossNames, int(loss)) {
		return nil, fmt.Errorf("%w: unknown loss %s", ErrInvalidConfig, loss)
	}

	if !e.hasTrueFreqOffset() {
		return nil, fmt.Errorf("%w: true frequency offsets are not set",
			ErrMissingTruth)
	}

	result, err := e.sweepWindows(maxWindowSpan, func(nSamples int) (float64, error) {
		errs := make([]float64, 0, nSamples)

		for _, r := range e.Data[e.Delta:] {
			y, hasY := r.YEst.Get()
			truth, hasTruth := r.RTCY.Get()

			if hasY && hasTruth {
				errs = append(errs, 1e9*(y-truth))
			}
		}

		if len(errs) == 0 {
			return 0, ErrMissingTruth
		}

		if len(errs) > nSamples {
			errs = errs[:nSamples]
		}

		return reduce(loss, errs), nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("optimized window",
		"loss", loss,
		"errorPPB", result.Best.Error,
		"delta", result.Best.Delta)

	return result, e.Process()
}

// OptimizeToDrift finds the window that minimizes the drift estimation error.
// Every window is scored on the same trailing drift estimates.
func (e *Estimator) OptimizeToDrift(
	loss Loss,
	criterion Criterion,
	maxWindowSpan float64,
) (*OptimizationResult, error) {
	if !validEnum(lossNames, int(loss)) ||
		!validEnum(criterionNames, int(criterion)) {
		return nil, fmt.Errorf("%w: loss %s, criterion %s",
			ErrInvalidConfig, loss, criterion)
	}

	if !e.hasTrueTimeOffset() {
		return nil, fmt.Errorf("%w: true time offsets are not set",
			ErrMissingTruth)
	}

	result, err := e.sweepWindows(maxWindowSpan, func(nSamples int) (float64, error) {
		e.EstimateDrift()
		return e.DriftError(loss, criterion, nSamples)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("optimized window",
		"loss", loss,
		"criterion", criterion,
		"error", result.Best.Error,
		"delta", result.Best.Delta)

	if err := e.Process(); err != nil {
		return nil, err
	}

	e.EstimateDrift()

	return result, nil
}

// LoopOptions configures OptimizeLoop.
type LoopOptions struct {
	Loss      Loss
	Criterion Criterion

	// Force sweeps even if the cache holds a valid configuration.
	Force bool

	// MaxTransient is the largest fraction of the dataset a candidate may
	// need to settle.
	MaxTransient float64
}

// DefaultLoopOptions returns the cumulative MSE criterion with a transient of
// up to 20% of the dataset.
func DefaultLoopOptions() LoopOptions {
	return LoopOptions{
		Loss:         MSE,
		Criterion:    Cumulative,
		MaxTransient: 0.2,
	}
}

// OptimizeLoop finds the damping and bandwidth of the PI loop that minimize
// the drift estimation error. Each candidate settles for its analytic settling
// time and all candidates are scored on the trailing samples that the
// longest-settling candidate still publishes. On return, the loop has run
// with the best parameters.
func (e *Estimator) OptimizeLoop(opts LoopOptions) (*OptimizationResult, error) {
	if !validEnum(lossNames, int(opts.Loss)) ||
		!validEnum(criterionNames, int(opts.Criterion)) {
		return nil, fmt.Errorf("%w: loss %s, criterion %s",
			ErrInvalidConfig, opts.Loss, opts.Criterion)
	}

	if opts.MaxTransient <= 0 || opts.MaxTransient >= 1 {
		return nil, fmt.Errorf("%w: max transient must be in (0, 1), got %g",
			ErrInvalidConfig, opts.MaxTransient)
	}

	if !e.hasTrueTimeOffset() {
		return nil, fmt.Errorf("%w: true time offsets are not set",
			ErrMissingTruth)
	}

	if result, ok := e.loadCachedLoop(opts); ok {
		if err := e.Loop(e.LoopParams); err != nil {
			return nil, err
		}

		return result, nil
	}

	result, err := e.sweepLoop(opts)
	if err != nil {
		return nil, err
	}

	e.logger.Info("optimized loop",
		"damping", result.Best.Damping,
		"loopBW", result.Best.LoopBW,
		"error", result.Best.Error)

	err = e.Loop(LoopParams{
		Damping:  result.Best.Damping,
		LoopBW:   result.Best.LoopBW,
		Settling: SettlingAnalytic,
	})
	if err != nil {
		return nil, err
	}

	e.saveCachedLoop(opts, result.Best)

	return result, nil
}

func (e *Estimator) loadCachedLoop(opts LoopOptions) (*OptimizationResult, bool) {
	if e.cache == nil {
		e.logger.V(1).Info("no cache for loop configuration")
		return nil, false
	}

	cfg, err := e.cache.Load(e.cacheID)
	if err != nil {
		e.logger.Error(err, "loading cached loop configuration", "id", e.cacheID)
		return nil, false
	}

	if cfg == nil || opts.Force {
		return nil, false
	}

	if !cache.IsValid(cfg, len(e.Data), opts.Criterion.String()) {
		e.logger.Info("ignoring stale cached loop configuration",
			"id", e.cacheID,
			"samples", cfg.SampleCount,
			"criterion", cfg.ErrorCriterion)

		return nil, false
	}

	e.LoopParams = LoopParams{
		Damping:  cfg.Damping,
		LoopBW:   cfg.LoopBW,
		Settling: SettlingAnalytic,
	}

	best := CandidateResult{Damping: cfg.Damping, LoopBW: cfg.LoopBW}

	return &OptimizationResult{Best: best, Cached: true}, true
}

func (e *Estimator) saveCachedLoop(opts LoopOptions, best CandidateResult) {
	if e.cache == nil {
		return
	}

	err := e.cache.Save(cache.LoopConfig{
		Damping:        best.Damping,
		LoopBW:         best.LoopBW,
		SampleCount:    len(e.Data),
		ErrorCriterion: opts.Criterion.String(),
	}, e.cacheID)
	if err != nil {
		e.logger.Error(err, "saving loop configuration", "id", e.cacheID)
	}
}

func (e *Estimator) sweepLoop(opts LoopOptions) (*OptimizationResult, error) {
	n := len(e.Data)
	maxSettling := 0
	result := &OptimizationResult{}

	var valid []CandidateResult

	for _, damping := range DampingGrid {
		for _, loopBW := range LoopBWGrid {
			c := CandidateResult{Damping: damping, LoopBW: loopBW}
			settling := SettlingSamples(damping, loopBW)

			switch {
			case settling > n/2:
				c.Skipped = true
				c.Reason = ErrSettlingTooLong.Error()
			case float64(settling) > opts.MaxTransient*float64(n):
				c.Skipped = true
				c.Reason = fmt.Sprintf("settling over %d samples exceeds the max transient",
					settling)
			default:
				valid = append(valid, c)
				maxSettling = max(maxSettling, settling)

				continue
			}

			e.logger.V(1).Info("skipping loop candidate",
				"damping", damping, "loopBW", loopBW, "reason", c.Reason)
			result.Candidates = append(result.Candidates, c)
			e.incrementProgress()
		}
	}

	if len(valid) == 0 {
		return nil, ErrNoValidCandidate
	}

	result.NumSamples = n - maxSettling
	found := false

	for _, c := range valid {
		c.Error, c.Skipped, c.Reason = e.scoreLoop(c, opts, result.NumSamples)

		if !c.Skipped && (!found || c.Error < result.Best.Error) {
			result.Best = c
			found = true
		}

		result.Candidates = append(result.Candidates, c)
		e.incrementProgress()
	}

	if !found {
		return nil, ErrNoValidCandidate
	}

	return result, nil
}

func (e *Estimator) scoreLoop(
	c CandidateResult,
	opts LoopOptions,
	nSamples int,
) (loss float64, skipped bool, reason string) {
	err := e.Loop(LoopParams{
		Damping:  c.Damping,
		LoopBW:   c.LoopBW,
		Settling: SettlingAnalytic,
	})
	if err == nil {
		loss, err = e.DriftError(opts.Loss, opts.Criterion, nSamples)
	}

	if err == nil && (math.IsNaN(loss) || math.IsInf(loss, 0)) {
		err = fmt.Errorf("loop diverged with error %g", loss)
	}

	if err != nil {
		e.logger.V(1).Info("skipping loop candidate",
			"damping", c.Damping, "loopBW", c.LoopBW, "reason", err.Error())

		return 0, true, err.Error()
	}

	return loss, false, ""
}

// NumLoopCandidates returns the number of candidates OptimizeLoop goes
// through.
func NumLoopCandidates() int {
	return len(DampingGrid) * len(LoopBWGrid)
}

func (e *Estimator) hasTrueTimeOffset() bool {
	if len(e.Data) == 0 {
		return false
	}

	for _, r := range e.Data {
		if !r.X.Set {
			return false
		}
	}

	return true
}

func (e *Estimator) hasTrueFreqOffset() bool {
	for _, r := range e.Data {
		if r.RTCY.Set {
			return true
		}
	}

	return false
}

func (e *Estimator) incrementProgress() {
	if e.progress != nil {
		e.progress.IncrementFinished(1)
	}
}

// NumWindowCandidates returns the number of windows OptimizeToY and
// OptimizeToDrift go through for a dataset of n records.
func NumWindowCandidates(n int, maxWindowSpan float64) int {
	if n <= 0 || maxWindowSpan <= 0 {
		return 0
	}

	return max(0, int(math.Floor(math.Log2(maxWindowSpan*float64(n)))))
}
