package freq

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// CumulativeWindow is the number of drifts accumulated by the cumulative
// criterion once the dataset is longer than it.
const CumulativeWindow = 8192

func reduce(loss Loss, errs []float64) float64 {
	switch loss {
	case MaxError:
		return floats.Norm(errs, math.Inf(1))
	default:
		return floats.Dot(errs, errs) / float64(len(errs))
	}
}

func trailing(x []float64, n int) []float64 {
	if n <= 0 || n >= len(x) {
		return x
	}

	return x[len(x)-n:]
}

// rollingSum returns the sums of every window of n consecutive values.
func rollingSum(x []float64, n int) []float64 {
	sums := make([]float64, len(x)-n+1)

	acc := floats.Sum(x[:n])
	sums[0] = acc

	for i := n; i < len(x); i++ {
		acc += x[i] - x[i-n]
		sums[i-n+1] = acc
	}

	return sums
}

func (e *Estimator) drifts() (est, truth []float64, err error) {
	for i := 1; i < len(e.Data); i++ {
		r := e.Data[i]

		drift, ok := r.Drift.Get()
		if !ok {
			continue
		}

		prev := e.Data[i-1]
		if !r.X.Set || !prev.X.Set {
			return nil, nil, fmt.Errorf("record %d: %w", i, ErrMissingTruth)
		}

		est = append(est, drift)
		truth = append(truth, r.X.Value-prev.X.Value)
	}

	if len(est) == 0 {
		return nil, nil, fmt.Errorf("%w: no drift estimates", ErrNotEnoughSamples)
	}

	return est, truth, nil
}

// DriftError evaluates the drift estimates against the true time offset
// drifts over the trailing nSamples drifts. Zero considers all of them.
//
// The cumulative criterion compares drifts accumulated over a rolling window,
// normalized by the magnitude of the true accumulated drift, so that errors
// stand out of the uncertainty of the true time offsets and datasets with
// different frequency offsets weigh the same.
func (e *Estimator) DriftError(
	loss Loss,
	criterion Criterion,
	nSamples int,
) (float64, error) {
	if !validEnum(lossNames, int(loss)) ||
		!validEnum(criterionNames, int(criterion)) {
		return 0, fmt.Errorf("%w: loss %s, criterion %s",
			ErrInvalidConfig, loss, criterion)
	}

	est, truth, err := e.drifts()
	if err != nil {
		return 0, err
	}

	if criterion == Instantaneous {
		errs := make([]float64, len(est))
		floats.SubTo(errs, est, truth)

		return reduce(loss, trailing(errs, nSamples)), nil
	}

	var cumEst, cumTruth []float64
	if len(e.Data) <= CumulativeWindow || len(est) < CumulativeWindow {
		cumEst = make([]float64, len(est))
		cumTruth = make([]float64, len(truth))
		floats.CumSum(cumEst, est)
		floats.CumSum(cumTruth, truth)
	} else {
		cumEst = rollingSum(est, CumulativeWindow)
		cumTruth = rollingSum(truth, CumulativeWindow)
	}

	cumEst = trailing(cumEst, nSamples)
	cumTruth = trailing(cumTruth, nSamples)

	errs := make([]float64, 0, len(cumEst))
	for i := range cumEst {
		if cumTruth[i] == 0 {
			continue
		}

		errs = append(errs, (cumEst[i]-cumTruth[i])/math.Abs(cumTruth[i]))
	}

	if len(errs) == 0 {
		return 0, fmt.Errorf("%w: true cumulative drift is zero",
			ErrNotEnoughSamples)
	}

	return reduce(loss, errs), nil
}
