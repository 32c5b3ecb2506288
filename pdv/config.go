package pdv

import (
	"fmt"
	"math/rand/v2"
)

// Direction is the direction a message travels in.
type Direction int

// Message directions.
const (
	MasterToSlave Direction = iota
	SlaveToMaster
)

func (d Direction) String() string {
	if d == MasterToSlave {
		return "master-to-slave"
	}

	return "slave-to-master"
}

// SupportLen returns the support of the mirrored Erlang density used in the
// direction.
func (d Direction) SupportLen() int {
	if d == MasterToSlave {
		return 21000
	}

	return 18000
}

// Config selects a distribution and its parameters.
type Config struct {
	Kind         Kind    `yaml:"kind"`
	GammaShape   float64 `yaml:"gamma_shape"`
	GammaScale   float64 `yaml:"gamma_scale"`
	GaussianMean float64 `yaml:"gaussian_mean"`
	GaussianStd  float64 `yaml:"gaussian_std"`
}

// DefaultConfig returns a Gamma distribution fitted to a 60% load, 5-hop
// cross-traffic scenario.
func DefaultConfig() Config {
	return Config{
		Kind:         KindGamma,
		GammaShape:   5,
		GammaScale:   21400,
		GaussianMean: 2000,
		GaussianStd:  200,
	}
}

// Validate checks that the parameters of the selected family are usable.
func (c Config) Validate() error {
	switch c.Kind {
	case KindGamma:
		if c.GammaShape <= 0 || c.GammaScale <= 0 {
			return fmt.Errorf("%w: gamma shape and scale must be positive, got %g, %g",
				ErrInvalidConfig, c.GammaShape, c.GammaScale)
		}
	case KindMirroredGamma:
		if c.GammaShape < 1 || c.GammaShape != float64(int(c.GammaShape)) {
			return fmt.Errorf("%w: erlang shape must be a positive integer, got %g",
				ErrInvalidConfig, c.GammaShape)
		}

		if c.GammaScale <= 0 {
			return fmt.Errorf("%w: erlang scale must be positive, got %g",
				ErrInvalidConfig, c.GammaScale)
		}
	case KindGaussian:
		if c.GaussianStd < 0 {
			return fmt.Errorf("%w: gaussian std must not be negative, got %g",
				ErrInvalidConfig, c.GaussianStd)
		}
	case KindZero:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDistribution, c.Kind)
	}

	return nil
}

// Build creates the distribution for the given direction.
func (c Config) Build(dir Direction, src rand.Source) (Distribution, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Kind {
	case KindGamma:
		return NewGamma(c.GammaShape, c.GammaScale, src), nil
	case KindGaussian:
		return NewGaussian(c.GaussianMean, c.GaussianStd, src), nil
	case KindMirroredGamma:
		return NewMirroredErlang(
			int(c.GammaShape), c.GammaScale, dir.SupportLen(), src), nil
	default:
		return Zero, nil
	}
}
