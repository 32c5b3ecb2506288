// Package pdv provides packet delay variation samplers for simulated one-way
// delays. All samples are in nanoseconds.
package pdv

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrUnknownDistribution is returned when a distribution name is not
	// recognized.
	ErrUnknownDistribution = errors.New("unknown pdv distribution")

	// ErrInvalidConfig is returned when distribution parameters are unusable.
	ErrInvalidConfig = errors.New("invalid pdv config")
)

// A Distribution draws one-way delays.
type Distribution interface {
	Sample() float64
}

// Gamma draws delays from a Gamma distribution.
type Gamma struct {
	dist distuv.Gamma
}

// NewGamma creates a Gamma distribution with the given shape and scale (ns).
func NewGamma(shape, scale float64, src rand.Source) *Gamma {
	return &Gamma{
		dist: distuv.Gamma{Alpha: shape, Beta: 1 / scale, Src: src},
	}
}

// Sample draws a delay.
func (g *Gamma) Sample() float64 {
	return g.dist.Rand()
}

// Gaussian draws delays from a normal distribution.
type Gaussian struct {
	dist distuv.Normal
}

// NewGaussian creates a Gaussian distribution with the given mean and standard
// deviation (ns).
func NewGaussian(mean, std float64, src rand.Source) *Gaussian {
	return &Gaussian{
		dist: distuv.Normal{Mu: mean, Sigma: std, Src: src},
	}
}

// Sample draws a delay.
func (g *Gaussian) Sample() float64 {
	return g.dist.Rand()
}

// MirroredErlang draws integer delays from an Erlang density tabulated over
// [0, supportLen) and flipped, so that the long tail points towards zero.
type MirroredErlang struct {
	supportLen int
	dist       distuv.Categorical
}

// NewMirroredErlang creates a mirrored Erlang distribution with shape k and the
// given scale (ns), tabulated over supportLen one-nanosecond bins.
func NewMirroredErlang(
	k int,
	scale float64,
	supportLen int,
	src rand.Source,
) *MirroredErlang {
	erlang := distuv.Gamma{Alpha: float64(k), Beta: 1 / scale}

	weights := make([]float64, supportLen)
	for x := 0; x < supportLen; x++ {
		weights[supportLen-1-x] = erlang.Prob(float64(x))
	}

	return &MirroredErlang{
		supportLen: supportLen,
		dist:       distuv.NewCategorical(weights, src),
	}
}

// SupportLen returns the number of bins the density is tabulated over.
func (m *MirroredErlang) SupportLen() int {
	return m.supportLen
}

// Sample draws a delay.
func (m *MirroredErlang) Sample() float64 {
	return m.dist.Rand()
}

// Constant always returns the same delay.
type Constant float64

// Zero is a distribution that never delays.
const Zero = Constant(0)

// Sample returns the constant delay.
func (c Constant) Sample() float64 {
	return float64(c)
}

// Kind names a distribution family.
type Kind int

// Supported distribution families.
const (
	KindGamma Kind = iota
	KindGaussian
	KindMirroredGamma
	KindZero
)

var kindNames = map[Kind]string{
	KindGamma:         "Gamma",
	KindGaussian:      "Gaussian",
	KindMirroredGamma: "mirrorGamma",
	KindZero:          "zero",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a name to a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownDistribution, name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDistribution, int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}
