package freq

import "fmt"

// Strategy selects the timestamps a frequency offset is estimated from.
type Strategy int

// Estimation strategies.
const (
	// TwoWay differentiates the two-way time offset estimates.
	TwoWay Strategy = iota

	// OneWay compares master-to-slave intervals (t1 and t2).
	OneWay

	// OneWayReversed compares slave-to-master intervals (t3 and t4).
	OneWayReversed
)

var strategyNames = []string{"two-way", "one-way", "one-way-reversed"}

func (s Strategy) String() string {
	return enumName(strategyNames, int(s), "Strategy")
}

// ParseStrategy converts a name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	i, err := parseEnum(strategyNames, name, "strategy")
	return Strategy(i), err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Loss reduces a series of errors into a scalar.
type Loss int

// Loss functions.
const (
	MSE Loss = iota
	MaxError
)

var lossNames = []string{"mse", "max-error"}

func (l Loss) String() string {
	return enumName(lossNames, int(l), "Loss")
}

// ParseLoss converts a name to a Loss.
func ParseLoss(name string) (Loss, error) {
	i, err := parseEnum(lossNames, name, "loss")
	return Loss(i), err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Loss) UnmarshalText(text []byte) error {
	parsed, err := ParseLoss(string(text))
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}

// Criterion selects whether drift errors are evaluated per sample or on
// accumulated drifts.
type Criterion int

// Error criteria.
const (
	Instantaneous Criterion = iota
	Cumulative
)

var criterionNames = []string{"instantaneous", "cumulative"}

func (c Criterion) String() string {
	return enumName(criterionNames, int(c), "Criterion")
}

// ParseCriterion converts a name to a Criterion.
func ParseCriterion(name string) (Criterion, error) {
	i, err := parseEnum(criterionNames, name, "criterion")
	return Criterion(i), err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Criterion) UnmarshalText(text []byte) error {
	parsed, err := ParseCriterion(string(text))
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

func enumName(names []string, i int, typeName string) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", typeName, i)
	}

	return names[i]
}

func parseEnum(names []string, name, what string) (int, error) {
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown %s %q", ErrInvalidConfig, what, name)
}

func validEnum(names []string, i int) bool {
	return i >= 0 && i < len(names)
}
