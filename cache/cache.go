// Package cache persists optimal loop configurations.
package cache

// LoopConfig is the outcome of a loop parameter optimization.
type LoopConfig struct {
	Damping        float64 `json:"damping"`
	LoopBW         float64 `json:"loopbw"`
	SampleCount    int     `json:"n_samples"`
	ErrorCriterion string  `json:"error"`
}

// A Cache loads and saves loop configurations by identifier.
type Cache interface {
	// Load returns the configuration saved under id, or nil if there is none.
	Load(id string) (*LoopConfig, error)

	// Save stores the configuration under id, replacing any previous one.
	Save(cfg LoopConfig, id string) error
}

// IsValid tells if a cached configuration was obtained from a dataset of the
// same size and with the same error criterion.
func IsValid(cfg *LoopConfig, sampleCount int, criterion string) bool {
	return cfg != nil &&
		cfg.SampleCount == sampleCount &&
		cfg.ErrorCriterion == criterion
}
