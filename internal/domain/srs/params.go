package srs

// weightCount is the number of model weights.
const weightCount = 17

// defaultWeights are the published FSRS v4 defaults.
//
//	w0..w3   initial stability per rating (again, hard, good, easy)
//	w4, w5   initial difficulty and its per-rating slope
//	w6       difficulty change per rating step
//	w7       mean reversion toward the initial "good" difficulty
//	w8..w10  stability growth after a successful recall
//	w11..w14 stability after a lapse
//	w15      hard penalty
//	w16      easy bonus
var defaultWeights = [weightCount]float64{
	0.4, 0.6, 2.4, 5.8,
	4.93, 0.94, 0.86, 0.01,
	1.49, 0.14, 0.94,
	2.18, 0.05, 0.34, 1.26,
	0.29, 2.61,
}

// Params defines all configurable parameters for the memory model
type Params struct {
	Weights [weightCount]float64

	// RequestRetention is the recall probability the scheduler aims for
	// when the next review comes up.
	RequestRetention float64

	// MaximumIntervalDays caps any scheduled interval.
	MaximumIntervalDays int

	// Short retry steps after a failed recall
	LearningStepMinutes   int
	RelearningStepMinutes int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults.
type ParamsConfig struct {
	Weights               []float64
	RequestRetention      float64
	MaximumIntervalDays   int
	LearningStepMinutes   int
	RelearningStepMinutes int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Weights:               defaultWeights,
		RequestRetention:      0.9,
		MaximumIntervalDays:   365,
		LearningStepMinutes:   10,
		RelearningStepMinutes: 10,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Out-of-range overrides are ignored.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if len(config.Weights) == weightCount {
		copy(params.Weights[:], config.Weights)
	}
	if config.RequestRetention > 0 && config.RequestRetention < 1 {
		params.RequestRetention = config.RequestRetention
	}
	if config.MaximumIntervalDays > 0 {
		params.MaximumIntervalDays = config.MaximumIntervalDays
	}
	if config.LearningStepMinutes > 0 {
		params.LearningStepMinutes = config.LearningStepMinutes
	}
	if config.RelearningStepMinutes > 0 {
		params.RelearningStepMinutes = config.RelearningStepMinutes
	}

	return params
}
