package bot

// Tuning holds the difficulty knobs of the targeting pipeline.
type Tuning struct {
	// HuntBias is the probability that a hunt shot goes straight at a known ship cell.
	HuntBias float64
	// SweepThreshold switches to endgame sweep once this few ship cells remain.
	SweepThreshold int
}

// DefaultTuning matches the production game config.
var DefaultTuning = Tuning{
	HuntBias:       0.1,
	SweepThreshold: 3,
}
