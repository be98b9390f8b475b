package detections

// Config holds the cascade tuning knobs. They are fed to the graph as is.
type Config struct {
	// MinSize is the smallest face, in pixels, the pyramid will look for.
	MinSize float32
	// Factor is the scale reduction between pyramid levels.
	Factor float32
	// Thresholds are the per-stage acceptance cutoffs.
	Thresholds [Stages]float32
}

func DefaultConfig() Config {
	return Config{
		MinSize:    DefaultMinSize,
		Factor:     DefaultFactor,
		Thresholds: DefaultThresholds,
	}
}
