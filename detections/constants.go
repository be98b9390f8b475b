package detections

// Graph endpoints of the bundled MTCNN model.
const (
	InputImage      = "input"
	InputMinSize    = "min_size"
	InputThresholds = "thresholds"
	InputFactor     = "factor"

	OutputBox  = "box"
	OutputProb = "prob"
)

// Stages is the number of cascade stages, one threshold each.
const Stages = 3

const (
	DefaultMinSize float32 = 40.0
	DefaultFactor  float32 = 0.709
)

var DefaultThresholds = [Stages]float32{0.6, 0.7, 0.7}

var (
	inputNames  = []string{InputImage, InputMinSize, InputThresholds, InputFactor}
	outputNames = []string{OutputBox, OutputProb}
)
