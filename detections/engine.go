package detections

import (
	"fmt"

	"github.com/Tutortoise/facetract/models"
)

// engine runs the MTCNN graph. Implementations create a fresh session for
// every run and must be safe for concurrent use.
type engine interface {
	run(in feeds) (outputs, error)
}

// feeds are the values bound to the graph inputs for one run.
type feeds struct {
	pixels     []float32
	height     int64
	width      int64
	minSize    float32
	thresholds [Stages]float32
	factor     float32
}

type outputs struct {
	box  []float32
	prob []float32
}

// endpoint describes a graph input or output. A negative or missing
// dimension is unknown until run time.
type endpoint struct {
	name string
	dims []int64
}

func validateEndpoints(inputs, outputs []endpoint) error {
	found := make(map[string]endpoint, len(inputs)+len(outputs))
	for _, e := range inputs {
		found[e.name] = e
	}
	for _, e := range outputs {
		found[e.name] = e
	}

	for _, name := range append(append([]string{}, inputNames...), outputNames...) {
		if _, ok := found[name]; !ok {
			return fmt.Errorf("%w: %q", ErrEndpointMissing, name)
		}
	}

	thresholds := found[InputThresholds]
	if len(thresholds.dims) == 1 && thresholds.dims[0] > 0 && thresholds.dims[0] != Stages {
		return fmt.Errorf("%w: model expects %d, have %d", ErrStageMismatch, thresholds.dims[0], Stages)
	}
	return nil
}

// decodeDetections pairs each 4-value box chunk with the probability at the
// same index, keeping the model order.
func decodeDetections(out outputs) []models.Detection {
	n := len(out.box) / 4
	if len(out.prob) < n {
		n = len(out.prob)
	}

	dets := make([]models.Detection, 0, n)
	for i := 0; i < n; i++ {
		chunk := [4]float32(out.box[4*i : 4*i+4])
		dets = append(dets, models.NewDetection(models.BoundingBoxFromModel(chunk), out.prob[i]))
	}
	return dets
}
