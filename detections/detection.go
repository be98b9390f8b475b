package detections

import (
	"fmt"
	"image"

	"github.com/Tutortoise/facetract/assets"
	"github.com/Tutortoise/facetract/models"
)

// Detector finds faces with the bundled MTCNN graph.
//
// A Detector is a value: the With* methods return a copy that shares the
// loaded graph, so earlier copies keep their own configuration. Detect may be
// called concurrently from any number of goroutines.
type Detector struct {
	graph  engine
	config Config
}

// Load reads the bundled model, initializes the inference runtime if this is
// the first load of the process and checks the graph exposes the expected
// endpoints.
func Load(cfg Config, opts ...Option) (Detector, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	graph := o.engine
	if graph == nil {
		model := o.model
		if model == nil {
			var err error
			model, err = assets.Model(modelAsset)
			if err != nil {
				return Detector{}, fmt.Errorf("%w: %v", ErrModelMissing, err)
			}
		}

		var err error
		graph, err = loadGraph(model, &o)
		if err != nil {
			return Detector{}, fmt.Errorf("load %s: %w", modelAsset, err)
		}
	}

	return Detector{graph: graph, config: cfg}, nil
}

// New is like Load but panics if the model cannot be loaded. The model is
// compiled into the binary, so a failure here means a broken build or
// deployment.
func New(cfg Config, opts ...Option) Detector {
	d, err := Load(cfg, opts...)
	if err != nil {
		panic(fmt.Sprintf("detections: bad model loaded: %v", err))
	}
	return d
}

// Default returns a Detector with DefaultConfig.
func Default(opts ...Option) Detector {
	return New(DefaultConfig(), opts...)
}

func (d Detector) Config() Config { return d.config }

// WithMinSize returns a copy of d with a new minimum face size.
func (d Detector) WithMinSize(minSize float32) Detector {
	d.config.MinSize = minSize
	return d
}

// WithFactor returns a copy of d with a new pyramid scale factor.
func (d Detector) WithFactor(factor float32) Detector {
	d.config.Factor = factor
	return d
}

// WithThresholds returns a copy of d with new per-stage thresholds.
func (d Detector) WithThresholds(thresholds [Stages]float32) Detector {
	d.config.Thresholds = thresholds
	return d
}

// Detect returns the faces found in img in the order the model emits them.
// An image without faces, or without pixels, yields an empty slice.
func (d Detector) Detect(img image.Image) ([]models.Detection, error) {
	if d.graph == nil {
		return nil, &EngineError{Message: "detector has no graph loaded"}
	}

	b := img.Bounds()
	if b.Empty() {
		return []models.Detection{}, nil
	}

	out, err := d.graph.run(feeds{
		pixels:     flattenBGR(img),
		height:     int64(b.Dy()),
		width:      int64(b.Dx()),
		minSize:    d.config.MinSize,
		thresholds: d.config.Thresholds,
		factor:     d.config.Factor,
	})
	if err != nil {
		return nil, &EngineError{Message: "run mtcnn graph", Cause: err}
	}

	return decodeDetections(out), nil
}
