//go:build !tensorflow

package detections

import (
	"fmt"
	"sync"

	"github.com/Tutortoise/facetract/assets"

	ort "github.com/yalue/onnxruntime_go"
)

const modelAsset = assets.ONNXModel

var runtimeMu sync.Mutex

// initRuntime sets up the process-wide onnxruntime environment once. Later
// calls keep the library path and log level of the first one.
func initRuntime(o *options) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	// empty restores the library's default lookup, so a failed path from an
	// earlier Load does not stick
	ort.SetSharedLibraryPath(o.libraryPath)
	if err := ort.InitializeEnvironment(ortLogLevel(o.logLevel)); err != nil {
		return fmt.Errorf("%w: initialize onnxruntime: %v", ErrRuntime, err)
	}
	return nil
}

// DestroyRuntime tears down the onnxruntime environment. Detectors loaded
// before the call must not be used afterwards.
func DestroyRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

func ortLogLevel(level LogLevel) ort.EnvironmentOption {
	switch level {
	case LogLevelVerbose:
		return ort.WithLogLevelVerbose()
	case LogLevelInfo:
		return ort.WithLogLevelInfo()
	case LogLevelWarning:
		return ort.WithLogLevelWarning()
	case LogLevelError:
		return ort.WithLogLevelError()
	default:
		return ort.WithLogLevelFatal()
	}
}

type onnxGraph struct {
	model          []byte
	intraOpThreads int
	interOpThreads int
}

func loadGraph(model []byte, o *options) (engine, error) {
	if err := initRuntime(o); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}
	if err := validateEndpoints(ortEndpoints(inputs), ortEndpoints(outputs)); err != nil {
		return nil, err
	}

	return &onnxGraph{
		model:          model,
		intraOpThreads: o.intraOpThreads,
		interOpThreads: o.interOpThreads,
	}, nil
}

func ortEndpoints(info []ort.InputOutputInfo) []endpoint {
	eps := make([]endpoint, 0, len(info))
	for _, i := range info {
		eps = append(eps, endpoint{name: i.Name, dims: i.Dimensions})
	}
	return eps
}

func (g *onnxGraph) newSession() (*ort.DynamicAdvancedSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	if g.intraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(g.intraOpThreads); err != nil {
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}
	if g.interOpThreads > 0 {
		if err := options.SetInterOpNumThreads(g.interOpThreads); err != nil {
			return nil, fmt.Errorf("set inter-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSessionWithONNXData(g.model, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (g *onnxGraph) run(in feeds) (outputs, error) {
	session, err := g.newSession()
	if err != nil {
		return outputs{}, err
	}
	defer session.Destroy()

	var values []ort.Value
	defer func() {
		for _, v := range values {
			v.Destroy()
		}
	}()

	input, err := ort.NewTensor(ort.NewShape(in.height, in.width, 3), in.pixels)
	if err != nil {
		return outputs{}, fmt.Errorf("create %s tensor: %w", InputImage, err)
	}
	values = append(values, input)

	minSize, err := ort.NewScalar(in.minSize)
	if err != nil {
		return outputs{}, fmt.Errorf("create %s tensor: %w", InputMinSize, err)
	}
	values = append(values, minSize)

	thresholds, err := ort.NewTensor(ort.NewShape(Stages), in.thresholds[:])
	if err != nil {
		return outputs{}, fmt.Errorf("create %s tensor: %w", InputThresholds, err)
	}
	values = append(values, thresholds)

	factor, err := ort.NewScalar(in.factor)
	if err != nil {
		return outputs{}, fmt.Errorf("create %s tensor: %w", InputFactor, err)
	}
	values = append(values, factor)

	// nil outputs are allocated by the runtime, their size depends on the
	// number of faces
	results := make([]ort.Value, len(outputNames))
	if err := session.Run([]ort.Value{input, minSize, thresholds, factor}, results); err != nil {
		return outputs{}, fmt.Errorf("model inference: %w", err)
	}
	for _, r := range results {
		if r != nil {
			values = append(values, r)
		}
	}

	box, err := floatData(results[0], OutputBox)
	if err != nil {
		return outputs{}, err
	}
	prob, err := floatData(results[1], OutputProb)
	if err != nil {
		return outputs{}, err
	}

	// the backing memory is freed with the tensors
	return outputs{
		box:  append([]float32(nil), box...),
		prob: append([]float32(nil), prob...),
	}, nil
}

func floatData(v ort.Value, name string) ([]float32, error) {
	if v == nil {
		return nil, fmt.Errorf("output %s was not produced", name)
	}
	t, ok := v.(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output %s is %T, want a float32 tensor", name, v)
	}
	return t.GetData(), nil
}
