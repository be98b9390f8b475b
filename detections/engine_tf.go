//go:build tensorflow

package detections

import (
	"fmt"

	"github.com/Tutortoise/facetract/assets"

	tf "github.com/galeone/tensorflow/tensorflow/go"
	pb "github.com/galeone/tensorflow/tensorflow/go/core/protobuf/for_core_protos_go_proto"
	"google.golang.org/protobuf/proto"
)

// Frozen TensorFlow graph, loaded as-is.
const modelAsset = assets.TensorFlowModel

// DestroyRuntime is a no-op: libtensorflow is linked in and has no process
// environment to tear down.
func DestroyRuntime() error { return nil }

type tfGraph struct {
	graph   *tf.Graph
	config  []byte
	inputs  map[string]tf.Output
	outputs []tf.Output
}

// loadGraph imports a frozen GraphDef. The library path and log level
// options do not apply to the linked TensorFlow runtime.
func loadGraph(model []byte, o *options) (engine, error) {
	graph := tf.NewGraph()
	if err := graph.Import(model, ""); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedModel, err)
	}

	g := &tfGraph{
		graph:  graph,
		inputs: make(map[string]tf.Output, len(inputNames)),
	}

	var ins, outs []endpoint
	for _, name := range inputNames {
		op := graph.Operation(name)
		if op == nil {
			continue
		}
		g.inputs[name] = op.Output(0)
		ins = append(ins, endpoint{name: name, dims: tfDims(op.Output(0).Shape())})
	}
	for _, name := range outputNames {
		op := graph.Operation(name)
		if op == nil {
			continue
		}
		g.outputs = append(g.outputs, op.Output(0))
		outs = append(outs, endpoint{name: name, dims: tfDims(op.Output(0).Shape())})
	}
	if err := validateEndpoints(ins, outs); err != nil {
		return nil, err
	}

	if o.intraOpThreads > 0 || o.interOpThreads > 0 {
		config, err := proto.Marshal(&pb.ConfigProto{
			IntraOpParallelismThreads: int32(o.intraOpThreads),
			InterOpParallelismThreads: int32(o.interOpThreads),
		})
		if err != nil {
			return nil, fmt.Errorf("encode session config: %w", err)
		}
		g.config = config
	}

	return g, nil
}

func tfDims(s tf.Shape) []int64 {
	n := s.NumDimensions()
	if n < 0 {
		return nil
	}
	dims := make([]int64, n)
	for i := range dims {
		dims[i] = s.Size(i)
	}
	return dims
}

func (g *tfGraph) run(in feeds) (outputs, error) {
	session, err := tf.NewSession(g.graph, &tf.SessionOptions{Config: g.config})
	if err != nil {
		return outputs{}, fmt.Errorf("create session: %w", err)
	}
	defer session.Close()

	input, err := tf.NewTensor(in.pixels)
	if err != nil {
		return outputs{}, fmt.Errorf("create %s tensor: %w", InputImage, err)
	}
	if err := input.Reshape([]int64{in.height, in.width, 3}); err != nil {
		return outputs{}, fmt.Errorf("reshape %s tensor: %w", InputImage, err)
	}
	minSize, err := tf.NewTensor(in.minSize)
	if err != nil {
		return outputs{}, fmt.Errorf("create %s tensor: %w", InputMinSize, err)
	}
	thresholds, err := tf.NewTensor(in.thresholds[:])
	if err != nil {
		return outputs{}, fmt.Errorf("create %s tensor: %w", InputThresholds, err)
	}
	factor, err := tf.NewTensor(in.factor)
	if err != nil {
		return outputs{}, fmt.Errorf("create %s tensor: %w", InputFactor, err)
	}

	results, err := session.Run(map[tf.Output]*tf.Tensor{
		g.inputs[InputImage]:      input,
		g.inputs[InputMinSize]:    minSize,
		g.inputs[InputThresholds]: thresholds,
		g.inputs[InputFactor]:     factor,
	}, g.outputs, nil)
	if err != nil {
		return outputs{}, fmt.Errorf("model inference: %w", err)
	}

	box, err := flattenFloats(results[0].Value(), OutputBox)
	if err != nil {
		return outputs{}, err
	}
	prob, err := flattenFloats(results[1].Value(), OutputProb)
	if err != nil {
		return outputs{}, err
	}
	return outputs{box: box, prob: prob}, nil
}

func flattenFloats(v interface{}, name string) ([]float32, error) {
	switch data := v.(type) {
	case []float32:
		return data, nil
	case [][]float32:
		flat := make([]float32, 0, len(data)*4)
		for _, row := range data {
			flat = append(flat, row...)
		}
		return flat, nil
	default:
		return nil, fmt.Errorf("output %s is %T, want float32 values", name, v)
	}
}
