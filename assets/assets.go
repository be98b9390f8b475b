// Package assets bundles the pretrained MTCNN graphs into the binary.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

const (
	ONNXModel       = "mtcnn.onnx"
	TensorFlowModel = "mtcnn.pb"
)

// The graphs are not checked in; without them Model reports fs.ErrNotExist
// and detections.New panics.
//go:generate make -C .. models

//go:embed models
var embeddedFiles embed.FS

// Model returns the bytes of a bundled model file.
func Model(name string) ([]byte, error) {
	data, err := embeddedFiles.ReadFile(path.Join("models", name))
	if err != nil {
		return nil, fmt.Errorf("read embedded model %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("embedded model %s is empty: %w", name, fs.ErrNotExist)
	}
	return data, nil
}

// Bundled lists the model files compiled into the binary.
func Bundled() []string {
	entries, err := embeddedFiles.ReadDir("models")
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) == ".md" {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}
