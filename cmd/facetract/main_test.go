package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/facetract/detections"
	"github.com/Tutortoise/facetract/models"
)

// countingDetector returns the next count from counts on each call.
type countingDetector struct {
	counts []int
	calls  int
}

func (d *countingDetector) Detect(image.Image) ([]models.Detection, error) {
	n := d.counts[d.calls]
	d.calls++
	dets := make([]models.Detection, n)
	for i := range dets {
		dets[i] = models.NewDetection(models.BoundingBox{X1: 0, Y1: 0, X2: 1, Y2: 1}, 0.9)
	}
	return dets, nil
}

func savePicture(t *testing.T, path string) {
	t.Helper()
	if err := imaging.Save(image.NewNRGBA(image.Rect(0, 0, 2, 2)), path); err != nil {
		t.Fatal(err)
	}
}

func TestParseArgs(t *testing.T) {
	c, err := parseArgs([]string{"-min-size", "20", "-thresholds", "0.5,0.6,0.7", "a.jpg", "b.png"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if c.minSize != 20 || c.thresholds != "0.5,0.6,0.7" {
		t.Errorf("flags = %+v", c)
	}
	if len(c.paths) != 2 || c.paths[0] != "a.jpg" || c.paths[1] != "b.png" {
		t.Errorf("paths = %v", c.paths)
	}
}

func TestParseArgsNoPaths(t *testing.T) {
	c, err := parseArgs(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if len(c.paths) != 0 {
		t.Fatalf("paths = %v", c.paths)
	}
	if c.factor != float64(detections.DefaultFactor) {
		t.Errorf("factor = %v", c.factor)
	}
}

func TestDetectorRejectsBadThresholds(t *testing.T) {
	c := &cli{thresholds: "0.5"}
	if _, err := c.detector(); err == nil {
		t.Fatal("detector accepted a single threshold")
	}
}

func TestRunStopsAtFirstBadPath(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "blank.png")
	if err := imaging.Save(image.NewNRGBA(image.Rect(0, 0, 1, 1)), good); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.png")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var stdout bytes.Buffer
	c := &cli{paths: []string{missing, good}}
	err := run(c, detections.Detector{}, &stdout, logger)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("run error = %v, want not exist", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("printed after failure: %q", stdout.String())
	}
}

func TestRunReportsEngineFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dot.png")
	if err := imaging.Save(image.NewNRGBA(image.Rect(0, 0, 2, 2)), path); err != nil {
		t.Fatal(err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	// a zero Detector has no graph, so Detect fails like a broken engine
	err := run(&cli{paths: []string{path}}, detections.Detector{}, io.Discard, logger)
	var engineErr *detections.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("run error = %v, want *EngineError", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("error %q does not name the picture", err)
	}
}

func TestRunPrintsFaceCounts(t *testing.T) {
	dir := t.TempDir()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tests := []struct {
		name   string
		counts []int
		want   string
	}{
		{
			name:   "no faces",
			counts: []int{0},
			want:   "There is 0 face(s) in " + filepath.Join(dir, "p0.png") + "\n",
		},
		{
			name:   "one face",
			counts: []int{1},
			want:   "There is 1 face(s) in " + filepath.Join(dir, "p0.png") + "\n",
		},
		{
			name:   "several pictures",
			counts: []int{0, 1, 3},
			want: "There is 0 face(s) in " + filepath.Join(dir, "p0.png") + "\n" +
				"There is 1 face(s) in " + filepath.Join(dir, "p1.png") + "\n" +
				"There is 3 face(s) in " + filepath.Join(dir, "p2.png") + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var paths []string
			for i := range tt.counts {
				path := filepath.Join(dir, fmt.Sprintf("p%d.png", i))
				savePicture(t, path)
				paths = append(paths, path)
			}

			var stdout bytes.Buffer
			d := &countingDetector{counts: tt.counts}
			if err := run(&cli{paths: paths}, d, &stdout, logger); err != nil {
				t.Fatalf("run: %v", err)
			}
			if stdout.String() != tt.want {
				t.Fatalf("stdout = %q, want %q", stdout.String(), tt.want)
			}
		})
	}
}

func TestRunAnnotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "me.png")
	savePicture(t, path)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := &cli{paths: []string{path}, annotateDir: dir}
	if err := run(c, &countingDetector{counts: []int{1}}, io.Discard, logger); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "me.annotated.png")); err != nil {
		t.Fatalf("annotated picture missing: %v", err)
	}
}
