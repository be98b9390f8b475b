// Command facetract reports how many faces are in each picture.
package main

import (
	"flag"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/Tutortoise/facetract/detections"
	"github.com/Tutortoise/facetract/internal/annotate"
	"github.com/Tutortoise/facetract/internal/config"
	"github.com/Tutortoise/facetract/internal/log"
	"github.com/Tutortoise/facetract/models"
)

type cli struct {
	minSize     float64
	factor      float64
	thresholds  string
	runtimeLib  string
	runtimeLogs string
	annotateDir string
	verbose     bool
	paths       []string
}

func parseArgs(args []string, stderr io.Writer) (*cli, error) {
	c := &cli{}
	fs := flag.NewFlagSet("facetract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: facetract [flags] <picture>...")
		fmt.Fprintln(stderr, "See how many faces are in each picture.")
		fs.PrintDefaults()
	}

	fs.Float64Var(&c.minSize, "min-size", float64(detections.DefaultMinSize), "smallest face to look for, in pixels")
	fs.Float64Var(&c.factor, "factor", float64(detections.DefaultFactor), "scale factor between pyramid levels")
	fs.StringVar(&c.thresholds, "thresholds", "0.6,0.7,0.7", "comma separated threshold for each cascade stage")
	fs.StringVar(&c.runtimeLib, "ort-lib", os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"), "path to the onnxruntime shared library")
	fs.StringVar(&c.runtimeLogs, "runtime-log-level", "fatal", "inference runtime log level: verbose, info, warning, error, fatal")
	fs.StringVar(&c.annotateDir, "annotate", "", "write a copy of each picture with the faces outlined into this directory")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.paths = fs.Args()
	return c, nil
}

func (c *cli) detector() (detections.Detector, error) {
	thresholds, err := config.ParseThresholds(c.thresholds)
	if err != nil {
		return detections.Detector{}, err
	}

	opts := []detections.Option{detections.WithLogLevel(config.ParseRuntimeLogLevel(c.runtimeLogs))}
	if c.runtimeLib != "" {
		opts = append(opts, detections.WithSharedLibraryPath(c.runtimeLib))
	}

	d := detections.New(detections.DefaultConfig(), opts...)
	return d.
		WithMinSize(float32(c.minSize)).
		WithFactor(float32(c.factor)).
		WithThresholds(thresholds), nil
}

type faceDetector interface {
	Detect(img image.Image) ([]models.Detection, error)
}

// run stops at the first picture that cannot be read or searched.
func run(c *cli, d faceDetector, stdout io.Writer, logger logrus.FieldLogger) error {
	for _, path := range c.paths {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}

		faces, err := d.Detect(img)
		if err != nil {
			return fmt.Errorf("detect faces in %s: %w", path, err)
		}
		logger.WithFields(log.Fields{"path": path, "faces": len(faces)}).Debug("Detected")

		fmt.Fprintf(stdout, "There is %d face(s) in %s\n", len(faces), path)

		if c.annotateDir != "" {
			out, err := annotate.Save(c.annotateDir, path, annotate.Draw(img, faces))
			if err != nil {
				return err
			}
			logger.WithField("path", out).Debug("Wrote annotated picture")
		}
	}
	return nil
}

func main() {
	c, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		os.Exit(2)
	}

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logger, err := log.NewLogger(log.Options{Level: level})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(c.paths) == 0 {
		return
	}

	d, err := c.detector()
	if err != nil {
		logger.Fatal(err)
	}
	defer detections.DestroyRuntime()

	if err := run(c, d, os.Stdout, logger); err != nil {
		detections.DestroyRuntime()
		logger.Fatal(err)
	}
}
