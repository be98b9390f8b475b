package models

import (
	"image"
	"math"
	"time"
)

// BoundingBox holds two corners (X1, Y1) and (X2, Y2) of a face in image
// pixel space.
type BoundingBox struct {
	X1 float32
	Y1 float32
	X2 float32
	Y2 float32
}

// BoundingBoxFromModel builds a box from one chunk of the model's box output.
// The model emits coordinates as (y1, x1, y2, x2).
func BoundingBoxFromModel(c [4]float32) BoundingBox {
	return BoundingBox{
		Y1: c[0],
		X1: c[1],
		Y2: c[2],
		X2: c[3],
	}
}

// Width is X2 - X1 truncated to whole pixels.
func (b BoundingBox) Width() uint32 { return saturateUint32(b.X2 - b.X1) }

// Height is Y2 - Y1 truncated to whole pixels.
func (b BoundingBox) Height() uint32 { return saturateUint32(b.Y2 - b.Y1) }

// Rect returns the box as an integer rectangle, truncating each corner.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// negative and NaN spans clamp to 0
func saturateUint32(v float32) uint32 {
	switch {
	case !(v > 0):
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v)
}

// Detection is one face found by the detector and how likely the model
// thinks it is a human face.
type Detection struct {
	box  BoundingBox
	prob float32
}

func NewDetection(box BoundingBox, prob float32) Detection {
	return Detection{box: box, prob: prob}
}

// Box returns the location of the face.
func (d Detection) Box() BoundingBox { return d.box }

// Probability returns the model confidence in [0, 1].
func (d Detection) Probability() float32 { return d.prob }

type ProcessingTimings struct {
	RequestID   string
	ImageDecode time.Duration
	Inference   time.Duration
	Total       time.Duration
}
