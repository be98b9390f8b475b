package detections

import (
	"image"
	"image/color"
	"runtime"
	"sync"
)

// rowFunc writes row y (relative to the image bounds) into dst as B, G, R
// triplets.
type rowFunc func(dst []float32, y int)

// flattenBGR lays out the pixels of img row by row as float32 B, G, R values
// in 0..255. The result has Dy*Dx*3 elements.
func flattenBGR(img image.Image) []float32 {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	buffer := make([]float32, width*height*3)
	if len(buffer) == 0 {
		return buffer
	}

	row := rowReader(img)
	rowLen := width * 3

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > height {
		numWorkers = height
	}
	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := (w + 1) * rowsPerWorker
		if w == numWorkers-1 {
			endRow = height
		}

		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				row(buffer[y*rowLen:(y+1)*rowLen], y)
			}
		}(startRow, endRow)
	}

	wg.Wait()
	return buffer
}

func rowReader(img image.Image) rowFunc {
	b := img.Bounds()
	width := b.Dx()

	switch src := img.(type) {
	case *image.NRGBA:
		return func(dst []float32, y int) {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			pixRow(dst, src.Pix[off:off+width*4])
		}
	case *image.RGBA:
		// premultiplied samples equal the raw ones only when fully opaque
		if src.Opaque() {
			return func(dst []float32, y int) {
				off := src.PixOffset(b.Min.X, b.Min.Y+y)
				pixRow(dst, src.Pix[off:off+width*4])
			}
		}
	}

	return func(dst []float32, y int) {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst[3*x] = float32(c.B)
			dst[3*x+1] = float32(c.G)
			dst[3*x+2] = float32(c.R)
		}
	}
}

// pixRow converts one row of 8-bit RGBA samples.
func pixRow(dst []float32, pix []uint8) {
	for x := 0; x < len(pix)/4; x++ {
		dst[3*x] = float32(pix[4*x+2])
		dst[3*x+1] = float32(pix[4*x+1])
		dst[3*x+2] = float32(pix[4*x])
	}
}
