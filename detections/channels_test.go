package detections

import (
	"image"
	"image/color"
	"testing"
)

func TestFlattenBGR(t *testing.T) {
	pixels := [][]color.NRGBA{
		{{R: 1, G: 2, B: 3, A: 255}, {R: 4, G: 5, B: 6, A: 255}, {R: 7, G: 8, B: 9, A: 255}},
		{{R: 10, G: 11, B: 12, A: 255}, {R: 13, G: 14, B: 15, A: 255}, {R: 250, G: 251, B: 255, A: 255}},
	}
	want := []float32{
		3, 2, 1, 6, 5, 4, 9, 8, 7,
		12, 11, 10, 15, 14, 13, 255, 251, 250,
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	rgba := image.NewRGBA(image.Rect(0, 0, 3, 2))
	offset := image.NewNRGBA(image.Rect(5, 7, 8, 9))
	palette := color.Palette{}
	for y, row := range pixels {
		for x, c := range row {
			nrgba.SetNRGBA(x, y, c)
			rgba.Set(x, y, c)
			offset.SetNRGBA(x+5, y+7, c)
			palette = append(palette, c)
		}
	}
	paletted := image.NewPaletted(image.Rect(0, 0, 3, 2), palette)
	for i := range paletted.Pix {
		paletted.Pix[i] = uint8(i)
	}

	tests := []struct {
		name string
		img  image.Image
	}{
		{"nrgba", nrgba},
		{"opaque rgba", rgba},
		{"offset bounds", offset},
		{"generic", paletted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flattenBGR(tt.img)
			if len(got) != len(want) {
				t.Fatalf("len = %d, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("value %d = %v, want %v (got %v)", i, got[i], want[i], got)
				}
			}
		})
	}
}

func TestFlattenBGRIgnoresAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	got := flattenBGR(img)
	want := []float32{50, 100, 200}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("flattenBGR = %v, want %v", got, want)
		}
	}
}

func TestFlattenBGRTallImage(t *testing.T) {
	// more rows than workers exercises the row split
	img := image.NewGray(image.Rect(0, 0, 2, 257))
	for y := 0; y < 257; y++ {
		img.SetGray(1, y, color.Gray{Y: uint8(y)})
	}

	got := flattenBGR(img)
	if len(got) != 2*257*3 {
		t.Fatalf("len = %d, want %d", len(got), 2*257*3)
	}
	for y := 0; y < 257; y++ {
		base := y*6 + 3
		v := float32(uint8(y))
		if got[base] != v || got[base+1] != v || got[base+2] != v {
			t.Fatalf("row %d = %v, want %v", y, got[base:base+3], v)
		}
	}
}

func TestFlattenBGREmpty(t *testing.T) {
	if got := flattenBGR(image.NewNRGBA(image.Rectangle{})); len(got) != 0 {
		t.Fatalf("flattenBGR(empty) = %v", got)
	}
}
