package mediaresolve

import (
	"bytes"
	"encoding/base64"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"

	"github.com/google/uuid"
)

// Placeholder dimensions match the 16:9 thumbnails the processor emits.
const (
	placeholderWidth  = 320
	placeholderHeight = 180
)

// RenderPlaceholderPNG renders a deterministic placeholder thumbnail for
// an asset. The palette is derived from the asset id and title, so the
// same asset always renders the same image and distinct assets get
// visually distinct tiles. Rendering is entirely local and cannot fail.
func RenderPlaceholderPNG(id uuid.UUID, title string) []byte {
	h := fnv.New32a()
	h.Write(id[:])
	h.Write([]byte(title))
	seed := h.Sum32()

	bg := color.RGBA{
		R: uint8(40 + seed%160),
		G: uint8(40 + (seed>>8)%160),
		B: uint8(40 + (seed>>16)%160),
		A: 255,
	}
	band := color.RGBA{
		R: bg.R / 2,
		G: bg.G / 2,
		B: bg.B / 2,
		A: 255,
	}

	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	bandAt := int(seed % placeholderHeight)
	for y := 0; y < placeholderHeight; y++ {
		c := bg
		if y >= bandAt && y < bandAt+24 {
			c = band
		}
		for x := 0; x < placeholderWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	// Encoding an in-memory RGBA image cannot fail.
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func placeholderDataURI(pngBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}
