package watch

import (
	"crypto/sha256"
	"encoding/binary"
	"image"
	"image/draw"
)

// imageHash is the SHA-256 of the image bounds followed by its RGBA pixels,
// row by row. Any single-pixel change produces a different hash.
func imageHash(img image.Image) [sha256.Size]byte {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(b)
		draw.Draw(rgba, b, img, b.Min, draw.Src)
	}

	h := sha256.New()
	var dims [16]byte
	binary.BigEndian.PutUint32(dims[0:], uint32(int32(b.Min.X)))
	binary.BigEndian.PutUint32(dims[4:], uint32(int32(b.Min.Y)))
	binary.BigEndian.PutUint32(dims[8:], uint32(b.Dx()))
	binary.BigEndian.PutUint32(dims[12:], uint32(b.Dy()))
	h.Write(dims[:])

	rowBytes := b.Dx() * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := rgba.PixOffset(b.Min.X, y)
		h.Write(rgba.Pix[start : start+rowBytes])
	}

	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
