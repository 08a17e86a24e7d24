package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// minTesseractHeight is the height small captures are upscaled to. Tesseract
// loses accuracy on text shorter than roughly 20px.
const minTesseractHeight = 64

// preprocessForTesseract converts img to high-contrast grayscale and returns
// it PNG-encoded.
func preprocessForTesseract(img image.Image) ([]byte, error) {
	if h := img.Bounds().Dy(); h < minTesseractHeight {
		img = imaging.Resize(img, 0, minTesseractHeight, imaging.Lanczos)
	}

	gray := effect.Grayscale(img)
	contrasted := adjust.Contrast(gray, 0.2)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, contrasted, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}
