//go:build cgo

package ocr

import (
	"fmt"
	"strings"

	"github.com/Veraticus/trex/internal/model"
	"github.com/otiai10/gosseract/v2"
)

// TesseractAvailable reports whether the binary was built with libtesseract.
const TesseractAvailable = true

// runTesseract recognizes png with a fresh client. Confidence is the mean
// word confidence scaled to [0,1].
func runTesseract(dataDir, languages string, png []byte, level model.QualityLevel) (string, float64, error) {
	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetTessdataPrefix(dataDir); err != nil {
		return "", 0, fmt.Errorf("failed to set tessdata path: %w", err)
	}
	if err := client.SetLanguage(languages); err != nil {
		return "", 0, fmt.Errorf("failed to set language: %w", err)
	}

	mode := gosseract.PSM_SINGLE_BLOCK
	if level == model.QualityFast {
		mode = gosseract.PSM_SPARSE_TEXT
	}
	if err := client.SetPageSegMode(mode); err != nil {
		return "", 0, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	if err := client.SetImageFromBytes(png); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("tesseract recognition failed: %w", err)
	}

	var confidences []float64
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err == nil {
		for _, box := range boxes {
			if strings.TrimSpace(box.Word) == "" {
				continue
			}
			confidences = append(confidences, box.Confidence/100.0)
		}
	}

	return strings.TrimSpace(text), mean(confidences), nil
}
