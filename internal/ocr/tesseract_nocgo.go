//go:build !cgo

package ocr

import (
	"fmt"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/model"
)

// TesseractAvailable reports whether the binary was built with libtesseract.
const TesseractAvailable = false

func runTesseract(string, string, []byte, model.QualityLevel) (string, float64, error) {
	return "", 0, fmt.Errorf("built without cgo: %w", common.ErrEngineUnavailable)
}
