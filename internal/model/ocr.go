// Package model defines the value types shared by the OCR, capture, watch and
// history packages.
package model

import (
	"fmt"
	"image"
	"strings"
)

// QualityLevel trades recognition speed against accuracy.
type QualityLevel int

const (
	// QualityAccurate favors accuracy over speed.
	QualityAccurate QualityLevel = iota
	// QualityFast favors speed over accuracy.
	QualityFast
)

func (q QualityLevel) String() string {
	if q == QualityFast {
		return "fast"
	}
	return "accurate"
}

// ParseQualityLevel parses "fast" or "accurate". An empty string is accurate.
func ParseQualityLevel(s string) (QualityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "accurate":
		return QualityAccurate, nil
	case "fast":
		return QualityFast, nil
	default:
		return QualityAccurate, fmt.Errorf("unknown quality level %q", s)
	}
}

// OCRResult is the immutable outcome of one recognition call.
type OCRResult struct {
	// SourceImage is kept only long enough to build a history thumbnail.
	SourceImage         image.Image `json:"-"`
	Text                string      `json:"text"`
	EngineName          string      `json:"engine_name,omitempty"`
	RecognitionLevel    string      `json:"recognition_level,omitempty"`
	RecognizedLanguages []string    `json:"recognized_languages,omitempty"`
	Confidence          float64     `json:"confidence"`
}

// Empty reports whether the result carries no usable text.
func (r OCRResult) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}
