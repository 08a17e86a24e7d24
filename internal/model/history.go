package model

import "time"

// HistoryEntry is one persisted capture.
type HistoryEntry struct {
	Date          time.Time `json:"timestamp" yaml:"date"`
	ID            string    `json:"id" yaml:"id"`
	Text          string    `json:"text" yaml:"text"`
	EngineName    string    `json:"engineName,omitempty" yaml:"engine_name,omitempty"`
	ThumbnailFile string    `json:"thumbnailFilename,omitempty" yaml:"thumbnail,omitempty"`
	Languages     []string  `json:"recognizedLanguages" yaml:"languages"`
	Confidence    float64   `json:"confidence" yaml:"confidence"`
}
