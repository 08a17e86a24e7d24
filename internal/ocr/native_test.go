package ocr

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recognizerFunc func(ctx context.Context, png []byte, languages []string, level model.QualityLevel, words []string) ([]Observation, error)

func (f recognizerFunc) Recognize(ctx context.Context, png []byte, languages []string, level model.QualityLevel, words []string) ([]Observation, error) {
	return f(ctx, png, languages, level, words)
}

func TestNativeEngineRecognize(t *testing.T) {
	var gotLanguages, gotWords []string
	var gotLevel model.QualityLevel
	var gotPNG []byte

	rec := recognizerFunc(func(_ context.Context, png []byte, languages []string, level model.QualityLevel, words []string) ([]Observation, error) {
		gotPNG, gotLanguages, gotLevel, gotWords = png, languages, level, words
		return []Observation{
			{Text: "Hello", Confidence: 0.9},
			{Text: "World", Confidence: 0.7},
		}, nil
	})

	e := NewNativeEngine(rec, WithCustomWords([]string{"TRex"}))
	res, err := e.RecognizeText(context.Background(), textImage("Hello World"), []string{"en_us", "fr"}, model.QualityFast)
	require.NoError(t, err)

	assert.Equal(t, "Hello\nWorld", res.Text)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.Equal(t, "Apple Vision", res.EngineName)
	assert.Equal(t, "fast", res.RecognitionLevel)
	assert.Equal(t, []string{"en_us", "fr"}, res.RecognizedLanguages)

	assert.Equal(t, []string{"en-US", "fr"}, gotLanguages)
	assert.Equal(t, model.QualityFast, gotLevel)
	assert.Equal(t, []string{"TRex"}, gotWords)
	assert.True(t, bytes.HasPrefix(gotPNG, []byte("\x89PNG")))
}

func TestNativeEngineNoObservations(t *testing.T) {
	rec := recognizerFunc(func(context.Context, []byte, []string, model.QualityLevel, []string) ([]Observation, error) {
		return nil, nil
	})

	res, err := NewNativeEngine(rec).RecognizeText(context.Background(), textImage(" "), nil, model.QualityAccurate)
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, []string{"en-US"}, res.RecognizedLanguages)
}

func TestNativeEngineTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	rec := recognizerFunc(func(ctx context.Context, _ []byte, _ []string, _ model.QualityLevel, _ []string) ([]Observation, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	})

	e := NewNativeEngine(rec, WithNativeTimeout(20*time.Millisecond))
	start := time.Now()
	_, err := e.RecognizeText(context.Background(), textImage("slow"), nil, model.QualityAccurate)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNativeEngineContextCanceled(t *testing.T) {
	rec := recognizerFunc(func(ctx context.Context, _ []byte, _ []string, _ model.QualityLevel, _ []string) ([]Observation, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNativeEngine(rec).RecognizeText(ctx, textImage("x"), nil, model.QualityAccurate)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNativeEngineErrors(t *testing.T) {
	boom := errors.New("vision unavailable")
	rec := recognizerFunc(func(context.Context, []byte, []string, model.QualityLevel, []string) ([]Observation, error) {
		return nil, boom
	})
	e := NewNativeEngine(rec)

	_, err := e.RecognizeText(context.Background(), textImage("x"), nil, model.QualityAccurate)
	assert.ErrorIs(t, err, boom)

	_, err = e.RecognizeText(context.Background(), nil, nil, model.QualityAccurate)
	assert.ErrorIs(t, err, common.ErrInvalidImage)
}

func TestNativeEngineSupportsLanguage(t *testing.T) {
	e := NewNativeEngine(HelperRecognizer{})

	tests := []struct {
		tag  string
		want bool
	}{
		{tag: "en-US", want: true},
		{tag: "en_us", want: true},
		{tag: "fr", want: true},
		{tag: "zh-hans", want: true},
		{tag: "pt-BR", want: true},
		{tag: "ar-SA", want: false},
		{tag: "de-CH", want: false},
		{tag: "xx", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, e.SupportsLanguage(tt.tag))
		})
	}
	assert.Len(t, e.SupportedLanguages(), 14)
}

func TestHelperRecognizerMissingBinary(t *testing.T) {
	h := HelperRecognizer{Path: "trex-vision-definitely-missing"}
	_, err := h.Recognize(context.Background(), []byte("png"), []string{"en-US"}, model.QualityAccurate, nil)
	assert.Error(t, err)
}

func TestParseObservations(t *testing.T) {
	out := bytes.NewBufferString(`{"text":"first","confidence":0.5}

{"text":"second","confidence":1}
`)
	obs, err := parseObservations(out)
	require.NoError(t, err)
	assert.Equal(t, []Observation{{Text: "first", Confidence: 0.5}, {Text: "second", Confidence: 1}}, obs)

	_, err = parseObservations(bytes.NewBufferString("not json\n"))
	assert.Error(t, err)
}
