package ocr

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"testing"

	"github.com/Veraticus/trex/internal/common"
	"github.com/Veraticus/trex/internal/langcode"
	"github.com/Veraticus/trex/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// fakeEngine supports a fixed set of bare language codes.
type fakeEngine struct {
	err       error
	id        string
	text      string
	languages map[string]bool
	priority  int
	calls     int
	mu        sync.Mutex
}

func newFakeEngine(id string, priority int, languages ...string) *fakeEngine {
	set := make(map[string]bool, len(languages))
	for _, l := range languages {
		set[l] = true
	}
	return &fakeEngine{id: id, priority: priority, languages: set, text: id + " text"}
}

func (f *fakeEngine) Name() string       { return "Fake " + f.id }
func (f *fakeEngine) Identifier() string { return f.id }
func (f *fakeEngine) Priority() int      { return f.priority }

func (f *fakeEngine) SupportsLanguage(tag string) bool {
	return f.languages[langcode.ToTesseract(tag)] || f.languages[tag]
}

func (f *fakeEngine) RecognizeText(_ context.Context, img image.Image, languages []string, level model.QualityLevel) (model.OCRResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := validateImage(img); err != nil {
		return model.OCRResult{}, err
	}
	if f.err != nil {
		return model.OCRResult{}, f.err
	}
	return model.OCRResult{
		Text:                f.text,
		Confidence:          0.8,
		RecognizedLanguages: languages,
		EngineName:          f.Name(),
		RecognitionLevel:    level.String(),
	}, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// textImage renders text with basicfont on a white canvas.
func textImage(text string) *image.RGBA {
	width := len(text)*7 + 40
	img := image.NewRGBA(image.Rect(0, 0, width, 40))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(20), Y: fixed.I(25)},
	}
	d.DrawString(text)
	return img
}

func TestManagerFindEngine(t *testing.T) {
	m := NewManager(nil)
	offline := newFakeEngine("offline", 100, "eng", "fra")
	native := newFakeEngine("native", 50, "eng")
	m.Register(native)
	m.Register(offline)

	tests := []struct {
		name      string
		wantID    string
		languages []string
		wantFound bool
	}{
		{name: "french goes offline", languages: []string{"fr-FR"}, wantID: "offline", wantFound: true},
		{name: "english prefers priority", languages: []string{"en-US"}, wantID: "offline", wantFound: true},
		{name: "german unsupported", languages: []string{"de-DE"}, wantFound: false},
		{name: "every tag must match", languages: []string{"en-US", "fr-FR"}, wantID: "offline", wantFound: true},
		{name: "empty selects default", languages: nil, wantID: "offline", wantFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := m.FindEngine(tt.languages)
			assert.Equal(t, tt.wantFound, ok)
			if tt.wantFound {
				require.NotNil(t, e)
				assert.Equal(t, tt.wantID, e.Identifier())
			} else {
				assert.Nil(t, e)
			}
		})
	}
}

func TestManagerFallsThroughToLowerPriority(t *testing.T) {
	m := NewManager(nil)
	m.Register(newFakeEngine("offline", 100, "fra"))
	m.Register(newFakeEngine("native", 50, "eng"))

	e, ok := m.FindEngine([]string{"en-US"})
	require.True(t, ok)
	assert.Equal(t, "native", e.Identifier())
}

func TestManagerRegisterOrdering(t *testing.T) {
	m := NewManager(nil)
	m.Register(newFakeEngine("a", 50))
	m.Register(newFakeEngine("b", 100))
	m.Register(newFakeEngine("c", 50))
	m.Register(newFakeEngine("d", 75))

	ids := func() []string {
		var out []string
		for _, e := range m.Engines() {
			out = append(out, e.Identifier())
		}
		return out
	}

	assert.Equal(t, []string{"b", "d", "a", "c"}, ids())

	// Same identifier replaces the slot and re-sorts.
	m.Register(newFakeEngine("a", 200))
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids())
	assert.Len(t, m.Engines(), 4)

	def, ok := m.DefaultEngine()
	require.True(t, ok)
	assert.Equal(t, "a", def.Identifier())

	byID, ok := m.Engine("d")
	require.True(t, ok)
	assert.Equal(t, 75, byID.Priority())

	_, ok = m.Engine("missing")
	assert.False(t, ok)
}

func TestManagerEmpty(t *testing.T) {
	m := NewManager(nil)
	_, ok := m.DefaultEngine()
	assert.False(t, ok)
	_, ok = m.FindEngine([]string{"en-US"})
	assert.False(t, ok)
}

func TestRecognizeDefaultsLanguages(t *testing.T) {
	e := newFakeEngine("offline", 100, "eng")
	res, err := Recognize(context.Background(), e, textImage("hello"), model.QualityFast)
	require.NoError(t, err)
	assert.Equal(t, []string{"en-US"}, res.RecognizedLanguages)
	assert.Equal(t, "fast", res.RecognitionLevel)
}

func TestValidateImage(t *testing.T) {
	assert.ErrorIs(t, validateImage(nil), common.ErrInvalidImage)
	assert.ErrorIs(t, validateImage(image.NewRGBA(image.Rect(0, 0, 0, 10))), common.ErrInvalidImage)
	assert.NoError(t, validateImage(image.NewRGBA(image.Rect(0, 0, 1, 1))))
}
