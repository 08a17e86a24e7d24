package themes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTheme(t *testing.T) {
	assert.Equal(t, "catppuccin-mocha", GetTheme("catppuccin-mocha").Name)
	assert.Equal(t, "default", GetTheme("").Name)
	assert.Equal(t, "default", GetTheme("solarized").Name)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"catppuccin-latte", "catppuccin-mocha", "default"}, Names())
}

func TestNewUsesPalette(t *testing.T) {
	th := New("test", Palette{Accent: "#123456", Red: "#ff0000"})

	assert.Equal(t, "test", th.Name)
	assert.Equal(t, "#123456", string(th.Highlight))
	assert.Equal(t, LabelWidth, th.Label.GetWidth())
	assert.True(t, th.Failure.GetBold())
}
