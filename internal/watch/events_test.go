package watch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSystemEvent(t *testing.T) {
	tests := []struct {
		in   string
		want SystemEvent
		ok   bool
	}{
		{in: "screens-slept", want: ScreensSlept, ok: true},
		{in: "  SCREENS-WOKE\n", want: ScreensWoke, ok: true},
		{in: "screen-parameters-changed", want: ScreenParametersChanged, ok: true},
		{in: "unknown", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSystemEvent(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestReadEvents(t *testing.T) {
	input := strings.Join([]string{
		"screens-slept",
		"",
		"garbage",
		"screens-woke",
		"screen-parameters-changed",
	}, "\n")

	out := make(chan SystemEvent, 8)
	ReadEvents(context.Background(), strings.NewReader(input), out, nil)

	var got []SystemEvent
	for ev := range out {
		got = append(got, ev)
	}
	assert.Equal(t, []SystemEvent{ScreensSlept, ScreensWoke, ScreenParametersChanged}, got)
}

func TestReadEventsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan SystemEvent)
	done := make(chan struct{})
	go func() {
		ReadEvents(ctx, strings.NewReader("screens-slept\nscreens-woke\n"), out, nil)
		close(done)
	}()

	<-done
	_, open := <-out
	require.False(t, open)
}
