package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"esc":       "esc",
		"Escape":    "esc",
		"return":    "enter",
		"space":     "space",
		"page_up":   "pageup",
		"page_down": "pagedown",
		"f6":        "f6",
		"F12":       "f12",
		"num_5":     "num5",
		"num_enter": "num_enter",
		"num_plus":  "num+",
		"num_minus": "num-",
		"control":   "ctrl",
		"win":       "cmd",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeKey(in), in)
	}
}

func TestNormalizeKeyPassesUnknownThrough(t *testing.T) {
	assert.Equal(t, "a", NormalizeKey("a"))
	assert.Equal(t, "Q", NormalizeKey("Q"))
	assert.Equal(t, "audio_mute", NormalizeKey("audio_mute"))
}

func TestParseButton(t *testing.T) {
	b, err := ParseButton("Right")
	require.NoError(t, err)
	assert.Equal(t, ButtonRight, b)

	b, err = ParseButton("middle")
	require.NoError(t, err)
	assert.Equal(t, ButtonMiddle, b)
	assert.Equal(t, "center", b.robotName())
	assert.Equal(t, "left", ButtonLeft.robotName())

	_, err = ParseButton("thumb")
	assert.Error(t, err)
}
