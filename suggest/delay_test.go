package suggest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdaptiveDelay(t *testing.T) {
	tests := []struct {
		length   int
		debounce time.Duration
		mobile   bool
		want     time.Duration
	}{
		{1, DefaultDebounce, false, 50 * time.Millisecond},
		{2, DefaultDebounce, false, 50 * time.Millisecond},
		{3, DefaultDebounce, false, 100 * time.Millisecond},
		{4, DefaultDebounce, false, 100 * time.Millisecond},
		{5, DefaultDebounce, false, DefaultDebounce},
		{40, DefaultDebounce, false, DefaultDebounce},
		{1, DefaultDebounce, true, 75 * time.Millisecond},
		{4, DefaultDebounce, true, 150 * time.Millisecond},
		{5, DefaultDebounce, true, 450 * time.Millisecond},
		{1, 20 * time.Millisecond, false, 20 * time.Millisecond},
		{4, 80 * time.Millisecond, false, 80 * time.Millisecond},
		{3, 0, true, 0},
	}
	for _, tt := range tests {
		got := AdaptiveDelay(tt.length, tt.debounce, tt.mobile)
		assert.Equal(t, tt.want, got, "length=%d debounce=%v mobile=%v", tt.length, tt.debounce, tt.mobile)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "debouncing", StateDebouncing.String())
	assert.Equal(t, "searching", StateSearching.String())
	assert.Equal(t, "settled", StateSettled.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "errored", StateErrored.String())
	assert.Equal(t, "unknown", State(99).String())
}
