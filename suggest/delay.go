package suggest

import "time"

const (
	// DefaultDebounce is the full debounce used for queries longer than four runes.
	DefaultDebounce = 300 * time.Millisecond

	shortQueryDelay  = 50 * time.Millisecond
	mediumQueryDelay = 100 * time.Millisecond
)

// AdaptiveDelay returns how long to wait after a keystroke before searching a
// query of length runes. Short queries are cheap and expected to feel instant.
func AdaptiveDelay(length int, debounce time.Duration, mobile bool) time.Duration {
	d := debounce
	switch {
	case length <= 2:
		d = min(debounce, shortQueryDelay)
	case length <= 4:
		d = min(debounce, mediumQueryDelay)
	}
	if mobile {
		d = d * 3 / 2
	}
	return d
}
