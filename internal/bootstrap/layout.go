package bootstrap

import "unicode/utf8"

const (
	defaultWindowWidth  = 360
	defaultWindowHeight = 250
	// approximate pixel width of one label character
	labelCharWidth = 7
)

// windowWidthFor returns the width the window should take to show label
// without clipping, and whether it differs from current.
func windowWidthFor(label string, current int) (int, bool) {
	want := utf8.RuneCountInString(label)*labelCharWidth + 2

	switch {
	case want > current && want > defaultWindowWidth:
		return want, true
	case want < defaultWindowWidth:
		return defaultWindowWidth, current != defaultWindowWidth
	default:
		return current, false
	}
}
