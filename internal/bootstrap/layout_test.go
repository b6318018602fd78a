package bootstrap

import (
	"strings"
	"testing"
)

func TestWindowWidthFor(t *testing.T) {
	long := strings.Repeat("x", 100) // 702px
	tests := []struct {
		name       string
		label      string
		current    int
		wantWidth  int
		wantResize bool
	}{
		{name: "short label at default", label: "No file selected", current: defaultWindowWidth, wantWidth: defaultWindowWidth},
		{name: "short label after widening", label: "/a.wav", current: 702, wantWidth: defaultWindowWidth, wantResize: true},
		{name: "long label widens", label: long, current: defaultWindowWidth, wantWidth: 702, wantResize: true},
		{name: "long label already fits", label: long, current: 900, wantWidth: 900},
		{name: "unicode counts runes", label: strings.Repeat("é", 60), current: defaultWindowWidth, wantWidth: 422, wantResize: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			width, resize := windowWidthFor(tc.label, tc.current)
			if width != tc.wantWidth || resize != tc.wantResize {
				t.Fatalf("windowWidthFor() = (%d, %v), want (%d, %v)", width, resize, tc.wantWidth, tc.wantResize)
			}
		})
	}
}
