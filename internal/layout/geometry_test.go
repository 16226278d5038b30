package layout

import (
	"math"
	"testing"
)

func insidePage(t *testing.T, b Box, p Page) {
	t.Helper()
	if b.X < 0 || b.Y < 0 || b.X+b.Width > p.Width || b.Y+b.Height > p.Height {
		t.Fatalf("box %+v escapes page %+v", b, p)
	}
}

func TestTranslateClampsToPage(t *testing.T) {
	p := DefaultPage()
	b := Box{X: 100, Y: 100, Width: 200, Height: 100}

	cases := []struct {
		name   string
		dx, dy float64
		want   Box
	}{
		{"free move", 50, 30, Box{X: 150, Y: 130, Width: 200, Height: 100}},
		{"past left edge", -500, 0, Box{X: 0, Y: 100, Width: 200, Height: 100}},
		{"past top edge", 0, -500, Box{X: 100, Y: 0, Width: 200, Height: 100}},
		{"past right edge", 1e6, 0, Box{X: p.Width - 200, Y: 100, Width: 200, Height: 100}},
		{"past bottom edge", 0, 1e6, Box{X: 100, Y: p.Height - 100, Width: 200, Height: 100}},
	}
	for _, tc := range cases {
		got := Translate(b, tc.dx, tc.dy, p)
		if got != tc.want {
			t.Errorf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
		insidePage(t, got, p)
	}
}

func TestResizeSouthEastScalesFont(t *testing.T) {
	p := DefaultPage()
	initial := Box{X: 100, Y: 100, Width: 200, Height: 100}

	res := Resize(initial, 32, HandleSouthEast, 100, 50, p)

	want := Box{X: 100, Y: 100, Width: 300, Height: 150}
	if res.Box != want {
		t.Fatalf("got box %+v, want %+v", res.Box, want)
	}
	if res.FontSize != 48 {
		t.Fatalf("got font size %g, want 48", res.FontSize)
	}
}

func TestResizeMinimumsHoldAnchoredEdge(t *testing.T) {
	p := DefaultPage()
	initial := Box{X: 500, Y: 500, Width: 200, Height: 100}

	// Dragging the west handle far right shrinks width to the minimum while
	// the right edge stays at x=700.
	res := Resize(initial, 32, HandleWest, 400, 0, p)
	if res.Box.Width != MinFieldWidth {
		t.Fatalf("width = %g, want %g", res.Box.Width, MinFieldWidth)
	}
	if got := res.Box.X + res.Box.Width; got != 700 {
		t.Fatalf("right edge moved to %g, want 700", got)
	}

	// Same for the north handle and the bottom edge.
	res = Resize(initial, 32, HandleNorth, 0, 400, p)
	if res.Box.Height != MinFieldHeight {
		t.Fatalf("height = %g, want %g", res.Box.Height, MinFieldHeight)
	}
	if got := res.Box.Y + res.Box.Height; got != 600 {
		t.Fatalf("bottom edge moved to %g, want 600", got)
	}
}

func TestResizeStaysOnPage(t *testing.T) {
	p := DefaultPage()
	initial := Box{X: 2300, Y: 3400, Width: 150, Height: 100}

	for _, h := range []Handle{HandleNorth, HandleNorthEast, HandleEast, HandleSouthEast, HandleSouth, HandleSouthWest, HandleWest, HandleNorthWest} {
		for _, d := range []float64{-5000, -100, 0, 100, 5000} {
			res := Resize(initial, 32, h, d, d, p)
			insidePage(t, res.Box, p)
			if res.Box.Width < MinFieldWidth || res.Box.Height < MinFieldHeight {
				t.Fatalf("handle %s d=%g: box %+v below minimum size", h, d, res.Box)
			}
		}
	}
}

// Resize is anchor-relative: the result of one call with the net
// displacement equals the result of any number of intermediate calls, since
// each call only depends on the initial box and the running total.
func TestResizeDeterministicOverIncrements(t *testing.T) {
	p := DefaultPage()
	initial := Box{X: 300, Y: 300, Width: 400, Height: 200}

	direct := Resize(initial, 40, HandleSouthEast, 250, 130, p)

	var last ResizeResult
	steps := [][2]float64{{50, 20}, {120, 60}, {200, 100}, {250, 130}}
	for _, s := range steps {
		last = Resize(initial, 40, HandleSouthEast, s[0], s[1], p)
	}

	if direct != last {
		t.Fatalf("incremental result %+v differs from direct %+v", last, direct)
	}
}

func TestFontCouplingUsesHeightRatioOnly(t *testing.T) {
	p := DefaultPage()
	initial := Box{X: 300, Y: 300, Width: 400, Height: 200}

	// Pure width drags keep the font size.
	for _, h := range []Handle{HandleEast, HandleWest} {
		res := Resize(initial, 40, h, 120, 0, p)
		if res.FontSize != 40 {
			t.Errorf("handle %s: font size %g, want 40", h, res.FontSize)
		}
	}

	// Height-moving handles scale by the height ratio, within rounding.
	for _, h := range []Handle{HandleSouth, HandleNorth, HandleNorthWest, HandleSouthEast} {
		res := Resize(initial, 40, h, 0, 90, p)
		want := math.Round(40 * res.Box.Height / initial.Height)
		if res.FontSize != want {
			t.Errorf("handle %s: font size %g, want %g", h, res.FontSize, want)
		}
	}
}

func TestFontCouplingClamps(t *testing.T) {
	p := DefaultPage()
	initial := Box{X: 0, Y: 0, Width: 400, Height: 100}

	res := Resize(initial, 180, HandleSouth, 0, 3000, p)
	if res.FontSize != MaxFontSize {
		t.Fatalf("font size %g, want clamp at %g", res.FontSize, MaxFontSize)
	}

	res = Resize(initial, 10, HandleSouth, 0, -95, p)
	if res.FontSize != MinFontSize {
		t.Fatalf("font size %g, want clamp at %g", res.FontSize, MinFontSize)
	}
}
