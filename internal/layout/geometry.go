package layout

import "math"

// Page is the fixed template canvas, in full-page units.
// The default matches an A4 page rasterized at 300 DPI.
type Page struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultPage returns the standard A4 @ 300 DPI canvas.
func DefaultPage() Page {
	return Page{Width: 2480, Height: 3508}
}

// Box is a top-left anchored bounding box in page units.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Handle identifies one of the eight resize handles of a field box.
type Handle string

const (
	HandleNorth     Handle = "n"
	HandleNorthEast Handle = "ne"
	HandleEast      Handle = "e"
	HandleSouthEast Handle = "se"
	HandleSouth     Handle = "s"
	HandleSouthWest Handle = "sw"
	HandleWest      Handle = "w"
	HandleNorthWest Handle = "nw"
)

// Minimum visible/legible field dimensions and the font size range
// a resize is allowed to scale into.
const (
	MinFieldWidth  = 50.0
	MinFieldHeight = 20.0
	MinFontSize    = 8.0
	MaxFontSize    = 200.0
)

func (h Handle) movesWest() bool {
	return h == HandleWest || h == HandleNorthWest || h == HandleSouthWest
}

func (h Handle) movesEast() bool {
	return h == HandleEast || h == HandleNorthEast || h == HandleSouthEast
}

func (h Handle) movesNorth() bool {
	return h == HandleNorth || h == HandleNorthWest || h == HandleNorthEast
}

func (h Handle) movesSouth() bool {
	return h == HandleSouth || h == HandleSouthWest || h == HandleSouthEast
}

// Translate moves a box by (dx, dy) and clamps it so it stays fully inside
// the page. Size never changes.
func Translate(b Box, dx, dy float64, p Page) Box {
	b.X = clamp(b.X+dx, 0, p.Width-b.Width)
	b.Y = clamp(b.Y+dy, 0, p.Height-b.Height)
	return b
}

// ResizeResult is the outcome of a resize gesture: the new box plus the
// font size derived from the height ratio.
type ResizeResult struct {
	Box      Box     `json:"box"`
	FontSize float64 `json:"font_size"`
}

// Resize recomputes a box from the box captured at gesture start plus the
// total pointer displacement since then. Working from the anchor box rather
// than per-event deltas keeps repeated pointer-move events from accumulating
// rounding drift: the result depends only on (initial, handle, dx, dy).
//
// Corner handles move two edges, edge handles one. Dimensions are clamped to
// the minimum field size with the opposite edge held fixed, then the origin
// is clamped so the box stays inside the page.
//
// The font size scales with the height ratio regardless of handle, so pure
// east/west drags leave it unchanged. It is clamped to [8, 200] and rounded.
func Resize(initial Box, initialFontSize float64, h Handle, dx, dy float64, p Page) ResizeResult {
	b := initial

	switch {
	case h.movesWest():
		b.X = initial.X + dx
		b.Width = initial.Width - dx
	case h.movesEast():
		b.Width = initial.Width + dx
	}

	switch {
	case h.movesNorth():
		b.Y = initial.Y + dy
		b.Height = initial.Height - dy
	case h.movesSouth():
		b.Height = initial.Height + dy
	}

	// Enforce minimums, keeping the anchored (non-dragged) edge fixed.
	if b.Width < MinFieldWidth {
		if h.movesWest() {
			b.X = initial.X + initial.Width - MinFieldWidth
		}
		b.Width = MinFieldWidth
	}
	if b.Height < MinFieldHeight {
		if h.movesNorth() {
			b.Y = initial.Y + initial.Height - MinFieldHeight
		}
		b.Height = MinFieldHeight
	}

	// Keep the box inside the page.
	if b.Width > p.Width {
		b.Width = p.Width
	}
	if b.Height > p.Height {
		b.Height = p.Height
	}
	b.X = clamp(b.X, 0, p.Width-b.Width)
	b.Y = clamp(b.Y, 0, p.Height-b.Height)

	fontSize := initialFontSize
	if initial.Height > 0 {
		fontSize = initialFontSize * (b.Height / initial.Height)
	}
	fontSize = math.Round(clamp(fontSize, MinFontSize, MaxFontSize))

	return ResizeResult{Box: b, FontSize: fontSize}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
