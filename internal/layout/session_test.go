package layout

import "testing"

func newTestSession(t *testing.T) *Session {
	t.Helper()
	fs, err := NewFieldSet([]Field{
		{ID: "candidate_name", X: 100, Y: 100, Width: 200, Height: 100, FontSize: 32, Align: AlignLeft},
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewSession(DefaultPage(), fs)
}

// Dragging (100,50) screen pixels at 25% preview scale moves the model by
// (400,200) page units.
func TestDragScalesPointerToPageUnits(t *testing.T) {
	s := newTestSession(t)
	s.SetScale(0.25)

	s.PointerDownOnField("candidate_name", 10, 10)
	s.PointerMove(110, 60)
	s.PointerUp()

	f, _ := s.Fields().Get("candidate_name")
	if f.X != 500 || f.Y != 300 {
		t.Fatalf("field at (%g,%g), want (500,300)", f.X, f.Y)
	}
	if s.Selected() != "candidate_name" {
		t.Fatal("selection lost after pointer up")
	}
}

func TestDragIsIncremental(t *testing.T) {
	s := newTestSession(t)

	s.PointerDownOnField("candidate_name", 0, 0)
	s.PointerMove(30, 10)
	s.PointerMove(50, 40)
	s.PointerMove(60, 70)
	s.PointerUp()

	// Net displacement is the sum of the per-move deltas.
	f, _ := s.Fields().Get("candidate_name")
	if f.X != 160 || f.Y != 170 {
		t.Fatalf("field at (%g,%g), want (160,170)", f.X, f.Y)
	}
}

func TestDragClampsAtPageEdge(t *testing.T) {
	s := newTestSession(t)

	s.PointerDownOnField("candidate_name", 0, 0)
	s.PointerMove(-10000, -10000)
	s.PointerUp()

	f, _ := s.Fields().Get("candidate_name")
	if f.X != 0 || f.Y != 0 {
		t.Fatalf("field at (%g,%g), want clamped to (0,0)", f.X, f.Y)
	}
}

// Resize deltas are measured from the gesture anchor, so intermediate moves
// cannot accumulate drift: only the final pointer position matters.
func TestResizeIsAnchorRelative(t *testing.T) {
	s := newTestSession(t)

	s.PointerDownOnHandle("candidate_name", HandleSouthEast, 0, 0)
	s.PointerMove(30, 10)
	s.PointerMove(70, 20)
	s.PointerMove(100, 50)
	s.PointerUp()

	f, _ := s.Fields().Get("candidate_name")
	if f.Width != 300 || f.Height != 150 {
		t.Fatalf("box %gx%g, want 300x150", f.Width, f.Height)
	}
	if f.FontSize != 48 {
		t.Fatalf("font size %g, want 48", f.FontSize)
	}
	if f.X != 100 || f.Y != 100 {
		t.Fatalf("origin moved to (%g,%g)", f.X, f.Y)
	}
}

func TestResizeHonoursPreviewScale(t *testing.T) {
	s := newTestSession(t)
	s.SetScale(0.5)

	s.PointerDownOnHandle("candidate_name", HandleEast, 200, 200)
	s.PointerMove(250, 200)
	s.PointerUp()

	f, _ := s.Fields().Get("candidate_name")
	if f.Width != 300 {
		t.Fatalf("width %g, want 300", f.Width)
	}
	if f.FontSize != 32 {
		t.Fatalf("font size %g changed on pure-width drag", f.FontSize)
	}
}

func TestCanvasClickClearsSelection(t *testing.T) {
	s := newTestSession(t)

	s.PointerDownOnField("candidate_name", 0, 0)
	s.PointerUp()
	if s.Selected() == "" {
		t.Fatal("expected selection after click on field")
	}

	s.PointerDownOnCanvas()
	if s.Selected() != "" {
		t.Fatal("selection not cleared by canvas click")
	}
}

// Malformed gestures are ignored, never errored.
func TestStrayEventsAreIgnored(t *testing.T) {
	s := newTestSession(t)

	before, _ := s.Fields().Get("candidate_name")
	s.PointerMove(500, 500)
	s.PointerUp()
	s.PointerDownOnField("no_such_field", 0, 0)
	s.PointerMove(500, 500)

	after, _ := s.Fields().Get("candidate_name")
	if before != after {
		t.Fatalf("stray events mutated field: %+v -> %+v", before, after)
	}
	if s.Dragging() || s.Resizing() {
		t.Fatal("stray events left a gesture active")
	}
}
