package layout

type sessionState int

const (
	stateIdle sessionState = iota
	stateDragging
	stateResizing
)

// Session is the interactive editing state machine for one open template.
// It turns pointer events into geometry calls and writes the results back
// into the field set it owns for the duration of the edit.
//
// Pointer coordinates arrive in on-screen pixels; they are divided by the
// active preview scale before touching the model, which always works in
// full-page units. One Session exists per open editor; there is no
// multi-editor locking (last write wins).
type Session struct {
	page   Page
	fields *FieldSet
	scale  float64

	state    sessionState
	selected string

	// Dragging is incremental: deltas are taken against the previous
	// pointer position.
	lastX, lastY float64

	// Resizing is cumulative from the gesture start: the box and font
	// captured at pointer-down stay fixed as the anchor, and every move
	// recomputes from the total displacement since anchorX/anchorY.
	handle           Handle
	anchorBox        Box
	anchorFontSize   float64
	anchorX, anchorY float64
}

// NewSession opens an editing session over a field set at preview scale 1.
func NewSession(p Page, fields *FieldSet) *Session {
	return &Session{page: p, fields: fields, scale: 1}
}

// SetScale sets the preview scale factor (screen pixels per page unit).
// Non-positive values are ignored.
func (s *Session) SetScale(scale float64) {
	if scale > 0 {
		s.scale = scale
	}
}

// Scale returns the active preview scale factor.
func (s *Session) Scale() float64 {
	return s.scale
}

// Fields exposes the field set being edited.
func (s *Session) Fields() *FieldSet {
	return s.fields
}

// Selected returns the id of the currently selected field, if any.
func (s *Session) Selected() string {
	return s.selected
}

// Dragging reports whether a drag gesture is in progress.
func (s *Session) Dragging() bool {
	return s.state == stateDragging
}

// Resizing reports whether a resize gesture is in progress.
func (s *Session) Resizing() bool {
	return s.state == stateResizing
}

// PointerDownOnField starts a drag gesture on the given field and selects
// it. Unknown field ids are ignored.
func (s *Session) PointerDownOnField(fieldID string, x, y float64) {
	if _, ok := s.fields.Get(fieldID); !ok {
		return
	}
	s.state = stateDragging
	s.selected = fieldID
	s.lastX, s.lastY = x, y
}

// PointerDownOnHandle starts a resize gesture, capturing the field's box
// and font size as the gesture anchor.
func (s *Session) PointerDownOnHandle(fieldID string, h Handle, x, y float64) {
	f, ok := s.fields.Get(fieldID)
	if !ok {
		return
	}
	s.state = stateResizing
	s.selected = fieldID
	s.handle = h
	s.anchorBox = f.Box()
	s.anchorFontSize = f.FontSize
	s.anchorX, s.anchorY = x, y
}

// PointerDownOnCanvas clears the selection. No gesture starts.
func (s *Session) PointerDownOnCanvas() {
	s.state = stateIdle
	s.selected = ""
}

// PointerMove advances the active gesture. Moves with no gesture in
// progress are ignored rather than errored; a stray move is a UI artifact,
// not a data problem.
func (s *Session) PointerMove(x, y float64) {
	switch s.state {
	case stateDragging:
		dx := (x - s.lastX) / s.scale
		dy := (y - s.lastY) / s.scale
		s.fields.Update(s.selected, func(f *Field) {
			f.SetBox(Translate(f.Box(), dx, dy, s.page))
		})
		s.lastX, s.lastY = x, y
	case stateResizing:
		dx := (x - s.anchorX) / s.scale
		dy := (y - s.anchorY) / s.scale
		res := Resize(s.anchorBox, s.anchorFontSize, s.handle, dx, dy, s.page)
		s.fields.Update(s.selected, func(f *Field) {
			f.SetBox(res.Box)
			f.FontSize = res.FontSize
		})
	}
}

// PointerUp ends the active gesture. The selection persists. An unmatched
// pointer-up is ignored.
func (s *Session) PointerUp() {
	s.state = stateIdle
}
