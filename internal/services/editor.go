package services

import (
	"errors"
	"fmt"
	"sync"

	"TC-CERT/internal"
	"TC-CERT/internal/layout"
	"TC-CERT/internal/models"
)

var (
	// ErrNoEditorSession is returned when events arrive for a template with
	// no open editing session.
	ErrNoEditorSession = errors.New("no editor session open for template")
)

// PointerEvent is one interaction event from the layout editor, applied in
// order within a batch.
type PointerEvent struct {
	// Type is one of "down_field", "down_handle", "down_canvas", "move",
	// "up".
	Type    string  `json:"type"`
	FieldID string  `json:"field_id,omitempty"`
	Handle  string  `json:"handle,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// EditorState is the snapshot returned after every editor operation.
type EditorState struct {
	TemplateID string         `json:"template_id"`
	Scale      float64        `json:"scale"`
	Selected   string         `json:"selected,omitempty"`
	Fields     []layout.Field `json:"fields"`
}

// EditorService hosts the in-memory layout sessions, one per open template.
// Edits accumulate in the session and only reach the database on an explicit
// commit; a discard or a process restart loses them, which is the intended
// semantics for an interactive editor.
type EditorService struct {
	templates *TemplateService

	mu       sync.Mutex
	sessions map[string]*layout.Session
}

func NewEditorService(templates *TemplateService) *EditorService {
	return &EditorService{
		templates: templates,
		sessions:  make(map[string]*layout.Session),
	}
}

// Open starts (or restarts) an editing session from the template's persisted
// layout. Reopening an already open template drops its uncommitted edits.
func (s *EditorService) Open(templateID string, scale float64) (*EditorState, error) {
	tpl, err := s.templates.Get(templateID)
	if err != nil {
		return nil, err
	}
	fields, err := tpl.FieldList()
	if err != nil {
		return nil, fmt.Errorf("template %s has a broken field layout: %w", templateID, err)
	}
	fieldSet, err := layout.NewFieldSet(fields)
	if err != nil {
		return nil, fmt.Errorf("template %s has a broken field layout: %w", templateID, err)
	}

	session := layout.NewSession(tpl.Page(), fieldSet)
	session.SetScale(scale)

	s.mu.Lock()
	s.sessions[templateID] = session
	s.mu.Unlock()

	return s.state(templateID, session), nil
}

func (s *EditorService) session(templateID string) (*layout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[templateID]
	if !ok {
		return nil, ErrNoEditorSession
	}
	return session, nil
}

func (s *EditorService) state(templateID string, session *layout.Session) *EditorState {
	return &EditorState{
		TemplateID: templateID,
		Scale:      session.Scale(),
		Selected:   session.Selected(),
		Fields:     session.Fields().Fields(),
	}
}

// SetScale updates the preview scale of an open session.
func (s *EditorService) SetScale(templateID string, scale float64) (*EditorState, error) {
	session, err := s.session(templateID)
	if err != nil {
		return nil, err
	}
	session.SetScale(scale)
	return s.state(templateID, session), nil
}

// Apply runs a batch of pointer events against the session, in order.
// Unknown event types are skipped; the state machine already ignores stray
// events on its own.
func (s *EditorService) Apply(templateID string, events []PointerEvent) (*EditorState, error) {
	session, err := s.session(templateID)
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		switch ev.Type {
		case "down_field":
			session.PointerDownOnField(ev.FieldID, ev.X, ev.Y)
		case "down_handle":
			session.PointerDownOnHandle(ev.FieldID, layout.Handle(ev.Handle), ev.X, ev.Y)
		case "down_canvas":
			session.PointerDownOnCanvas()
		case "move":
			session.PointerMove(ev.X, ev.Y)
		case "up":
			session.PointerUp()
		}
	}

	return s.state(templateID, session), nil
}

// AddField places a single field into the open session. The field is
// validated against the session's page before placement.
func (s *EditorService) AddField(templateID string, field layout.Field) (*EditorState, error) {
	session, err := s.session(templateID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.Get(templateID)
	if err != nil {
		return nil, err
	}
	if err := field.Validate(tpl.Page()); err != nil {
		return nil, err
	}
	if err := session.Fields().Add(field); err != nil {
		return nil, err
	}
	return s.state(templateID, session), nil
}

// AddMissing places every not-yet-placed system field plus every declared
// course field of the template's course type, at default positions.
func (s *EditorService) AddMissing(templateID string) (*EditorState, error) {
	session, err := s.session(templateID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.Get(templateID)
	if err != nil {
		return nil, err
	}

	names := layout.SystemFieldNames()
	var courseType models.CourseType
	if err := internal.DB.First(&courseType, "id = ?", tpl.CourseTypeID).Error; err == nil {
		names = append(names, courseType.CourseFieldNames()...)
	}

	session.Fields().AddWithDefaults(names, tpl.Page())
	return s.state(templateID, session), nil
}

// RemoveField deletes a field from the open session. Removing an absent
// field is a no-op.
func (s *EditorService) RemoveField(templateID, fieldID string) (*EditorState, error) {
	session, err := s.session(templateID)
	if err != nil {
		return nil, err
	}
	session.Fields().Remove(fieldID)
	return s.state(templateID, session), nil
}

// Commit persists the session's layout to the template and closes the
// session.
func (s *EditorService) Commit(templateID string) (*models.CertificateTemplate, error) {
	session, err := s.session(templateID)
	if err != nil {
		return nil, err
	}

	tpl, err := s.templates.SaveFields(templateID, session.Fields().Fields())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.sessions, templateID)
	s.mu.Unlock()

	return tpl, nil
}

// Discard closes the session without persisting. Discarding a template with
// no open session is a no-op.
func (s *EditorService) Discard(templateID string) {
	s.mu.Lock()
	delete(s.sessions, templateID)
	s.mu.Unlock()
}
