package services

import (
	"errors"
	"testing"

	"TC-CERT/internal/layout"
)

func newTestEditor(t *testing.T) *EditorService {
	t.Helper()
	setupTestDB(t)
	seedCourseType(t, intPtr(12))
	seedTemplate(t, "ct-1")
	return NewEditorService(NewTemplateService(newStubStorage()))
}

func TestEditorOpenLoadsPersistedLayout(t *testing.T) {
	editor := newTestEditor(t)

	state, err := editor.Open("tpl-1", 0.25)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if state.Scale != 0.25 {
		t.Errorf("scale = %g, want 0.25", state.Scale)
	}
	if len(state.Fields) != 1 || state.Fields[0].ID != "candidate_name" {
		t.Errorf("fields = %+v", state.Fields)
	}
}

func TestEditorRequiresOpenSession(t *testing.T) {
	editor := newTestEditor(t)

	if _, err := editor.Apply("tpl-1", nil); !errors.Is(err, ErrNoEditorSession) {
		t.Errorf("got %v, want ErrNoEditorSession", err)
	}
}

func TestEditorDragCommitPersists(t *testing.T) {
	editor := newTestEditor(t)

	if _, err := editor.Open("tpl-1", 0.25); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// 100x50 screen pixels at quarter scale is 400x200 page units.
	state, err := editor.Apply("tpl-1", []PointerEvent{
		{Type: "down_field", FieldID: "candidate_name", X: 200, Y: 300},
		{Type: "move", X: 300, Y: 350},
		{Type: "up"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	f := state.Fields[0]
	if f.X != 840 || f.Y != 1380 {
		t.Errorf("field moved to (%g, %g), want (840, 1380)", f.X, f.Y)
	}

	tpl, err := editor.Commit("tpl-1")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	fields, err := tpl.FieldList()
	if err != nil {
		t.Fatalf("FieldList failed: %v", err)
	}
	if fields[0].X != 840 {
		t.Errorf("committed X = %g, want 840", fields[0].X)
	}

	if _, err := editor.Apply("tpl-1", nil); !errors.Is(err, ErrNoEditorSession) {
		t.Error("commit must close the session")
	}
}

func TestEditorDiscardDropsEdits(t *testing.T) {
	editor := newTestEditor(t)

	if _, err := editor.Open("tpl-1", 1); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := editor.RemoveField("tpl-1", "candidate_name"); err != nil {
		t.Fatalf("RemoveField failed: %v", err)
	}
	editor.Discard("tpl-1")

	state, err := editor.Open("tpl-1", 1)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if len(state.Fields) != 1 {
		t.Errorf("discarded edits leaked into the stored layout: %+v", state.Fields)
	}
}

func TestEditorAddFieldRejectsDuplicatesAndBadGeometry(t *testing.T) {
	editor := newTestEditor(t)

	if _, err := editor.Open("tpl-1", 1); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	dup := layout.Field{ID: "candidate_name", X: 0, Y: 0, Width: 200, Height: 100, FontSize: 20, Align: layout.AlignLeft}
	if _, err := editor.AddField("tpl-1", dup); !errors.Is(err, layout.ErrDuplicateField) {
		t.Errorf("got %v, want ErrDuplicateField", err)
	}

	offPage := layout.Field{ID: "extra", X: 2400, Y: 0, Width: 200, Height: 100, FontSize: 20, Align: layout.AlignLeft}
	if _, err := editor.AddField("tpl-1", offPage); err == nil {
		t.Error("expected a validation error for an off-page field")
	}
}

func TestEditorAddMissingPlacesSystemAndCourseFields(t *testing.T) {
	editor := newTestEditor(t)

	if _, err := editor.Open("tpl-1", 1); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	state, err := editor.AddMissing("tpl-1")
	if err != nil {
		t.Fatalf("AddMissing failed: %v", err)
	}

	// candidate_name was already placed; the other five system fields plus
	// the two declared course fields join it.
	if len(state.Fields) != 8 {
		t.Fatalf("field count = %d, want 8", len(state.Fields))
	}
	byID := map[string]bool{}
	for _, f := range state.Fields {
		byID[f.ID] = true
	}
	for _, want := range []string{"certificate_number", "trainer_name", "course_location", "licence_no"} {
		if !byID[want] {
			t.Errorf("missing field %s", want)
		}
	}
}
