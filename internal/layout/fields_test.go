package layout

import (
	"errors"
	"testing"
)

func TestFieldSetAddRejectsDuplicates(t *testing.T) {
	fs := &FieldSet{}
	f := DefaultField("candidate_name", 0, DefaultPage())

	if err := fs.Add(f); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := fs.Add(f); !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("second add: got %v, want ErrDuplicateField", err)
	}
	if fs.Len() != 1 {
		t.Fatalf("len = %d, want 1", fs.Len())
	}
}

func TestFieldSetRemoveAbsentIsNoop(t *testing.T) {
	fs := &FieldSet{}
	if err := fs.Add(DefaultField("course_name", 0, DefaultPage())); err != nil {
		t.Fatal(err)
	}
	fs.Remove("never_added")
	if fs.Len() != 1 {
		t.Fatalf("len = %d, want 1", fs.Len())
	}
	fs.Remove("course_name")
	if fs.Len() != 0 {
		t.Fatalf("len = %d, want 0", fs.Len())
	}
}

func TestAvailableFields(t *testing.T) {
	fs := &FieldSet{}
	fs.Add(DefaultField("candidate_name", 0, DefaultPage()))
	fs.Add(DefaultField("expiry_reminder", 1, DefaultPage()))

	sys := fs.AvailableSystemFields()
	for _, name := range sys {
		if name == "candidate_name" {
			t.Fatal("placed system field still offered")
		}
	}
	if len(sys) != len(SystemFieldNames())-1 {
		t.Fatalf("got %d available system fields, want %d", len(sys), len(SystemFieldNames())-1)
	}

	course := fs.AvailableCourseFields([]string{"expiry_reminder", "venue"})
	if len(course) != 1 || course[0] != "venue" {
		t.Fatalf("available course fields = %v, want [venue]", course)
	}
}

// Classification is a pure function of (id, course type), so rebinding a
// template to another course type reclassifies fields without migration.
func TestClassifyRecomputesOnCourseTypeChange(t *testing.T) {
	if got := Classify("certificate_number", nil); got != SourceSystem {
		t.Fatalf("certificate_number classified as %s", got)
	}

	oldCourse := []string{"venue", "instructor_notes"}
	newCourse := []string{"site_address"}

	if got := Classify("venue", oldCourse); got != SourceCourse {
		t.Fatalf("venue under old course type: %s", got)
	}
	if got := Classify("venue", newCourse); got != SourceCustom {
		t.Fatalf("venue under new course type: %s", got)
	}
}

func TestDefaultPlacementDoesNotStack(t *testing.T) {
	p := DefaultPage()
	fs := &FieldSet{}
	added := fs.AddWithDefaults([]string{"venue", "site_address", "assessor"}, p)
	if len(added) != 3 {
		t.Fatalf("added %d fields, want 3", len(added))
	}
	for i := 1; i < len(added); i++ {
		if added[i].Y <= added[i-1].Y {
			t.Fatalf("field %q (y=%g) not stacked below %q (y=%g)", added[i].ID, added[i].Y, added[i-1].ID, added[i-1].Y)
		}
	}
	for _, f := range added {
		if err := f.Validate(p); err != nil {
			t.Fatalf("default field invalid: %v", err)
		}
	}
}

func TestAddWithDefaultsSkipsPresent(t *testing.T) {
	p := DefaultPage()
	fs := &FieldSet{}
	fs.Add(DefaultField("candidate_name", 0, p))

	added := fs.AddWithDefaults(SystemFieldNames(), p)
	if len(added) != len(SystemFieldNames())-1 {
		t.Fatalf("added %d, want %d", len(added), len(SystemFieldNames())-1)
	}
	if fs.Len() != len(SystemFieldNames()) {
		t.Fatalf("len = %d, want %d", fs.Len(), len(SystemFieldNames()))
	}
}

func TestFieldValidate(t *testing.T) {
	p := DefaultPage()
	good := Field{ID: "venue", X: 10, Y: 10, Width: 100, Height: 50, FontSize: 20, Align: AlignLeft}
	if err := good.Validate(p); err != nil {
		t.Fatalf("valid field rejected: %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Field)
	}{
		{"missing id", func(f *Field) { f.ID = "" }},
		{"too narrow", func(f *Field) { f.Width = 10 }},
		{"too short", func(f *Field) { f.Height = 5 }},
		{"off page", func(f *Field) { f.X = p.Width }},
		{"zero font", func(f *Field) { f.FontSize = 0 }},
		{"bad align", func(f *Field) { f.Align = "justify" }},
	}
	for _, tc := range cases {
		f := good
		tc.mut(&f)
		if err := f.Validate(p); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
