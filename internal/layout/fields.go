package layout

import (
	"errors"
	"fmt"
)

// SourceKind says where a field's value comes from at render time.
type SourceKind string

const (
	SourceSystem SourceKind = "system" // fixed portal concepts (candidate name, certificate number, ...)
	SourceCourse SourceKind = "course" // declared on the course type, course- or candidate-level
	SourceCustom SourceKind = "custom" // free-form, operator defined
)

// Alignment values accepted for a field.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// ErrDuplicateField is returned when a field with the same id is already
// placed on the template.
var ErrDuplicateField = errors.New("field already exists on template")

// Field is one placeable element of a certificate template. For non-custom
// fields the ID doubles as the data-source name, so it is also the key the
// lifecycle engine merges values by.
type Field struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FontSize   float64 `json:"font_size"`
	FontFamily string  `json:"font_family"`
	Color      string  `json:"color"`
	Align      string  `json:"align"`
	Bold       bool    `json:"bold"`
	Italic     bool    `json:"italic"`
}

// Box returns the field's bounding box.
func (f Field) Box() Box {
	return Box{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
}

// SetBox writes a bounding box back onto the field.
func (f *Field) SetBox(b Box) {
	f.X, f.Y, f.Width, f.Height = b.X, b.Y, b.Width, b.Height
}

// systemFields is the fixed catalogue of portal-level fields, in the order
// they are offered to the operator.
var systemFields = []string{
	"candidate_name",
	"certificate_number",
	"course_name",
	"course_date",
	"course_duration",
	"trainer_name",
}

// SystemFieldNames returns the fixed system field catalogue.
func SystemFieldNames() []string {
	out := make([]string, len(systemFields))
	copy(out, systemFields)
	return out
}

// IsSystemField reports whether name is in the fixed system catalogue.
func IsSystemField(name string) bool {
	for _, s := range systemFields {
		if s == name {
			return true
		}
	}
	return false
}

// Classify derives a field's source kind from its id and the course type's
// declared field names. The kind is recomputed on demand, never stored, so
// rebinding a template to another course type reclassifies existing fields
// without touching their data.
func Classify(fieldID string, courseFieldNames []string) SourceKind {
	if IsSystemField(fieldID) {
		return SourceSystem
	}
	for _, name := range courseFieldNames {
		if name == fieldID {
			return SourceCourse
		}
	}
	return SourceCustom
}

// FieldSet is the ordered collection of fields placed on a template.
type FieldSet struct {
	fields []Field
}

// NewFieldSet builds a field set from an existing field list, preserving
// order. Duplicate ids are rejected.
func NewFieldSet(fields []Field) (*FieldSet, error) {
	fs := &FieldSet{}
	for _, f := range fields {
		if err := fs.Add(f); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.ID, err)
		}
	}
	return fs, nil
}

// Fields returns a copy of the field list in placement order.
func (fs *FieldSet) Fields() []Field {
	out := make([]Field, len(fs.fields))
	copy(out, fs.fields)
	return out
}

// Len returns the number of placed fields.
func (fs *FieldSet) Len() int {
	return len(fs.fields)
}

// Get returns the field with the given id.
func (fs *FieldSet) Get(id string) (Field, bool) {
	for _, f := range fs.fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Add places a new field. Adding an id that is already present returns
// ErrDuplicateField.
func (fs *FieldSet) Add(f Field) error {
	if _, ok := fs.Get(f.ID); ok {
		return ErrDuplicateField
	}
	fs.fields = append(fs.fields, f)
	return nil
}

// Remove deletes the field with the given id. Removing an absent id is a
// no-op.
func (fs *FieldSet) Remove(id string) {
	for i, f := range fs.fields {
		if f.ID == id {
			fs.fields = append(fs.fields[:i], fs.fields[i+1:]...)
			return
		}
	}
}

// Update applies fn to the stored field with the given id.
func (fs *FieldSet) Update(id string, fn func(*Field)) bool {
	for i := range fs.fields {
		if fs.fields[i].ID == id {
			fn(&fs.fields[i])
			return true
		}
	}
	return false
}

// AvailableSystemFields returns the system fields not yet placed, driving
// the "add all missing system fields" bulk action.
func (fs *FieldSet) AvailableSystemFields() []string {
	return fs.missing(systemFields)
}

// AvailableCourseFields returns the course-type-declared field names not yet
// placed on the template.
func (fs *FieldSet) AvailableCourseFields(courseFieldNames []string) []string {
	return fs.missing(courseFieldNames)
}

func (fs *FieldSet) missing(names []string) []string {
	out := []string{}
	for _, name := range names {
		if _, ok := fs.Get(name); !ok {
			out = append(out, name)
		}
	}
	return out
}

// Per-name default placement for the known system fields. Anything else is
// stacked below the title area so new fields never start on top of each
// other; overlap is still allowed once the operator drags them.
var systemFieldDefaults = map[string]Field{
	"candidate_name":     {X: 440, Y: 1180, Width: 1600, Height: 160, FontSize: 96, Align: AlignCenter, Bold: true},
	"certificate_number": {X: 1640, Y: 3260, Width: 700, Height: 80, FontSize: 36, Align: AlignRight},
	"course_name":        {X: 440, Y: 1540, Width: 1600, Height: 120, FontSize: 64, Align: AlignCenter},
	"course_date":        {X: 440, Y: 1760, Width: 1600, Height: 90, FontSize: 44, Align: AlignCenter},
	"course_duration":    {X: 440, Y: 1920, Width: 1600, Height: 90, FontSize: 44, Align: AlignCenter},
	"trainer_name":       {X: 440, Y: 2540, Width: 900, Height: 90, FontSize: 44, Align: AlignLeft},
}

const (
	stackedBaselineY = 2100.0
	stackedSpacingY  = 110.0
)

// DefaultField builds a field with its default placement: known system
// fields come from the per-name table; everything else stacks vertically at
// position index.
func DefaultField(name string, index int, p Page) Field {
	if def, ok := systemFieldDefaults[name]; ok {
		def.ID = name
		def.FontFamily = "Helvetica"
		def.Color = "#000000"
		return def
	}
	f := Field{
		ID:         name,
		X:          440,
		Y:          stackedBaselineY + float64(index)*stackedSpacingY,
		Width:      1200,
		Height:     90,
		FontSize:   40,
		FontFamily: "Helvetica",
		Color:      "#000000",
		Align:      AlignLeft,
	}
	if f.Y+f.Height > p.Height {
		f.Y = p.Height - f.Height
	}
	return f
}

// AddWithDefaults places every named field that is not already present,
// using default placement. Used by the bulk add-missing actions.
func (fs *FieldSet) AddWithDefaults(names []string, p Page) []Field {
	added := []Field{}
	for _, name := range names {
		if _, ok := fs.Get(name); ok {
			continue
		}
		f := DefaultField(name, fs.Len(), p)
		if err := fs.Add(f); err != nil {
			continue
		}
		added = append(added, f)
	}
	return added
}

// Validate checks a field against the page and typography invariants before
// it is accepted from the outside.
func (f Field) Validate(p Page) error {
	if f.ID == "" {
		return errors.New("field id is required")
	}
	if f.Width < MinFieldWidth || f.Height < MinFieldHeight {
		return fmt.Errorf("field %q is below the minimum size %gx%g", f.ID, MinFieldWidth, MinFieldHeight)
	}
	if f.X < 0 || f.Y < 0 || f.X+f.Width > p.Width || f.Y+f.Height > p.Height {
		return fmt.Errorf("field %q does not fit on the %gx%g page", f.ID, p.Width, p.Height)
	}
	if f.FontSize <= 0 {
		return fmt.Errorf("field %q font size must be positive", f.ID)
	}
	switch f.Align {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		return fmt.Errorf("field %q has invalid alignment %q", f.ID, f.Align)
	}
	return nil
}
