package models

import (
	"time"

	"TC-CERT/internal/layout"
)

// TemplateListItem is the public listing shape for a template.
type TemplateListItem struct {
	ID           string    `json:"id"`
	CourseTypeID string    `json:"course_type_id"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	FieldCount   int       `json:"field_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TemplateFieldItem is one field in the detail view, with its classification
// recomputed against the template's current course type.
type TemplateFieldItem struct {
	layout.Field
	SourceKind layout.SourceKind `json:"source_kind"`

	// Stale marks a course-scoped field whose name is no longer declared by
	// the bound course type (left behind by a course-type change). Stale
	// fields render as custom until the operator removes or re-homes them.
	Stale bool `json:"stale,omitempty"`
}

// TemplateDetailItem is the full editor payload for one template.
type TemplateDetailItem struct {
	ID           string              `json:"id"`
	CourseTypeID string              `json:"course_type_id"`
	Name         string              `json:"name"`
	Active       bool                `json:"active"`
	Page         layout.Page         `json:"page"`
	Fields       []TemplateFieldItem `json:"fields"`

	BackgroundURL string `json:"background_url,omitempty"`

	AvailableSystemFields []string `json:"available_system_fields"`
	AvailableCourseFields []string `json:"available_course_fields"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToListItem converts a template row to its listing shape.
func (t *CertificateTemplate) ToListItem() TemplateListItem {
	fields, _ := t.FieldList()
	return TemplateListItem{
		ID:           t.ID,
		CourseTypeID: t.CourseTypeID,
		Name:         t.Name,
		Active:       t.Active,
		FieldCount:   len(fields),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// ToDetailItem builds the editor payload, classifying each field against the
// given course type. Fields placed under a previous course type and no
// longer declared come back flagged as stale.
func (t *CertificateTemplate) ToDetailItem(courseType *CourseType, knownCourseFields []string) TemplateDetailItem {
	fields, _ := t.FieldList()

	var courseFieldNames []string
	if courseType != nil {
		courseFieldNames = courseType.CourseFieldNames()
	}

	items := make([]TemplateFieldItem, 0, len(fields))
	fs := &layout.FieldSet{}
	for _, f := range fields {
		fs.Add(f)
		kind := layout.Classify(f.ID, courseFieldNames)
		stale := false
		if kind == layout.SourceCustom && contains(knownCourseFields, f.ID) {
			// Declared by some other course type: a leftover from a
			// course-type change, not an operator-defined custom field.
			stale = true
		}
		items = append(items, TemplateFieldItem{Field: f, SourceKind: kind, Stale: stale})
	}

	return TemplateDetailItem{
		ID:                    t.ID,
		CourseTypeID:          t.CourseTypeID,
		Name:                  t.Name,
		Active:                t.Active,
		Page:                  t.Page(),
		Fields:                items,
		AvailableSystemFields: fs.AvailableSystemFields(),
		AvailableCourseFields: fs.AvailableCourseFields(courseFieldNames),
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// ToListItems converts a slice of templates.
func ToListItems(templates []CertificateTemplate) []TemplateListItem {
	items := make([]TemplateListItem, len(templates))
	for i := range templates {
		items[i] = templates[i].ToListItem()
	}
	return items
}
