package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"TC-CERT/internal/layout"
)

// CertificateTemplate is a named, reusable layout: a background image plus a
// set of positioned fields, bound to one course type.
//
// Rebinding a template to another course type does not remove course-scoped
// fields that no longer belong to the new type; stale fields are flagged in
// the detail DTO and cleaned up explicitly by the operator.
type CertificateTemplate struct {
	ID           string `gorm:"primaryKey" json:"id"`
	CourseTypeID string `gorm:"index;not null" json:"course_type_id"`
	Name         string `gorm:"not null" json:"name"`

	BackgroundPath string `json:"background_path"` // storage object name, may be empty

	PageWidth  float64 `gorm:"not null" json:"page_width"`
	PageHeight float64 `gorm:"not null" json:"page_height"`

	Fields string `gorm:"type:json" json:"fields"` // JSON array of layout.Field
	Active bool   `gorm:"default:true" json:"active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CourseType *CourseType `gorm:"foreignKey:CourseTypeID" json:"course_type,omitempty"`
}

func (CertificateTemplate) TableName() string {
	return "certificate_templates"
}

// Page returns the template's canvas.
func (t *CertificateTemplate) Page() layout.Page {
	if t.PageWidth <= 0 || t.PageHeight <= 0 {
		return layout.DefaultPage()
	}
	return layout.Page{Width: t.PageWidth, Height: t.PageHeight}
}

// FieldList parses the persisted field layout.
func (t *CertificateTemplate) FieldList() ([]layout.Field, error) {
	if t.Fields == "" {
		return []layout.Field{}, nil
	}
	var fields []layout.Field
	if err := json.Unmarshal([]byte(t.Fields), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse template fields: %w", err)
	}
	return fields, nil
}

// SetFieldList stores a field layout back as JSON.
func (t *CertificateTemplate) SetFieldList(fields []layout.Field) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal template fields: %w", err)
	}
	t.Fields = string(raw)
	return nil
}
