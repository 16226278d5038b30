package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// FieldScope says whether a declared course field is entered once per course
// offering or once per individual subject.
type FieldScope string

const (
	ScopeCourse    FieldScope = "course"
	ScopeCandidate FieldScope = "candidate"
)

// CourseField is one data field a course type declares for its certificates.
type CourseField struct {
	Name  string     `json:"name"`
	Label string     `json:"label,omitempty"`
	Scope FieldScope `json:"scope"`
}

// CourseType is the catalogue entry templates and certificates bind to.
type CourseType struct {
	ID   string `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"` // numbering prefix, e.g. "CPC"
	Name string `gorm:"not null" json:"name"`

	// CertificateValidityMonths drives expiry computation; nil means
	// certificates of this type never expire.
	CertificateValidityMonths *int `json:"certificate_validity_months"`

	DurationValue int    `json:"duration_value"`
	DurationUnit  string `gorm:"type:varchar(20)" json:"duration_unit"` // e.g. "days", "hours"

	RequiredFields    string `gorm:"type:json" json:"required_fields"`    // JSON array of CourseField
	DefaultCourseData string `gorm:"type:json" json:"default_course_data"` // JSON object of course-level defaults

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseType) TableName() string {
	return "course_types"
}

// FieldCatalogue parses the declared course fields. A broken or empty JSON
// column yields an empty catalogue rather than an error.
func (ct *CourseType) FieldCatalogue() []CourseField {
	if ct.RequiredFields == "" {
		return nil
	}
	var fields []CourseField
	if err := json.Unmarshal([]byte(ct.RequiredFields), &fields); err != nil {
		return nil
	}
	return fields
}

// CourseFieldNames returns just the declared field names, in declaration
// order.
func (ct *CourseType) CourseFieldNames() []string {
	catalogue := ct.FieldCatalogue()
	names := make([]string, 0, len(catalogue))
	for _, f := range catalogue {
		names = append(names, f.Name)
	}
	return names
}

// CourseDefaults parses the course-level default data bag.
func (ct *CourseType) CourseDefaults() map[string]string {
	if ct.DefaultCourseData == "" {
		return map[string]string{}
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(ct.DefaultCourseData), &data); err != nil {
		return map[string]string{}
	}
	return data
}

// SetCourseDefaults stores the course-level default data bag as JSON.
func (ct *CourseType) SetCourseDefaults(data map[string]string) error {
	if data == nil {
		data = map[string]string{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	ct.DefaultCourseData = string(raw)
	return nil
}

// SetFieldCatalogue stores the declared fields back as JSON.
func (ct *CourseType) SetFieldCatalogue(fields []CourseField) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	ct.RequiredFields = string(raw)
	return nil
}
