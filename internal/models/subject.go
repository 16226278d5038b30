package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Delegate is an open-course attendee. Issuing a certificate marks the
// delegate and stores the number back-reference; revoking clears both so the
// delegate becomes eligible for re-issuance.
type Delegate struct {
	ID           string `gorm:"primaryKey" json:"id"`
	OpenCourseID string `gorm:"index;not null" json:"open_course_id"`
	FullName     string `gorm:"not null" json:"full_name"`
	Email        string `json:"email"`

	CertificateIssued bool   `gorm:"default:false" json:"certificate_issued"`
	CertificateNumber string `json:"certificate_number"`

	// Candidate-level values keyed by field name, merged into the
	// certificate at issue time.
	FieldValues string `gorm:"type:json" json:"field_values"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Delegate) TableName() string {
	return "delegates"
}

// Candidate is a booking attendee. Unlike delegates, revoking a candidate's
// certificate does not reset Passed or the stored number; the portal has
// always behaved this way and re-issuance simply creates a new certificate.
type Candidate struct {
	ID        string `gorm:"primaryKey" json:"id"`
	BookingID string `gorm:"index;not null" json:"booking_id"`
	FullName  string `gorm:"not null" json:"full_name"`
	Email     string `json:"email"`

	Passed            bool   `gorm:"default:false" json:"passed"`
	CertificateNumber string `json:"certificate_number"`

	FieldValues string `gorm:"type:json" json:"field_values"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Candidate) TableName() string {
	return "candidates"
}

func parseValueBag(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	var values map[string]string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return map[string]string{}
	}
	return values
}

// Values parses the delegate's candidate-level data bag.
func (d *Delegate) Values() map[string]string {
	return parseValueBag(d.FieldValues)
}

// Values parses the candidate's candidate-level data bag.
func (c *Candidate) Values() map[string]string {
	return parseValueBag(c.FieldValues)
}
