package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// CertificateStatus is the persisted lifecycle state. "expired" is not a
// status: it is derived from the expiry date at read time.
type CertificateStatus string

const (
	StatusIssued  CertificateStatus = "issued"
	StatusRevoked CertificateStatus = "revoked"
)

// ValidityStatus is the derived display label for an issued certificate.
type ValidityStatus string

const (
	ValidityValid        ValidityStatus = "valid"
	ValidityExpiringSoon ValidityStatus = "expiring_soon"
	ValidityExpired      ValidityStatus = "expired"
)

// expiringSoonWindow is how far ahead of the expiry date a certificate is
// surfaced as expiring.
const expiringSoonWindow = 3 // months

// Certificate is one issued certificate. Exactly one of DelegateID and
// CandidateID is set. Revocation is terminal: a replacement is a brand new
// certificate with a new number.
type Certificate struct {
	ID     string `gorm:"primaryKey" json:"id"`
	Number string `gorm:"type:varchar(40);uniqueIndex;not null" json:"number"`

	CourseTypeID string `gorm:"index;not null" json:"course_type_id"`
	TemplateID   string `gorm:"index;not null" json:"template_id"`

	DelegateID  *string `gorm:"index" json:"delegate_id,omitempty"`
	CandidateID *string `gorm:"index" json:"candidate_id,omitempty"`

	IssueDate  time.Time  `gorm:"not null" json:"issue_date"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	Status        CertificateStatus `gorm:"type:varchar(20);not null;default:'issued'" json:"status"`
	RevokedAt     *time.Time        `json:"revoked_at,omitempty"`
	RevokedReason string            `json:"revoked_reason,omitempty"`

	PDFPath     string `json:"pdf_path"`                     // storage object name, empty until generation succeeds
	FieldValues string `gorm:"type:json" json:"field_values"` // merged values the PDF was (or will be) rendered from

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// Validity classifies the certificate against the given reference time.
// Certificates without an expiry date are always valid.
func (c *Certificate) Validity(now time.Time) ValidityStatus {
	if c.ExpiryDate == nil {
		return ValidityValid
	}
	if c.ExpiryDate.Before(now) {
		return ValidityExpired
	}
	if !c.ExpiryDate.After(now.AddDate(0, expiringSoonWindow, 0)) {
		return ValidityExpiringSoon
	}
	return ValidityValid
}

// Values parses the stored merged field values.
func (c *Certificate) Values() map[string]string {
	if c.FieldValues == "" {
		return map[string]string{}
	}
	var values map[string]string
	if err := json.Unmarshal([]byte(c.FieldValues), &values); err != nil {
		return map[string]string{}
	}
	return values
}

// SetValues stores the merged field values as JSON.
func (c *Certificate) SetValues(values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	c.FieldValues = string(raw)
	return nil
}

// CertificateItem is the read shape, with the derived validity label.
type CertificateItem struct {
	Certificate
	Validity ValidityStatus `json:"validity"`
}

// ToItem attaches the derived validity label.
func (c Certificate) ToItem(now time.Time) CertificateItem {
	return CertificateItem{Certificate: c, Validity: c.Validity(now)}
}
