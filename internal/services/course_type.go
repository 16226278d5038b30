package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"TC-CERT/internal"
	"TC-CERT/internal/models"
)

var (
	// ErrCourseTypeMissing is returned when a course type lookup fails.
	ErrCourseTypeMissing = errors.New("course type not found")

	// ErrBadCourseCode rejects codes that cannot prefix a certificate
	// number.
	ErrBadCourseCode = errors.New("course type code must be 1-20 characters without '-'")
)

// CourseTypeService manages the course type catalogue.
type CourseTypeService struct{}

func NewCourseTypeService() *CourseTypeService {
	return &CourseTypeService{}
}

// validateCode keeps codes safe to embed as a certificate number prefix: the
// numbering scheme splits on '-', so codes must not contain one.
func validateCode(code string) error {
	if code == "" || len(code) > 20 || strings.Contains(code, "-") {
		return ErrBadCourseCode
	}
	return nil
}

func (s *CourseTypeService) Create(code, name string, validityMonths *int, durationValue int, durationUnit string, fields []models.CourseField, defaults map[string]string) (*models.CourseType, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := validateCode(code); err != nil {
		return nil, err
	}

	ct := &models.CourseType{
		ID:                        uuid.New().String(),
		Code:                      code,
		Name:                      name,
		CertificateValidityMonths: validityMonths,
		DurationValue:             durationValue,
		DurationUnit:              durationUnit,
	}
	if err := ct.SetFieldCatalogue(fields); err != nil {
		return nil, fmt.Errorf("failed to encode field catalogue: %w", err)
	}
	if err := ct.SetCourseDefaults(defaults); err != nil {
		return nil, fmt.Errorf("failed to encode course defaults: %w", err)
	}

	if err := internal.DB.Create(ct).Error; err != nil {
		return nil, fmt.Errorf("failed to save course type: %w", err)
	}
	return ct, nil
}

func (s *CourseTypeService) Get(courseTypeID string) (*models.CourseType, error) {
	var ct models.CourseType
	if err := internal.DB.First(&ct, "id = ?", courseTypeID).Error; err != nil {
		return nil, ErrCourseTypeMissing
	}
	return &ct, nil
}

func (s *CourseTypeService) GetAll() ([]models.CourseType, error) {
	var courseTypes []models.CourseType
	if err := internal.DB.Order("code").Find(&courseTypes).Error; err != nil {
		return nil, fmt.Errorf("failed to list course types: %w", err)
	}
	return courseTypes, nil
}

// Update changes catalogue data. The code is immutable once set; issued
// certificate numbers embed it.
func (s *CourseTypeService) Update(courseTypeID string, name *string, validityMonths *int, clearValidity bool, durationValue *int, durationUnit *string, fields []models.CourseField, defaults map[string]string) (*models.CourseType, error) {
	ct, err := s.Get(courseTypeID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if clearValidity {
		updates["certificate_validity_months"] = nil
	} else if validityMonths != nil {
		updates["certificate_validity_months"] = *validityMonths
	}
	if durationValue != nil {
		updates["duration_value"] = *durationValue
	}
	if durationUnit != nil {
		updates["duration_unit"] = *durationUnit
	}
	if fields != nil {
		if err := ct.SetFieldCatalogue(fields); err != nil {
			return nil, fmt.Errorf("failed to encode field catalogue: %w", err)
		}
		updates["required_fields"] = ct.RequiredFields
	}
	if defaults != nil {
		if err := ct.SetCourseDefaults(defaults); err != nil {
			return nil, fmt.Errorf("failed to encode course defaults: %w", err)
		}
		updates["default_course_data"] = ct.DefaultCourseData
	}
	if len(updates) == 0 {
		return ct, nil
	}

	if err := internal.DB.Model(ct).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update course type: %w", err)
	}
	return s.Get(courseTypeID)
}

// InitializeDefaultCourseTypes seeds the catalogue on first startup so a
// fresh deployment can issue certificates immediately. Existing catalogues
// are left alone.
func (s *CourseTypeService) InitializeDefaultCourseTypes() error {
	var count int64
	if err := internal.DB.Model(&models.CourseType{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count course types: %w", err)
	}
	if count > 0 {
		return nil
	}

	twelveMonths := 12
	defaults := []struct {
		code, name    string
		validity      *int
		durationValue int
		durationUnit  string
		fields        []models.CourseField
	}{
		{
			code: "CPC", name: "Certificate of Professional Competence",
			validity: &twelveMonths, durationValue: 5, durationUnit: "days",
			fields: []models.CourseField{
				{Name: "course_location", Label: "Course location", Scope: models.ScopeCourse},
				{Name: "licence_no", Label: "Licence number", Scope: models.ScopeCandidate},
			},
		},
		{
			code: "FLT", name: "Forklift Truck Operator",
			validity: nil, durationValue: 3, durationUnit: "days",
			fields: []models.CourseField{
				{Name: "truck_type", Label: "Truck type", Scope: models.ScopeCourse},
			},
		},
	}

	for _, d := range defaults {
		if _, err := s.Create(d.code, d.name, d.validity, d.durationValue, d.durationUnit, d.fields, nil); err != nil {
			return fmt.Errorf("failed to seed course type %s: %w", d.code, err)
		}
	}
	return nil
}

// Delete soft-deletes a course type. Certificates keep their numbers; the
// unscoped numbering scan still sees them.
func (s *CourseTypeService) Delete(courseTypeID string) error {
	var templateCount int64
	if err := internal.DB.Model(&models.CertificateTemplate{}).
		Where("course_type_id = ?", courseTypeID).
		Count(&templateCount).Error; err != nil {
		return fmt.Errorf("failed to check templates for course type %s: %w", courseTypeID, err)
	}
	if templateCount > 0 {
		return fmt.Errorf("course type %s still has %d templates", courseTypeID, templateCount)
	}

	result := internal.DB.Delete(&models.CourseType{}, "id = ?", courseTypeID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete course type: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCourseTypeMissing
	}
	return nil
}
