package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"TC-CERT/internal"
	"TC-CERT/internal/models"
)

// SubjectService manages the delegate and candidate rosters certificates are
// issued against.
type SubjectService struct{}

func NewSubjectService() *SubjectService {
	return &SubjectService{}
}

func encodeValueBag(values map[string]string) (string, error) {
	if values == nil {
		values = map[string]string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *SubjectService) CreateDelegate(openCourseID, fullName, email string, fieldValues map[string]string) (*models.Delegate, error) {
	bag, err := encodeValueBag(fieldValues)
	if err != nil {
		return nil, fmt.Errorf("failed to encode field values: %w", err)
	}

	delegate := &models.Delegate{
		ID:           uuid.New().String(),
		OpenCourseID: openCourseID,
		FullName:     fullName,
		Email:        email,
		FieldValues:  bag,
	}
	if err := internal.DB.Create(delegate).Error; err != nil {
		return nil, fmt.Errorf("failed to save delegate: %w", err)
	}
	return delegate, nil
}

func (s *SubjectService) CreateCandidate(bookingID, fullName, email string, fieldValues map[string]string) (*models.Candidate, error) {
	bag, err := encodeValueBag(fieldValues)
	if err != nil {
		return nil, fmt.Errorf("failed to encode field values: %w", err)
	}

	candidate := &models.Candidate{
		ID:          uuid.New().String(),
		BookingID:   bookingID,
		FullName:    fullName,
		Email:       email,
		FieldValues: bag,
	}
	if err := internal.DB.Create(candidate).Error; err != nil {
		return nil, fmt.Errorf("failed to save candidate: %w", err)
	}
	return candidate, nil
}

// GetDelegates lists delegates, optionally filtered by open course.
func (s *SubjectService) GetDelegates(openCourseID string) ([]models.Delegate, error) {
	query := internal.DB.Order("created_at")
	if openCourseID != "" {
		query = query.Where("open_course_id = ?", openCourseID)
	}
	var delegates []models.Delegate
	if err := query.Find(&delegates).Error; err != nil {
		return nil, fmt.Errorf("failed to list delegates: %w", err)
	}
	return delegates, nil
}

// GetCandidates lists candidates, optionally filtered by booking.
func (s *SubjectService) GetCandidates(bookingID string) ([]models.Candidate, error) {
	query := internal.DB.Order("created_at")
	if bookingID != "" {
		query = query.Where("booking_id = ?", bookingID)
	}
	var candidates []models.Candidate
	if err := query.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

// UpdateDelegateValues replaces a delegate's candidate-level value bag.
func (s *SubjectService) UpdateDelegateValues(delegateID string, fieldValues map[string]string) error {
	bag, err := encodeValueBag(fieldValues)
	if err != nil {
		return fmt.Errorf("failed to encode field values: %w", err)
	}
	result := internal.DB.Model(&models.Delegate{}).
		Where("id = ?", delegateID).
		Update("field_values", bag)
	if result.Error != nil {
		return fmt.Errorf("failed to update delegate %s: %w", delegateID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// UpdateCandidateValues replaces a candidate's value bag.
func (s *SubjectService) UpdateCandidateValues(candidateID string, fieldValues map[string]string) error {
	bag, err := encodeValueBag(fieldValues)
	if err != nil {
		return fmt.Errorf("failed to encode field values: %w", err)
	}
	result := internal.DB.Model(&models.Candidate{}).
		Where("id = ?", candidateID).
		Update("field_values", bag)
	if result.Error != nil {
		return fmt.Errorf("failed to update candidate %s: %w", candidateID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSubjectNotFound
	}
	return nil
}
