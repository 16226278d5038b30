package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"

	"TC-CERT/internal"
	"TC-CERT/internal/layout"
	"TC-CERT/internal/models"
	"TC-CERT/internal/storage"
)

// TemplateService owns certificate template persistence: creation, field
// layout saves, background uploads and the soft course-type migration.
type TemplateService struct {
	storageClient storage.StorageClient
}

func NewTemplateService(storageClient storage.StorageClient) *TemplateService {
	return &TemplateService{
		storageClient: storageClient,
	}
}

// Create stores a new, empty template bound to a course type on the default
// A4 page.
func (s *TemplateService) Create(courseTypeID, name string) (*models.CertificateTemplate, error) {
	var courseType models.CourseType
	if err := internal.DB.First(&courseType, "id = ?", courseTypeID).Error; err != nil {
		return nil, fmt.Errorf("course type %s not found: %w", courseTypeID, err)
	}

	page := layout.DefaultPage()
	tpl := &models.CertificateTemplate{
		ID:           uuid.New().String(),
		CourseTypeID: courseTypeID,
		Name:         name,
		PageWidth:    page.Width,
		PageHeight:   page.Height,
		Fields:       "[]",
		Active:       true,
	}
	if err := internal.DB.Create(tpl).Error; err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	return tpl, nil
}

// Get returns one template.
func (s *TemplateService) Get(templateID string) (*models.CertificateTemplate, error) {
	var tpl models.CertificateTemplate
	if err := internal.DB.First(&tpl, "id = ?", templateID).Error; err != nil {
		return nil, ErrTemplateMissing
	}
	return &tpl, nil
}

// GetAll lists templates, optionally filtered by course type.
func (s *TemplateService) GetAll(courseTypeID string) ([]models.CertificateTemplate, error) {
	query := internal.DB.Order("created_at DESC")
	if courseTypeID != "" {
		query = query.Where("course_type_id = ?", courseTypeID)
	}
	var templates []models.CertificateTemplate
	if err := query.Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// Detail builds the editor payload with per-field classification and stale
// flags. Field names declared by any course type are collected so leftovers
// from a course-type change can be told apart from operator-defined custom
// fields.
func (s *TemplateService) Detail(templateID string) (*models.TemplateDetailItem, error) {
	tpl, err := s.Get(templateID)
	if err != nil {
		return nil, err
	}

	var courseType models.CourseType
	var ct *models.CourseType
	if err := internal.DB.First(&courseType, "id = ?", tpl.CourseTypeID).Error; err == nil {
		ct = &courseType
	}

	var allTypes []models.CourseType
	if err := internal.DB.Find(&allTypes).Error; err != nil {
		return nil, fmt.Errorf("failed to load course types: %w", err)
	}
	known := []string{}
	for i := range allTypes {
		known = append(known, allTypes[i].CourseFieldNames()...)
	}

	detail := tpl.ToDetailItem(ct, known)
	if tpl.BackgroundPath != "" {
		if url, err := s.storageClient.GetSignedURL(tpl.BackgroundPath, time.Hour); err == nil {
			detail.BackgroundURL = url
		}
	}
	return &detail, nil
}

// UpdateMeta changes template name, active flag, or course-type binding.
// Rebinding does not touch the field layout: course fields of the old type
// simply reclassify (and show up flagged stale) until the operator cleans
// them up.
func (s *TemplateService) UpdateMeta(templateID string, name *string, active *bool, courseTypeID *string) (*models.CertificateTemplate, error) {
	tpl, err := s.Get(templateID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if active != nil {
		updates["active"] = *active
	}
	if courseTypeID != nil {
		var courseType models.CourseType
		if err := internal.DB.First(&courseType, "id = ?", *courseTypeID).Error; err != nil {
			return nil, fmt.Errorf("course type %s not found: %w", *courseTypeID, err)
		}
		updates["course_type_id"] = *courseTypeID
	}
	if len(updates) == 0 {
		return tpl, nil
	}

	if err := internal.DB.Model(tpl).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return s.Get(templateID)
}

// SaveFields persists a complete field layout, validating every field
// against the template's page.
func (s *TemplateService) SaveFields(templateID string, fields []layout.Field) (*models.CertificateTemplate, error) {
	tpl, err := s.Get(templateID)
	if err != nil {
		return nil, err
	}

	page := tpl.Page()
	if _, err := layout.NewFieldSet(fields); err != nil {
		return nil, err
	}
	for _, f := range fields {
		if err := f.Validate(page); err != nil {
			return nil, err
		}
	}

	if err := tpl.SetFieldList(fields); err != nil {
		return nil, err
	}
	if err := internal.DB.Model(tpl).Update("fields", tpl.Fields).Error; err != nil {
		return nil, fmt.Errorf("failed to save template fields: %w", err)
	}
	return tpl, nil
}

// UploadBackground stores a new background image and replaces the previous
// one.
func (s *TemplateService) UploadBackground(ctx context.Context, templateID string, file multipart.File, header *multipart.FileHeader) (*models.CertificateTemplate, error) {
	tpl, err := s.Get(templateID)
	if err != nil {
		return nil, err
	}

	objectName := storage.GenerateBackgroundObjectName(templateID, header.Filename)
	if _, err := s.storageClient.UploadFile(ctx, file, objectName, header.Header.Get("Content-Type")); err != nil {
		return nil, fmt.Errorf("failed to upload background: %w", err)
	}

	previous := tpl.BackgroundPath
	if err := internal.DB.Model(tpl).Update("background_path", objectName).Error; err != nil {
		s.storageClient.DeleteFile(ctx, objectName)
		return nil, fmt.Errorf("failed to store background path: %w", err)
	}
	tpl.BackgroundPath = objectName

	if previous != "" {
		s.storageClient.DeleteFile(ctx, previous)
	}
	return tpl, nil
}

// Delete soft-deletes a template. Certificates already issued from it keep
// their stored field values; only regeneration becomes impossible.
func (s *TemplateService) Delete(templateID string) error {
	result := internal.DB.Delete(&models.CertificateTemplate{}, "id = ?", templateID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTemplateMissing
	}
	return nil
}
