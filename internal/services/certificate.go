package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"TC-CERT/internal"
	"TC-CERT/internal/models"
	"TC-CERT/internal/storage"
)

var (
	// ErrTemplateMissing is returned when an issue or regenerate call cannot
	// resolve its certificate template.
	ErrTemplateMissing = errors.New("certificate template not found")

	// ErrRevokeWithoutReason rejects a revocation with a blank reason before
	// any state changes.
	ErrRevokeWithoutReason = errors.New("revocation reason is required")

	// ErrAlreadyRevoked is returned when revoking a revoked certificate;
	// revocation is terminal and a replacement is issued as a new
	// certificate.
	ErrAlreadyRevoked = errors.New("certificate is already revoked")

	// ErrSubjectNotFound is returned when the referenced delegate or
	// candidate does not exist.
	ErrSubjectNotFound = errors.New("subject record not found")

	// ErrBadSubjectRef is returned when a subject reference does not name
	// exactly one subject.
	ErrBadSubjectRef = errors.New("exactly one of delegate_id and candidate_id must be set")
)

// CertificateRenderer produces the PDF for a certificate. It is a black box
// to the lifecycle engine; a failure is logged and retried later via an
// explicit regenerate, never rolled back into the issuance.
type CertificateRenderer interface {
	RenderCertificate(ctx context.Context, tpl *models.CertificateTemplate, values map[string]string, backgroundURL string) (io.ReadCloser, error)
}

// SubjectRef names the person a certificate is issued to: exactly one of a
// booking candidate or an open-course delegate.
type SubjectRef struct {
	DelegateID  string `json:"delegate_id,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
}

func (r SubjectRef) validate() error {
	if (r.DelegateID == "") == (r.CandidateID == "") {
		return ErrBadSubjectRef
	}
	return nil
}

// BulkResult is the tally of a sequential bulk operation. Failures on
// individual subjects are counted, not propagated, so one bad record never
// aborts the rest of the run.
type BulkResult struct {
	SuccessCount int `json:"success_count"`
	FailCount    int `json:"fail_count"`
}

// CertificateService owns the certificate lifecycle: issuance, revocation
// and PDF (re)generation, including the side effects on the originating
// subject records.
type CertificateService struct {
	storageClient storage.StorageClient
	numbering     *NumberingService
	renderer      CertificateRenderer // nil when the PDF collaborator is unavailable
	stats         *StatisticsService
}

func NewCertificateService(storageClient storage.StorageClient, numbering *NumberingService, renderer CertificateRenderer, stats *StatisticsService) *CertificateService {
	return &CertificateService{
		storageClient: storageClient,
		numbering:     numbering,
		renderer:      renderer,
		stats:         stats,
	}
}

// Issue creates a new certificate for the subject from the given template.
//
// The certificate row and the subject back-references are committed before
// PDF generation is attempted: a renderer failure leaves the certificate
// issued with an empty pdf_path for a later explicit regenerate, it never
// rolls the issuance back.
func (s *CertificateService) Issue(ctx context.Context, subject SubjectRef, templateID string, courseValues map[string]string) (*models.Certificate, error) {
	if err := subject.validate(); err != nil {
		return nil, err
	}

	var tpl models.CertificateTemplate
	if err := internal.DB.First(&tpl, "id = ?", templateID).Error; err != nil {
		return nil, ErrTemplateMissing
	}

	var courseType models.CourseType
	if err := internal.DB.First(&courseType, "id = ?", tpl.CourseTypeID).Error; err != nil {
		return nil, fmt.Errorf("course type %s not found: %w", tpl.CourseTypeID, err)
	}

	subjectName, subjectValues, err := s.loadSubject(subject)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	number, err := s.numbering.NextNumber(courseType.Code, now.Year())
	if err != nil {
		return nil, err
	}

	cert := &models.Certificate{
		ID:           uuid.New().String(),
		Number:       number,
		CourseTypeID: courseType.ID,
		TemplateID:   tpl.ID,
		IssueDate:    now,
		Status:       models.StatusIssued,
	}
	if subject.DelegateID != "" {
		cert.DelegateID = &subject.DelegateID
	} else {
		cert.CandidateID = &subject.CandidateID
	}
	if courseType.CertificateValidityMonths != nil {
		expiry := now.AddDate(0, *courseType.CertificateValidityMonths, 0)
		cert.ExpiryDate = &expiry
	}

	values := s.mergeFieldValues(&courseType, courseValues, subjectValues, subjectName, cert)
	if err := cert.SetValues(values); err != nil {
		return nil, fmt.Errorf("failed to store field values: %w", err)
	}

	if err := internal.DB.Create(cert).Error; err != nil {
		return nil, fmt.Errorf("failed to save certificate: %w", err)
	}

	if err := s.markSubjectIssued(subject, number); err != nil {
		return nil, err
	}

	if pdfPath, err := s.generatePDF(ctx, cert, &tpl); err != nil {
		log.Printf("PDF generation failed for certificate %s: %v", cert.Number, err)
	} else {
		cert.PDFPath = pdfPath
		if err := internal.DB.Model(cert).Update("pdf_path", pdfPath).Error; err != nil {
			log.Printf("Failed to store pdf path for certificate %s: %v", cert.Number, err)
		}
	}

	if s.stats != nil {
		s.stats.RecordIssued(courseType.ID)
	}

	return cert, nil
}

// loadSubject resolves the subject record and returns its display name plus
// its candidate-level value bag.
func (s *CertificateService) loadSubject(subject SubjectRef) (string, map[string]string, error) {
	if subject.DelegateID != "" {
		var delegate models.Delegate
		if err := internal.DB.First(&delegate, "id = ?", subject.DelegateID).Error; err != nil {
			return "", nil, ErrSubjectNotFound
		}
		return delegate.FullName, delegate.Values(), nil
	}
	var candidate models.Candidate
	if err := internal.DB.First(&candidate, "id = ?", subject.CandidateID).Error; err != nil {
		return "", nil, ErrSubjectNotFound
	}
	return candidate.FullName, candidate.Values(), nil
}

// mergeFieldValues layers the value sources for rendering: course-type
// defaults, then course-level values, then candidate-level values (which win
// on name collision), then the engine-computed system fields on top.
func (s *CertificateService) mergeFieldValues(courseType *models.CourseType, courseValues, subjectValues map[string]string, subjectName string, cert *models.Certificate) map[string]string {
	values := courseType.CourseDefaults()
	for k, v := range courseValues {
		values[k] = v
	}
	for k, v := range subjectValues {
		values[k] = v
	}

	values["candidate_name"] = subjectName
	values["certificate_number"] = cert.Number
	values["course_name"] = courseType.Name
	values["course_date"] = cert.IssueDate.Format("02/01/2006")
	if courseType.DurationValue > 0 {
		values["course_duration"] = fmt.Sprintf("%d %s", courseType.DurationValue, courseType.DurationUnit)
	}
	return values
}

func (s *CertificateService) markSubjectIssued(subject SubjectRef, number string) error {
	if subject.DelegateID != "" {
		return internal.DB.Model(&models.Delegate{}).
			Where("id = ?", subject.DelegateID).
			Updates(map[string]interface{}{
				"certificate_issued": true,
				"certificate_number": number,
			}).Error
	}
	return internal.DB.Model(&models.Candidate{}).
		Where("id = ?", subject.CandidateID).
		Updates(map[string]interface{}{
			"passed":             true,
			"certificate_number": number,
		}).Error
}

// Revoke marks a certificate revoked. For open-course delegates the
// issued-flag and number back-reference are cleared so the delegate becomes
// eligible for re-issuance; booking candidates keep their passed flag and
// stored number, matching how the portal has always behaved.
func (s *CertificateService) Revoke(ctx context.Context, certificateID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrRevokeWithoutReason
	}

	var cert models.Certificate
	if err := internal.DB.First(&cert, "id = ?", certificateID).Error; err != nil {
		return fmt.Errorf("certificate %s not found: %w", certificateID, err)
	}
	if cert.Status == models.StatusRevoked {
		return ErrAlreadyRevoked
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":         models.StatusRevoked,
		"revoked_at":     now,
		"revoked_reason": reason,
	}
	if err := internal.DB.Model(&cert).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to revoke certificate %s: %w", cert.Number, err)
	}

	if cert.DelegateID != nil {
		err := internal.DB.Model(&models.Delegate{}).
			Where("id = ?", *cert.DelegateID).
			Updates(map[string]interface{}{
				"certificate_issued": false,
				"certificate_number": "",
			}).Error
		if err != nil {
			return fmt.Errorf("failed to reset delegate %s: %w", *cert.DelegateID, err)
		}
	}

	if s.stats != nil {
		s.stats.RecordRevoked(cert.CourseTypeID)
	}

	return nil
}

// RegeneratePDF re-renders a certificate's PDF from its stored field values
// and template, leaving number, status and dates untouched.
func (s *CertificateService) RegeneratePDF(ctx context.Context, certificateID string) (string, error) {
	var cert models.Certificate
	if err := internal.DB.First(&cert, "id = ?", certificateID).Error; err != nil {
		return "", fmt.Errorf("certificate %s not found: %w", certificateID, err)
	}

	var tpl models.CertificateTemplate
	if err := internal.DB.First(&tpl, "id = ?", cert.TemplateID).Error; err != nil {
		return "", ErrTemplateMissing
	}

	pdfPath, err := s.generatePDF(ctx, &cert, &tpl)
	if err != nil {
		return "", err
	}

	if err := internal.DB.Model(&cert).Update("pdf_path", pdfPath).Error; err != nil {
		return "", fmt.Errorf("failed to store pdf path for certificate %s: %w", cert.Number, err)
	}

	if s.stats != nil {
		s.stats.RecordRegenerated(cert.CourseTypeID)
	}

	return pdfPath, nil
}

// generatePDF renders and uploads the PDF, returning the storage object
// name. The previous PDF object, if any, is left in place until the new one
// is stored.
func (s *CertificateService) generatePDF(ctx context.Context, cert *models.Certificate, tpl *models.CertificateTemplate) (string, error) {
	if s.renderer == nil {
		return "", errors.New("PDF renderer is not available")
	}

	backgroundURL := ""
	if tpl.BackgroundPath != "" {
		url, err := s.storageClient.GetSignedURL(tpl.BackgroundPath, time.Hour)
		if err != nil {
			log.Printf("Failed to sign background URL for template %s: %v", tpl.ID, err)
		} else {
			backgroundURL = url
		}
	}

	pdf, err := s.renderer.RenderCertificate(ctx, tpl, cert.Values(), backgroundURL)
	if err != nil {
		return "", fmt.Errorf("failed to render certificate %s: %w", cert.Number, err)
	}
	defer pdf.Close()

	objectName := storage.GenerateCertificatePDFObjectName(cert.ID, cert.Number)
	if _, err := s.storageClient.UploadFile(ctx, pdf, objectName, "application/pdf"); err != nil {
		return "", fmt.Errorf("failed to upload certificate PDF: %w", err)
	}

	return objectName, nil
}

// IssueAll issues certificates to every delegate of the open course that
// does not have one yet. Subjects are processed sequentially; failures are
// tallied and logged, not propagated.
func (s *CertificateService) IssueAll(ctx context.Context, openCourseID, templateID string, courseValues map[string]string) (BulkResult, error) {
	var delegates []models.Delegate
	err := internal.DB.
		Where("open_course_id = ? AND certificate_issued = ?", openCourseID, false).
		Order("created_at").
		Find(&delegates).Error
	if err != nil {
		return BulkResult{}, fmt.Errorf("failed to load delegates for course %s: %w", openCourseID, err)
	}

	var result BulkResult
	for _, delegate := range delegates {
		_, err := s.Issue(ctx, SubjectRef{DelegateID: delegate.ID}, templateID, courseValues)
		if err != nil {
			log.Printf("Failed to issue certificate to delegate %s: %v", delegate.ID, err)
			result.FailCount++
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// RegenerateAll re-renders the PDFs of all issued certificates of a course
// type, sequentially with a tally.
func (s *CertificateService) RegenerateAll(ctx context.Context, courseTypeID string) (BulkResult, error) {
	var certs []models.Certificate
	err := internal.DB.
		Where("course_type_id = ? AND status = ?", courseTypeID, models.StatusIssued).
		Order("number").
		Find(&certs).Error
	if err != nil {
		return BulkResult{}, fmt.Errorf("failed to load certificates for course type %s: %w", courseTypeID, err)
	}

	var result BulkResult
	for _, cert := range certs {
		if _, err := s.RegeneratePDF(ctx, cert.ID); err != nil {
			log.Printf("Failed to regenerate PDF for certificate %s: %v", cert.Number, err)
			result.FailCount++
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// Get returns one certificate with its derived validity label.
func (s *CertificateService) Get(certificateID string) (*models.CertificateItem, error) {
	var cert models.Certificate
	if err := internal.DB.First(&cert, "id = ?", certificateID).Error; err != nil {
		return nil, fmt.Errorf("certificate %s not found: %w", certificateID, err)
	}
	item := cert.ToItem(time.Now())
	return &item, nil
}

// List returns certificates filtered by course type and/or subject, newest
// first, with derived validity labels.
func (s *CertificateService) List(courseTypeID, delegateID, candidateID string) ([]models.CertificateItem, error) {
	query := internal.DB.Model(&models.Certificate{}).Order("created_at DESC")
	if courseTypeID != "" {
		query = query.Where("course_type_id = ?", courseTypeID)
	}
	if delegateID != "" {
		query = query.Where("delegate_id = ?", delegateID)
	}
	if candidateID != "" {
		query = query.Where("candidate_id = ?", candidateID)
	}

	var certs []models.Certificate
	if err := query.Find(&certs).Error; err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	now := time.Now()
	items := make([]models.CertificateItem, len(certs))
	for i, c := range certs {
		items[i] = c.ToItem(now)
	}
	return items, nil
}
