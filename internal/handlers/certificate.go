package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"TC-CERT/internal/services"
	"TC-CERT/internal/storage"

	"github.com/gin-gonic/gin"
)

type CertificateHandler struct {
	service       *services.CertificateService
	storageClient storage.StorageClient
}

func NewCertificateHandler(service *services.CertificateService, storageClient storage.StorageClient) *CertificateHandler {
	return &CertificateHandler{
		service:       service,
		storageClient: storageClient,
	}
}

// IssueCertificateRequest is the request body for issuing one certificate.
type IssueCertificateRequest struct {
	DelegateID   string            `json:"delegate_id"`
	CandidateID  string            `json:"candidate_id"`
	TemplateID   string            `json:"template_id"`
	CourseValues map[string]string `json:"course_values"`
}

// IssueCertificate issues a certificate to one subject
// POST /api/v1/certificates
func (h *CertificateHandler) IssueCertificate(c *gin.Context) {
	var req IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.TemplateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template_id is required"})
		return
	}

	subject := services.SubjectRef{DelegateID: req.DelegateID, CandidateID: req.CandidateID}
	cert, err := h.service.Issue(c.Request.Context(), subject, req.TemplateID, req.CourseValues)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadSubjectRef):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrTemplateMissing):
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		case errors.Is(err, services.ErrSubjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to issue certificate: %v", err)})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Certificate issued successfully",
		"certificate": cert,
	})
}

// IssueAllRequest is the request body for bulk issuance to an open course.
type IssueAllRequest struct {
	OpenCourseID string            `json:"open_course_id"`
	TemplateID   string            `json:"template_id"`
	CourseValues map[string]string `json:"course_values"`
}

// IssueAll issues certificates to every delegate of an open course that does
// not have one yet
// POST /api/v1/certificates/issue-all
func (h *CertificateHandler) IssueAll(c *gin.Context) {
	var req IssueAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.OpenCourseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open_course_id is required"})
		return
	}
	if req.TemplateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template_id is required"})
		return
	}

	result, err := h.service.IssueAll(c.Request.Context(), req.OpenCourseID, req.TemplateID, req.CourseValues)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to issue certificates: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d certificates issued, %d failed", result.SuccessCount, result.FailCount),
		"result":  result,
	})
}

// RevokeCertificateRequest is the request body for revoking a certificate.
type RevokeCertificateRequest struct {
	Reason string `json:"reason"`
}

// RevokeCertificate revokes an issued certificate
// POST /api/v1/certificates/:id/revoke
func (h *CertificateHandler) RevokeCertificate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Certificate ID is required"})
		return
	}

	var req RevokeCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.service.Revoke(c.Request.Context(), id, req.Reason); err != nil {
		switch {
		case errors.Is(err, services.ErrRevokeWithoutReason):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrAlreadyRevoked):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to revoke certificate: %v", err)})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Certificate revoked successfully",
	})
}

// RegeneratePDF re-renders the PDF of one certificate
// POST /api/v1/certificates/:id/regenerate
func (h *CertificateHandler) RegeneratePDF(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Certificate ID is required"})
		return
	}

	pdfPath, err := h.service.RegeneratePDF(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTemplateMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to regenerate PDF: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "PDF regenerated successfully",
		"pdf_path": pdfPath,
	})
}

// RegenerateAllRequest is the request body for bulk PDF regeneration.
type RegenerateAllRequest struct {
	CourseTypeID string `json:"course_type_id"`
}

// RegenerateAll re-renders the PDFs of all issued certificates of a course
// type
// POST /api/v1/certificates/regenerate-all
func (h *CertificateHandler) RegenerateAll(c *gin.Context) {
	var req RegenerateAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.CourseTypeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_type_id is required"})
		return
	}

	result, err := h.service.RegenerateAll(c.Request.Context(), req.CourseTypeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to regenerate PDFs: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d PDFs regenerated, %d failed", result.SuccessCount, result.FailCount),
		"result":  result,
	})
}

// GetCertificate retrieves one certificate with its derived validity label
// GET /api/v1/certificates/:id
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Certificate ID is required"})
		return
	}

	cert, err := h.service.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Certificate not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"certificate": cert,
	})
}

// GetAllCertificates retrieves certificates filtered by course type or
// subject
// GET /api/v1/certificates
func (h *CertificateHandler) GetAllCertificates(c *gin.Context) {
	certs, err := h.service.List(c.Query("course_type_id"), c.Query("delegate_id"), c.Query("candidate_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get certificates: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"certificates": certs,
	})
}

// DownloadCertificate streams or redirects to the certificate PDF
// GET /api/v1/certificates/:id/download
func (h *CertificateHandler) DownloadCertificate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Certificate ID is required"})
		return
	}

	cert, err := h.service.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Certificate not found"})
		return
	}
	if cert.PDFPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Certificate PDF has not been generated yet"})
		return
	}

	// Prefer a signed URL so big PDFs never stream through the API.
	if url, err := h.storageClient.GetSignedURL(cert.PDFPath, 15*time.Minute); err == nil {
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}

	reader, err := h.storageClient.ReadFile(c.Request.Context(), cert.PDFPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to read certificate PDF: %v", err)})
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", cert.Number))
	c.Header("Content-Type", "application/pdf")
	if _, err := io.Copy(c.Writer, reader); err != nil {
		return
	}
}
