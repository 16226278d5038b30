package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"TC-CERT/internal/models"
	"TC-CERT/internal/services"

	"github.com/gin-gonic/gin"
)

type CourseTypeHandler struct {
	service *services.CourseTypeService
}

func NewCourseTypeHandler(service *services.CourseTypeService) *CourseTypeHandler {
	return &CourseTypeHandler{service: service}
}

// CreateCourseTypeRequest is the request body for creating a course type.
type CreateCourseTypeRequest struct {
	Code                      string               `json:"code"`
	Name                      string               `json:"name"`
	CertificateValidityMonths *int                 `json:"certificate_validity_months"`
	DurationValue             int                  `json:"duration_value"`
	DurationUnit              string               `json:"duration_unit"`
	RequiredFields            []models.CourseField `json:"required_fields"`
	DefaultCourseData         map[string]string    `json:"default_course_data"`
}

// CreateCourseType creates a new course type
// POST /api/v1/course-types
func (h *CourseTypeHandler) CreateCourseType(c *gin.Context) {
	var req CreateCourseTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	courseType, err := h.service.Create(req.Code, req.Name, req.CertificateValidityMonths, req.DurationValue, req.DurationUnit, req.RequiredFields, req.DefaultCourseData)
	if err != nil {
		if errors.Is(err, services.ErrBadCourseCode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create course type: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Course type created successfully",
		"course_type": courseType,
	})
}

// GetCourseType retrieves a course type by ID
// GET /api/v1/course-types/:id
func (h *CourseTypeHandler) GetCourseType(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Course type ID is required"})
		return
	}

	courseType, err := h.service.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course type not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"course_type": courseType,
	})
}

// GetAllCourseTypes retrieves all course types
// GET /api/v1/course-types
func (h *CourseTypeHandler) GetAllCourseTypes(c *gin.Context) {
	courseTypes, err := h.service.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get course types: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"course_types": courseTypes,
	})
}

// UpdateCourseTypeRequest is the request body for updating a course type.
// The code is immutable; issued certificate numbers embed it.
type UpdateCourseTypeRequest struct {
	Name                      *string              `json:"name"`
	CertificateValidityMonths *int                 `json:"certificate_validity_months"`
	ClearValidity             bool                 `json:"clear_validity"`
	DurationValue             *int                 `json:"duration_value"`
	DurationUnit              *string              `json:"duration_unit"`
	RequiredFields            []models.CourseField `json:"required_fields"`
	DefaultCourseData         map[string]string    `json:"default_course_data"`
}

// UpdateCourseType updates an existing course type
// PUT /api/v1/course-types/:id
func (h *CourseTypeHandler) UpdateCourseType(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Course type ID is required"})
		return
	}

	var req UpdateCourseTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	courseType, err := h.service.Update(id, req.Name, req.CertificateValidityMonths, req.ClearValidity, req.DurationValue, req.DurationUnit, req.RequiredFields, req.DefaultCourseData)
	if err != nil {
		if errors.Is(err, services.ErrCourseTypeMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course type not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to update course type: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Course type updated successfully",
		"course_type": courseType,
	})
}

// DeleteCourseType deletes a course type
// DELETE /api/v1/course-types/:id
func (h *CourseTypeHandler) DeleteCourseType(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Course type ID is required"})
		return
	}

	if err := h.service.Delete(id); err != nil {
		if errors.Is(err, services.ErrCourseTypeMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course type not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Failed to delete course type: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Course type deleted successfully",
	})
}
