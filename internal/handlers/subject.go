package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"TC-CERT/internal/services"

	"github.com/gin-gonic/gin"
)

type SubjectHandler struct {
	service *services.SubjectService
}

func NewSubjectHandler(service *services.SubjectService) *SubjectHandler {
	return &SubjectHandler{service: service}
}

// CreateDelegateRequest is the request body for registering a delegate.
type CreateDelegateRequest struct {
	OpenCourseID string            `json:"open_course_id"`
	FullName     string            `json:"full_name"`
	Email        string            `json:"email"`
	FieldValues  map[string]string `json:"field_values"`
}

// CreateDelegate registers an open-course delegate
// POST /api/v1/delegates
func (h *SubjectHandler) CreateDelegate(c *gin.Context) {
	var req CreateDelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.OpenCourseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open_course_id is required"})
		return
	}
	if req.FullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "full_name is required"})
		return
	}

	delegate, err := h.service.CreateDelegate(req.OpenCourseID, req.FullName, req.Email, req.FieldValues)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create delegate: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Delegate created successfully",
		"delegate": delegate,
	})
}

// GetDelegates lists delegates, optionally filtered by open course
// GET /api/v1/delegates
func (h *SubjectHandler) GetDelegates(c *gin.Context) {
	delegates, err := h.service.GetDelegates(c.Query("open_course_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get delegates: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"delegates": delegates,
	})
}

// UpdateValuesRequest is the request body for replacing a subject's value
// bag.
type UpdateValuesRequest struct {
	FieldValues map[string]string `json:"field_values"`
}

// UpdateDelegateValues replaces a delegate's candidate-level values
// PUT /api/v1/delegates/:id/values
func (h *SubjectHandler) UpdateDelegateValues(c *gin.Context) {
	id := c.Param("id")
	var req UpdateValuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.service.UpdateDelegateValues(id, req.FieldValues); err != nil {
		if errors.Is(err, services.ErrSubjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Delegate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to update delegate: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Delegate values updated successfully",
	})
}

// CreateCandidateRequest is the request body for registering a candidate.
type CreateCandidateRequest struct {
	BookingID   string            `json:"booking_id"`
	FullName    string            `json:"full_name"`
	Email       string            `json:"email"`
	FieldValues map[string]string `json:"field_values"`
}

// CreateCandidate registers a booking candidate
// POST /api/v1/candidates
func (h *SubjectHandler) CreateCandidate(c *gin.Context) {
	var req CreateCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.BookingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "booking_id is required"})
		return
	}
	if req.FullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "full_name is required"})
		return
	}

	candidate, err := h.service.CreateCandidate(req.BookingID, req.FullName, req.Email, req.FieldValues)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create candidate: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Candidate created successfully",
		"candidate": candidate,
	})
}

// GetCandidates lists candidates, optionally filtered by booking
// GET /api/v1/candidates
func (h *SubjectHandler) GetCandidates(c *gin.Context) {
	candidates, err := h.service.GetCandidates(c.Query("booking_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get candidates: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates": candidates,
	})
}

// UpdateCandidateValues replaces a candidate's values
// PUT /api/v1/candidates/:id/values
func (h *SubjectHandler) UpdateCandidateValues(c *gin.Context) {
	id := c.Param("id")
	var req UpdateValuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if err := h.service.UpdateCandidateValues(id, req.FieldValues); err != nil {
		if errors.Is(err, services.ErrSubjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Candidate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to update candidate: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Candidate values updated successfully",
	})
}
