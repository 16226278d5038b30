package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"TC-CERT/internal/layout"
	"TC-CERT/internal/models"
	"TC-CERT/internal/services"

	"github.com/gin-gonic/gin"
)

type TemplateHandler struct {
	service *services.TemplateService
	editor  *services.EditorService
}

func NewTemplateHandler(service *services.TemplateService, editor *services.EditorService) *TemplateHandler {
	return &TemplateHandler{
		service: service,
		editor:  editor,
	}
}

// CreateTemplateRequest is the request body for creating a template.
type CreateTemplateRequest struct {
	CourseTypeID string `json:"course_type_id"`
	Name         string `json:"name"`
}

// CreateTemplate creates a new certificate template
// POST /api/v1/templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if req.CourseTypeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course_type_id is required"})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	template, err := h.service.Create(req.CourseTypeID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create template: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Template created successfully",
		"template": template,
	})
}

// GetAllTemplates retrieves all templates
// GET /api/v1/templates
func (h *TemplateHandler) GetAllTemplates(c *gin.Context) {
	templates, err := h.service.GetAll(c.Query("course_type_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get templates: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"templates": models.ToListItems(templates),
	})
}

// GetTemplate retrieves one template with its field layout, per-field
// classification and available field catalogues
// GET /api/v1/templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template ID is required"})
		return
	}

	detail, err := h.service.Detail(id)
	if err != nil {
		if errors.Is(err, services.ErrTemplateMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to get template: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"template": detail,
	})
}

// UpdateTemplateRequest is the request body for updating template metadata.
type UpdateTemplateRequest struct {
	Name         *string `json:"name"`
	Active       *bool   `json:"active"`
	CourseTypeID *string `json:"course_type_id"`
}

// UpdateTemplate updates template metadata
// PUT /api/v1/templates/:id
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template ID is required"})
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	template, err := h.service.UpdateMeta(id, req.Name, req.Active, req.CourseTypeID)
	if err != nil {
		if errors.Is(err, services.ErrTemplateMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to update template: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Template updated successfully",
		"template": template,
	})
}

// SaveFieldsRequest is the request body for replacing a template's field
// layout wholesale.
type SaveFieldsRequest struct {
	Fields []layout.Field `json:"fields"`
}

// SaveTemplateFields persists a complete field layout
// PUT /api/v1/templates/:id/fields
func (h *TemplateHandler) SaveTemplateFields(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template ID is required"})
		return
	}

	var req SaveFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	template, err := h.service.SaveFields(id, req.Fields)
	if err != nil {
		if errors.Is(err, services.ErrTemplateMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid field layout: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Template fields saved successfully",
		"template": template,
	})
}

// UploadBackground stores a new background image for the template
// POST /api/v1/templates/:id/background
func (h *TemplateHandler) UploadBackground(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template ID is required"})
		return
	}

	file, header, err := c.Request.FormFile("background")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "background file is required"})
		return
	}
	defer file.Close()

	template, err := h.service.UploadBackground(c.Request.Context(), id, file, header)
	if err != nil {
		if errors.Is(err, services.ErrTemplateMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to upload background: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Background uploaded successfully",
		"template": template,
	})
}

// DeleteTemplate deletes a template
// DELETE /api/v1/templates/:id
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template ID is required"})
		return
	}

	h.editor.Discard(id)
	if err := h.service.Delete(id); err != nil {
		if errors.Is(err, services.ErrTemplateMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to delete template: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Template deleted successfully",
	})
}

// OpenEditorRequest is the request body for opening a layout session.
type OpenEditorRequest struct {
	Scale float64 `json:"scale"`
}

// OpenEditor opens (or reopens) the layout editing session for a template
// POST /api/v1/templates/:id/editor
func (h *TemplateHandler) OpenEditor(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template ID is required"})
		return
	}

	var req OpenEditorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	state, err := h.editor.Open(id, req.Scale)
	if err != nil {
		if errors.Is(err, services.ErrTemplateMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to open editor: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"editor": state,
	})
}

// EditorEventsRequest is a batch of pointer events from the layout editor.
type EditorEventsRequest struct {
	Scale  *float64                `json:"scale"`
	Events []services.PointerEvent `json:"events"`
}

// ApplyEditorEvents applies a batch of pointer events to the open session
// POST /api/v1/templates/:id/editor/events
func (h *TemplateHandler) ApplyEditorEvents(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template ID is required"})
		return
	}

	var req EditorEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if req.Scale != nil {
		if _, err := h.editor.SetScale(id, *req.Scale); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "No editor session open for this template"})
			return
		}
	}

	state, err := h.editor.Apply(id, req.Events)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No editor session open for this template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"editor": state,
	})
}

// AddEditorFieldRequest is the request body for placing one field.
type AddEditorFieldRequest struct {
	Field layout.Field `json:"field"`
}

// AddEditorField places a single field into the open session
// POST /api/v1/templates/:id/editor/fields
func (h *TemplateHandler) AddEditorField(c *gin.Context) {
	id := c.Param("id")
	var req AddEditorFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	state, err := h.editor.AddField(id, req.Field)
	if err != nil {
		if errors.Is(err, services.ErrNoEditorSession) {
			c.JSON(http.StatusConflict, gin.H{"error": "No editor session open for this template"})
			return
		}
		if errors.Is(err, layout.ErrDuplicateField) {
			c.JSON(http.StatusConflict, gin.H{"error": "Field already exists on template"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid field: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"editor": state,
	})
}

// AddMissingEditorFields places every not-yet-placed system and course field
// POST /api/v1/templates/:id/editor/fields/missing
func (h *TemplateHandler) AddMissingEditorFields(c *gin.Context) {
	id := c.Param("id")

	state, err := h.editor.AddMissing(id)
	if err != nil {
		if errors.Is(err, services.ErrNoEditorSession) {
			c.JSON(http.StatusConflict, gin.H{"error": "No editor session open for this template"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to add fields: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"editor": state,
	})
}

// RemoveEditorField removes a field from the open session
// DELETE /api/v1/templates/:id/editor/fields/:fieldId
func (h *TemplateHandler) RemoveEditorField(c *gin.Context) {
	id := c.Param("id")
	fieldID := c.Param("fieldId")

	state, err := h.editor.RemoveField(id, fieldID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No editor session open for this template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"editor": state,
	})
}

// CommitEditor persists the session layout and closes the session
// POST /api/v1/templates/:id/editor/commit
func (h *TemplateHandler) CommitEditor(c *gin.Context) {
	id := c.Param("id")

	template, err := h.editor.Commit(id)
	if err != nil {
		if errors.Is(err, services.ErrNoEditorSession) {
			c.JSON(http.StatusConflict, gin.H{"error": "No editor session open for this template"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to commit layout: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Layout committed successfully",
		"template": template,
	})
}

// DiscardEditor closes the session without persisting
// POST /api/v1/templates/:id/editor/discard
func (h *TemplateHandler) DiscardEditor(c *gin.Context) {
	h.editor.Discard(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"message": "Editor session discarded",
	})
}
