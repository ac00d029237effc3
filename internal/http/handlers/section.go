package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/studyrail/studyrail-backend/internal/domain"
	"github.com/studyrail/studyrail-backend/internal/platform/apierr"
	"github.com/studyrail/studyrail-backend/internal/services"
)

type SectionHandler struct {
	svc services.SectionService
}

func NewSectionHandler(svc services.SectionService) *SectionHandler {
	return &SectionHandler{svc: svc}
}

type createSectionRequest struct {
	Title         string      `json:"title"`
	Kind          string      `json:"kind"`
	ContentRef    string      `json:"content_ref"`
	Required      *bool       `json:"required"`
	Position      int         `json:"position"`
	Prerequisites []uuid.UUID `json:"prerequisites"`
}

// POST /api/lessons/:id/sections
func (h *SectionHandler) CreateSection(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return
	}
	var req createSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	required := true
	if req.Required != nil {
		required = *req.Required
	}
	section := &types.Section{
		LessonID:      lessonID,
		Title:         req.Title,
		Kind:          req.Kind,
		ContentRef:    req.ContentRef,
		Required:      required,
		Position:      req.Position,
		Prerequisites: datatypes.NewJSONSlice(req.Prerequisites),
	}

	created, err := h.svc.CreateSection(c.Request.Context(), section)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"section": created})
}

// PATCH /api/sections/:id
func (h *SectionHandler) UpdateSection(c *gin.Context) {
	sectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid section id"})
		return
	}
	var patch services.SectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.svc.UpdateSection(c.Request.Context(), sectionID, patch)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": updated})
}

// DELETE /api/sections/:id
func (h *SectionHandler) DeleteSection(c *gin.Context) {
	sectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid section id"})
		return
	}
	if err := h.svc.DeleteSection(c.Request.Context(), sectionID); err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": sectionID})
}

// GET /api/lessons/:id/sections/next-position
func (h *SectionHandler) NextPosition(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return
	}
	next, err := h.svc.NextPosition(c.Request.Context(), lessonID)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_position": next})
}

type reorderRequest struct {
	SectionIDs []uuid.UUID `json:"section_ids"`
}

// POST /api/lessons/:id/sections/reorder
//
// Partial failures are not rolled back; the response always carries the
// per-section outcome, with a 409 status when anything failed.
func (h *SectionHandler) ReorderSections(c *gin.Context) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.ReorderSections(c.Request.Context(), lessonID, req.SectionIDs)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	status := http.StatusOK
	if len(res.Failed) > 0 {
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"result": res})
}
