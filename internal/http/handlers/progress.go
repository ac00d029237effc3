package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyrail/studyrail-backend/internal/platform/apierr"
	"github.com/studyrail/studyrail-backend/internal/requestdata"
	"github.com/studyrail/studyrail-backend/internal/services"
)

type ProgressHandler struct {
	svc services.ProgressionService
}

func NewProgressHandler(svc services.ProgressionService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

type completeRequest struct {
	Score *float64 `json:"score"`
}

// POST /api/sections/:id/complete
func (h *ProgressHandler) MarkCompleted(c *gin.Context) {
	sectionID, userID, ok := sectionAndUser(c)
	if !ok {
		return
	}
	var req completeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	progress, err := h.svc.MarkSectionCompleted(c.Request.Context(), userID, sectionID, req.Score)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

type recordTimeRequest struct {
	Seconds int `json:"seconds"`
}

// POST /api/sections/:id/time
func (h *ProgressHandler) RecordTime(c *gin.Context) {
	sectionID, userID, ok := sectionAndUser(c)
	if !ok {
		return
	}
	var req recordTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.RecordTime(c.Request.Context(), userID, sectionID, req.Seconds); err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": req.Seconds})
}

// POST /api/sections/:id/attempt
func (h *ProgressHandler) RecordAttempt(c *gin.Context) {
	sectionID, userID, ok := sectionAndUser(c)
	if !ok {
		return
	}
	if err := h.svc.RecordAttempt(c.Request.Context(), userID, sectionID); err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": 1})
}

func sectionAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	sectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid section id"})
		return uuid.Nil, uuid.Nil, false
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return uuid.Nil, uuid.Nil, false
	}
	return sectionID, rd.UserID, true
}
