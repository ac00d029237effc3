package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyrail/studyrail-backend/internal/platform/apierr"
	"github.com/studyrail/studyrail-backend/internal/requestdata"
	"github.com/studyrail/studyrail-backend/internal/services"
)

type LessonHandler struct {
	progression services.ProgressionService
	completion  services.CompletionService
}

func NewLessonHandler(progression services.ProgressionService, completion services.CompletionService) *LessonHandler {
	return &LessonHandler{progression: progression, completion: completion}
}

// GET /api/lessons/:id/sections
func (h *LessonHandler) ListSections(c *gin.Context) {
	lessonID, userID, ok := lessonAndUser(c)
	if !ok {
		return
	}
	view, err := h.progression.ListSectionsWithProgress(c.Request.Context(), userID, lessonID)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": view})
}

// GET /api/lessons/:id/completion
func (h *LessonHandler) GetCompletion(c *gin.Context) {
	lessonID, userID, ok := lessonAndUser(c)
	if !ok {
		return
	}
	completed, err := h.completion.IsLessonCompleted(c.Request.Context(), userID, lessonID)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": completed})
}

// GET /api/lessons/:id/stats
func (h *LessonHandler) GetStats(c *gin.Context) {
	lessonID, userID, ok := lessonAndUser(c)
	if !ok {
		return
	}
	stats, err := h.completion.GetStats(c.Request.Context(), userID, lessonID)
	if err != nil {
		c.JSON(apierr.StatusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func lessonAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return uuid.Nil, uuid.Nil, false
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return uuid.Nil, uuid.Nil, false
	}
	return lessonID, rd.UserID, true
}
