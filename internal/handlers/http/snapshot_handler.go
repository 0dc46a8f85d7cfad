package http

import (
	"encoding/json"
	"net/http"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/internal/infrastructure/middleware"
	"roomhub/pkg/validation"

	"github.com/gin-gonic/gin"
)

type SnapshotHandler struct {
	publishService ports.PublishService
}

func NewSnapshotHandler(publishService ports.PublishService) *SnapshotHandler {
	return &SnapshotHandler{publishService: publishService}
}

func (h *SnapshotHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/publish-snapshots/:slug", h.GetSnapshot)
	api.POST("/publish-snapshots/:slug", h.PutSnapshot)
	api.DELETE("/publish-snapshots/:slug", h.InvalidateSnapshot)
}

func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	slug := c.Param("slug")
	if err := validation.ValidateSlug(slug); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := h.publishService.Resolve(c.Request.Context(), slug)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot": snapshot,
	})
}

// PutSnapshot republishes under an already-assigned slug. The room keeps its
// slug forever, so the room id in the body must resolve to this slug.
func (h *SnapshotHandler) PutSnapshot(c *gin.Context) {
	slug := c.Param("slug")
	if err := validation.ValidateSlug(slug); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		RoomID  string          `json:"room_id" binding:"required"`
		Content json.RawMessage `json:"content" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gotSlug, version, err := h.publishService.PublishSnapshot(
		c.Request.Context(), domain.RoomID(req.RoomID), []byte(req.Content), middleware.Actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if gotSlug != slug {
		c.JSON(http.StatusConflict, gin.H{"error": "room is published under a different slug"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slug":    gotSlug,
		"version": version,
	})
}

func (h *SnapshotHandler) InvalidateSnapshot(c *gin.Context) {
	slug := c.Param("slug")
	if err := validation.ValidateSlug(slug); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.publishService.Invalidate(c.Request.Context(), slug, middleware.Actor(c)); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "invalidated",
	})
}
