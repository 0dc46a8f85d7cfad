package http

import (
	"errors"
	"fmt"
	"net/http"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	apperrors "roomhub/pkg/errors"
	"roomhub/pkg/shareaddr"
	"roomhub/pkg/validation"

	"github.com/gin-gonic/gin"
)

type ShareHandler struct {
	roomService ports.RoomService
	metrics     ports.MetricsRecorder
}

func NewShareHandler(roomService ports.RoomService, metrics ports.MetricsRecorder) *ShareHandler {
	return &ShareHandler{roomService: roomService, metrics: metrics}
}

func (h *ShareHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/share-links", h.GenerateLink)
	api.GET("/share-links/resolve", h.ResolveLink)
}

// GenerateLink builds a share address for an existing room. New links always
// use the query form; the path form stays decode-only.
func (h *ShareHandler) GenerateLink(c *gin.Context) {
	var req struct {
		RoomID   string              `json:"room_id" binding:"required"`
		PageID   string              `json:"page_id"`
		Viewport *shareaddr.Viewport `json:"viewport"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validation.ValidateRoomID(req.RoomID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Links point at real rooms only.
	if _, err := h.roomService.GetRoom(c.Request.Context(), domain.RoomID(req.RoomID)); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url": shareaddr.EncodeQuery(req.RoomID, req.PageID, req.Viewport),
	})
}

// ResolveLink decodes either share address form. A path-form page index is
// re-expressed as a "page:{index}" page id for the caller.
func (h *ShareHandler) ResolveLink(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter required"})
		return
	}

	addr, err := shareaddr.Decode(raw)
	if err != nil {
		if errors.Is(err, shareaddr.ErrNotShareAddress) {
			h.metrics.RecordShareAddressDecodeFailure()
			_ = c.Error(apperrors.NewNotShareAddressError("url is not a share address"))
			return
		}
		_ = c.Error(err)
		return
	}

	pageID := addr.PageID
	if pageID == "" && addr.PageIndex >= 0 {
		pageID = fmt.Sprintf("page:%d", addr.PageIndex)
	}

	resp := gin.H{
		"room_id": addr.RoomID,
	}
	if pageID != "" {
		resp["page_id"] = pageID
	}
	if addr.Viewport != nil {
		resp["viewport"] = addr.Viewport
	}

	c.JSON(http.StatusOK, resp)
}
