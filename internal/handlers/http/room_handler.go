package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/internal/infrastructure/middleware"
	apperrors "roomhub/pkg/errors"
	"roomhub/pkg/validation"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomService      ports.RoomService
	lifecycleService ports.LifecycleService
	accessService    ports.AccessService
}

func NewRoomHandler(
	roomService ports.RoomService,
	lifecycleService ports.LifecycleService,
	accessService ports.AccessService,
) *RoomHandler {
	return &RoomHandler{
		roomService:      roomService,
		lifecycleService: lifecycleService,
		accessService:    accessService,
	}
}

func (h *RoomHandler) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/rooms", h.ListRooms)
	api.POST("/rooms", h.CreateRoom)
	api.GET("/rooms/:id", h.GetRoom)
	api.PUT("/rooms/:id", h.UpdateRoom)
	api.DELETE("/rooms/:id", h.DeleteRoom)

	api.GET("/rooms/:id/permissions", h.GetPermissions)
	api.PATCH("/rooms/:id/permissions", h.PatchPermissions)
	api.GET("/rooms/:id/access", h.EvaluateAccess)
	api.GET("/rooms/:id/activity", h.ListActivity)

	// Lifecycle transitions
	api.POST("/rooms/:id/publish", h.Publish)
	api.POST("/rooms/:id/unpublish", h.Unpublish)
	api.POST("/rooms/:id/publish-plaza", h.PublishPlaza)
	api.POST("/rooms/:id/unpublish-plaza", h.UnpublishPlaza)
	api.POST("/rooms/:id/publish-shared", h.Share)
	api.POST("/rooms/:id/unshare-shared", h.Unshare)
	// History locks record who placed them, so the caller must carry an
	// identity token.
	api.POST("/rooms/:id/lock-history", middleware.RequireIdentity(), h.LockHistory)
	api.POST("/rooms/:id/unlock-history", middleware.RequireIdentity(), h.UnlockHistory)
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		ID   string `json:"id"`
		Name string `json:"name" binding:"required,min=1,max=200"`
	}

	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ID != "" {
		if err := validation.ValidateRoomID(req.ID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), domain.RoomID(req.ID), middleware.Actor(c), req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"room": room,
	})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	// Gallery and plaza prefixed ids route to the same directory entry; the
	// kind only matters to the frontend router.
	ref := domain.ParseRoomRef(domain.RoomID(c.Param("id")))

	room, err := h.roomService.GetRoom(c.Request.Context(), ref.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room": room,
		"kind": ref.Kind,
	})
}

func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	var patch domain.RoomPatch
	if err := c.BindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if patch.Name != nil {
		if err := validation.ValidateRoomName(*patch.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	room, err := h.roomService.UpdateRoom(c.Request.Context(), roomID, patch, middleware.Actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room": room,
	})
}

func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	if err := h.roomService.DeleteRoom(c.Request.Context(), roomID, middleware.Actor(c)); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
	})
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	filter := domain.RoomFilter{
		OwnerID: domain.UserID(c.Query("ownerId")),
	}
	if v, ok := boolQuery(c, "shared"); ok {
		filter.Shared = &v
	}
	if v, ok := boolQuery(c, "publish"); ok {
		filter.Publish = &v
	}
	if v, ok := boolQuery(c, "plaza"); ok {
		filter.Plaza = &v
	}

	rooms, err := h.roomService.ListRooms(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": rooms,
	})
}

func (h *RoomHandler) GetPermissions(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"permission":     room.Permission,
		"max_permission": room.MaxPermission,
		"history_locked": room.HistoryLocked,
	})
}

func (h *RoomHandler) PatchPermissions(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	var req struct {
		Permission    *domain.PermissionLevel `json:"permission"`
		MaxPermission *domain.PermissionLevel `json:"max_permission"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Permission == nil && req.MaxPermission == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "permission or max_permission required"})
		return
	}
	if req.Permission != nil && !req.Permission.Valid() {
		_ = c.Error(apperrors.NewInvalidInputError("unknown permission level"))
		return
	}
	if req.MaxPermission != nil && !req.MaxPermission.Valid() {
		_ = c.Error(apperrors.NewInvalidInputError("unknown permission level"))
		return
	}

	room, err := h.roomService.UpdateRoom(c.Request.Context(), roomID, domain.RoomPatch{
		Permission:    req.Permission,
		MaxPermission: req.MaxPermission,
	}, middleware.Actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"permission":     room.Permission,
		"max_permission": room.MaxPermission,
	})
}

func (h *RoomHandler) EvaluateAccess(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	// Authenticated identity wins; userId query is the dev/unauthenticated
	// fallback.
	requester := middleware.Actor(c).ID
	if requester == "" {
		requester = domain.UserID(c.Query("userId"))
	}

	result, err := h.accessService.Evaluate(c.Request.Context(), roomID, requester)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *RoomHandler) ListActivity(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	records, err := h.roomService.ListActivity(c.Request.Context(), roomID, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": records,
	})
}

func (h *RoomHandler) Publish(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	var req struct {
		Content json.RawMessage `json:"content"`
	}
	// Body is optional; an empty body publishes the current editor document.
	_ = c.ShouldBindJSON(&req)

	room, slug, version, err := h.lifecycleService.Publish(c.Request.Context(), roomID, []byte(req.Content), middleware.Actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":    room,
		"slug":    slug,
		"version": version,
	})
}

func (h *RoomHandler) Unpublish(c *gin.Context) {
	h.transition(c, h.lifecycleService.Unpublish)
}

func (h *RoomHandler) PublishPlaza(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	room, err := h.lifecycleService.SetPlaza(c.Request.Context(), roomID, true, middleware.Actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) UnpublishPlaza(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))

	room, err := h.lifecycleService.SetPlaza(c.Request.Context(), roomID, false, middleware.Actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) Share(c *gin.Context) {
	h.transition(c, h.lifecycleService.Share)
}

func (h *RoomHandler) Unshare(c *gin.Context) {
	h.transition(c, h.lifecycleService.Unshare)
}

func (h *RoomHandler) LockHistory(c *gin.Context) {
	h.transition(c, h.lifecycleService.LockHistory)
}

func (h *RoomHandler) UnlockHistory(c *gin.Context) {
	h.transition(c, h.lifecycleService.UnlockHistory)
}

// transition runs one of the single-argument lifecycle calls and renders the
// updated room.
func (h *RoomHandler) transition(
	c *gin.Context,
	fn func(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error),
) {
	roomID := domain.RoomID(c.Param("id"))

	room, err := fn(c.Request.Context(), roomID, middleware.Actor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room": room,
	})
}

func boolQuery(c *gin.Context, key string) (bool, bool) {
	raw, exists := c.GetQuery(key)
	if !exists {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
