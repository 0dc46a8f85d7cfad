package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/internal/core/services"
	handlers "roomhub/internal/handlers/http"
	"roomhub/internal/infrastructure/editor"
	"roomhub/internal/infrastructure/middleware"
	"roomhub/internal/infrastructure/repositories/memory"
	"roomhub/pkg/cache"
	"roomhub/pkg/retry"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testJWTSecret = "handler-test-secret"

// handlerFixture runs the real route setup against memory repositories so
// requests exercise the identity middleware, the handlers and the services
// end to end.
type handlerFixture struct {
	router       *gin.Engine
	roomSvc      ports.RoomService
	lifecycleSvc ports.LifecycleService
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop().Sugar()
	rooms := memory.NewMemoryRoomRepository()
	snapshots := memory.NewMemorySnapshotRepository()
	activity := memory.NewMemoryActivityRepository()

	snapshotCache := cache.NewCache(time.Minute)
	t.Cleanup(snapshotCache.Stop)

	retryCfg := retry.DefaultConfig()
	retryCfg.InitialDelay = time.Millisecond
	retryCfg.Jitter = false

	publishSvc := services.NewPublishService(rooms, snapshots, snapshotCache,
		memory.NewMemorySlugLocker(), retryCfg, ports.NopMetrics{}, log)
	roomSvc := services.NewRoomService(rooms, snapshots, activity, ports.NopMetrics{}, log)
	lifecycleSvc := services.NewLifecycleService(rooms, publishSvc, activity,
		editor.NewMemoryEditorSync(), ports.NopMetrics{}, log)
	accessSvc := services.NewAccessService(rooms)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(log))
	api := router.Group("/api")
	api.Use(middleware.IdentityMiddleware(testJWTSecret))
	handlers.NewRoomHandler(roomSvc, lifecycleSvc, accessSvc).SetupRoutes(api)
	handlers.NewSnapshotHandler(publishSvc).SetupRoutes(api)
	handlers.NewShareHandler(roomSvc, ports.NopMetrics{}).SetupRoutes(api)

	return &handlerFixture{
		router:       router,
		roomSvc:      roomSvc,
		lifecycleSvc: lifecycleSvc,
	}
}

func (f *handlerFixture) createOwnedRoom(t *testing.T, id, ownerID string) {
	t.Helper()
	_, err := f.roomSvc.CreateRoom(context.Background(), domain.RoomID(id),
		domain.Identity{ID: domain.UserID(ownerID), Name: ownerID}, "board")
	require.NoError(t, err)
}

func bearerToken(t *testing.T, userID, name string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"name": name,
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func (f *handlerFixture) do(t *testing.T, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestMutations_AnonymousRejectedOnOwnedRoom(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()
	f.createOwnedRoom(t, "room-1", "alice")

	_, _, _, err := f.lifecycleSvc.Publish(ctx, "room-1", []byte(`{}`),
		domain.Identity{ID: "alice", Name: "alice"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/rooms/room-1/unpublish", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))

	w = f.do(t, http.MethodDelete, "/api/rooms/room-1", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The room survived untouched.
	room, err := f.roomSvc.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.True(t, room.Publish)
}

func TestMutations_StrangerTokenRejected(t *testing.T) {
	f := newHandlerFixture(t)
	f.createOwnedRoom(t, "room-1", "alice")
	bob := bearerToken(t, "bob", "Bob")

	w := f.do(t, http.MethodPost, "/api/rooms/room-1/publish-shared", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPatch, "/api/rooms/room-1/permissions", bob,
		strings.NewReader(`{"permission":"viewer"}`))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/rooms/room-1/publish", bob,
		strings.NewReader(`{"content":{}}`))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMutations_OwnerAllowed(t *testing.T) {
	f := newHandlerFixture(t)
	f.createOwnedRoom(t, "room-1", "alice")
	alice := bearerToken(t, "alice", "Alice")

	w := f.do(t, http.MethodPost, "/api/rooms/room-1/publish", alice,
		strings.NewReader(`{"content":{"shapes":[]}}`))
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/rooms/room-1/unpublish", alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, "/api/rooms/room-1", alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReads_StayOpenToVisitors(t *testing.T) {
	f := newHandlerFixture(t)
	f.createOwnedRoom(t, "room-1", "alice")

	w := f.do(t, http.MethodGet, "/api/rooms/room-1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/rooms/room-1/access?userId=bob", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
