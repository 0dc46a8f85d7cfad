package middleware

import (
	stderrors "errors"
	"net/http"

	"roomhub/internal/core/domain"
	"roomhub/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware handles application errors and returns appropriate HTTP responses
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			appErr := errors.GetAppError(err)
			if appErr == nil {
				appErr = mapDomainError(err)
			}
			if appErr != nil {
				logger.Errorw("application error",
					"code", appErr.Code,
					"message", appErr.Message,
					"status", appErr.HTTPStatus,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"context", appErr.Context,
				)

				body := gin.H{
					"error":   string(appErr.Code),
					"message": appErr.Message,
					"details": appErr.Context,
				}
				if appErr.Retryable {
					body["retryable"] = true
				}
				c.JSON(appErr.HTTPStatus, body)
				return
			}

			logger.Errorw("unhandled error",
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   string(errors.ErrCodeInternal),
				"message": "Internal server error",
			})
		}
	}
}

// mapDomainError translates core sentinel errors so handlers can push them
// into the gin error list without wrapping each one.
func mapDomainError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, domain.ErrRoomNotFound):
		return errors.NewNotFoundError("room")
	case stderrors.Is(err, domain.ErrSnapshotNotFound):
		return errors.NewNotFoundError("snapshot")
	case stderrors.Is(err, domain.ErrRoomExists):
		return errors.NewConflictError("room already exists")
	case stderrors.Is(err, domain.ErrConflict):
		return errors.NewConflictError("concurrent modification, retry the request")
	case stderrors.Is(err, domain.ErrStaleSnapshot):
		return errors.NewConflictError("a newer snapshot version is already published")
	case stderrors.Is(err, domain.ErrInvalidTransition):
		return errors.NewInvalidTransitionError(err.Error())
	case stderrors.Is(err, domain.ErrInvalidPermission):
		return errors.NewInvalidInputError(err.Error())
	case stderrors.Is(err, domain.ErrUnauthorized):
		return errors.NewForbiddenError("not allowed for this room")
	}
	return nil
}

// RecoveryMiddleware recovers from panics and returns proper error responses
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   string(errors.ErrCodeInternal),
					"message": "Internal server error",
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}
