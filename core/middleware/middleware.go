package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"orgsync-api/core/constants"
	"orgsync-api/core/controller"
	"orgsync-api/core/errors"
	"orgsync-api/core/logger"
	"orgsync-api/core/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Middleware struct {
	internalAPIKey string
}

func NewMiddleware(internalAPIKey string) *Middleware {
	return &Middleware{internalAPIKey: internalAPIKey}
}

// AuthMiddleware validates the bearer JWT and stores the user id on the context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrMissingAuthorizationHeader, "missing authorization header")
			}
			if !strings.HasPrefix(header, constants.AuthorizationType) {
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrInvalidTokenFormat, "invalid authorization header format")
			}

			tokenData, err := utils.ValidateAndParseToken(strings.TrimPrefix(header, constants.AuthorizationType))
			if err != nil {
				logger.Warn("Middleware:AuthMiddleware:InvalidToken", "error", err)
				return controller.NewErrorResponse(http.StatusUnauthorized, errors.ErrUnauthorized, "invalid or expired token")
			}

			c.Set(constants.ContextKeyUserID, tokenData.UserID)
			return next(c)
		}
	}
}

// InternalMiddleware guards hooks called by other platform services.
func (m *Middleware) InternalMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(constants.InternalKeyHeader)
			if m.internalAPIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(m.internalAPIKey)) != 1 {
				return controller.NewErrorResponse(http.StatusForbidden, errors.ErrForbidden, "invalid internal key")
			}
			return next(c)
		}
	}
}

// GetUserID returns the user id stored by AuthMiddleware.
func GetUserID(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(constants.ContextKeyUserID).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}
