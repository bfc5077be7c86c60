package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orgsync-api/core/config"
	"orgsync-api/core/constants"
	"orgsync-api/core/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (echo.Context, error) {
	t.Helper()

	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return c, err
}

func TestAuthMiddleware(t *testing.T) {
	config.Set(&config.Config{JWT: config.JWTConfig{Secret: "s3cret"}})
	t.Cleanup(func() { config.Set(nil) })

	userID := uuid.New()
	token, err := utils.GenerateToken(userID, "", time.Minute)
	require.NoError(t, err)

	m := NewMiddleware("")

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

		c, err := run(t, m.AuthMiddleware(), req)
		require.NoError(t, err)

		got, ok := GetUserID(c)
		require.True(t, ok)
		assert.Equal(t, userID, got)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := run(t, m.AuthMiddleware(), httptest.NewRequest(http.MethodGet, "/", nil))

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer nope")

		_, err := run(t, m.AuthMiddleware(), req)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})
}

func TestInternalMiddleware(t *testing.T) {
	m := NewMiddleware("hook-key")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(constants.InternalKeyHeader, "hook-key")
	_, err := run(t, m.InternalMiddleware(), req)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(constants.InternalKeyHeader, "wrong")
	_, err = run(t, m.InternalMiddleware(), req)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)
}

func TestInternalMiddleware_EmptyKeyRejectsAll(t *testing.T) {
	_, err := run(t, NewMiddleware("").InternalMiddleware(), httptest.NewRequest(http.MethodPost, "/", nil))
	require.Error(t, err)
}
