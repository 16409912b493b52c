package middleware_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"campus-erp/internal/config"
	"campus-erp/internal/domain"
	"campus-erp/internal/middleware"
	"campus-erp/internal/service/auth"
)

func decode(t *testing.T, body io.Reader) middleware.ErrorResponse {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestErrorHandler(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zap.New(core))})

	errs := map[string]error{
		"/not-found":  fmt.Errorf("load: %w", domain.ErrNotFound),
		"/forbidden":  domain.ErrForbidden,
		"/conflict":   domain.ErrConflict,
		"/validation": domain.NewValidationError(map[string]string{"title": "is required"}),
		"/fiber":      middleware.BadRequest("Invalid page"),
		"/boom":       errors.New("pq: connection refused"),
	}
	for path, err := range errs {
		err := err
		app.Get(path, func(c *fiber.Ctx) error { return err })
	}

	cases := []struct {
		path    string
		status  int
		code    string
		message string
	}{
		{"/not-found", fiber.StatusNotFound, "NOT_FOUND", domain.ErrNotFound.Error()},
		{"/forbidden", fiber.StatusForbidden, "FORBIDDEN", domain.ErrForbidden.Error()},
		{"/conflict", fiber.StatusConflict, "CONFLICT", domain.ErrConflict.Error()},
		{"/validation", fiber.StatusUnprocessableEntity, "VALIDATION_ERROR", domain.ErrValidation.Error()},
		{"/fiber", fiber.StatusBadRequest, "BAD_REQUEST", "Invalid page"},
		{"/boom", fiber.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			res, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.StatusCode)

			body := decode(t, res.Body)
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.message, body.Message)
			assert.NotEmpty(t, body.TraceID)
		})
	}

	res, err := app.Test(httptest.NewRequest("GET", "/validation", nil))
	require.NoError(t, err)
	assert.Equal(t, "is required", decode(t, res.Body).Errors["title"])

	// only the 500 is logged, and the raw error never leaves the server
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "request failed", logs.All()[0].Message)
}

func newAuthApp(t *testing.T) (*fiber.App, auth.Service) {
	t.Helper()
	authSvc := auth.NewService(&config.Config{JWTSecret: "test-secret", JWTAccessExpiry: time.Hour})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(nil)})
	protected := app.Group("", middleware.AuthRequired(authSvc))
	protected.Get("/me", func(c *fiber.Ctx) error {
		actor, err := middleware.GetActor(c)
		if err != nil {
			return err
		}
		return c.JSON(actor)
	})
	protected.Get("/staff", middleware.RequireStaff(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	protected.Get("/admin", middleware.RequireUserType(domain.UserTypeAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, authSvc
}

func request(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	return res.StatusCode
}

func TestAuthRequired(t *testing.T) {
	app, authSvc := newAuthApp(t)
	student := domain.Actor{ID: uuid.New(), Type: domain.UserTypeStudent}
	token, err := authSvc.IssueAccessToken(student)
	require.NoError(t, err)

	t.Run("Resolves Actor", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, res.StatusCode)

		var got domain.Actor
		require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
		assert.Equal(t, student, got)
	})

	t.Run("Missing Header", func(t *testing.T) {
		assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "/me", ""))
	})

	t.Run("Bad Scheme", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Token "+token)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "/me", "garbage"))
	})
}

func TestRequireUserType(t *testing.T) {
	app, authSvc := newAuthApp(t)
	issue := func(ut domain.UserType) string {
		token, err := authSvc.IssueAccessToken(domain.Actor{ID: uuid.New(), Type: ut})
		require.NoError(t, err)
		return token
	}

	assert.Equal(t, fiber.StatusForbidden, request(t, app, "/staff", issue(domain.UserTypeStudent)))
	assert.Equal(t, fiber.StatusNoContent, request(t, app, "/staff", issue(domain.UserTypeTeacher)))
	assert.Equal(t, fiber.StatusNoContent, request(t, app, "/staff", issue(domain.UserTypeAdmin)))
	assert.Equal(t, fiber.StatusForbidden, request(t, app, "/admin", issue(domain.UserTypeTeacher)))
	assert.Equal(t, fiber.StatusNoContent, request(t, app, "/admin", issue(domain.UserTypeAdmin)))
}
