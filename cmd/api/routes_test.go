package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campus-erp/internal/config"
	"campus-erp/internal/domain"
	"campus-erp/internal/handler"
	"campus-erp/internal/middleware"
	"campus-erp/internal/repository"
	"campus-erp/internal/service"
	"campus-erp/internal/testutil"
)

type apiEnv struct {
	t        *testing.T
	app      *fiber.App
	store    *repository.Store
	services *service.Services
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		JWTAccessExpiry:   time.Hour,
		MaxAttachmentSize: 1 << 20,
		DeliveryTimeout:   time.Second,
	}
	store := testutil.NewTestStore(t)
	services := service.NewServices(store, nil, nil, cfg, zap.NewNop())
	t.Cleanup(services.Dispatcher.Wait)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(nil)})
	setupRoutes(app, handler.NewHandlers(services), services.Auth)

	return &apiEnv{t: t, app: app, store: store, services: services}
}

type apiResponse struct {
	Status  int               `json:"-"`
	Success bool              `json:"success"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func (r apiResponse) decode(t *testing.T, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, out), "decoding %s", string(r.Data))
}

func (e *apiEnv) do(actor *domain.Actor, method, path string, body interface{}) apiResponse {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(actor, req)
}

func (e *apiEnv) send(actor *domain.Actor, req *http.Request) apiResponse {
	e.t.Helper()

	if actor != nil {
		token, err := e.services.Auth.IssueAccessToken(*actor)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer res.Body.Close()

	out := apiResponse{Status: res.StatusCode}
	raw, err := io.ReadAll(res.Body)
	require.NoError(e.t, err)
	if len(raw) > 0 {
		require.NoError(e.t, json.Unmarshal(raw, &out), "decoding %s", string(raw))
	}
	return out
}

func (e *apiEnv) unreadNotifications(actor domain.Actor) int {
	e.t.Helper()
	res := e.do(&actor, "GET", "/api/v1/notifications/unread-count", nil)
	require.Equal(e.t, fiber.StatusOK, res.Status)

	var body struct {
		Count int `json:"count"`
	}
	res.decode(e.t, &body)
	return body.Count
}

func TestRoutes_Health(t *testing.T) {
	api := newAPI(t)

	res := api.do(nil, "GET", "/health", nil)
	assert.Equal(t, fiber.StatusOK, res.Status)

	res = api.do(nil, "GET", "/api/v1/notifications", nil)
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)
	assert.Equal(t, "UNAUTHORIZED", res.Code)
}

func TestRoutes_DirectMessageFlow(t *testing.T) {
	api := newAPI(t)
	teacher := testutil.Teacher()
	student := testutil.Student()

	res := api.do(&teacher, "POST", "/api/v1/messages", domain.SendDirectMessageInput{
		Receiver: student,
		Subject:  "Lab report",
		Body:     "Please resubmit section 2.",
	})
	require.Equal(t, fiber.StatusCreated, res.Status)

	var sent domain.Message
	res.decode(t, &sent)
	assert.Equal(t, teacher.ID, sent.SenderID)
	assert.Equal(t, domain.PriorityNormal, sent.Priority)

	assert.Equal(t, 1, api.unreadNotifications(student))
	assert.Equal(t, 0, api.unreadNotifications(teacher))

	res = api.do(&student, "GET", "/api/v1/messages/"+sent.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	var opened domain.Message
	res.decode(t, &opened)
	assert.True(t, opened.IsRead)

	res = api.do(&student, "PATCH", "/api/v1/messages/"+sent.ID.String()+"/unread", nil)
	assert.Equal(t, fiber.StatusOK, res.Status)

	res = api.do(&student, "POST", "/api/v1/notifications/mark-all-read", nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	var marked struct {
		Updated int64 `json:"updated"`
	}
	res.decode(t, &marked)
	assert.Equal(t, int64(1), marked.Updated)
	assert.Equal(t, 0, api.unreadNotifications(student))

	outsider := testutil.Student()
	res = api.do(&outsider, "DELETE", "/api/v1/messages/"+sent.ID.String(), nil)
	assert.Equal(t, fiber.StatusNotFound, res.Status)

	res = api.do(&student, "DELETE", "/api/v1/messages/"+sent.ID.String(), nil)
	assert.Equal(t, fiber.StatusNoContent, res.Status)
	res = api.do(&student, "GET", "/api/v1/messages/"+sent.ID.String(), nil)
	assert.Equal(t, fiber.StatusNotFound, res.Status)
}

func TestRoutes_Errors(t *testing.T) {
	api := newAPI(t)
	student := testutil.Student()

	t.Run("Bad ID", func(t *testing.T) {
		res := api.do(&student, "GET", "/api/v1/messages/not-a-uuid", nil)
		assert.Equal(t, fiber.StatusBadRequest, res.Status)
		assert.Equal(t, "Invalid message ID", res.Message)
	})

	t.Run("Unknown Notification", func(t *testing.T) {
		res := api.do(&student, "PATCH", "/api/v1/notifications/"+uuid.NewString()+"/read", nil)
		assert.Equal(t, fiber.StatusNotFound, res.Status)
	})

	t.Run("Broadcast Requires Staff", func(t *testing.T) {
		res := api.do(&student, "POST", "/api/v1/messages/broadcast", domain.SendBroadcastInput{
			Recipients: []domain.Actor{testutil.Student()},
			Subject:    "s",
			Body:       "b",
		})
		assert.Equal(t, fiber.StatusForbidden, res.Status)
	})

	t.Run("Validation", func(t *testing.T) {
		res := api.do(&student, "POST", "/api/v1/forum/topics", domain.CreateTopicInput{Title: "ab", Body: "body"})
		assert.Equal(t, fiber.StatusUnprocessableEntity, res.Status)
		assert.Equal(t, "VALIDATION_ERROR", res.Code)
		assert.Contains(t, res.Errors, "title")
	})

	t.Run("Bad Priority Filter", func(t *testing.T) {
		res := api.do(&student, "GET", "/api/v1/notifications?priority=loud", nil)
		assert.Equal(t, fiber.StatusBadRequest, res.Status)
	})

	t.Run("Attachments Without Storage", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("receiver_id", uuid.NewString()))
		require.NoError(t, w.WriteField("receiver_type", "teacher"))
		require.NoError(t, w.WriteField("subject", "Homework"))
		require.NoError(t, w.WriteField("body", "Attached."))
		part, err := w.CreateFormFile("attachments", "essay.txt")
		require.NoError(t, err)
		_, err = part.Write([]byte("essay"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest("POST", "/api/v1/messages", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		res := api.send(&student, req)
		assert.Equal(t, fiber.StatusServiceUnavailable, res.Status)
		assert.Equal(t, "SERVICE_UNAVAILABLE", res.Code)
	})
}

func TestRoutes_AssignmentFlow(t *testing.T) {
	api := newAPI(t)
	teacher := testutil.Teacher()
	students := []domain.Actor{
		testutil.SeedStudent(t, api.store, "CS-101"),
		testutil.SeedStudent(t, api.store, "CS-101"),
	}

	res := api.do(&students[0], "POST", "/api/v1/assignments", domain.CreateAssignmentInput{GroupName: "CS-101", Title: "Essay"})
	assert.Equal(t, fiber.StatusForbidden, res.Status)

	res = api.do(&teacher, "POST", "/api/v1/assignments", domain.CreateAssignmentInput{GroupName: "CS-101", Title: "Essay"})
	require.Equal(t, fiber.StatusCreated, res.Status)
	var assignment domain.Assignment
	res.decode(t, &assignment)

	base := "/api/v1/assignments/" + assignment.ID.String()
	res = api.do(&teacher, "POST", base+"/publish", nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	for _, s := range students {
		assert.Equal(t, 1, api.unreadNotifications(s))
	}

	res = api.do(&teacher, "POST", base+"/publish", nil)
	assert.Equal(t, fiber.StatusConflict, res.Status)

	res = api.do(&teacher, "POST", base+"/submissions", domain.SubmitInput{Content: "mine"})
	assert.Equal(t, fiber.StatusForbidden, res.Status)

	res = api.do(&students[0], "POST", base+"/submissions", domain.SubmitInput{Content: "My essay"})
	require.Equal(t, fiber.StatusCreated, res.Status)
	var submission domain.Submission
	res.decode(t, &submission)

	res = api.do(&teacher, "POST", "/api/v1/submissions/"+submission.ID.String()+"/grade", domain.GradeInput{Grade: 91})
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, 2, api.unreadNotifications(students[0]))
	assert.Equal(t, 1, api.unreadNotifications(students[1]))

	res = api.do(&students[0], "GET", "/api/v1/assignments", nil)
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
}

func TestRoutes_Settings(t *testing.T) {
	api := newAPI(t)
	student := testutil.Student()
	disabled := false

	res := api.do(&student, "PUT", "/api/v1/notification-settings/new_message", domain.UpdateSettingsInput{EmailEnabled: &disabled})
	require.Equal(t, fiber.StatusOK, res.Status)
	var row domain.NotificationSettings
	res.decode(t, &row)
	assert.False(t, row.EmailEnabled)
	assert.Equal(t, domain.NotifNewMessage, row.NotificationType)

	res = api.do(&student, "GET", "/api/v1/notification-settings/new_message", nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	res.decode(t, &row)
	assert.False(t, row.EmailEnabled)

	res = api.do(&student, "POST", "/api/v1/notification-settings/reset", nil)
	assert.Equal(t, fiber.StatusOK, res.Status)
}
