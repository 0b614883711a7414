package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ilker/tracker-server/internal/apidocs"
	"github.com/ilker/tracker-server/internal/auth"
	"github.com/ilker/tracker-server/internal/config"
	"github.com/ilker/tracker-server/internal/models"
	"github.com/ilker/tracker-server/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	tokens *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDatabase(&config.DatabaseConfig{
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	authenticator := auth.NewAuthenticator(models.AdminCredential{Username: "admin", PasswordHash: string(hash)}, tokens)

	docs, err := apidocs.New()
	require.NoError(t, err)

	logger := zerolog.Nop()
	router := NewRouter(Deps{
		DB:            db,
		Store:         repository.NewEventStore(db, logger),
		Authenticator: authenticator,
		Docs:          docs,
		Metrics:       config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Logger:        logger,
	})

	return &testServer{t: t, router: router, db: db, tokens: tokens}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login() string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/login", "", map[string]string{"username": "admin", "password": "s3cret"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.AccessToken)
	return resp.AccessToken
}

func (s *testServer) seed() (models.User, models.Device) {
	s.t.Helper()
	user := models.User{Name: "alice"}
	require.NoError(s.t, s.db.Create(&user).Error)
	device := models.Device{Name: "scanner"}
	require.NoError(s.t, s.db.Create(&device).Error)
	return user, device
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
		error  string
	}{
		{"missing password", map[string]string{"username": "admin"}, http.StatusBadRequest, "Log in with username and password"},
		{"missing username", map[string]string{"password": "s3cret"}, http.StatusBadRequest, "Log in with username and password"},
		{"empty body", nil, http.StatusBadRequest, "Log in with username and password"},
		{"wrong password", map[string]string{"username": "admin", "password": "nope"}, http.StatusUnauthorized, "Bad username or password"},
		{"wrong username", map[string]string{"username": "root", "password": "s3cret"}, http.StatusUnauthorized, "Bad username or password"},
		{"null username", `{"username":null,"password":"s3cret"}`, http.StatusUnauthorized, "Bad username or password"},
		{"null password", `{"username":"admin","password":null}`, http.StatusUnauthorized, "Bad username or password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/login", "", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.error+`"}`, w.Body.String())
		})
	}

	assert.NotEmpty(t, s.login())
}

func TestIsAdmin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/is-admin", s.login(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"msg":"Authorized"}`, w.Body.String())

	other, err := s.tokens.Issue("bob")
	require.NoError(t, err)
	w = s.do(http.MethodGet, "/api/is-admin", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/is-admin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEventLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.login()
	user, device := s.seed()

	body := []map[string]interface{}{
		{
			"dev_id":    device.DevID,
			"user_id":   user.UserID,
			"move_time": "2024-05-01T10:00:00",
			"loc_name":  strings.Repeat("l", 101),
			"company":   "Acme",
			"comment":   strings.Repeat("x", 501),
		},
		{
			// identifiers as strings, the way responses render them
			"dev_id":    "1",
			"user_id":   "1",
			"move_time": "2024-05-02T10:00:00Z",
			"loc_name":  "Dock B",
			"company":   "Acme",
			"comment":   "",
		},
	}
	w := s.do(http.MethodPost, "/api/events", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[[]models.EventResponse](t, w)
	require.Len(t, created, 2)
	assert.Len(t, created[0].LocName, 100)
	assert.Len(t, created[0].Comment, 500)
	require.NotNil(t, created[0].MoveTime)
	assert.Equal(t, "2024-05-01T10:00:00Z", *created[0].MoveTime)

	id := created[0].EventID

	w = s.do(http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]models.EventResponse](t, w)
	require.Len(t, all, 2)
	assert.Equal(t, "alice", all[0].UserName)
	assert.Equal(t, "scanner", all[0].DevName)

	w = s.do(http.MethodGet, "/api/events/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.EventResponse](t, w)
	assert.Equal(t, id, got.EventID)
	assert.Equal(t, "1", got.DevID)
	assert.Equal(t, "alice", got.UserName)

	w = s.do(http.MethodPatch, "/api/events/"+id, token, map[string]string{"loc_name": "Dock C", "comment": strings.Repeat("y", 700)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.EventResponse](t, w)
	assert.Equal(t, "Dock C", updated.LocName)
	assert.Len(t, updated.Comment, 500)
	assert.Equal(t, "Acme", updated.Company)

	w = s.do(http.MethodDelete, "/api/events/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/api/events/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/events/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateEvents_Validation(t *testing.T) {
	s := newTestServer(t)
	token := s.login()
	user, device := s.seed()

	valid := map[string]interface{}{
		"dev_id": device.DevID, "user_id": user.UserID, "move_time": "2024-05-01T10:00:00Z",
		"loc_name": "a", "company": "b", "comment": "c",
	}
	missingComment := map[string]interface{}{
		"dev_id": device.DevID, "user_id": user.UserID, "move_time": "2024-05-01T10:00:00Z",
		"loc_name": "a", "company": "b",
	}
	badTime := map[string]interface{}{
		"dev_id": device.DevID, "user_id": user.UserID, "move_time": "yesterday",
		"loc_name": "a", "company": "b", "comment": "c",
	}

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/events", token, []interface{}{valid, missingComment}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/events", token, []interface{}{badTime}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/events", token, []interface{}{}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/events", token, valid).Code)

	w := s.do(http.MethodGet, "/api/events", "", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateEvents_PersistenceFailureWritesNothing(t *testing.T) {
	s := newTestServer(t)
	token := s.login()
	user, device := s.seed()

	body := []map[string]interface{}{
		{"dev_id": device.DevID, "user_id": user.UserID, "move_time": "2024-05-01T10:00:00Z", "loc_name": "a", "company": "b", "comment": "c"},
		{"dev_id": 999, "user_id": user.UserID, "move_time": "2024-05-01T10:00:00Z", "loc_name": "a", "company": "b", "comment": "c"},
	}
	w := s.do(http.MethodPost, "/api/events", token, body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "Failed to create events")

	w = s.do(http.MethodGet, "/api/events", "", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestWritesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	other, err := s.tokens.Issue("bob")
	require.NoError(t, err)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/events"},
		{http.MethodPatch, "/api/events/1"},
		{http.MethodDelete, "/api/events/1"},
		{http.MethodPost, "/api/devices"},
		{http.MethodDelete, "/api/users/1"},
		{http.MethodGet, "/api/stats/events"},
	} {
		assert.Equal(t, http.StatusUnauthorized, s.do(tc.method, tc.path, "", nil).Code, tc.path)
		assert.Equal(t, http.StatusForbidden, s.do(tc.method, tc.path, other, nil).Code, tc.path)
	}
}

func TestDevicesAndUsers(t *testing.T) {
	s := newTestServer(t)
	token := s.login()

	w := s.do(http.MethodPost, "/api/users", token, map[string]string{"name": "alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode[map[string]interface{}](t, w)

	w = s.do(http.MethodPost, "/api/devices", token, map[string]string{"name": "scanner", "serial": "SN-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	device := decode[map[string]interface{}](t, w)

	devID := device["dev_id"]
	userID := user["user_id"]
	w = s.do(http.MethodPost, "/api/events", token, []map[string]interface{}{
		{"dev_id": devID, "user_id": userID, "move_time": "2024-05-01T10:00:00Z", "loc_name": "A", "company": "c", "comment": ""},
		{"dev_id": devID, "user_id": userID, "move_time": "2024-05-03T10:00:00Z", "loc_name": "C", "company": "c", "comment": ""},
		{"dev_id": devID, "user_id": userID, "move_time": "2024-05-02T10:00:00Z", "loc_name": "B", "company": "c", "comment": ""},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/devices/1/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]models.EventResponse](t, w)
	require.Len(t, history, 3)
	assert.Equal(t, "C", history[0].LocName)
	assert.Equal(t, "A", history[2].LocName)

	w = s.do(http.MethodGet, "/api/devices/1/events/latest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	latest := decode[models.EventResponse](t, w)
	assert.Equal(t, "C", latest.LocName)
	assert.Equal(t, "scanner", latest.DevName)

	w = s.do(http.MethodGet, "/api/stats/events", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"dev_id":"1","dev_name":"scanner","event_count":3,
		"oldest_move_time":"2024-05-01T10:00:00Z","newest_move_time":"2024-05-03T10:00:00Z"}]`, w.Body.String())

	w = s.do(http.MethodPatch, "/api/devices/1", token, map[string]string{"name": "scanner-2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "scanner-2", decode[map[string]interface{}](t, w)["name"])

	w = s.do(http.MethodPatch, "/api/users/1", token, map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Deleting the device cascades to its events.
	w = s.do(http.MethodDelete, "/api/devices/1", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/events", "", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/devices/1", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/devices/1/events/latest", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/devices/abc", "", nil).Code)

	w = s.do(http.MethodDelete, "/api/users/1", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/users", "", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAmbientRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/docs/swagger.json", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tracker_http_requests_total")
}
