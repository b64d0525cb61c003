package handler

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Niraj-Kamdar/datastore/internal/cache"
	"github.com/Niraj-Kamdar/datastore/internal/config"
	"github.com/Niraj-Kamdar/datastore/internal/model"
	"github.com/Niraj-Kamdar/datastore/internal/service"
	"github.com/Niraj-Kamdar/datastore/internal/task"
	"github.com/Niraj-Kamdar/datastore/internal/transfer"
)

const (
	testEmail    = "datastore@example.com"
	testPassword = "s3cret"
)

type fakeUserRepo struct {
	users map[string]*model.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	user.ID = uuid.New()
	r.users[user.Email] = user
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type testEnv struct {
	router   *gin.Engine
	registry *task.Registry
	dataDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
	}
	logger := zap.NewNop()

	dataDir := t.TempDir()
	registry := task.NewRegistry(cache.NewMemoryStore(), time.Minute)
	engine := transfer.NewEngine(registry, 4, 10*time.Millisecond, logger)

	userService := service.NewUserService(&fakeUserRepo{users: make(map[string]*model.User)})
	_, err := userService.Register(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	taskService := service.NewTaskService(registry)
	datastoreService := service.NewDatastoreService(dataDir, registry, engine, logger)

	router := SetupRouter(
		cfg, logger, userService,
		NewUserHandler(userService),
		NewTaskHandler(taskService),
		NewFileHandler(datastoreService, logger),
	)
	return &testEnv{router: router, registry: registry, dataDir: dataDir}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.SetBasicAuth(testEmail, testPassword)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createTask(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/create_task/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CreateTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.TaskID)
	return resp.TaskID
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/create_task/", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownUserIs404(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/create_task/", nil)
	req.SetBasicAuth("nobody@example.com", "whatever")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/users/me", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, testEmail, user.Email)
}

func TestTaskControlLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask(t)

	rec := env.do(t, http.MethodPut, "/pause_task/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/pause_task/"+id, nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/resume_task/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/resume_task/"+id, nil, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodDelete, "/abort_task/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/pause_task/"+id, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/abort_task/"+id, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartFile(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestUploadEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask(t)

	body, contentType := multipartFile(t, "hello.txt", "hello world")
	rec := env.do(t, http.MethodPut, "/upload_file/"+id, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	content, err := os.ReadFile(filepath.Join(env.dataDir, testEmail, "hello.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(content))

	// a completed task id can no longer be claimed
	body, contentType = multipartFile(t, "again.txt", "x")
	rec = env.do(t, http.MethodPut, "/upload_file/"+id, body, contentType)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadConflictOnAssignedTask(t *testing.T) {
	env := newTestEnv(t)
	id := env.createTask(t)

	require.NoError(t, env.registry.Assign(context.Background(), id))

	body, contentType := multipartFile(t, "hello.txt", "hello")
	rec := env.do(t, http.MethodPut, "/upload_file/"+id, body, contentType)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestDownloadEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	dir := filepath.Join(env.dataDir, testEmail)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o644))

	id := env.createTask(t)
	rec := env.do(t, http.MethodGet, "/download_file/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), ".zip")

	data := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	require.Equal(t, "data/a.txt", zr.File[0].Name)
}

func TestDeleteEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	dir := filepath.Join(env.dataDir, testEmail)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("bye"), 0o644))

	id := env.createTask(t)
	reqBody := bytes.NewBufferString(`{"filename": "*.txt"}`)
	rec := env.do(t, http.MethodDelete, "/delete_file/"+id, reqBody, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoFileExists(t, path)
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	body := bytes.NewBufferString(`{"email": "new@example.com", "password": "pw"}`)
	req := httptest.NewRequest(http.MethodPost, "/create_user/", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body = bytes.NewBufferString(`{"email": "bogus", "password": "pw"}`)
	req = httptest.NewRequest(http.MethodPost, "/create_user/", body)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
