package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shop-service/internal/auth"
	"shop-service/internal/cache"
	"shop-service/internal/config"
	"shop-service/internal/entity"
	"shop-service/internal/service"
)

const testSecret = "router-secret"

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppEnv:    config.EnvDevelopment,
		BackendID: "b1",
		JWTSecret: testSecret,
		RateLimit: 1000,
		RateBurst: 1000,
	}
	for _, m := range mutate {
		m(cfg)
	}

	dir := t.TempDir()
	for _, name := range []string{"sample.txt", "sample1.txt", "sample2.txt", "sample3.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("hello "+name), 0o600))
	}

	svc := Services{
		Users:    service.NewUserService(&memUsers{users: map[primitive.ObjectID]entity.User{}}, []byte(testSecret), time.Hour),
		Products: service.NewProductService(&memProducts{}, cache.NewMemory(8, time.Minute), nil),
		Files:    service.NewFileService(service.NewDirStore(dir)),
	}
	return &testServer{e: NewRouter(cfg, svc)}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (s *testServer) register(t *testing.T, username string) (id, token string) {
	t.Helper()
	body := `{"username":"` + username + `","email":"` + username + `@example.com","password":"secret"}`
	rec, out := s.do(t, http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return out["_id"].(string), out["token"].(string)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	id, token := s.register(t, "alice")

	rec, out := s.do(t, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"secret"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, out["_id"])
	assert.NotEmpty(t, out["token"])

	rec, out = s.do(t, http.MethodGet, "/api/auth/profile", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", out["username"])
	assert.NotContains(t, out, "password")

	rec, out = s.do(t, http.MethodPut, "/api/auth/profile", `{"username":"alicia","email":"alicia@example.com"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alicia", out["username"])
	assert.NotContains(t, out, "token")

	rec, out = s.do(t, http.MethodDelete, "/api/auth/profile", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User deleted successfully", out["message"])

	rec, out = s.do(t, http.MethodGet, "/api/auth/profile", "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", out["message"])
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice")

	rec, out := s.do(t, http.MethodPost, "/api/auth/register", `{"username":"bob"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide all required fields", out["message"])
	assert.NotEmpty(t, out["timestamp"])
	assert.NotEmpty(t, out["stack"])

	rec, out = s.do(t, http.MethodPost, "/api/auth/register", `{"username":"alice","email":"x@example.com","password":"p"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", out["message"])

	rec, out = s.do(t, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", out["message"])

	rec, out = s.do(t, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide email and password", out["message"])

	rec, out = s.do(t, http.MethodPost, "/api/auth/login", `{"email":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request payload", out["message"])
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t)

	rec, out := s.do(t, http.MethodGet, "/api/auth/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, no token", out["message"])

	rec, out = s.do(t, http.MethodGet, "/api/auth/profile", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, token failed", out["message"])

	other, err := auth.GenerateToken(primitive.NewObjectID().Hex(), []byte("another-secret"), time.Hour)
	require.NoError(t, err)
	rec, out = s.do(t, http.MethodPost, "/api/products", `{"name":"x","price":1}`, other)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized, token failed", out["message"])
}

func TestProductRoutes(t *testing.T) {
	s := newTestServer(t)
	ownerID, owner := s.register(t, "alice")
	_, stranger := s.register(t, "bob")

	rec, out := s.do(t, http.MethodPost, "/api/products", `{"name":"Lamp","price":20,"description":"desk lamp"}`, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := out["_id"].(string)
	assert.Equal(t, ownerID, out["createdBy"])

	rec, out = s.do(t, http.MethodPost, "/api/products", `{"name":"Chair"}`, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide all fields", out["message"])

	rec, _ = s.do(t, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Lamp", list[0]["name"])

	rec, out = s.do(t, http.MethodGet, "/api/products/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "desk lamp", out["description"])

	rec, out = s.do(t, http.MethodGet, "/api/products/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invalid Product Id", out["message"])

	rec, out = s.do(t, http.MethodPut, "/api/products/"+id, `{"price":30}`, stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to update this product", out["message"])

	rec, out = s.do(t, http.MethodPut, "/api/products/"+id, `{"price":30}`, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.0, out["price"])
	assert.Equal(t, "Lamp", out["name"])

	rec, out = s.do(t, http.MethodPut, "/api/products/"+id, `{"price":-2}`, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Price must be greater than zero", out["message"])

	rec, _ = s.do(t, http.MethodGet, "/api/products", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 30.0, list[0]["price"], "cached list must reflect the update")

	rec, out = s.do(t, http.MethodGet, "/api/products/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.0, out["avgPrice"])
	assert.Equal(t, 1.0, out["total"])

	rec, out = s.do(t, http.MethodDelete, "/api/products/"+id, "", stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to delete this product", out["message"])

	rec, out = s.do(t, http.MethodDelete, "/api/products/"+id, "", owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", out["message"])

	rec, out = s.do(t, http.MethodGet, "/api/products/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", out["message"])
}

func TestFileRoutes(t *testing.T) {
	s := newTestServer(t)

	rec, out := s.do(t, http.MethodGet, "/api/files/read-file", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello sample.txt", out["content"])

	rec, out = s.do(t, http.MethodGet, "/api/files/multiple-files", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	files := out["files"].([]interface{})
	require.Len(t, files, 3)
	assert.Equal(t, "sample2.txt", files[1].(map[string]interface{})["filename"])
}

func TestFileRoutes_ReadError(t *testing.T) {
	s := newTestServer(t)
	s.e.GET("/api/files/broken", NewFileHandler(service.NewFileService(service.NewDirStore(t.TempDir()))).ReadFile)

	rec, out := s.do(t, http.MethodGet, "/api/files/broken", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error reading file", out["message"])
	assert.NotEmpty(t, out["error"])
}

func TestPingAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec, out := s.do(t, http.MethodGet, "/api/ping", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello from backend b1", out["message"])

	rec, out = s.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "b1", out["backendId"])

	rec, _ = s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop_service_http_requests_total")
}

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	rec, out := s.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found - /api/nope", out["message"])
}

func TestProductionHidesStack(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.AppEnv = config.EnvProduction })

	rec, out := s.do(t, http.MethodGet, "/api/products/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, out, "stack")
	assert.NotEmpty(t, out["timestamp"])
}

func TestProductionServesClient(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>shop</html>"), 0o600))
	s := newTestServer(t, func(c *config.Config) {
		c.AppEnv = config.EnvProduction
		c.StaticDir = static
	})

	rec, _ := s.do(t, http.MethodGet, "/products/123", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop")

	rec, out := s.do(t, http.MethodGet, "/api/ping", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello from backend b1", out["message"])
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.RateLimit = 0.001
		c.RateBurst = 1
	})

	rec, _ := s.do(t, http.MethodGet, "/api/ping", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out := s.do(t, http.MethodGet, "/api/ping", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, out["message"])

	rec, _ = s.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedEmailRejected(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "alice")

	rec, out := s.do(t, http.MethodPost, "/api/auth/register", `{"username":"bob","email":"not-an-email","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide a valid email", out["message"])

	// bob was not stored, so the name is still free
	s.register(t, "bob")

	rec, out = s.do(t, http.MethodPut, "/api/auth/profile", `{"username":"alice","email":"alice-at-example"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide a valid email", out["message"])

	rec, out = s.do(t, http.MethodGet, "/api/auth/profile", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", out["email"])

	rec, out = s.do(t, http.MethodPost, "/api/auth/register", `{"username":"bob","email":"","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide all required fields", out["message"])
}

func TestPanicLoggedThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	s := newTestServer(t)
	s.e.GET("/api/boom", func(c echo.Context) error {
		panic("boom")
	})

	rec, out := s.do(t, http.MethodGet, "/api/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server Error", out["message"])

	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), `"stack"`)
}
