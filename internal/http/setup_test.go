package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal"
	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/auth"
	"github.com/darglk/chairai-sub002/internal/config"
	"github.com/darglk/chairai-sub002/internal/database"
	"github.com/darglk/chairai-sub002/internal/images"
	"github.com/darglk/chairai-sub002/internal/pkg/ratelimit"
	"github.com/darglk/chairai-sub002/internal/server"
	"github.com/darglk/chairai-sub002/internal/storage"
)

const (
	testPassword         = "sturdy-password-1"
	testRateLimit        = 3
	testRateWindowSecond = 60
)

// stubGenerator satisfies images.Generator without calling any upstream API.
type stubGenerator struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (*images.GenerationOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail != nil {
		return nil, g.fail
	}
	return &images.GenerationOutput{
		Data:  []byte("png bytes for " + prompt),
		Model: "dall-e-3",
		Size:  "1024x1024",
	}, nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *stubGenerator) failWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}

type testAPI struct {
	app       *fiber.App
	db        *gorm.DB
	store     *storage.MemoryStore
	generator *stubGenerator
}

// newTestAPI builds the full application against a temporary database, an
// in-memory object store and a stubbed image generator, with every route
// mounted.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.Config{
		AppName:               "chairai",
		Environment:           config.EnvironmentTest,
		SessionSecret:         "test-session-secret",
		SessionTimeoutSeconds: 3600,
		DataDirectory:         t.TempDir(),
		DatabasePath:          filepath.Join(t.TempDir(), "api-test.db"),
		MaxUploadSizeMB:       10,
		ImageGen: config.ImageGenConfig{
			RateLimit:         testRateLimit,
			RateWindowSeconds: testRateWindowSecond,
		},
		Storage: config.StorageConfig{Driver: config.StorageDriverMemory},
	}

	auth.Initialize(cfg)

	logger := zap.NewNop()
	manager := database.NewManager(cfg, logger)
	db, err := manager.Connect()
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedSpecializations(db))

	store := storage.NewMemoryStore("")
	generator := &stubGenerator{}

	srvCfg := server.DefaultConfig()
	srvCfg.Config = cfg
	srvCfg.Logger = logger
	srvCfg.DBManager = manager
	srvCfg.Services = &server.Services{
		Images:     images.NewService(logger, generator, store),
		Store:      store,
		ImageQuota: ratelimit.NewQuota(ratelimit.NewLimiter(), cfg.ImageGen.RateLimit, cfg.ImageGenRateWindow()),
	}
	srvCfg.EnableRequestLogger = false

	srv, err := server.NewServer(srvCfg)
	require.NoError(t, err)
	internal.MountRoutes(srv)

	return &testAPI{app: srv.App(), db: db, store: store, generator: generator}
}

func (api *testAPI) request(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return req
}

func withSession(req *http.Request, session string) *http.Request {
	if session != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: session})
	}
	return req
}

func sessionCookie(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == auth.SessionCookieName {
			return cookie.Value
		}
	}
	return ""
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

// register creates an account through the API and returns its session value.
func (api *testAPI) register(t *testing.T, email, role string) string {
	t.Helper()
	display := strings.SplitN(email, "@", 2)[0]
	resp := api.request(t, jsonRequest(t, fiber.MethodPost, "/api/v1/auth/register", fiber.Map{
		"email":        email,
		"password":     testPassword,
		"display_name": display,
		"role":         role,
	}))
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	session := sessionCookie(resp)
	require.NotEmpty(t, session)
	return session
}

func (api *testAPI) userID(t *testing.T, email string) uint {
	t.Helper()
	user, err := accounts.FindByEmail(api.db, email)
	require.NoError(t, err)
	return user.ID
}

func (api *testAPI) createProject(t *testing.T, session, title string) string {
	t.Helper()
	resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects", fiber.Map{
		"title":        title,
		"description":  "Commission built from a generated concept image.",
		"budget_cents": 180000,
	}), session))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	project, ok := body["project"].(map[string]any)
	require.True(t, ok)
	publicID, ok := project["public_id"].(string)
	require.True(t, ok)
	return publicID
}

func (api *testAPI) submitProposal(t *testing.T, session, publicID string) uint {
	t.Helper()
	resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+publicID+"/proposals", fiber.Map{
		"message":        "I can build this in my workshop.",
		"price_cents":    150000,
		"estimated_days": 30,
	}), session))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	proposal, ok := body["proposal"].(map[string]any)
	require.True(t, ok)
	id, ok := proposal["id"].(float64)
	require.True(t, ok)
	return uint(id)
}

func (api *testAPI) acceptProposal(t *testing.T, session string, proposalID uint) {
	t.Helper()
	resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, fmt.Sprintf("/api/v1/proposals/%d/accept", proposalID), nil), session))
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func (api *testAPI) completeProject(t *testing.T, session, publicID string) {
	t.Helper()
	resp := api.request(t, withSession(jsonRequest(t, fiber.MethodPost, "/api/v1/projects/"+publicID+"/complete", nil), session))
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, httptest.NewRequest(fiber.MethodGet, "/_health", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])

	head := api.request(t, httptest.NewRequest(fiber.MethodHead, "/_health", nil))
	defer head.Body.Close()
	assert.Equal(t, fiber.StatusOK, head.StatusCode)
}

func TestCrossSiteRequestBlocking(t *testing.T) {
	api := newTestAPI(t)

	t.Run("state-changing routes reject cross-site callers", func(t *testing.T) {
		req := jsonRequest(t, fiber.MethodPost, "/api/v1/auth/logout", nil)
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		resp := api.request(t, req)
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "cross-site request blocked", body["error"])
	})

	t.Run("same-origin callers pass", func(t *testing.T) {
		req := jsonRequest(t, fiber.MethodPost, "/api/v1/auth/logout", nil)
		req.Header.Set("Sec-Fetch-Site", "same-origin")
		resp := api.request(t, req)
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("reads are exempt", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/api/v1/projects", nil)
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		resp := api.request(t, req)
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("generation endpoint accepts cross-site callers", func(t *testing.T) {
		req := jsonRequest(t, fiber.MethodPost, "/api/v1/images/generations", fiber.Map{"prompt": "an oak stool"})
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		req.Header.Set("X-Forwarded-For", "198.51.100.77")
		resp := api.request(t, req)
		defer resp.Body.Close()
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
