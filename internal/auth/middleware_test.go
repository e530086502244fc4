package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"telecrm/internal/config"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, mw gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", mw, func(c *gin.Context) {
		role, _ := Role(c.Request.Context())
		c.String(http.StatusOK, role)
	})
	return r
}

func TestOptionalAccessToken_PassesWithoutHeader(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})
	r := newTestRouter(t, OptionalAccessToken(m))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("expected anonymous pass-through, got %d %q", w.Code, w.Body.String())
	}
}

func TestOptionalAccessToken_AttachesRole(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})
	tok, _ := m.Issue(time.Now(), "u", "sysadmin")
	r := newTestRouter(t, OptionalAccessToken(m))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "sysadmin" {
		t.Fatalf("expected role attached, got %d %q", w.Code, w.Body.String())
	}
}

func TestOptionalAccessToken_RejectsGarbage(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})
	r := newTestRouter(t, OptionalAccessToken(m))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer nope")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireAccessToken_MissingHeader(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})
	r := newTestRouter(t, RequireAccessToken(m))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
