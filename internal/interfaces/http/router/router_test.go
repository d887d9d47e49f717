package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingRegistrar struct{}

func (pingRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))
	r.Register(pingRegistrar{})
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v2/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(pingRegistrar{})
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterGroupMiddleware(t *testing.T) {
	engine := gin.New()
	guard := func(c *gin.Context) {
		if c.GetHeader("X-Token") != "secret" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}

	// The callback route registered on the bare engine stays unguarded.
	engine.GET("/callback", func(c *gin.Context) {
		c.String(http.StatusOK, "public")
	})

	r := NewRouter(engine, WithGroupMiddleware(guard))
	r.Register(pingRegistrar{})
	r.Setup()

	t.Run("guarded group rejects without a token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/ping", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("guarded group accepts with a token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/ping", nil)
		req.Header.Set("X-Token", "secret")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("routes outside the group bypass the middleware", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/callback", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRouterFallbacks(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register(pingRegistrar{})
	r.Setup()

	t.Run("unknown route returns JSON 404", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/nope", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
	})

	t.Run("wrong method returns JSON 405", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/ping", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
