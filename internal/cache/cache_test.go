package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)

	c.Set("k", []byte("payload"))
	data, found := c.Get("k")
	assert.True(t, found)
	assert.Equal(t, []byte("payload"), data)

	_, found = c.Get("missing")
	assert.False(t, found)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10 * time.Millisecond)

	c.Set("k", []byte("payload"))
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get("k")
	assert.False(t, found)
}

func TestCacheMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCache(time.Minute)

	calls := 0
	r := gin.New()
	r.Use(c.Middleware("/api/v1/reputation"))
	r.GET("/api/v1/reputation/:claimant", func(ctx *gin.Context) {
		calls++
		ctx.JSON(http.StatusOK, gin.H{"claimant": ctx.Param("claimant")})
	})
	r.GET("/api/v1/claims/x", func(ctx *gin.Context) {
		calls++
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	first := get("/api/v1/reputation/alice")
	second := get("/api/v1/reputation/alice")
	assert.Equal(t, 1, calls, "second hit must come from cache")
	assert.Equal(t, first.Body.String(), second.Body.String())

	get("/api/v1/reputation/bob")
	assert.Equal(t, 2, calls, "different claimant is a different key")

	get("/api/v1/claims/x")
	get("/api/v1/claims/x")
	assert.Equal(t, 4, calls, "paths outside the prefix bypass the cache")
}
