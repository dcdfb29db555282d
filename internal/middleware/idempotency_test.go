package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idemRouter(store IdempotencyStore, calls *int, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextPlayerKey, c.GetHeader(HeaderPlayerID))
		c.Next()
	})
	r.Use(IdempotencyMiddleware(store))
	handle := func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	}
	r.POST("/v1/shops/:pos/buy", handle)
	r.POST("/v1/claims", handle)
	return r
}

func post(r http.Handler, path, player, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set(HeaderPlayerID, player)
	req.Header.Set(HeaderIdempotencyKey, key)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyReplaysPerPlayerAndRoute(t *testing.T) {
	calls := 0
	r := idemRouter(NewInMemIdempotencyStore(time.Hour), &calls, http.StatusOK)

	first := post(r, "/v1/shops/world;1;64;1/buy", "alice", "k")
	again := post(r, "/v1/shops/world;1;64;1/buy", "alice", "k")
	assert.Equal(t, 1, calls)
	assert.Equal(t, "true", again.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), again.Body.String())

	post(r, "/v1/shops/world;1;64;1/buy", "bob", "k")
	post(r, "/v1/claims", "alice", "k")
	assert.Equal(t, 3, calls, "other player and other route are not replays")
}

func TestIdempotencyServerErrorUnlocks(t *testing.T) {
	calls := 0
	store := NewInMemIdempotencyStore(time.Hour)
	r := idemRouter(store, &calls, http.StatusServiceUnavailable)

	post(r, "/v1/claims", "alice", "k")
	post(r, "/v1/claims", "alice", "k")
	assert.Equal(t, 2, calls)
	assert.Zero(t, store.Len())
}

func TestInMemIdempotencyInProgressAndExpiry(t *testing.T) {
	store := NewInMemIdempotencyStore(20 * time.Millisecond)
	_, hit := store.GetOrLock("a")
	require.False(t, hit)
	rec, hit := store.GetOrLock("a")
	require.True(t, hit)
	assert.True(t, rec.Processing)

	time.Sleep(30 * time.Millisecond)
	_, hit = store.GetOrLock("b")
	assert.False(t, hit)
	assert.Equal(t, 1, store.Len(), "expired key swept")
}
