package repository

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIdempotencyLockSaveReplay(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisIdempotencyStore(client, time.Minute)

	rec, exists := store.GetOrLock("alice:k1")
	assert.False(t, exists)
	assert.Nil(t, rec)
	assert.True(t, mr.Exists("test:idem:alice:k1"))
	assert.Equal(t, "1", mr.HGet("test:idem:alice:k1", "processing"))

	rec, exists = store.GetOrLock("alice:k1")
	require.True(t, exists)
	assert.True(t, rec.Processing)

	store.Save("alice:k1", http.StatusCreated, []byte(`{"ok":true}`))
	rec, exists = store.GetOrLock("alice:k1")
	require.True(t, exists)
	assert.False(t, rec.Processing)
	assert.Equal(t, http.StatusCreated, rec.Status)
	assert.JSONEq(t, `{"ok":true}`, string(rec.Body))

	mr.FastForward(2 * time.Minute)
	_, exists = store.GetOrLock("alice:k1")
	assert.False(t, exists, "expired key is locked afresh")
}

func TestRedisIdempotencyUnlock(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisIdempotencyStore(client, 0)

	_, exists := store.GetOrLock("bob:k")
	require.False(t, exists)
	store.Unlock("bob:k")
	_, exists = store.GetOrLock("bob:k")
	assert.False(t, exists)
}
