package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisAuditRepoCapsAndFilters(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := NewRedisAuditRepo(client, 5)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		player := "alice"
		if i%2 == 1 {
			player = "bob"
		}
		require.NoError(t, repo.Insert(ctx, &model.AuditLog{
			ID:        fmt.Sprintf("r%d", i),
			PlayerID:  player,
			Method:    "POST",
			Path:      "/v1/claims",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	stored, err := mr.ZMembers("test:audit")
	require.NoError(t, err)
	assert.Len(t, stored, 5)
	assert.True(t, mr.Exists("test:audit:player:bob"))

	all, err := repo.List(ctx, "", 0, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "r7", all[0].ID)

	alice, err := repo.List(ctx, "alice", 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, alice, 4, "per-player history has its own cap")
	assert.Equal(t, "r6", alice[0].ID)

	to := base.Add(2 * time.Minute)
	early, err := repo.List(ctx, "alice", 10, nil, &to)
	require.NoError(t, err)
	assert.Len(t, early, 2)

	from := base.Add(6 * time.Minute)
	recent, err := repo.List(ctx, "", 10, &from, nil)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	require.NoError(t, repo.Insert(ctx, nil))
}
