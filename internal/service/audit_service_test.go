package service

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAuditRepo struct{}

func (failingAuditRepo) Insert(context.Context, *model.AuditLog) error { return errStoreDown }
func (failingAuditRepo) List(context.Context, string, int, *time.Time, *time.Time) ([]*model.AuditLog, error) {
	return nil, errors.New("down")
}

func TestAuditBufferRingNewestFirst(t *testing.T) {
	b := newAuditBuffer(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []string{"a", "b", "a", "a"} {
		b.Add(&model.AuditLog{ID: string(rune('1' + i)), PlayerID: p, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	all := b.List("", 0, nil, nil)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"4", "3", "2"}, []string{all[0].ID, all[1].ID, all[2].ID})

	onlyA := b.List("a", 10, nil, nil)
	assert.Len(t, onlyA, 2)

	from := base.Add(3 * time.Minute)
	assert.Len(t, b.List("", 10, &from, nil), 1)
}

func TestAuditServiceWritesFileAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewAuditService(dir, failingAuditRepo{})
	require.NoError(t, err)

	svc.Log(&model.AuditLog{ID: "r1", PlayerID: "alice", Method: "POST", Path: "/v1/shops", CreatedAt: time.Now()})
	svc.Log(&model.AuditLog{ID: "r2", PlayerID: "bob", Method: "POST", Path: "/v1/claims", CreatedAt: time.Now()})

	got, err := svc.List(context.Background(), "alice", 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)

	svc.Close()
	svc.Close()

	files, err := filepath.Glob(filepath.Join(dir, "audit-*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()
	lines := 0
	for sc := bufio.NewScanner(f); sc.Scan(); {
		lines++
	}
	assert.Equal(t, 2, lines)
}
