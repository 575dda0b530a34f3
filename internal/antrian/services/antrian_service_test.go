package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c14220110/poliklinik-treatment/internal/common/metrics"
	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

type listerFunc func(ctx context.Context) ([]models.QueueEntry, error)

func (f listerFunc) ListToday(ctx context.Context) ([]models.QueueEntry, error) { return f(ctx) }

type syncerFunc func(entries []models.QueueEntry) int

func (f syncerFunc) Sync(entries []models.QueueEntry) int { return f(entries) }

func TestAntrianServiceRefresh(t *testing.T) {
	synced := 0
	svc := NewAntrianService(
		listerFunc(func(context.Context) ([]models.QueueEntry, error) { return queue(3), nil }),
		NewReconciler(),
		syncerFunc(func(entries []models.QueueEntry) int { synced = len(entries); return 0 }),
		metrics.New(),
		nil,
	)

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 3)
	assert.Equal(t, 3, synced)
}

func TestAntrianServiceRefreshErrorKeepsList(t *testing.T) {
	r := NewReconciler()
	r.SetList(queue(2))
	svc := NewAntrianService(
		listerFunc(func(context.Context) ([]models.QueueEntry, error) { return nil, errors.New("db down") }),
		r, nil, nil, nil,
	)

	_, err := svc.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, r.Len())
}
