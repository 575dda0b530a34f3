package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/internal/common/metrics"
	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
	kunjungan "github.com/c14220110/poliklinik-treatment/internal/kunjungan/services"
)

// StatusSyncer menerima daftar antrian terbaru untuk kunjungan yang sedang dibuka.
// VisitService memenuhinya.
type StatusSyncer interface {
	Sync(entries []models.QueueEntry) int
}

// AntrianService memuat ulang daftar antrian dari database ke Reconciler.
type AntrianService struct {
	lister     kunjungan.QueueLister
	reconciler *Reconciler
	syncer     StatusSyncer
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewAntrianService(lister kunjungan.QueueLister, reconciler *Reconciler, syncer StatusSyncer, m *metrics.Metrics, logger *zap.Logger) *AntrianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AntrianService{lister: lister, reconciler: reconciler, syncer: syncer, metrics: m, logger: logger}
}

func (s *AntrianService) Reconciler() *Reconciler { return s.reconciler }

// Refresh mengganti daftar antrian dengan data terbaru dan mengembalikan snapshot-nya.
func (s *AntrianService) Refresh(ctx context.Context) (Snapshot, error) {
	entries, err := s.lister.ListToday(ctx)
	if err != nil {
		s.logger.Error("gagal memuat antrian", zap.Error(err))
		return Snapshot{}, err
	}

	s.reconciler.SetList(entries)
	s.metrics.SetQueueSize(len(entries))
	if s.syncer != nil {
		if diverged := s.syncer.Sync(entries); diverged > 0 {
			s.logger.Warn("status kunjungan dan status antrian berbeda", zap.Int("jumlah", diverged))
		}
	}
	return s.reconciler.Snapshot(), nil
}
