package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/internal/common/metrics"
	"github.com/c14220110/poliklinik-treatment/internal/katalog/models"
)

var ErrNameRequired = errors.New("nama katalog wajib diisi")

// Repository adalah penyimpanan master data katalog. KatalogStore memenuhinya.
type Repository interface {
	ListCodes(ctx context.Context, kind models.Kind) ([]string, error)
	Insert(ctx context.Context, kind models.Kind, rec models.Record) error
	FindByName(ctx context.Context, kind models.Kind, name string) (models.Record, bool, error)
}

type KatalogService struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewKatalogService(repo Repository, m *metrics.Metrics, logger *zap.Logger) *KatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KatalogService{repo: repo, metrics: m, logger: logger}
}

// NextCode menghitung kode yang akan dipakai entri berikutnya (preview untuk form).
func (s *KatalogService) NextCode(ctx context.Context, kind models.Kind) (string, error) {
	series, err := SeriesFor(kind)
	if err != nil {
		return "", err
	}
	codes, err := s.repo.ListCodes(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("gagal mengambil daftar kode %s: %w", kind, err)
	}
	return series.Next(codes)
}

// Create membuat entri katalog baru dengan kode berikutnya dalam seri.
// Bentrok kode (dua form menyimpan bersamaan) dikembalikan apa adanya sebagai ErrCodeConflict.
func (s *KatalogService) Create(ctx context.Context, kind models.Kind, rec models.Record) (models.Record, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return models.Record{}, ErrNameRequired
	}

	code, err := s.NextCode(ctx, kind)
	if err != nil {
		return models.Record{}, err
	}
	rec.Code = code

	if err := s.repo.Insert(ctx, kind, rec); err != nil {
		if errors.Is(err, ErrCodeConflict) {
			s.logger.Warn("kode katalog bentrok", zap.String("jenis", string(kind)), zap.String("kode", code))
		}
		return models.Record{}, err
	}

	s.metrics.ObserveCodeGenerated(string(kind))
	s.logger.Info("entri katalog dibuat", zap.String("jenis", string(kind)), zap.String("kode", code))
	return rec, nil
}

// EnsureProcedure mencari tindakan berdasarkan nama dan membuatnya jika belum ada.
// created bernilai true jika entri baru dibuat.
func (s *KatalogService) EnsureProcedure(ctx context.Context, name string, price float64) (rec models.Record, created bool, err error) {
	found, ok, err := s.repo.FindByName(ctx, models.KindProcedure, strings.TrimSpace(name))
	if err != nil {
		return models.Record{}, false, fmt.Errorf("gagal mencari tindakan: %w", err)
	}
	if ok {
		return found, false, nil
	}
	rec, err = s.Create(ctx, models.KindProcedure, models.Record{Name: name, Price: price})
	if err != nil {
		return models.Record{}, false, err
	}
	return rec, true, nil
}
