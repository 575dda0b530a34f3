package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/internal/common/metrics"
	katalogServices "github.com/c14220110/poliklinik-treatment/internal/katalog/services"
	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

// Transition adalah hasil perubahan status yang berhasil.
// Handoff bernilai true bila pemanggil perlu menjadwalkan perpindahan ke billing.
type Transition struct {
	VNO          string        `json:"vno"`
	From         models.Status `json:"dari"`
	To           models.Status `json:"ke"`
	Handoff      bool          `json:"handoff"`
	HandoffDelay time.Duration `json:"-"`
}

// VisitDeps mengumpulkan layanan yang dipakai VisitService.
type VisitDeps struct {
	Treatment TreatmentUpdater
	Queue     QueueUpdater
	Payment   PaymentUpdater
	Remover   QueueRemover
	Loader    VisitLoader
	Saver     LineItemSaver
	View      QueueView

	// DrugLookup dan ProcedureLookup boleh nil; tanpa lookup, nama tidak diperbaiki.
	DrugLookup      katalogServices.Lookup
	ProcedureLookup katalogServices.Lookup

	HandoffDelay time.Duration
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// VisitService adalah state machine kunjungan ruang tindakan. Map kunjungan hanya
// dijaga mutex untuk keamanan memori; permintaan status untuk VNO yang sama tidak
// diserialisasi dan panggilan ke layanan lain dilakukan di luar lock.
type VisitService struct {
	mu     sync.Mutex
	visits map[string]*models.Visit

	treatment    TreatmentUpdater
	queue        QueueUpdater
	payment      PaymentUpdater
	remover      QueueRemover
	loader       VisitLoader
	view         QueueView
	orders       *OrderService
	handoffDelay time.Duration
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewVisitService(deps VisitDeps) *VisitService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &VisitService{
		visits:       make(map[string]*models.Visit),
		treatment:    deps.Treatment,
		queue:        deps.Queue,
		payment:      deps.Payment,
		remover:      deps.Remover,
		loader:       deps.Loader,
		view:         deps.View,
		handoffDelay: deps.HandoffDelay,
		metrics:      deps.Metrics,
		logger:       logger,
	}

	var drugs, procs *katalogServices.Enricher
	if deps.DrugLookup != nil {
		drugs = katalogServices.NewEnricher(deps.DrugLookup, logger)
	}
	if deps.ProcedureLookup != nil {
		procs = katalogServices.NewEnricher(deps.ProcedureLookup, logger)
	}
	s.orders = newOrderService(s.lookup, deps.Saver, drugs, procs, deps.Metrics, logger)
	return s
}

// Orders mengembalikan form obat/tindakan yang terikat ke kunjungan di service ini.
func (s *VisitService) Orders() *OrderService { return s.orders }

func (s *VisitService) lookup(vno string) (models.Visit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.visits[vno]
	if !ok {
		return models.Visit{}, false
	}
	return *v, true
}

// Visit mengembalikan salinan kunjungan beserta daftar obat/tindakan terkini.
func (s *VisitService) Visit(vno string) (models.Visit, error) {
	v, ok := s.lookup(vno)
	if !ok {
		return models.Visit{}, validationError(ErrVisitNotFound, "kunjungan "+vno+" belum dibuka")
	}
	v.Medications, v.Procedures = s.orders.Items(vno)
	return v, nil
}

// Visits mengembalikan salinan semua kunjungan yang sedang dibuka, urut VNO.
func (s *VisitService) Visits() []models.Visit {
	s.mu.Lock()
	out := make([]models.Visit, 0, len(s.visits))
	for _, v := range s.visits {
		out = append(out, *v)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].VNO < out[j].VNO })
	return out
}

// OpenVisit memuat kunjungan untuk satu antrian, mendaftarkannya ke workspace
// dan memilih antrian tersebut di daftar.
func (s *VisitService) OpenVisit(ctx context.Context, queueID int64) (models.Visit, error) {
	entry, ok := s.view.Entry(queueID)
	if !ok {
		return models.Visit{}, validationError(ErrQueueEntryNotFound, "antrian tidak ditemukan")
	}
	if entry.VNO != "" {
		if _, open := s.lookup(entry.VNO); open {
			// draft yang belum tersimpan tidak boleh tertimpa data dari database
			s.view.SelectQueueID(queueID)
			return s.Visit(entry.VNO)
		}
	}

	visit, err := s.loader.OpenVisit(ctx, entry)
	if err != nil {
		s.logger.Error("gagal membuka kunjungan", zap.Int64("id_antrian", queueID), zap.Error(err))
		return models.Visit{}, collaboratorError(KindCollaborator, Result{}, err)
	}
	if visit.QueueID == 0 {
		visit.QueueID = entry.QueueID
	}
	if visit.QueueStatus == 0 {
		visit.QueueStatus = entry.Status
	}
	if visit.Status == 0 {
		visit.Status = entry.Status
	}

	s.orders.LoadSaved(ctx, visit.VNO, visit.Medications, visit.Procedures)
	visit.Medications, visit.Procedures = nil, nil

	s.mu.Lock()
	stored := visit
	s.visits[visit.VNO] = &stored
	s.mu.Unlock()

	s.view.AttachVisit(queueID, visit.VNO)
	s.view.SelectQueueID(queueID)

	s.logger.Info("kunjungan dibuka", zap.String("vno", visit.VNO), zap.Int64("id_antrian", queueID),
		zap.Stringer("status", visit.Status), zap.Stringer("status_antrian", visit.QueueStatus))
	return s.Visit(visit.VNO)
}

// legalTarget memeriksa target dari status yang sedang berjalan. Kunjungan yang
// terkunci sudah ditolak sebelumnya, jadi from di sini selalu status kerja.
func legalTarget(from, to models.Status) bool {
	switch to {
	case models.StatusWaiting, models.StatusInTreatment, models.StatusAwaitingPayment:
		return from.Working()
	case models.StatusPaid, models.StatusClosed:
		// diatur oleh billing, bukan oleh ruang tindakan
		return false
	}
	return false
}

// RequestStatusChange mengubah status kunjungan.
//
// Target AWAITING_PAYMENT dijalankan dua fase:
//  1. obat/tindakan yang belum tersimpan di-flush; gagal berarti tidak ada yang berubah
//  2. status treatment lalu status antrian diubah; status di memori baru berubah
//     setelah keduanya berhasil, kemudian record pembayaran dibuat
//
// Target lain hanya memanggil QueueUpdater, yang menyalin status ke kunjungan di server.
func (s *VisitService) RequestStatusChange(ctx context.Context, vno string, target models.Status) (Transition, error) {
	visit, ok := s.lookup(vno)
	if !ok {
		return Transition{}, validationError(ErrVisitNotFound, "kunjungan "+vno+" belum dibuka")
	}
	from := visit.Status

	if IsLocked(visit) {
		s.metrics.ObserveTransition(from.String(), target.String(), "locked")
		return Transition{}, validationError(ErrVisitLocked, "status kunjungan "+from.String()+" tidak dapat diubah")
	}
	if !target.Valid() || !legalTarget(from, target) {
		s.metrics.ObserveTransition(from.String(), target.String(), "illegal")
		return Transition{}, validationError(ErrIllegalTransition, "tidak dapat mengubah status dari "+from.String()+" ke "+target.String())
	}

	var (
		tr  Transition
		err error
	)
	if target == models.StatusAwaitingPayment {
		tr, err = s.completeTreatment(ctx, visit)
	} else {
		tr, err = s.changeQueueStatus(ctx, visit, target)
	}

	result := "ok"
	if kind, isEngine := KindOf(err); isEngine {
		result = kind.String()
	}
	s.metrics.ObserveTransition(from.String(), target.String(), result)
	return tr, err
}

func (s *VisitService) completeTreatment(ctx context.Context, visit models.Visit) (Transition, error) {
	target := models.StatusAwaitingPayment
	logger := s.logger.With(zap.String("vno", visit.VNO), zap.Int64("id_antrian", visit.QueueID))

	flushed, err := s.orders.Flush(ctx, visit.VNO)
	if err != nil {
		logger.Warn("selesai pemeriksaan dibatalkan, obat/tindakan gagal disimpan", zap.Error(err))
		return Transition{}, err
	}

	// Gagal di fase ini berarti obat/tindakan mungkin sudah tersimpan tetapi status belum maju.
	phase2Kind := KindCollaborator
	if flushed {
		phase2Kind = KindConsistencyRisk
	}

	res, callErr := s.treatment.UpdateTreatment(ctx, visit.VNO, models.TreatmentPatch{Status: &target})
	if failed(res, callErr) {
		logger.Error("gagal mengubah status treatment", zap.String("message", res.Message), zap.Error(callErr))
		return Transition{}, collaboratorError(phase2Kind, res, callErr)
	}

	res, callErr = s.queue.UpdateQueueStatus(ctx, visit.QueueID, target)
	if failed(res, callErr) {
		// status treatment sudah maju, status antrian belum
		logger.Error("gagal mengubah status antrian setelah treatment diubah", zap.String("message", res.Message), zap.Error(callErr))
		return Transition{}, collaboratorError(KindConsistencyRisk, res, callErr)
	}

	s.apply(visit.VNO, target, target)

	tr := Transition{VNO: visit.VNO, From: visit.Status, To: target}
	res, callErr = s.payment.UpdatePaymentStatus(ctx, visit.VNO, models.PaymentAwaiting)
	if failed(res, callErr) {
		logger.Error("status sudah menunggu pembayaran tetapi record pembayaran gagal diubah",
			zap.String("message", res.Message), zap.Error(callErr))
		return tr, collaboratorError(KindConsistencyRisk, res, callErr)
	}

	tr.Handoff = true
	tr.HandoffDelay = s.handoffDelay
	logger.Info("pemeriksaan selesai", zap.Bool("flushed", flushed))
	return tr, nil
}

func (s *VisitService) changeQueueStatus(ctx context.Context, visit models.Visit, target models.Status) (Transition, error) {
	res, err := s.queue.UpdateQueueStatus(ctx, visit.QueueID, target)
	if failed(res, err) {
		s.logger.Warn("gagal mengubah status antrian",
			zap.String("vno", visit.VNO), zap.Stringer("target", target), zap.String("message", res.Message), zap.Error(err))
		return Transition{}, collaboratorError(KindCollaborator, res, err)
	}
	s.apply(visit.VNO, target, target)
	return Transition{VNO: visit.VNO, From: visit.Status, To: target}, nil
}

// terminal bernilai true untuk status milik billing yang tidak boleh mundur lagi.
func terminal(s models.Status) bool {
	return s == models.StatusPaid || s == models.StatusClosed
}

// advance mengembalikan status yang dipakai setelah menerima next. Status PAID/CLOSED
// tidak pernah turun; next yang lebih rendah diabaikan dan regressed bernilai true.
func advance(cur, next models.Status) (result models.Status, regressed bool) {
	if next == 0 {
		return cur, false
	}
	if terminal(cur) && next < cur {
		return cur, true
	}
	return next, false
}

// apply menulis status ke kunjungan di memori dan ke entri antrian terkait.
func (s *VisitService) apply(vno string, status, queueStatus models.Status) {
	s.mu.Lock()
	v, ok := s.visits[vno]
	var (
		queueID            int64
		statusRegressed    bool
		queueRegressed     bool
		effectiveQueue     models.Status
		currentStatus      models.Status
		currentQueueStatus models.Status
	)
	if ok {
		currentStatus, currentQueueStatus = v.Status, v.QueueStatus
		v.Status, statusRegressed = advance(v.Status, status)
		v.QueueStatus, queueRegressed = advance(v.QueueStatus, queueStatus)
		queueID, effectiveQueue = v.QueueID, v.QueueStatus
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if statusRegressed || queueRegressed {
		s.metrics.ObserveTransition(currentStatus.String(), "stale", "regression_ignored")
		s.logger.Warn("status lama dari server diabaikan, kunjungan sudah PAID/CLOSED",
			zap.String("vno", vno),
			zap.Stringer("status", currentStatus), zap.Stringer("status_antrian", currentQueueStatus),
			zap.Stringer("status_masuk", status), zap.Stringer("status_antrian_masuk", queueStatus))
	}
	if queueStatus != 0 {
		s.view.UpdateStatus(queueID, effectiveQueue)
	}
}

// ObserveStatus mencatat status yang diubah pihak lain (misalnya billing menandai PAID).
// Nilai 0 berarti field tersebut tidak berubah.
func (s *VisitService) ObserveStatus(vno string, status, queueStatus models.Status) error {
	if (status != 0 && !status.Valid()) || (queueStatus != 0 && !queueStatus.Valid()) {
		return validationError(ErrIllegalTransition, "status tidak dikenal")
	}
	if _, ok := s.lookup(vno); !ok {
		return validationError(ErrVisitNotFound, "kunjungan "+vno+" belum dibuka")
	}
	s.apply(vno, status, queueStatus)
	return nil
}

// CancelQueueEntry menghapus antrian (beserta kunjungannya) dari workspace.
// Ini bukan perubahan status: baris antrian dihapus, bukan ditandai CLOSED.
func (s *VisitService) CancelQueueEntry(ctx context.Context, queueID int64) error {
	entry, ok := s.view.Entry(queueID)
	if !ok {
		s.metrics.ObserveCancellation("not_found")
		return validationError(ErrQueueEntryNotFound, "antrian tidak ditemukan")
	}
	if !IsCancellable(entry) {
		s.metrics.ObserveCancellation("rejected")
		return validationError(ErrNotCancellable, "antrian dengan status "+entry.Status.String()+" tidak dapat dibatalkan")
	}

	res, err := s.remover.RemoveQueue(ctx, queueID)
	if failed(res, err) {
		s.metrics.ObserveCancellation("failed")
		s.logger.Warn("gagal membatalkan antrian", zap.Int64("id_antrian", queueID), zap.String("message", res.Message), zap.Error(err))
		return collaboratorError(KindCollaborator, res, err)
	}

	s.view.Remove(queueID)

	s.mu.Lock()
	var removed []string
	for vno, v := range s.visits {
		if v.QueueID == queueID {
			delete(s.visits, vno)
			removed = append(removed, vno)
		}
	}
	s.mu.Unlock()
	for _, vno := range removed {
		s.orders.forget(vno)
	}

	s.metrics.ObserveCancellation("ok")
	s.logger.Info("antrian dibatalkan", zap.Int64("id_antrian", queueID), zap.Strings("vno", removed))
	return nil
}

// Sync mencatat status terbaru dari daftar antrian yang baru dimuat ulang untuk
// kunjungan yang sedang dibuka, lalu mengembalikan jumlah kunjungan yang statusnya berbeda.
func (s *VisitService) Sync(entries []models.QueueEntry) int {
	for _, e := range entries {
		if e.VNO == "" {
			continue
		}
		if _, ok := s.lookup(e.VNO); !ok {
			continue
		}
		if err := s.ObserveStatus(e.VNO, e.VisitStatus, e.Status); err != nil {
			s.logger.Warn("status antrian dari server tidak dapat dicatat",
				zap.String("vno", e.VNO), zap.Int64("id_antrian", e.QueueID), zap.Error(err))
		}
	}

	diverged := 0
	for _, v := range s.Visits() {
		if v.StatusDiverged() {
			diverged++
		}
	}
	s.metrics.SetDiverged(diverged)
	return diverged
}
