package services

import (
	"context"

	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

// Result adalah balasan {success, message} dari layanan lain.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK membuat Result sukses.
func OK() Result { return Result{Success: true} }

// Failed membuat Result gagal dengan pesan.
func Failed(message string) Result { return Result{Message: message} }

func failed(res Result, err error) bool {
	return err != nil || !res.Success
}

type TreatmentUpdater interface {
	UpdateTreatment(ctx context.Context, vno string, patch models.TreatmentPatch) (Result, error)
}

// QueueUpdater mengubah status antrian; server ikut menyalin status ke kunjungan terkait.
type QueueUpdater interface {
	UpdateQueueStatus(ctx context.Context, queueID int64, status models.Status) (Result, error)
}

type PaymentUpdater interface {
	UpdatePaymentStatus(ctx context.Context, vno string, status models.PaymentStatus) (Result, error)
}

type QueueRemover interface {
	RemoveQueue(ctx context.Context, queueID int64) (Result, error)
}

// LineItemSaver menyimpan seluruh daftar obat dan tindakan milik satu kunjungan.
type LineItemSaver interface {
	SaveLineItems(ctx context.Context, vno string, meds []models.MedicationOrder, procs []models.ProcedureOrder) (Result, error)
}

// VisitLoader membuka (atau membuat) kunjungan untuk satu antrian.
type VisitLoader interface {
	OpenVisit(ctx context.Context, entry models.QueueEntry) (models.Visit, error)
}

type QueueLister interface {
	ListToday(ctx context.Context) ([]models.QueueEntry, error)
}

// QueueView adalah bagian dari daftar antrian yang dibutuhkan VisitService.
// Reconciler di paket antrian memenuhinya.
type QueueView interface {
	Entry(queueID int64) (models.QueueEntry, bool)
	Remove(queueID int64) bool
	UpdateStatus(queueID int64, status models.Status) bool
	AttachVisit(queueID int64, vno string) bool
	SelectQueueID(queueID int64) bool
}
