package services

import (
	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

// Subsystem adalah form input klinis yang dijaga oleh kebijakan kunci.
type Subsystem string

const (
	SubsystemMedication Subsystem = "obat"
	SubsystemProcedure  Subsystem = "tindakan"
	SubsystemOrders     Subsystem = "obat/tindakan" // simpan gabungan
)

// IsLocked bernilai true bila status kunjungan atau status antriannya sudah melewati
// tahap pemeriksaan (AWAITING_PAYMENT, PAID, CLOSED). Kunjungan hanya bisa diedit
// saat keduanya WAITING atau IN_TREATMENT.
func IsLocked(v models.Visit) bool {
	return !v.Status.Working() || !v.QueueStatus.Working()
}

// IsCancellable dievaluasi terhadap status antrian itu sendiri, yang bisa tertinggal
// satu siklus dari status kunjungan.
func IsCancellable(entry models.QueueEntry) bool {
	return entry.Status.Working()
}

// CheckEditable mengembalikan ErrVisitLocked (sebagai EngineError) bila sub-form tidak boleh diubah.
func CheckEditable(v models.Visit, sub Subsystem) error {
	if IsLocked(v) {
		return validationError(ErrVisitLocked, "data "+string(sub)+" tidak dapat diubah, status kunjungan "+v.Status.String())
	}
	return nil
}
