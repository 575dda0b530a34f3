package models

import "time"

// Visit mewakili satu kunjungan pasien (VNO) di ruang tindakan.
// Visit hanya menyimpan referensi ke antrian (QueueID), bukan memiliki QueueEntry.
type Visit struct {
	VNO         string            `json:"vno"`
	HNCode      string            `json:"hncode"`
	QueueID     int64             `json:"id_antrian"`
	PatientName string            `json:"nama_pasien"`
	Status      Status            `json:"status"`
	QueueStatus Status            `json:"status_antrian"`
	Medications []MedicationOrder `json:"obat"`
	Procedures  []ProcedureOrder  `json:"tindakan"`
}

// StatusDiverged bernilai true jika status kunjungan dan status antrian tidak sama.
func (v Visit) StatusDiverged() bool {
	return v.Status != v.QueueStatus
}

// QueueEntry adalah satu baris antrian hari ini (atau antrian yang terbawa dari hari sebelumnya).
type QueueEntry struct {
	QueueID     int64     `json:"id_antrian"`
	QueueNumber int       `json:"nomor_antrian"`
	VNO         string    `json:"vno,omitempty"` // kosong sampai kunjungan dibuka
	HNCode      string    `json:"hncode"`
	PatientName string    `json:"nama_pasien"`
	ArrivedAt   time.Time `json:"waktu_datang"`
	Symptom     string    `json:"keluhan_utama"`
	Status      Status    `json:"status"`
	// VisitStatus adalah status kunjungan menurut database, 0 bila kunjungan belum dibuka.
	VisitStatus Status `json:"-"`
}

// TreatmentPatch berisi field kunjungan yang ingin diubah lewat collaborator treatment.
type TreatmentPatch struct {
	Status *Status `json:"status,omitempty"`
}
