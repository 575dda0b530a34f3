package services

import (
	"errors"
	"fmt"
)

// ErrorKind mengelompokkan kegagalan engine kunjungan.
type ErrorKind int

const (
	// KindValidation: permintaan ditolak sebelum ada panggilan ke layanan lain.
	KindValidation ErrorKind = iota + 1
	// KindCollaborator: layanan lain (treatment, antrian, pembayaran) gagal atau menolak.
	KindCollaborator
	// KindConsistencyRisk: sebagian perubahan sudah tersimpan, sebagian belum.
	KindConsistencyRisk
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCollaborator:
		return "collaborator"
	case KindConsistencyRisk:
		return "consistency_risk"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	ErrIllegalTransition  = errors.New("perubahan status tidak diizinkan")
	ErrVisitLocked        = errors.New("kunjungan sudah terkunci")
	ErrNotCancellable     = errors.New("antrian tidak dapat dibatalkan")
	ErrVisitNotFound      = errors.New("kunjungan tidak ditemukan")
	ErrQueueEntryNotFound = errors.New("antrian tidak ditemukan")
	ErrLineItemNotFound   = errors.New("baris obat/tindakan tidak ditemukan")
	ErrDuplicateLineItem  = errors.New("kode sudah ada di daftar")
	ErrInvalidLineItem    = errors.New("data obat/tindakan tidak valid")
)

// FallbackMessage dipakai bila layanan gagal tanpa memberi pesan.
const FallbackMessage = "gagal menghubungi layanan"

// EngineError adalah error yang dikembalikan semua operasi engine kunjungan.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *EngineError) Unwrap() error { return e.Err }

func validationError(sentinel error, message string) *EngineError {
	return &EngineError{Kind: KindValidation, Message: message, Err: sentinel}
}

// collaboratorError membangun error dari hasil pemanggilan layanan lain.
// Pesan dari layanan didahulukan; jika kosong dipakai FallbackMessage.
func collaboratorError(kind ErrorKind, res Result, err error) *EngineError {
	msg := res.Message
	if msg == "" {
		msg = FallbackMessage
	}
	return &EngineError{Kind: kind, Message: msg, Err: err}
}

// KindOf mengembalikan jenis error engine, jika err memang berasal dari engine.
func KindOf(err error) (ErrorKind, bool) {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Kind, true
	}
	return 0, false
}
