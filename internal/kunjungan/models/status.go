package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status adalah status kunjungan sekaligus status antrian.
// Nilai integer-nya sama dengan kolom id_status di tabel Antrian dan Riwayat_Kunjungan.
type Status int

const (
	StatusWaiting         Status = 1 // Menunggu
	StatusInTreatment     Status = 2 // Sedang diperiksa
	StatusAwaitingPayment Status = 3 // Menunggu pembayaran
	StatusPaid            Status = 4 // Sudah dibayar
	StatusClosed          Status = 5 // Selesai / ditutup
)

var statusNames = map[Status]string{
	StatusWaiting:         "WAITING",
	StatusInTreatment:     "IN_TREATMENT",
	StatusAwaitingPayment: "AWAITING_PAYMENT",
	StatusPaid:            "PAID",
	StatusClosed:          "CLOSED",
}

// AllStatuses mengembalikan semua status dalam urutan siklus hidup.
func AllStatuses() []Status {
	return []Status{StatusWaiting, StatusInTreatment, StatusAwaitingPayment, StatusPaid, StatusClosed}
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid bernilai true hanya untuk lima status yang dikenal.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Working bernilai true untuk status yang masih boleh diedit (WAITING / IN_TREATMENT).
func (s Status) Working() bool {
	switch s {
	case StatusWaiting, StatusInTreatment:
		return true
	case StatusAwaitingPayment, StatusPaid, StatusClosed:
		return false
	}
	return false
}

// ParseStatus menerima nama status ("IN_TREATMENT", case-insensitive).
func ParseStatus(raw string) (Status, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("status tidak dikenal: %q", raw)
}

// StatusFromCode mengubah id_status dari database menjadi Status.
func StatusFromCode(code int) (Status, error) {
	s := Status(code)
	if !s.Valid() {
		return 0, fmt.Errorf("id_status tidak dikenal: %d", code)
	}
	return s, nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PaymentStatus adalah status record pembayaran milik bagian billing.
type PaymentStatus string

const (
	PaymentAwaiting PaymentStatus = "awaiting_payment"
	PaymentPaid     PaymentStatus = "paid"
)
