package models

import "fmt"

// Kind adalah jenis katalog master data.
type Kind string

const (
	KindDrug      Kind = "obat"
	KindUnit      Kind = "satuan"
	KindTypeDrug  Kind = "jenis_obat"
	KindProcedure Kind = "tindakan"
)

// ParseKind memvalidasi parameter :jenis pada route katalog.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(raw); k {
	case KindDrug, KindUnit, KindTypeDrug, KindProcedure:
		return k, nil
	}
	return "", fmt.Errorf("jenis katalog tidak dikenal: %q", raw)
}

// Record adalah bentuk umum satu entri katalog (obat, satuan, jenis obat, tindakan).
type Record struct {
	Code     string  `json:"kode"`
	Name     string  `json:"nama" validate:"required"`
	UnitName string  `json:"satuan,omitempty"`
	Price    float64 `json:"harga,omitempty" validate:"gte=0"`
}

type Drug struct {
	Record
	TypeCode string `json:"kode_jenis,omitempty"`
}

type Unit struct{ Record }

type TypeDrug struct{ Record }

type Procedure struct{ Record }
