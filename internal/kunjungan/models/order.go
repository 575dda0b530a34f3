package models

// MedicationOrder adalah satu baris resep obat pada kunjungan.
type MedicationOrder struct {
	Code        string  `json:"kode_obat" validate:"required"`
	Name        string  `json:"nama_obat"`
	Quantity    int     `json:"jumlah" validate:"gt=0"`
	UnitName    string  `json:"satuan"`
	Price       float64 `json:"harga" validate:"gte=0"`
	Instruction string  `json:"instruksi"`
}

// ProcedureOrder adalah satu baris tindakan pada kunjungan.
type ProcedureOrder struct {
	Code        string  `json:"kode_tindakan" validate:"required"`
	Name        string  `json:"nama_tindakan"`
	Quantity    int     `json:"jumlah" validate:"gt=0"`
	UnitName    string  `json:"satuan"`
	Price       float64 `json:"harga" validate:"gte=0"`
	Instruction string  `json:"instruksi"`
}

// Total menghitung harga total satu baris obat.
func (m MedicationOrder) Total() float64 { return float64(m.Quantity) * m.Price }

func (p ProcedureOrder) Total() float64 { return float64(p.Quantity) * p.Price }
