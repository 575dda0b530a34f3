package services

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/internal/common/metrics"
	katalogModels "github.com/c14220110/poliklinik-treatment/internal/katalog/models"
	katalogServices "github.com/c14220110/poliklinik-treatment/internal/katalog/services"
	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

// draft adalah daftar obat dan tindakan satu kunjungan yang sedang diedit.
// revision naik setiap kali daftar berubah; dirty berarti ada perubahan yang belum tersimpan.
type draft struct {
	meds     []models.MedicationOrder
	procs    []models.ProcedureOrder
	revision int
	dirty    bool
}

// OrderService memegang form resep obat dan tindakan per kunjungan.
// Semua mutasi diperiksa dulu terhadap kebijakan kunci.
type OrderService struct {
	mu     sync.Mutex
	drafts map[string]*draft

	visit     func(vno string) (models.Visit, bool)
	saver     LineItemSaver
	drugs     *katalogServices.Enricher
	procedure *katalogServices.Enricher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func newOrderService(visit func(string) (models.Visit, bool), saver LineItemSaver, drugs, procs *katalogServices.Enricher, m *metrics.Metrics, logger *zap.Logger) *OrderService {
	return &OrderService{
		drafts:    make(map[string]*draft),
		visit:     visit,
		saver:     saver,
		drugs:     drugs,
		procedure: procs,
		metrics:   m,
		logger:    logger,
	}
}

func medicationCode(m models.MedicationOrder) string { return m.Code }

func procedureCode(p models.ProcedureOrder) string { return p.Code }

// LoadSaved mengisi draft dari baris yang sudah tersimpan: duplikat kode dibuang
// dan nama yang rusak diperbaiki dari katalog.
func (s *OrderService) LoadSaved(ctx context.Context, vno string, meds []models.MedicationOrder, procs []models.ProcedureOrder) {
	meds = katalogServices.MergeUnique(meds, medicationCode)
	procs = katalogServices.MergeUnique(procs, procedureCode)

	if s.drugs != nil {
		for i := range meds {
			rec := s.drugs.Enrich(ctx, katalogModels.Record{Code: meds[i].Code, Name: meds[i].Name, UnitName: meds[i].UnitName})
			meds[i].Name, meds[i].UnitName = rec.Name, rec.UnitName
		}
	}
	if s.procedure != nil {
		for i := range procs {
			rec := s.procedure.Enrich(ctx, katalogModels.Record{Code: procs[i].Code, Name: procs[i].Name, UnitName: procs[i].UnitName})
			procs[i].Name, procs[i].UnitName = rec.Name, rec.UnitName
		}
	}

	s.mu.Lock()
	s.drafts[vno] = &draft{meds: meds, procs: procs}
	s.mu.Unlock()
}

// Items mengembalikan salinan daftar obat dan tindakan saat ini (tersimpan maupun belum).
func (s *OrderService) Items(vno string) ([]models.MedicationOrder, []models.ProcedureOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[vno]
	if !ok {
		return []models.MedicationOrder{}, []models.ProcedureOrder{}
	}
	return append([]models.MedicationOrder{}, d.meds...), append([]models.ProcedureOrder{}, d.procs...)
}

// Pending bernilai true bila ada perubahan yang belum disimpan.
func (s *OrderService) Pending(vno string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[vno]
	return ok && d.dirty
}

func (s *OrderService) forget(vno string) {
	s.mu.Lock()
	delete(s.drafts, vno)
	s.mu.Unlock()
}

// editable memeriksa kunjungan ada dan belum terkunci.
func (s *OrderService) editable(vno string, sub Subsystem, op string) error {
	v, ok := s.visit(vno)
	if !ok {
		return validationError(ErrVisitNotFound, "kunjungan "+vno+" belum dibuka")
	}
	if err := CheckEditable(v, sub); err != nil {
		s.metrics.ObserveLockRejection(op)
		return err
	}
	return nil
}

func (s *OrderService) mutate(vno string, fn func(d *draft) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[vno]
	if !ok {
		d = &draft{}
		s.drafts[vno] = d
	}
	if err := fn(d); err != nil {
		return err
	}
	d.revision++
	d.dirty = true
	return nil
}

func validMedication(m models.MedicationOrder) error {
	if strings.TrimSpace(m.Code) == "" || m.Quantity <= 0 || m.Price < 0 {
		return validationError(ErrInvalidLineItem, "kode obat wajib diisi dan jumlah harus lebih dari 0")
	}
	return nil
}

func validProcedure(p models.ProcedureOrder) error {
	if strings.TrimSpace(p.Code) == "" || p.Quantity <= 0 || p.Price < 0 {
		return validationError(ErrInvalidLineItem, "kode tindakan wajib diisi dan jumlah harus lebih dari 0")
	}
	return nil
}

func (s *OrderService) AddMedication(vno string, item models.MedicationOrder) error {
	if err := s.editable(vno, SubsystemMedication, "tambah_obat"); err != nil {
		return err
	}
	if err := validMedication(item); err != nil {
		return err
	}
	return s.mutate(vno, func(d *draft) (err error) {
		d.meds, err = addItem(d.meds, item, medicationCode)
		return err
	})
}

func (s *OrderService) UpdateMedication(vno string, item models.MedicationOrder) error {
	if err := s.editable(vno, SubsystemMedication, "ubah_obat"); err != nil {
		return err
	}
	if err := validMedication(item); err != nil {
		return err
	}
	return s.mutate(vno, func(d *draft) (err error) {
		d.meds, err = replaceItem(d.meds, item, medicationCode)
		return err
	})
}

func (s *OrderService) DeleteMedication(vno, code string) error {
	if err := s.editable(vno, SubsystemMedication, "hapus_obat"); err != nil {
		return err
	}
	return s.mutate(vno, func(d *draft) (err error) {
		d.meds, err = deleteItem(d.meds, code, medicationCode)
		return err
	})
}

func (s *OrderService) AddProcedure(vno string, item models.ProcedureOrder) error {
	if err := s.editable(vno, SubsystemProcedure, "tambah_tindakan"); err != nil {
		return err
	}
	if err := validProcedure(item); err != nil {
		return err
	}
	return s.mutate(vno, func(d *draft) (err error) {
		d.procs, err = addItem(d.procs, item, procedureCode)
		return err
	})
}

func (s *OrderService) UpdateProcedure(vno string, item models.ProcedureOrder) error {
	if err := s.editable(vno, SubsystemProcedure, "ubah_tindakan"); err != nil {
		return err
	}
	if err := validProcedure(item); err != nil {
		return err
	}
	return s.mutate(vno, func(d *draft) (err error) {
		d.procs, err = replaceItem(d.procs, item, procedureCode)
		return err
	})
}

func (s *OrderService) DeleteProcedure(vno, code string) error {
	if err := s.editable(vno, SubsystemProcedure, "hapus_tindakan"); err != nil {
		return err
	}
	return s.mutate(vno, func(d *draft) (err error) {
		d.procs, err = deleteItem(d.procs, code, procedureCode)
		return err
	})
}

// Save menyimpan draft lewat tombol simpan. Kunjungan yang terkunci ditolak.
func (s *OrderService) Save(ctx context.Context, vno string) error {
	if err := s.editable(vno, SubsystemOrders, "simpan"); err != nil {
		return err
	}
	_, err := s.Flush(ctx, vno)
	return err
}

// Flush menyimpan perubahan yang belum tersimpan. flushed bernilai true bila
// saver benar-benar dipanggil dan berhasil. Tanpa perubahan, saver tidak dipanggil.
func (s *OrderService) Flush(ctx context.Context, vno string) (flushed bool, err error) {
	s.mu.Lock()
	d, ok := s.drafts[vno]
	if !ok || !d.dirty {
		s.mu.Unlock()
		return false, nil
	}
	meds := append([]models.MedicationOrder{}, d.meds...)
	procs := append([]models.ProcedureOrder{}, d.procs...)
	revision := d.revision
	s.mu.Unlock()

	res, callErr := s.saver.SaveLineItems(ctx, vno, meds, procs)
	if failed(res, callErr) {
		s.logger.Warn("gagal menyimpan obat/tindakan",
			zap.String("vno", vno), zap.String("message", res.Message), zap.Error(callErr))
		return false, collaboratorError(KindCollaborator, res, callErr)
	}

	s.mu.Lock()
	if d, ok := s.drafts[vno]; ok && d.revision == revision {
		d.dirty = false
	}
	s.mu.Unlock()
	return true, nil
}

func addItem[T any](items []T, item T, key func(T) string) ([]T, error) {
	for _, existing := range items {
		if key(existing) == key(item) {
			return items, validationError(ErrDuplicateLineItem, "kode "+key(item)+" sudah ada di daftar")
		}
	}
	return append(items, item), nil
}

func replaceItem[T any](items []T, item T, key func(T) string) ([]T, error) {
	for i, existing := range items {
		if key(existing) == key(item) {
			items[i] = item
			return items, nil
		}
	}
	return items, validationError(ErrLineItemNotFound, "kode "+key(item)+" tidak ada di daftar")
}

func deleteItem[T any](items []T, code string, key func(T) string) ([]T, error) {
	for i, existing := range items {
		if key(existing) == code {
			return append(items[:i], items[i+1:]...), nil
		}
	}
	return items, validationError(ErrLineItemNotFound, "kode "+code+" tidak ada di daftar")
}
