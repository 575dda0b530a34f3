package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
)

// TreatmentStore menyimpan kunjungan, detail obat/tindakan dan record billing di MariaDB.
type TreatmentStore struct {
	DB  *sql.DB
	now func() time.Time
}

func NewTreatmentStore(db *sql.DB) *TreatmentStore {
	return &TreatmentStore{DB: db, now: time.Now}
}

// newVNO membentuk nomor kunjungan dari tanggal dan id antrian, misalnya VN2024050100011.
func newVNO(at time.Time, queueID int64) string {
	return fmt.Sprintf("VN%s%05d", at.Format("20060102"), queueID)
}

// OpenVisit memuat kunjungan untuk antrian. Antrian yang belum punya VNO dibuatkan
// baris Riwayat_Kunjungan baru dan VNO-nya ditautkan ke Antrian.
func (s *TreatmentStore) OpenVisit(ctx context.Context, entry models.QueueEntry) (models.Visit, error) {
	visit := models.Visit{
		VNO:         entry.VNO,
		HNCode:      entry.HNCode,
		QueueID:     entry.QueueID,
		PatientName: entry.PatientName,
		QueueStatus: entry.Status,
	}

	if entry.VNO == "" {
		vno, err := s.createVisit(ctx, entry)
		if err != nil {
			return models.Visit{}, err
		}
		visit.VNO = vno
		visit.Status = entry.Status
		visit.Medications = []models.MedicationOrder{}
		visit.Procedures = []models.ProcedureOrder{}
		return visit, nil
	}

	var code int
	err := s.DB.QueryRowContext(ctx,
		`SELECT hncode, id_status FROM Riwayat_Kunjungan WHERE vno = ?`, entry.VNO,
	).Scan(&visit.HNCode, &code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Visit{}, fmt.Errorf("%w: %s", ErrVisitNotFound, entry.VNO)
		}
		return models.Visit{}, err
	}
	if visit.Status, err = models.StatusFromCode(code); err != nil {
		return models.Visit{}, err
	}

	if visit.Medications, err = s.loadMedications(ctx, entry.VNO); err != nil {
		return models.Visit{}, err
	}
	if visit.Procedures, err = s.loadProcedures(ctx, entry.VNO); err != nil {
		return models.Visit{}, err
	}
	return visit, nil
}

func (s *TreatmentStore) createVisit(ctx context.Context, entry models.QueueEntry) (string, error) {
	now := s.now()
	vno := newVNO(now, entry.QueueID)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO Riwayat_Kunjungan (vno, id_antrian, hncode, id_status, created_at) VALUES (?,?,?,?,?)`,
		vno, entry.QueueID, entry.HNCode, int(entry.Status), now,
	); err != nil {
		tx.Rollback()
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE Antrian SET vno = ? WHERE id_antrian = ?`, vno, entry.QueueID); err != nil {
		tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return vno, nil
}

func (s *TreatmentStore) loadMedications(ctx context.Context, vno string) ([]models.MedicationOrder, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT kode_obat, nama_obat, jumlah, satuan, harga, instruksi FROM Detail_Obat_Kunjungan WHERE vno = ? ORDER BY id_detail`, vno)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	meds := []models.MedicationOrder{}
	for rows.Next() {
		var m models.MedicationOrder
		var name, unit, instruction sql.NullString
		if err := rows.Scan(&m.Code, &name, &m.Quantity, &unit, &m.Price, &instruction); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		m.Name, m.UnitName, m.Instruction = name.String, unit.String, instruction.String
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

func (s *TreatmentStore) loadProcedures(ctx context.Context, vno string) ([]models.ProcedureOrder, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT kode_tindakan, nama_tindakan, jumlah, satuan, harga, instruksi FROM Detail_Tindakan_Kunjungan WHERE vno = ? ORDER BY id_detail`, vno)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	procs := []models.ProcedureOrder{}
	for rows.Next() {
		var p models.ProcedureOrder
		var name, unit, instruction sql.NullString
		if err := rows.Scan(&p.Code, &name, &p.Quantity, &unit, &p.Price, &instruction); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		p.Name, p.UnitName, p.Instruction = name.String, unit.String, instruction.String
		procs = append(procs, p)
	}
	return procs, rows.Err()
}

// UpdateTreatment menerapkan patch ke Riwayat_Kunjungan. Patch kosong tidak mengubah apa pun.
func (s *TreatmentStore) UpdateTreatment(ctx context.Context, vno string, patch models.TreatmentPatch) (Result, error) {
	if patch.Status == nil {
		return OK(), nil
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE Riwayat_Kunjungan SET id_status = ? WHERE vno = ?`, int(*patch.Status), vno)
	if err != nil {
		return Result{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Result{}, err
	}
	if affected == 0 {
		return Failed("kunjungan " + vno + " tidak ditemukan"), nil
	}
	return OK(), nil
}

// UpdatePaymentStatus membuat atau memperbarui record Billing milik kunjungan.
func (s *TreatmentStore) UpdatePaymentStatus(ctx context.Context, vno string, status models.PaymentStatus) (Result, error) {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO Billing (vno, status, created_at) VALUES (?,?,?) ON DUPLICATE KEY UPDATE status = VALUES(status)`,
		vno, string(status), s.now(),
	)
	if err != nil {
		return Result{}, err
	}
	return OK(), nil
}

// SaveLineItems mengganti seluruh detail obat dan tindakan kunjungan dalam satu transaksi.
func (s *TreatmentStore) SaveLineItems(ctx context.Context, vno string, meds []models.MedicationOrder, procs []models.ProcedureOrder) (Result, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM Detail_Obat_Kunjungan WHERE vno = ?`, vno); err != nil {
		tx.Rollback()
		return Result{}, err
	}
	for _, m := range meds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO Detail_Obat_Kunjungan (vno, kode_obat, nama_obat, jumlah, satuan, harga, instruksi) VALUES (?,?,?,?,?,?,?)`,
			vno, m.Code, m.Name, m.Quantity, m.UnitName, m.Price, m.Instruction,
		); err != nil {
			tx.Rollback()
			return Result{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM Detail_Tindakan_Kunjungan WHERE vno = ?`, vno); err != nil {
		tx.Rollback()
		return Result{}, err
	}
	for _, p := range procs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO Detail_Tindakan_Kunjungan (vno, kode_tindakan, nama_tindakan, jumlah, satuan, harga, instruksi) VALUES (?,?,?,?,?,?,?)`,
			vno, p.Code, p.Name, p.Quantity, p.UnitName, p.Price, p.Instruction,
		); err != nil {
			tx.Rollback()
			return Result{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, err
	}
	return OK(), nil
}
