package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
	kunjungan "github.com/c14220110/poliklinik-treatment/internal/kunjungan/services"
)

// AntrianStore membaca dan mengubah tabel Antrian di MariaDB.
type AntrianStore struct {
	DB *sql.DB
}

func NewAntrianStore(db *sql.DB) *AntrianStore {
	return &AntrianStore{DB: db}
}

// ListToday mengambil antrian ruang tindakan: semua antrian hari ini yang belum dibayar,
// ditambah antrian hari sebelumnya yang masih menunggu atau sedang diperiksa.
func (s *AntrianStore) ListToday(ctx context.Context) ([]models.QueueEntry, error) {
	query := `
		SELECT a.id_antrian, a.nomor_antrian, COALESCE(a.vno, ''), a.hncode, p.nama,
		       a.created_at, COALESCE(a.keluhan_utama, ''), a.id_status, COALESCE(rk.id_status, 0)
		FROM Antrian a
		JOIN Pasien p ON a.hncode = p.hncode
		LEFT JOIN Riwayat_Kunjungan rk ON rk.vno = a.vno
		WHERE a.id_status IN (1, 2, 3)
		  AND (DATE(a.created_at) = CURDATE() OR a.id_status IN (1, 2))
		ORDER BY a.nomor_antrian ASC
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	entries := []models.QueueEntry{}
	for rows.Next() {
		var e models.QueueEntry
		var status, visitStatus int
		if err := rows.Scan(&e.QueueID, &e.QueueNumber, &e.VNO, &e.HNCode, &e.PatientName,
			&e.ArrivedAt, &e.Symptom, &status, &visitStatus); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if e.Status, err = models.StatusFromCode(status); err != nil {
			return nil, err
		}
		if visitStatus != 0 {
			if e.VisitStatus, err = models.StatusFromCode(visitStatus); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateQueueStatus mengubah id_status antrian dan menyalinnya ke Riwayat_Kunjungan
// dalam satu transaksi.
func (s *AntrianStore) UpdateQueueStatus(ctx context.Context, queueID int64, status models.Status) (kunjungan.Result, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return kunjungan.Result{}, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE Antrian SET id_status = ? WHERE id_antrian = ?`, int(status), queueID)
	if err != nil {
		tx.Rollback()
		return kunjungan.Result{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return kunjungan.Result{}, err
	}
	if affected == 0 {
		tx.Rollback()
		return kunjungan.Failed(fmt.Sprintf("antrian dengan id %d tidak ditemukan", queueID)), nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE Riwayat_Kunjungan SET id_status = ? WHERE id_antrian = ?`, int(status), queueID); err != nil {
		tx.Rollback()
		return kunjungan.Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return kunjungan.Result{}, err
	}
	return kunjungan.OK(), nil
}

// RemoveQueue menghapus antrian beserta kunjungan dan detail obat/tindakannya.
func (s *AntrianStore) RemoveQueue(ctx context.Context, queueID int64) (kunjungan.Result, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return kunjungan.Result{}, err
	}

	statements := []string{
		`DELETE FROM Detail_Obat_Kunjungan WHERE vno IN (SELECT vno FROM Riwayat_Kunjungan WHERE id_antrian = ?)`,
		`DELETE FROM Detail_Tindakan_Kunjungan WHERE vno IN (SELECT vno FROM Riwayat_Kunjungan WHERE id_antrian = ?)`,
		`DELETE FROM Riwayat_Kunjungan WHERE id_antrian = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, queueID); err != nil {
			tx.Rollback()
			return kunjungan.Result{}, err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM Antrian WHERE id_antrian = ? AND id_status IN (1, 2)`, queueID)
	if err != nil {
		tx.Rollback()
		return kunjungan.Result{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return kunjungan.Result{}, err
	}
	if affected == 0 {
		tx.Rollback()
		return kunjungan.Failed("antrian tidak ditemukan atau sudah tidak dapat dibatalkan"), nil
	}

	if err := tx.Commit(); err != nil {
		return kunjungan.Result{}, err
	}
	return kunjungan.OK(), nil
}
