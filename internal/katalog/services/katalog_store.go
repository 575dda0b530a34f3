package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/c14220110/poliklinik-treatment/internal/katalog/models"
)

var ErrCodeConflict = errors.New("kode katalog sudah dipakai")

// mysqlDuplicateEntry adalah nomor error MariaDB/MySQL untuk pelanggaran primary/unique key.
const mysqlDuplicateEntry = 1062

type tableDef struct {
	table    string
	codeCol  string
	nameCol  string
	unitCol  string // boleh kosong
	priceCol string // boleh kosong
}

var tables = map[models.Kind]tableDef{
	models.KindDrug:      {table: "Obat", codeCol: "kode_obat", nameCol: "nama", unitCol: "satuan", priceCol: "harga_satuan"},
	models.KindUnit:      {table: "Satuan", codeCol: "kode_satuan", nameCol: "nama"},
	models.KindTypeDrug:  {table: "Jenis_Obat", codeCol: "kode_jenis", nameCol: "nama"},
	models.KindProcedure: {table: "Tindakan", codeCol: "kode_tindakan", nameCol: "nama", priceCol: "harga"},
}

func (t tableDef) selectColumns() string {
	cols := t.codeCol + ", " + t.nameCol
	if t.unitCol != "" {
		cols += ", " + t.unitCol
	} else {
		cols += ", ''"
	}
	if t.priceCol != "" {
		cols += ", " + t.priceCol
	} else {
		cols += ", 0"
	}
	return cols
}

// KatalogStore menyimpan master data katalog di MariaDB.
type KatalogStore struct {
	DB *sql.DB
}

func NewKatalogStore(db *sql.DB) *KatalogStore {
	return &KatalogStore{DB: db}
}

func tableFor(kind models.Kind) (tableDef, error) {
	def, ok := tables[kind]
	if !ok {
		return tableDef{}, fmt.Errorf("jenis katalog tidak dikenal: %q", kind)
	}
	return def, nil
}

// ListCodes mengambil semua kode yang saat ini ada di tabel katalog.
func (s *KatalogStore) ListCodes(ctx context.Context, kind models.Kind) ([]string, error) {
	def, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", def.codeCol, def.table))
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// Insert menulis entri baru. Primary key pada kolom kode menjadi penjaga keunikan;
// duplikat dikembalikan sebagai ErrCodeConflict.
func (s *KatalogStore) Insert(ctx context.Context, kind models.Kind, rec models.Record) error {
	def, err := tableFor(kind)
	if err != nil {
		return err
	}

	cols := []string{def.codeCol, def.nameCol}
	args := []interface{}{rec.Code, rec.Name}
	if def.unitCol != "" {
		cols = append(cols, def.unitCol)
		args = append(args, rec.UnitName)
	}
	if def.priceCol != "" {
		cols = append(cols, def.priceCol)
		args = append(args, rec.Price)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", def.table, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return fmt.Errorf("%w: %s", ErrCodeConflict, rec.Code)
		}
		return fmt.Errorf("gagal menyimpan %s: %w", kind, err)
	}
	return nil
}

// FindByCode mengambil satu entri katalog berdasarkan kode.
func (s *KatalogStore) FindByCode(ctx context.Context, kind models.Kind, code string) (models.Record, bool, error) {
	def, err := tableFor(kind)
	if err != nil {
		return models.Record{}, false, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1", def.selectColumns(), def.table, def.codeCol)
	return scanRecord(s.DB.QueryRowContext(ctx, query, code))
}

// FindByName mencari entri berdasarkan nama (case-insensitive).
func (s *KatalogStore) FindByName(ctx context.Context, kind models.Kind, name string) (models.Record, bool, error) {
	def, err := tableFor(kind)
	if err != nil {
		return models.Record{}, false, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE LOWER(%s) = LOWER(?) LIMIT 1", def.selectColumns(), def.table, def.nameCol)
	return scanRecord(s.DB.QueryRowContext(ctx, query, name))
}

// LookupFor mengembalikan Lookup untuk satu jenis katalog, dipakai oleh Enricher.
func (s *KatalogStore) LookupFor(kind models.Kind) Lookup {
	return LookupFunc(func(ctx context.Context, code string) (models.Record, bool, error) {
		return s.FindByCode(ctx, kind, code)
	})
}

func scanRecord(row *sql.Row) (models.Record, bool, error) {
	var rec models.Record
	var unit sql.NullString
	var price sql.NullFloat64
	if err := row.Scan(&rec.Code, &rec.Name, &unit, &price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, false, nil
		}
		return models.Record{}, false, err
	}
	rec.UnitName = unit.String
	rec.Price = price.Float64
	return rec, true, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
