package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/c14220110/poliklinik-treatment/internal/katalog/models"
)

var (
	ErrInvalidWidth    = errors.New("lebar nomor kode harus lebih dari 0")
	ErrSeriesExhausted = errors.New("seri kode sudah habis")
)

// Series adalah pasangan prefix dan lebar nomor untuk satu katalog.
type Series struct {
	Prefix string
	Width  int
}

var (
	DrugSeries      = Series{Prefix: "D", Width: 4}
	UnitSeries      = Series{Prefix: "U", Width: 3}
	TypeDrugSeries  = Series{Prefix: "TD", Width: 3}
	ProcedureSeries = Series{Prefix: "P", Width: 3}
)

// SeriesFor mengembalikan seri kode untuk jenis katalog.
func SeriesFor(kind models.Kind) (Series, error) {
	switch kind {
	case models.KindDrug:
		return DrugSeries, nil
	case models.KindUnit:
		return UnitSeries, nil
	case models.KindTypeDrug:
		return TypeDrugSeries, nil
	case models.KindProcedure:
		return ProcedureSeries, nil
	}
	return Series{}, fmt.Errorf("jenis katalog tidak dikenal: %q", kind)
}

// Next menghitung kode berikutnya dari snapshot kode yang ada.
func (s Series) Next(existing []string) (string, error) {
	return NextCode(existing, s.Prefix, s.Width)
}

// Matches bernilai true jika code mengikuti pola PREFIX + width digit.
func (s Series) Matches(code string) bool {
	return codePattern(s.Prefix, s.Width).MatchString(code)
}

type patternKey struct {
	prefix string
	width  int
}

// patterns menyimpan regexp yang sudah dikompilasi per pasangan prefix dan lebar.
var patterns sync.Map

func codePattern(prefix string, width int) *regexp.Regexp {
	key := patternKey{prefix: prefix, width: width}
	if re, ok := patterns.Load(key); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(fmt.Sprintf(`^%s\d{%d}$`, regexp.QuoteMeta(prefix), width))
	actual, _ := patterns.LoadOrStore(key, re)
	return actual.(*regexp.Regexp)
}

// NextCode mengembalikan kode berikutnya dalam seri prefix+nomor berlebar tetap.
//   - kode yang tidak cocok dengan ^PREFIX\d{width}$ diabaikan
//   - kosong -> PREFIX + "0..01"
//   - selain itu -> PREFIX + (max+1), dipad dengan nol
//
// Nomor yang kosong di tengah (karena dihapus) tidak diisi ulang. Hasilnya hanya benar
// terhadap snapshot yang diberikan; dua pemanggil bersamaan bisa mendapat kode yang sama.
func NextCode(existing []string, prefix string, width int) (string, error) {
	if width <= 0 {
		return "", ErrInvalidWidth
	}
	pattern := codePattern(prefix, width)

	highest := 0
	for _, code := range existing {
		if !pattern.MatchString(code) {
			continue
		}
		n, err := strconv.Atoi(code[len(prefix):])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}

	next := fmt.Sprintf("%s%0*d", prefix, width, highest+1)
	if len(next) != len(prefix)+width {
		return "", fmt.Errorf("%w: %s sudah mencapai %s", ErrSeriesExhausted, prefix, existingMax(prefix, width))
	}
	return next, nil
}

func existingMax(prefix string, width int) string {
	digits := make([]byte, width)
	for i := range digits {
		digits[i] = '9'
	}
	return prefix + string(digits)
}
