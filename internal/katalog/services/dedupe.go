package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/internal/katalog/models"
)

// MergeUnique membuang duplikat berdasarkan key; record pertama yang menang
// dan urutan relatif dipertahankan.
func MergeUnique[T any](records []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(records))
	out := make([]T, 0, len(records))
	for _, r := range records {
		k := key(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Lookup mencari entri katalog berdasarkan kode.
type Lookup interface {
	LookupByCode(ctx context.Context, code string) (models.Record, bool, error)
}

// LookupFunc mengadaptasi fungsi biasa menjadi Lookup.
type LookupFunc func(ctx context.Context, code string) (models.Record, bool, error)

func (f LookupFunc) LookupByCode(ctx context.Context, code string) (models.Record, bool, error) {
	return f(ctx, code)
}

// DefaultPlaceholderTokens adalah kata pengisi yang dipakai form lama saat nama belum diketahui,
// contohnya "Drug D0012" atau "Procedure P004".
var DefaultPlaceholderTokens = []string{"Drug", "Procedure", "Unit"}

// Enricher memperbaiki field nama yang dicurigai rusak dengan bertanya ke Lookup.
type Enricher struct {
	Lookup Lookup
	Tokens []string
	Logger *zap.Logger
}

func NewEnricher(lookup Lookup, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{Lookup: lookup, Tokens: DefaultPlaceholderTokens, Logger: logger}
}

// Suspect bernilai true jika nilai kosong atau diawali token pengisi + spasi.
// Ini heuristik, bukan jaminan bahwa datanya memang rusak.
func (e *Enricher) Suspect(value string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	for _, token := range e.Tokens {
		if strings.HasPrefix(value, token+" ") {
			return true
		}
	}
	return false
}

// Enrich mengganti field Name/UnitName yang dicurigai dengan nilai dari katalog.
// Field yang tidak dicurigai tidak disentuh walaupun katalog berbeda. Jika lookup gagal
// atau hasilnya juga mencurigakan, nilai asli tetap dipakai.
func (e *Enricher) Enrich(ctx context.Context, rec models.Record) models.Record {
	nameSuspect := e.Suspect(rec.Name)
	unitSuspect := e.Suspect(rec.UnitName)
	if (!nameSuspect && !unitSuspect) || rec.Code == "" || e.Lookup == nil {
		return rec
	}

	found, ok, err := e.Lookup.LookupByCode(ctx, rec.Code)
	if err != nil {
		e.Logger.Warn("lookup katalog gagal, nilai asli dipakai",
			zap.String("kode", rec.Code), zap.Error(err))
		return rec
	}
	if !ok {
		return rec
	}

	if nameSuspect && !e.Suspect(found.Name) {
		rec.Name = found.Name
	}
	if unitSuspect && !e.Suspect(found.UnitName) {
		rec.UnitName = found.UnitName
	}
	return rec
}

// EnrichAll menjalankan Enrich untuk setiap record.
func (e *Enricher) EnrichAll(ctx context.Context, recs []models.Record) []models.Record {
	out := make([]models.Record, len(recs))
	for i, r := range recs {
		out[i] = e.Enrich(ctx, r)
	}
	return out
}
