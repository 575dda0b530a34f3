package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/internal/antrian/services"
	"github.com/c14220110/poliklinik-treatment/internal/common/middlewares"
	"github.com/c14220110/poliklinik-treatment/internal/common/response"
	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
	kunjungan "github.com/c14220110/poliklinik-treatment/internal/kunjungan/services"
)

type AntrianController struct {
	AntrianService *services.AntrianService
	Visits         *kunjungan.VisitService
	Logger         *zap.Logger
}

func NewAntrianController(antrian *services.AntrianService, visits *kunjungan.VisitService, logger *zap.Logger) *AntrianController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AntrianController{AntrianService: antrian, Visits: visits, Logger: logger}
}

type pilihRequest struct {
	IDAntrian int64 `json:"id_antrian" validate:"required"`
}

func (ac *AntrianController) snapshotData(snap services.Snapshot) map[string]interface{} {
	selected, ok := snap.Selected()
	var terpilih interface{}
	if ok {
		terpilih = selected
	}
	return map[string]interface{}{
		"antrian":        snap.Entries,
		"tampil":         snap.Visible,
		"selected_index": snap.SelectedIndex,
		"terpilih":       terpilih,
		"cari":           snap.Term,
		"divergen":       ac.AntrianService.Reconciler().Diverged(ac.Visits.Visits()),
	}
}

// GetAntrianHandler menampilkan daftar antrian. Parameter cari hanya menyaring daftar
// tampil untuk request ini; snapshot yang dikirim lewat websocket tidak ikut tersaring.
func (ac *AntrianController) GetAntrianHandler(c echo.Context) error {
	r := ac.AntrianService.Reconciler()
	return response.JSON(c, http.StatusOK, "Daftar antrian", ac.snapshotData(r.View(c.QueryParam("cari"))))
}

func (ac *AntrianController) RefreshAntrianHandler(c echo.Context) error {
	snap, err := ac.AntrianService.Refresh(c.Request().Context())
	if err != nil {
		return response.JSON(c, http.StatusInternalServerError, "Gagal memuat antrian: "+err.Error(), nil)
	}
	return response.JSON(c, http.StatusOK, "Antrian berhasil dimuat ulang", ac.snapshotData(snap))
}

// PilihAntrianHandler membuka kunjungan untuk antrian yang dipilih. Pasien yang masih
// WAITING langsung dipindah ke IN_TREATMENT.
func (ac *AntrianController) PilihAntrianHandler(c echo.Context) error {
	var req pilihRequest
	if err := c.Bind(&req); err != nil {
		return response.JSON(c, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
	}
	if err := c.Validate(&req); err != nil {
		return response.JSON(c, http.StatusBadRequest, "id_antrian harus diberikan", nil)
	}

	ctx := c.Request().Context()
	visit, err := ac.Visits.OpenVisit(ctx, req.IDAntrian)
	if err != nil {
		return response.Error(c, err)
	}

	if visit.Status == models.StatusWaiting && visit.QueueStatus == models.StatusWaiting {
		if _, err := ac.Visits.RequestStatusChange(ctx, visit.VNO, models.StatusInTreatment); err != nil {
			ac.Logger.Warn("gagal memindahkan pasien ke pemeriksaan", zap.String("vno", visit.VNO), zap.Error(err))
			return response.Error(c, err)
		}
		if visit, err = ac.Visits.Visit(visit.VNO); err != nil {
			return response.Error(c, err)
		}
	}

	ac.Logger.Info("antrian dipilih",
		zap.String("operator", middlewares.Operator(c)),
		zap.Int64("id_antrian", req.IDAntrian),
		zap.String("vno", visit.VNO),
	)
	return response.JSON(c, http.StatusOK, "Kunjungan dibuka", map[string]interface{}{
		"kunjungan": visit,
		"terkunci":  kunjungan.IsLocked(visit),
	})
}

// BatalAntrianHandler membatalkan antrian yang belum selesai diperiksa.
func (ac *AntrianController) BatalAntrianHandler(c echo.Context) error {
	idParam := c.QueryParam("id_antrian")
	if idParam == "" {
		return response.JSON(c, http.StatusBadRequest, "id_antrian parameter is required", nil)
	}
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		return response.JSON(c, http.StatusBadRequest, "id_antrian harus berupa angka", nil)
	}

	if err := ac.Visits.CancelQueueEntry(c.Request().Context(), id); err != nil {
		return response.Error(c, err)
	}
	ac.Logger.Info("antrian dibatalkan", zap.String("operator", middlewares.Operator(c)), zap.Int64("id_antrian", id))
	return response.JSON(c, http.StatusOK, "Antrian berhasil dibatalkan", ac.snapshotData(ac.AntrianService.Reconciler().Snapshot()))
}
