package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/internal/common/middlewares"
	"github.com/c14220110/poliklinik-treatment/internal/common/response"
	katalogModels "github.com/c14220110/poliklinik-treatment/internal/katalog/models"
	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/models"
	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/services"
	"github.com/c14220110/poliklinik-treatment/ws"
)

// Broadcaster mengirim event ke layar yang terhubung lewat websocket.
type Broadcaster interface {
	BroadcastJSON(eventType string, data interface{}) error
}

// ProcedureCatalog membuat kode tindakan baru bila nama tindakan belum ada di katalog.
type ProcedureCatalog interface {
	EnsureProcedure(ctx context.Context, name string, price float64) (katalogModels.Record, bool, error)
}

type KunjunganController struct {
	Visits  *services.VisitService
	Handoff *services.HandoffScheduler
	Hub     Broadcaster
	Katalog ProcedureCatalog
	Logger  *zap.Logger
}

func NewKunjunganController(visits *services.VisitService, handoff *services.HandoffScheduler, hub Broadcaster, katalog ProcedureCatalog, logger *zap.Logger) *KunjunganController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KunjunganController{Visits: visits, Handoff: handoff, Hub: hub, Katalog: katalog, Logger: logger}
}

type statusRequest struct {
	VNO    string        `json:"vno" validate:"required"`
	Status models.Status `json:"status" validate:"required"`
}

type medicationRequest struct {
	VNO  string                 `json:"vno" validate:"required"`
	Obat models.MedicationOrder `json:"obat"`
}

type procedureRequest struct {
	VNO      string                `json:"vno" validate:"required"`
	Tindakan models.ProcedureOrder `json:"tindakan"`
}

type saveRequest struct {
	VNO string `json:"vno" validate:"required"`
}

func badRequest(c echo.Context, message string) error {
	return response.JSON(c, http.StatusBadRequest, message, nil)
}

// bind membaca body lalu memvalidasinya dengan validator echo. Bila ok bernilai false,
// respons 400 sudah ditulis dan err adalah hasil penulisannya.
func bind(c echo.Context, req interface{}) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "Invalid request body: "+err.Error())
	}
	if err := c.Validate(req); err != nil {
		return false, badRequest(c, "Validasi gagal: "+err.Error())
	}
	return true, nil
}

// respondVisit mengembalikan kunjungan terbaru setelah operasi berhasil.
func (kc *KunjunganController) respondVisit(c echo.Context, vno, message string) error {
	visit, err := kc.Visits.Visit(vno)
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, http.StatusOK, message, visit)
}

// GetKunjunganHandler menampilkan kunjungan yang sedang dibuka beserta obat/tindakannya.
func (kc *KunjunganController) GetKunjunganHandler(c echo.Context) error {
	vno := c.QueryParam("vno")
	if vno == "" {
		return badRequest(c, "vno parameter is required")
	}
	visit, err := kc.Visits.Visit(vno)
	if err != nil {
		return response.Error(c, err)
	}
	return response.JSON(c, http.StatusOK, "Kunjungan ditemukan", map[string]interface{}{
		"kunjungan":    visit,
		"terkunci":     services.IsLocked(visit),
		"divergen":     visit.StatusDiverged(),
		"belum_simpan": kc.Visits.Orders().Pending(vno),
	})
}

// UpdateStatusHandler menjalankan perubahan status. Setelah "selesai pemeriksaan" berhasil,
// perpindahan ke billing dijadwalkan dan dikirim lewat websocket.
func (kc *KunjunganController) UpdateStatusHandler(c echo.Context) error {
	var req statusRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	tr, err := kc.Visits.RequestStatusChange(c.Request().Context(), req.VNO, req.Status)
	kc.Logger.Info("permintaan status kunjungan",
		zap.String("operator", middlewares.Operator(c)),
		zap.String("vno", req.VNO),
		zap.Stringer("target", req.Status),
		zap.Error(err),
	)
	if err != nil {
		return response.Error(c, err)
	}

	data := map[string]interface{}{"transisi": tr}
	if tr.Handoff && kc.Handoff != nil {
		vno := tr.VNO
		task := kc.Handoff.Schedule(vno, tr.HandoffDelay, func() {
			if err := kc.Hub.BroadcastJSON(ws.EventNavigateBilling, map[string]string{"vno": vno}); err != nil {
				kc.Logger.Warn("gagal mengirim navigate_billing", zap.String("vno", vno), zap.Error(err))
			}
		})
		data["handoff_id"] = task.ID
	}
	return response.JSON(c, http.StatusOK, "Status kunjungan berhasil diubah", data)
}

func (kc *KunjunganController) AddObatHandler(c echo.Context) error {
	var req medicationRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := kc.Visits.Orders().AddMedication(req.VNO, req.Obat); err != nil {
		return response.Error(c, err)
	}
	return kc.respondVisit(c, req.VNO, "Obat berhasil ditambahkan")
}

func (kc *KunjunganController) UpdateObatHandler(c echo.Context) error {
	var req medicationRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := kc.Visits.Orders().UpdateMedication(req.VNO, req.Obat); err != nil {
		return response.Error(c, err)
	}
	return kc.respondVisit(c, req.VNO, "Obat berhasil diubah")
}

func (kc *KunjunganController) DeleteObatHandler(c echo.Context) error {
	vno, kode := c.QueryParam("vno"), c.QueryParam("kode")
	if vno == "" || kode == "" {
		return badRequest(c, "vno dan kode harus diberikan")
	}
	if err := kc.Visits.Orders().DeleteMedication(vno, kode); err != nil {
		return response.Error(c, err)
	}
	return kc.respondVisit(c, vno, "Obat berhasil dihapus")
}

// AddTindakanHandler menambah tindakan. Tindakan tanpa kode tetapi dengan nama dicari
// di katalog dan dibuatkan kode bila belum ada.
func (kc *KunjunganController) AddTindakanHandler(c echo.Context) error {
	var req procedureRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if strings.TrimSpace(req.Tindakan.Code) == "" && strings.TrimSpace(req.Tindakan.Name) != "" && kc.Katalog != nil {
		// kode baru hanya dibuat untuk kunjungan yang sedang dibuka dan belum terkunci
		v, err := kc.Visits.Visit(req.VNO)
		if err != nil {
			return response.Error(c, err)
		}
		if err := services.CheckEditable(v, services.SubsystemProcedure); err != nil {
			return response.Error(c, err)
		}
		rec, created, err := kc.Katalog.EnsureProcedure(c.Request().Context(), req.Tindakan.Name, req.Tindakan.Price)
		if err != nil {
			return response.JSON(c, http.StatusInternalServerError, "Gagal membuat kode tindakan: "+err.Error(), nil)
		}
		req.Tindakan.Code = rec.Code
		if req.Tindakan.Price == 0 {
			req.Tindakan.Price = rec.Price
		}
		kc.Logger.Info("tindakan dari katalog", zap.String("kode", rec.Code), zap.Bool("baru", created))
	}

	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validasi gagal: "+err.Error())
	}
	if err := kc.Visits.Orders().AddProcedure(req.VNO, req.Tindakan); err != nil {
		return response.Error(c, err)
	}
	return kc.respondVisit(c, req.VNO, "Tindakan berhasil ditambahkan")
}

func (kc *KunjunganController) UpdateTindakanHandler(c echo.Context) error {
	var req procedureRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := kc.Visits.Orders().UpdateProcedure(req.VNO, req.Tindakan); err != nil {
		return response.Error(c, err)
	}
	return kc.respondVisit(c, req.VNO, "Tindakan berhasil diubah")
}

func (kc *KunjunganController) DeleteTindakanHandler(c echo.Context) error {
	vno, kode := c.QueryParam("vno"), c.QueryParam("kode")
	if vno == "" || kode == "" {
		return badRequest(c, "vno dan kode harus diberikan")
	}
	if err := kc.Visits.Orders().DeleteProcedure(vno, kode); err != nil {
		return response.Error(c, err)
	}
	return kc.respondVisit(c, vno, "Tindakan berhasil dihapus")
}

// SimpanHandler menyimpan obat dan tindakan yang belum tersimpan.
func (kc *KunjunganController) SimpanHandler(c echo.Context) error {
	var req saveRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := kc.Visits.Orders().Save(c.Request().Context(), req.VNO); err != nil {
		return response.Error(c, err)
	}
	return kc.respondVisit(c, req.VNO, "Obat dan tindakan berhasil disimpan")
}
