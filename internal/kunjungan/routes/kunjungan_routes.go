package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/poliklinik-treatment/internal/kunjungan/controllers"
)

// RegisterKunjunganRoutes menghubungkan endpoint kunjungan, obat dan tindakan.
func RegisterKunjunganRoutes(api *echo.Group, kc *controllers.KunjunganController) {
	kunjungan := api.Group("/kunjungan")
	kunjungan.GET("", kc.GetKunjunganHandler)
	kunjungan.PUT("/status", kc.UpdateStatusHandler)
	kunjungan.POST("/obat", kc.AddObatHandler)
	kunjungan.PUT("/obat", kc.UpdateObatHandler)
	kunjungan.DELETE("/obat", kc.DeleteObatHandler)
	kunjungan.POST("/tindakan", kc.AddTindakanHandler)
	kunjungan.PUT("/tindakan", kc.UpdateTindakanHandler)
	kunjungan.DELETE("/tindakan", kc.DeleteTindakanHandler)
	kunjungan.POST("/simpan", kc.SimpanHandler)
}
