package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/poliklinik-treatment/internal/katalog/controllers"
)

// RegisterKatalogRoutes menghubungkan endpoint form katalog (obat, satuan, jenis obat, tindakan).
func RegisterKatalogRoutes(api *echo.Group, kc *controllers.KatalogController) {
	katalog := api.Group("/katalog")
	katalog.GET("/:jenis/next-code", kc.NextCodeHandler)
	katalog.POST("/:jenis", kc.CreateHandler)
}
