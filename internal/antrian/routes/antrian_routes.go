package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/c14220110/poliklinik-treatment/internal/antrian/controllers"
	"github.com/c14220110/poliklinik-treatment/internal/common/middlewares"
)

// PrivilegeBatalAntrian adalah privilege yang dibutuhkan untuk membatalkan antrian.
const PrivilegeBatalAntrian = 12

// RegisterAntrianRoutes menghubungkan endpoint daftar antrian ruang tindakan.
func RegisterAntrianRoutes(api *echo.Group, ac *controllers.AntrianController) {
	antrian := api.Group("/antrian")
	antrian.GET("", ac.GetAntrianHandler)
	antrian.POST("/refresh", ac.RefreshAntrianHandler)
	antrian.PUT("/pilih", ac.PilihAntrianHandler)
	antrian.DELETE("/batal", ac.BatalAntrianHandler, middlewares.RequirePrivilege(PrivilegeBatalAntrian))
}
