package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/poliklinik-treatment/internal/common/response"
	"github.com/c14220110/poliklinik-treatment/internal/katalog/models"
	"github.com/c14220110/poliklinik-treatment/internal/katalog/services"
)

type KatalogController struct {
	KatalogService *services.KatalogService
}

func NewKatalogController(service *services.KatalogService) *KatalogController {
	return &KatalogController{KatalogService: service}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNameRequired):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrCodeConflict), errors.Is(err, services.ErrSeriesExhausted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// NextCodeHandler mengembalikan kode yang akan dipakai entri katalog berikutnya.
func (kc *KatalogController) NextCodeHandler(c echo.Context) error {
	kind, err := models.ParseKind(c.Param("jenis"))
	if err != nil {
		return response.JSON(c, http.StatusBadRequest, err.Error(), nil)
	}
	code, err := kc.KatalogService.NextCode(c.Request().Context(), kind)
	if err != nil {
		return response.JSON(c, statusFor(err), err.Error(), nil)
	}
	return response.JSON(c, http.StatusOK, "Kode berikutnya", map[string]string{"kode": code})
}

func (kc *KatalogController) CreateHandler(c echo.Context) error {
	kind, err := models.ParseKind(c.Param("jenis"))
	if err != nil {
		return response.JSON(c, http.StatusBadRequest, err.Error(), nil)
	}
	var rec models.Record
	if err := c.Bind(&rec); err != nil {
		return response.JSON(c, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
	}
	if err := c.Validate(&rec); err != nil {
		return response.JSON(c, http.StatusBadRequest, "Validasi gagal: "+err.Error(), nil)
	}

	created, err := kc.KatalogService.Create(c.Request().Context(), kind, rec)
	if err != nil {
		return response.JSON(c, statusFor(err), "Gagal menyimpan "+string(kind)+": "+err.Error(), nil)
	}
	return response.JSON(c, http.StatusCreated, string(kind)+" berhasil ditambahkan", created)
}
