package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	kunjungan "github.com/c14220110/poliklinik-treatment/internal/kunjungan/services"
)

// JSON menulis envelope {status, message, data} yang dipakai semua endpoint.
func JSON(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// StatusFor memetakan error engine kunjungan ke status HTTP.
func StatusFor(err error) int {
	kind, ok := kunjungan.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case kunjungan.KindValidation:
		if errors.Is(err, kunjungan.ErrVisitNotFound) || errors.Is(err, kunjungan.ErrQueueEntryNotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case kunjungan.KindConsistencyRisk:
		return http.StatusConflict
	case kunjungan.KindCollaborator:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Error menulis error engine dengan status HTTP yang sesuai.
func Error(c echo.Context, err error) error {
	status := StatusFor(err)
	var data interface{}
	if kind, ok := kunjungan.KindOf(err); ok {
		data = map[string]string{"kind": kind.String()}
	}
	return JSON(c, status, err.Error(), data)
}
