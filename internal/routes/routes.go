package routes

import (
	"context"
	"database/sql"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/config"
	antrianControllers "github.com/c14220110/poliklinik-treatment/internal/antrian/controllers"
	antrianRoutes "github.com/c14220110/poliklinik-treatment/internal/antrian/routes"
	antrianServices "github.com/c14220110/poliklinik-treatment/internal/antrian/services"
	"github.com/c14220110/poliklinik-treatment/internal/common/metrics"
	"github.com/c14220110/poliklinik-treatment/internal/common/middlewares"
	katalogControllers "github.com/c14220110/poliklinik-treatment/internal/katalog/controllers"
	katalogModels "github.com/c14220110/poliklinik-treatment/internal/katalog/models"
	katalogRoutes "github.com/c14220110/poliklinik-treatment/internal/katalog/routes"
	katalogServices "github.com/c14220110/poliklinik-treatment/internal/katalog/services"
	kunjunganControllers "github.com/c14220110/poliklinik-treatment/internal/kunjungan/controllers"
	kunjunganRoutes "github.com/c14220110/poliklinik-treatment/internal/kunjungan/routes"
	kunjunganServices "github.com/c14220110/poliklinik-treatment/internal/kunjungan/services"
	"github.com/c14220110/poliklinik-treatment/pkg/utils"
	"github.com/c14220110/poliklinik-treatment/ws"
)

// App berisi dependensi yang dibuat di main.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Redis   *redis.Client // boleh nil
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Hub     *ws.Hub
}

// Init menginisialisasi semua routes ruang tindakan menggunakan Echo framework
func Init(e *echo.Echo, app App) {
	logger := app.Logger
	e.Validator = utils.NewRequestValidator()

	// Inisialisasi store MariaDB
	katalogStore := katalogServices.NewKatalogStore(app.DB)
	antrianStore := antrianServices.NewAntrianStore(app.DB)
	treatmentStore := kunjunganServices.NewTreatmentStore(app.DB)

	drugLookup := katalogServices.NewCachedLookup(katalogStore.LookupFor(katalogModels.KindDrug), app.Redis, katalogModels.KindDrug, app.Config.LookupTTL, logger)
	procedureLookup := katalogServices.NewCachedLookup(katalogStore.LookupFor(katalogModels.KindProcedure), app.Redis, katalogModels.KindProcedure, app.Config.LookupTTL, logger)

	// Inisialisasi service
	reconciler := antrianServices.NewReconciler()
	reconciler.OnChange(func(snap antrianServices.Snapshot) {
		if err := app.Hub.BroadcastJSON(ws.EventAntrianUpdate, snap); err != nil {
			logger.Warn("gagal broadcast antrian", zap.Error(err))
		}
	})

	visitService := kunjunganServices.NewVisitService(kunjunganServices.VisitDeps{
		Treatment:       treatmentStore,
		Queue:           antrianStore,
		Payment:         treatmentStore,
		Remover:         antrianStore,
		Loader:          treatmentStore,
		Saver:           treatmentStore,
		View:            reconciler,
		DrugLookup:      drugLookup,
		ProcedureLookup: procedureLookup,
		HandoffDelay:    app.Config.HandoffDelay,
		Metrics:         app.Metrics,
		Logger:          logger,
	})
	antrianService := antrianServices.NewAntrianService(antrianStore, reconciler, visitService, app.Metrics, logger)
	katalogService := katalogServices.NewKatalogService(katalogStore, app.Metrics, logger)
	handoff := kunjunganServices.NewHandoffScheduler(logger)

	// Inisialisasi controller dengan service yang sesuai
	antrianController := antrianControllers.NewAntrianController(antrianService, visitService, logger)
	kunjunganController := kunjunganControllers.NewKunjunganController(visitService, handoff, app.Hub, katalogService, logger)
	katalogController := katalogControllers.NewKatalogController(katalogService)

	e.GET("/ws", ws.ServeWS(app.Hub))
	e.GET("/metrics", echo.WrapHandler(app.Metrics.Handler()))

	// Grup API utama, semua endpoint memakai JWT
	api := e.Group("/api", middlewares.JWTMiddleware(app.Config.JWTSecret))

	antrianRoutes.RegisterAntrianRoutes(api, antrianController)
	kunjunganRoutes.RegisterKunjunganRoutes(api, kunjunganController)
	katalogRoutes.RegisterKatalogRoutes(api, katalogController)

	// Muat antrian awal; kegagalan tidak menghentikan server karena layar bisa memanggil refresh.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := antrianService.Refresh(ctx); err != nil {
		logger.Warn("antrian awal gagal dimuat", zap.Error(err))
	}
}
