package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/config"
	"github.com/c14220110/poliklinik-treatment/internal/common/metrics"
	"github.com/c14220110/poliklinik-treatment/internal/routes"
	"github.com/c14220110/poliklinik-treatment/pkg/logger"
	"github.com/c14220110/poliklinik-treatment/pkg/storage/mariadb"
	"github.com/c14220110/poliklinik-treatment/pkg/storage/redis"
	"github.com/c14220110/poliklinik-treatment/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Menjalankan HTTP server ruang tindakan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg := config.LoadConfig()

	l, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer l.Sync()

	db, err := mariadb.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := redis.Connect(cfg)
	if err != nil {
		// Tanpa Redis katalog tetap bisa dibaca langsung dari MariaDB.
		l.Warn("redis tidak tersedia, cache katalog dimatikan", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(l)
	go hub.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(logger.EchoMiddleware(l))

	routes.Init(e, routes.App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Logger:  l,
		Metrics: metrics.New(),
		Hub:     hub,
	})

	go func() {
		l.Info("server berjalan", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server berhenti", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
