package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"csms/internal/config"
	"csms/internal/db"
	"csms/internal/httpapi"
	"csms/internal/metrics"
	"csms/internal/repo"
	"csms/internal/service"
	"csms/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer d.Close()

	chargePoints := repo.NewChargePointsRepo(d.Pool)
	statuses := repo.NewConnectorStatusRepo(d.Pool)
	transactions := repo.NewTransactionsRepo(d.Pool)
	meterValues := repo.NewMeterValuesRepo(d.Pool)
	rfid := repo.NewRfidRepo(d.Pool)
	configKeys := repo.NewConfigKeysRepo(d.Pool)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	svc := service.New(chargePoints, statuses, transactions, meterValues, rfid,
		cfg.HeartbeatInterval, cfg.StopTxPolicy, logger)
	wsServer := ws.NewServer(svc, m, logger)
	api := httpapi.NewServer(cfg, chargePoints, statuses, transactions, meterValues, configKeys, wsServer, reg)

	r := chi.NewRouter()
	r.Get("/v1/ocpp/{chargePointId}", wsServer.ServeOCPP)
	// Upgrades on any other path complete the handshake and close with 1008.
	r.NotFound(wsServer.RejectUpgrade)
	api.Routes(r)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("csms listening", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = httpServer.Shutdown(ctx2)
	logger.Info("csms shutdown complete")
}
