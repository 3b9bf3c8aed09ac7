package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/cache"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/config"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/service"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage/minio"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage/mongo"
	grpcsrv "github.com/pribylovaa/go-videotube/accounts-service/internal/transport/grpc"
	httpapi "github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/handlers"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/middleware"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

//go:generate swag init --dir ../../ --generalInfo cmd/accounts-service/main.go --output ../../docs --parseInternal

// @title accounts-service API
// @version 1.0.0
// @description User accounts, token sessions, channel profiles and watch history.
// @BasePath /api/v1/users
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting accounts-service", "env", cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключения к зависимостям с таймаутом.
	initCtx, initCancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer initCancel()

	st, err := mongo.New(initCtx, cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(ctx); err != nil {
			log.Warn("mongo_close_failed", slog.String("err", err.Error()))
		}
	}()
	log.Info("mongo_connected")

	media, err := minio.New(initCtx, cfg.S3, cfg.Media)
	if err != nil {
		return err
	}
	log.Info("s3_connected", slog.String("bucket", cfg.S3.Bucket))

	svc := service.New(st, media, cfg.Auth)

	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(initCtx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			// Кэш отзыва не обязателен: без него повторное использование ловит CAS хранилища.
			log.Warn("redis_unavailable", slog.String("err", err.Error()))
		} else {
			defer func() { _ = rc.Close() }()
			svc.SetRefreshCache(rc)
			log.Info("redis_connected")
		}
	}
	initCancel()
	log.Info("service_initialized")

	// gRPC: health для оркестратора.
	gs := grpcsrv.New(grpcsrv.Options{
		Logger:     log,
		Timeout:    cfg.Timeouts.Request,
		Reflection: cfg.Env == envLocal || cfg.Env == envDev,
	})

	// HTTP: публичный API, пробы и метрики на одном сервере.
	api := httpapi.NewRouter(svc, httpapi.Options{
		Logger:       log,
		Timeout:      cfg.Timeouts.Request,
		BasePath:     cfg.HTTP.BasePath,
		TrustProxy:   cfg.HTTP.TrustProxy,
		Docs:         cfg.HTTP.Docs,
		Metrics:      middleware.NewMetrics(prometheus.DefaultRegisterer),
		LoginLimiter: middleware.NewKeyedLimiter(cfg.Limits.LoginRPS, cfg.Limits.LoginBurst, 10*time.Minute),
		Handlers: handlers.Options{
			SecureCookies:  !cfg.Auth.InsecureCookies,
			MaxUploadBytes: 2*cfg.Media.MaxSizeBytes + 1<<20,
		},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if gs.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	httpLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		return err
	}

	grpcAddr := cfg.GRPC.Addr()
	grpcLn, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		_ = httpLn.Close()
		log.Error("grpc_listen_failed", slog.String("addr", grpcAddr), slog.String("err", err.Error()))
		return err
	}

	serveErrCh := make(chan error, 2)

	go func() {
		log.Info("http_listen_start", slog.String("addr", httpAddr))
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()

	go func() {
		log.Info("grpc_listen_start", slog.String("addr", grpcAddr))
		if err := gs.Serve(grpcLn); err != nil {
			serveErrCh <- err
		}
	}()

	// Готовность следует за доступностью MongoDB.
	gs.Monitor(rootCtx, st, 5*time.Second)
	log.Info("service_ready")

	var serveErr error
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		log.Error("serve_failed", slog.String("err", serveErr.Error()))
	}

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	gs.Shutdown(shutdownCtx)

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	return serveErr
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
