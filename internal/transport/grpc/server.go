// transport/grpc поднимает gRPC-сервер accounts-сервиса со стандартным
// grpc.health.v1 для оркестратора.
// Статус SERVING выставляется, пока проверка готовности (Ping хранилища) проходит;
// тот же флаг готовности отдаёт HTTP-проба /healthz.
package grpc

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/interceptors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Pinger — зависимость, без которой сервис не готов обслуживать запросы.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options — параметры gRPC-сервера.
type Options struct {
	Logger     *slog.Logger
	Timeout    time.Duration
	Reflection bool
}

// Server — gRPC-сервер с health-сервисом и флагом готовности.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	ready  atomic.Bool
	log    *slog.Logger
}

// New собирает сервер: интерсепторы, health, метрики и (опционально) рефлексию.
// Сервер стартует в NOT_SERVING.
func New(opts Options) *Server {
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}

	grpc_prometheus.EnableHandlingTimeHistogram()

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.Recover(lg),
			interceptors.UnaryLoggingInterceptor(lg),
			interceptors.WithTimeout(opts.Timeout),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecover(lg),
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	if opts.Reflection {
		reflection.Register(srv)
	}

	grpc_prometheus.Register(srv)

	s := &Server{srv: srv, health: hs, log: lg}
	s.SetReady(false)

	return s
}

// SetReady переключает готовность и статус health ("" — весь сервер).
func (s *Server) SetReady(ready bool) {
	prev := s.ready.Swap(ready)

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)

	if prev != ready {
		s.log.Info("readiness_changed", slog.Bool("ready", ready))
	}
}

// Ready сообщает текущую готовность.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Monitor проверяет p сразу и затем каждые period, пока ctx не отменён.
// Каждая проверка ограничена таймаутом period.
func (s *Server) Monitor(ctx context.Context, p Pinger, period time.Duration) {
	if period <= 0 {
		period = 5 * time.Second
	}

	check := func() {
		pctx, cancel := context.WithTimeout(ctx, period)
		defer cancel()

		err := p.Ping(pctx)
		if err != nil && ctx.Err() == nil {
			s.log.Warn("readiness_check_failed", slog.String("err", err.Error()))
		}
		s.SetReady(err == nil)
	}

	check()

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				check()
			}
		}
	}()
}

// Serve блокируется до остановки сервера.
func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Shutdown снимает готовность и останавливает сервер мягко;
// по истечении ctx соединения рвутся принудительно.
func (s *Server) Shutdown(ctx context.Context) {
	s.SetReady(false)
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("grpc_stopped")
	case <-ctx.Done():
		s.log.Warn("grpc_force_stop")
		s.srv.Stop()
	}
}
