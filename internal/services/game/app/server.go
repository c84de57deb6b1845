// Package app hosts the jinro game persistence server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tsukino/jinro/internal/services/game/domain/game"
	"github.com/tsukino/jinro/internal/services/game/scheduler"
	"github.com/tsukino/jinro/internal/services/game/storage"
	storagesqlite "github.com/tsukino/jinro/internal/services/game/storage/sqlite"
)

// Options configures a server instance.
type Options struct {
	Port          int
	DBPath        string
	MigrationsDir string
	PollInterval  time.Duration
}

// Server hosts the jinro game store behind a gRPC health endpoint and runs
// the phase timeout poller.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      storage.Store
	poller     *scheduler.Poller
}

// New creates a configured server listening on the provided port.
func New(opts Options) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", opts.Port, err)
	}

	store, err := openGameStore(opts)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	poller, err := scheduler.New(store, logTimedOutGame, opts.PollInterval)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		poller:     poller,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Store exposes the opened store for embedding callers.
func (s *Server) Store() storage.Store {
	if s == nil {
		return nil
	}
	return s.store
}

// Run creates and serves a server until the context ends.
func Run(ctx context.Context, opts Options) error {
	srv, err := New(opts)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve starts the server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	if err := s.store.Health(ctx); err != nil {
		return err
	}
	if err := s.poller.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.poller.Stop(); err != nil {
			log.Printf("stop poller: %v", err)
		}
	}()

	log.Printf("jinro server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		return handleErr(err)
	case err := <-serveErr:
		return handleErr(err)
	}
}

// logTimedOutGame surfaces expired games. Phase transitions belong to the
// game orchestrator; the persistence service only reports the deadline.
func logTimedOutGame(_ context.Context, g game.Game) {
	phase := "unknown"
	if g.CurrentPhase != nil {
		phase = string(*g.CurrentPhase)
	}
	log.Printf("game %s timed out in %s phase on day %d", g.ID, phase, g.DayCount)
}

func openGameStore(opts Options) (storage.Store, error) {
	path := opts.DBPath
	if path == "" {
		path = "jinro.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	var store *storagesqlite.Store
	var err error
	if opts.MigrationsDir != "" {
		store, err = storagesqlite.OpenWithMigrationsDir(path, opts.MigrationsDir)
	} else {
		store, err = storagesqlite.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close game store: %v", err)
	}
}
