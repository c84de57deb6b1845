package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Port:         0,
		DBPath:       filepath.Join(t.TempDir(), "jinro.db"),
		PollInterval: 50 * time.Millisecond,
	}
}

func TestNewAndAddr(t *testing.T) {
	srv, err := New(testOptions(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	if srv.Addr() == "" {
		t.Error("expected a listener address")
	}
	if srv.Store() == nil {
		t.Error("expected an opened store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}

func TestServeReportsHealth(t *testing.T) {
	srv, err := New(testOptions(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	checkCtx, checkCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer checkCancel()

	resp, err := client.Check(checkCtx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestNewBadStorePath(t *testing.T) {
	_, err := New(Options{Port: 0, DBPath: "  "})
	if err == nil {
		t.Fatal("expected error for blank db path after default handling")
	}
}
