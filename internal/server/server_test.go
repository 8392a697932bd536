package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/railradar/backend/internal/config"
)

func testHTTPConfig() config.HTTPConfig {
	return config.HTTPConfig{
		Host:              "127.0.0.1",
		Port:              8080,
		ReadTimeout:       2 * time.Second,
		ReadHeaderTimeout: 750 * time.Millisecond,
		WriteTimeout:      2 * time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
	}
}

func TestNewAppliesHTTPConfig(t *testing.T) {
	srv := New(discardLogger(), testHTTPConfig(), http.NotFoundHandler())

	if srv.httpServer.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr %q", srv.httpServer.Addr)
	}
	if srv.httpServer.ReadHeaderTimeout != 750*time.Millisecond {
		t.Fatalf("read header timeout not applied: %s", srv.httpServer.ReadHeaderTimeout)
	}
	if srv.shutdownTimeout != time.Second {
		t.Fatalf("shutdown timeout not applied: %s", srv.shutdownTimeout)
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := New(discardLogger(), testHTTPConfig(), handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunBoundsShutdownByTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
	})

	cfg := testHTTPConfig()
	cfg.ShutdownTimeout = 50 * time.Millisecond
	srv := New(discardLogger(), cfg, handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, ln) }()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/paths")
		if err == nil {
			resp.Body.Close()
		}
	}()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the handler")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected shutdown deadline error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown was not bounded by the timeout")
	}
}
