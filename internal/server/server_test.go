package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := New(Config{}, handler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("request failed: %v", err)
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
		t.Fatalf("server did not stop")
	}
}

func TestConfigDefaults(t *testing.T) {
	srv := New(Config{Host: "127.0.0.1", Port: 8080}, http.NotFoundHandler(), nil)

	if srv.httpServer.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr %q", srv.httpServer.Addr)
	}
	if srv.httpServer.ReadTimeout != DefaultReadTimeout || srv.httpServer.WriteTimeout != DefaultWriteTimeout {
		t.Fatalf("expected default timeouts")
	}
	if srv.shutdownTimeout != DefaultShutdownTimeout {
		t.Fatalf("expected default shutdown timeout")
	}
}

func TestRunReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := New(Config{Host: "127.0.0.1", Port: port}, http.NotFoundHandler(), nil)
	if err := srv.Run(context.Background()); err == nil {
		t.Fatalf("expected error for a busy port")
	}
}
