package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{host: "", port: 8766, want: "0.0.0.0:8766"},
		{host: "127.0.0.1", port: 80, want: "127.0.0.1:80"},
		{host: "::1", port: 9000, want: "[::1]:9000"},
	}
	for _, tt := range tests {
		if got := Addr(tt.host, tt.port); got != tt.want {
			t.Fatalf("Addr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestServeRoutesAndShutdown(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "api:"+r.URL.Path)
	})
	ws := func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ws")
	}
	srv := New("127.0.0.1:0", ws, api, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, body := get("/api/status"); code != http.StatusOK || body != "api:/api/status" {
		t.Fatalf("/api/status = %d %q", code, body)
	}
	if code, body := get("/ws"); code != http.StatusOK || body != "ws" {
		t.Fatalf("/ws = %d %q", code, body)
	}
	if code, body := get("/"); code != http.StatusOK || !strings.Contains(body, "lrctype") {
		t.Fatalf("/ = %d %q", code, body)
	}
	if code, _ := get("/missing"); code != http.StatusNotFound {
		t.Fatalf("/missing = %d, want 404", code)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatalf("server did not shut down")
	}
}
