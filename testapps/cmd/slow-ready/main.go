package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

// slow-ready is a primary stand-in: an HTTP server whose /health answers
// 503 until -ready-after has elapsed, then 200.
func main() {
	var port int
	var readyAfter time.Duration
	flag.IntVar(&port, "port", 0, "Port to listen on (0 for ephemeral)")
	flag.DurationVar(&readyAfter, "ready-after", 500*time.Millisecond, "Delay before /health flips to 200")
	flag.Parse()

	if port == 0 {
		if v := os.Getenv("SLOW_READY_PORT"); v != "" {
			_, _ = fmt.Sscanf(v, "%d", &port)
		}
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "listen error: %v\n", err)
		os.Exit(2)
	}
	start := time.Now()
	_, _ = fmt.Fprintf(os.Stderr, "listening on %s (ready in %s)\n", ln.Addr().String(), readyAfter)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if time.Since(start) < readyAfter {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("warming up"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		t := time.NewTicker(200 * time.Millisecond)
		defer t.Stop()
		for range t.C {
			_, _ = fmt.Fprintln(os.Stdout, "slow-ready: tick")
		}
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		_, _ = fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
		os.Exit(3)
	}
}
