// Command mock-backend runs a deterministic model backend that speaks all
// three wire protocols the modelstream client supports. Replies depend
// only on the request content, so recorded sessions are reproducible.
//
// Configuration:
//
//	MOCK_PORT       - Listen port (default: 9090)
//	MOCK_FAIL_FIRST - Answer the first N requests with 503 (default: 0)
//	MOCK_DELAY_MS   - Pause between streamed frames (default: 0)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	var opts options
	if v := os.Getenv("MOCK_FAIL_FIRST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Error("invalid MOCK_FAIL_FIRST", "value", v)
			os.Exit(1)
		}
		opts.failFirst = int64(n)
	}
	if v := os.Getenv("MOCK_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			slog.Error("invalid MOCK_DELAY_MS", "value", v)
			os.Exit(1)
		}
		opts.frameDelay = time.Duration(ms) * time.Millisecond
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newHandler(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "fail_first", opts.failFirst)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// writeSSE writes one data frame and flushes it.
func writeSSE(w http.ResponseWriter, data []byte) {
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
