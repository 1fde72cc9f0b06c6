// Command modelstream streams one model turn and prints the normalized
// events as JSON lines.
//
// Usage:
//
//	modelstream [flags] prompt...
//
// Configuration is read from the first of --config, MODELSTREAM_CONFIG,
// ./modelstream.yaml and $HOME/.config/modelstream/config.yaml, then
// overridden by MODELSTREAM_* environment variables and finally by flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/rhuss/modelstream/pkg/api"
	"github.com/rhuss/modelstream/pkg/client"
	"github.com/rhuss/modelstream/pkg/config"
	"github.com/rhuss/modelstream/pkg/debug"
	"github.com/rhuss/modelstream/pkg/observability"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("modelstream failed", "error", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath   string
	provider     string
	model        string
	instructions string
	previousID   string
	store        bool
	debug        string
	logLevel     string
	metricsAddr  string
}

func parseFlags(args []string) (*flags, []string, error) {
	var f flags
	fs := pflag.NewFlagSet("modelstream", pflag.ContinueOnError)
	fs.StringVarP(&f.configPath, "config", "c", "", "path to the YAML config file")
	fs.StringVarP(&f.provider, "provider", "p", "", "provider key (openai, openrouter, gemini, or one from the config)")
	fs.StringVarP(&f.model, "model", "m", "", "model name")
	fs.StringVar(&f.instructions, "instructions", "", "base instructions sent with the turn")
	fs.StringVar(&f.previousID, "previous-response-id", "", "continue from a prior turn")
	fs.BoolVar(&f.store, "store", false, "ask the backend to persist the response")
	fs.StringVar(&f.debug, "debug", "", "debug categories: providers,streaming,retry,config,all")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: ERROR, WARN, INFO, DEBUG, TRACE")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while streaming")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return &f, fs.Args(), nil
}

func run(args []string, out io.Writer) error {
	f, rest, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return errors.New("usage: modelstream [flags] prompt...")
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	debug.Init(cfg.Debug.Categories, cfg.Debug.Level, os.Stderr)
	if cats := debug.Categories(); len(cats) > 0 {
		slog.Info("debug logging enabled", "categories", strings.Join(cats, ","))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, cfg.Metrics.Path)
		defer shutdown()
	}

	mc, err := client.New(cfg)
	if err != nil {
		return err
	}

	prompt := &api.Prompt{
		Instructions:       f.instructions,
		Input:              []api.ResponseItem{api.NewUserMessage(strings.Join(rest, " "))},
		PreviousResponseID: f.previousID,
		Store:              f.store,
	}

	slog.Info("streaming turn", "provider", mc.Provider().Name, "wire_api", mc.Provider().WireAPI, "model", mc.Model())

	stream, err := mc.Stream(ctx, prompt)
	if err != nil {
		return err
	}
	defer stream.Close()

	enc := json.NewEncoder(out)
	for ev, err := range stream.All(ctx) {
		if err != nil {
			return err
		}
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
	}
	return nil
}

// applyFlags overrides configuration with explicitly set flags.
func applyFlags(cfg *config.Config, f *flags) {
	if f.provider != "" {
		cfg.Provider = f.provider
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if f.debug != "" {
		cfg.Debug.Categories = f.debug
	}
	if f.logLevel != "" {
		cfg.Debug.Level = f.logLevel
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

// serveMetrics exposes the default registry and returns a shutdown func.
func serveMetrics(addr, path string) func() {
	mux := http.NewServeMux()
	mux.Handle(path, observability.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics endpoint listening", "addr", addr, "path", path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
