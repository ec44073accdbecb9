package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/TomokaItou/voice-training/internal/observe"
	"github.com/TomokaItou/voice-training/internal/server"
)

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	addr := fs.String("addr", "", "listen address (default from config)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pitchtrace serve [flags]\n\n")
		fmt.Fprintf(stderr, "Serves /live (WebSocket), /healthz and /metrics.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	provider, err := observe.New(ctx, observe.Config{Global: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("metrics shutdown failed", zap.Error(err))
		}
	}()

	scfg := server.DefaultConfig()
	scfg.SampleRate = cfg.Server.SampleRate
	scfg.SendBuffer = cfg.Server.SendBuffer

	srv, err := server.New(
		server.WithConfig(scfg),
		server.WithLogger(logger),
		server.WithMeterProvider(provider.MeterProvider()),
		server.WithMetricsHandler(provider.Handler()),
		server.WithSessionOptions(cfg.SessionOptions()...),
		server.WithLiveOptions(cfg.LiveOptions()...),
		server.WithAnalyzerOptions(cfg.AnalyzerOptions()...),
	)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
