package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/marmos91/nfs4c/internal/config"
	"github.com/marmos91/nfs4c/internal/logger"
	"github.com/marmos91/nfs4c/internal/metrics"
	"github.com/marmos91/nfs4c/internal/nfs4/client"
)

var cfgFile string

func bindConfigFlags(flags *pflag.FlagSet) {
	config.BindFlags(flags)
}

// connect loads configuration from the layered sources, dials the
// server, and runs the client through NULL/EXCHANGE_ID/CREATE_SESSION/
// RECLAIM_COMPLETE, returning a ready-to-use client and its close func.
func connect(flags *pflag.FlagSet) (*client.Client, func(), error) {
	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return nil, nil, err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	c := client.New(cfg.Server.Address, m)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ConnectTimeout)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		return nil, nil, err
	}
	if err := c.NullCall(ctx); err != nil {
		return nil, nil, err
	}
	if err := c.ExchangeIDCall(ctx); err != nil {
		return nil, nil, err
	}
	if err := c.CreateSessionCall(ctx); err != nil {
		return nil, nil, err
	}
	if err := c.SendReclaimComplete(ctx); err != nil {
		return nil, nil, err
	}

	return c, func() { _ = c.Close() }, nil
}

// splitLast splits a slash-separated path into its parent and final
// component, the way mkdir/remove need to resolve the parent directory
// and act on the name within it.
func splitLast(path string) (dir, last string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i], path[i+1:]
		}
	}
	return "", path
}
