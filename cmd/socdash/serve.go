package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"socdash/internal/api"
	"socdash/internal/logger"
	"socdash/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the event log once and serve the dashboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger.Infof("socdash starting")

		p, err := pipeline.FromConfig(cfg)
		if err != nil {
			return err
		}
		ds, err := p.Load(cmd.Context())
		p.Close()
		if err != nil {
			return err
		}

		s := cfg.SocDash.Server
		srv, err := api.NewServer(ds, p.Scorer(), pipeline.DetectorConfig(cfg.SocDash.Alerts), api.Options{
			Addr:         s.Addr,
			ReadTimeout:  s.ReadTimeout,
			WriteTimeout: s.WriteTimeout,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run(gctx)
		})
		g.Go(func() error {
			select {
			case sig := <-sigCh:
				logger.Infof("Received %s, shutting down", sig)
				cancel()
			case <-gctx.Done():
			}
			return nil
		})
		return g.Wait()
	},
}
