package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/deck-strategist/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API and websocket event feed",
	Long: `Starts the REST API used by the web UI. Resolution progress and analysis
state changes are pushed to websocket clients on /ws. With deck.watch set,
edits to the deck file are picked up without a restart.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serverCfg := &api.Config{
			Host:                 cfg.Server.Host,
			Port:                 cfg.Server.Port,
			AllowedOrigins:       cfg.Server.AllowedOrigins,
			RequestTimeout:       cfg.RequestTimeout(),
			LLMRequestsPerMinute: cfg.Server.LLMRequestsPerMinute,
			LLMBurst:             cfg.Server.LLMBurst,
			Logger:               logger.Named("api"),
		}
		hub := api.NewHub(serverCfg, serverCfg.Logger)

		a, err := newApp(cfg, logger, appOptions{events: hub})
		if err != nil {
			return err
		}
		defer a.close()

		if cfg.LLM.APIKey == "" {
			logger.Warn("ANTHROPIC_API_KEY is not set; analysis endpoints will fail")
		}

		server := api.NewServer(serverCfg, hub, a.facade)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Run(gctx)
		})
		if a.source != nil && cfg.Deck.Watch {
			g.Go(func() error {
				logger.Info("watching deck file", zap.String("path", a.source.Path()))
				return a.source.Watch(gctx)
			})
		}
		return g.Wait()
	},
}
