package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/nDmitry/spacetraveling/internal/app"
	"github.com/nDmitry/spacetraveling/internal/cache"
	"github.com/nDmitry/spacetraveling/internal/config"
	"github.com/nDmitry/spacetraveling/internal/entity"
	"github.com/nDmitry/spacetraveling/internal/handler"
	"github.com/nDmitry/spacetraveling/internal/prismic"
)

var configPath string

func main() {
	logger := app.Logger()
	slog.SetDefault(logger)

	// .env is optional, the environment may already be set
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "spacetraveling",
		Short:         "A blog front-end for content stored in Prismic",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML or JSON), optional")
	root.AddCommand(serveCommand(), exportCommand())

	if err := root.ExecuteContext(signalContext(logger)); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// signalContext is canceled on the first shutdown signal, the second one exits immediately
func signalContext(logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received first shutdown signal, starting graceful shutdown...")
		cancel()

		// If we receive a second signal, exit immediately
		<-sigChan
		logger.Info("Received second shutdown signal, exiting immediately...")
		os.Exit(1)
	}()

	return ctx
}

func loadConfig() (*entity.Config, error) {
	cfg, err := config.Read(configPath)

	if err != nil {
		return nil, err
	}

	app.SetLogLevel(cfg.Log.Level)

	return cfg, nil
}

// newBlog wires the content client and the page handler
func newBlog(cfg *entity.Config, c cache.Cache) (*handler.BlogHandler, *prismic.Client, *prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics := app.NewMetrics(reg)

	client, err := prismic.NewClient(cfg.Prismic, metrics)

	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not create content client: %w", err)
	}

	blog, err := handler.NewBlogHandler(cfg, client, c, metrics)

	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not create page handler: %w", err)
	}

	return blog, client, reg, nil
}
