package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nDmitry/spacetraveling/internal/api/rest"
	"github.com/nDmitry/spacetraveling/internal/app"
	"github.com/nDmitry/spacetraveling/internal/cache"
	"github.com/nDmitry/spacetraveling/internal/entity"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the blog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()

			if err != nil {
				return err
			}

			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *entity.Config) error {
	logger := app.Logger()

	var pageCache cache.Cache = cache.Nop{}

	if cfg.Redis.Host != "" {
		addr := cfg.Redis.Host + ":" + strconv.Itoa(cfg.Redis.Port)
		redisClient, err := cache.NewRedisClient(ctx, addr)

		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}

		defer redisClient.Close()

		pageCache = redisClient
	} else {
		logger.Info("Redis host is not set, pages are not cached")
	}

	blog, _, reg, err := newBlog(cfg, pageCache)

	if err != nil {
		return err
	}

	// Initialize and run the HTTP server
	server := rest.NewServer(blog.Handler(), reg, cfg.HTTP.Port)

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server exited gracefully")

	return nil
}
