package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nDmitry/spacetraveling/internal/app"
	"github.com/nDmitry/spacetraveling/internal/cache"
	"github.com/nDmitry/spacetraveling/internal/export"
)

func exportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the home page, every post and the feeds as static files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()

			if err != nil {
				return err
			}

			// Pages are always generated fresh and waited for in full.
			cfg.Cache.TTL = 0
			cfg.Article.FallbackWait = max(cfg.Article.FallbackWait, 2*cfg.Prismic.Timeout+5*time.Second)

			blog, client, _, err := newBlog(cfg, cache.Nop{})

			if err != nil {
				return err
			}

			result, err := export.Run(cmd.Context(), blog.Handler(), client, out)

			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			app.Logger().Info("Export finished",
				"dir", out,
				"written", len(result.Written),
				"skipped", len(result.Skipped),
			)

			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "dist", "output directory")

	return cmd
}
