package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reelhouse/reelhouse/internal/cache"
	"github.com/reelhouse/reelhouse/internal/database"
	"github.com/reelhouse/reelhouse/internal/library/movies"
	"github.com/reelhouse/reelhouse/internal/search"
	"github.com/reelhouse/reelhouse/internal/search/providers"
)

func newSearchCmd(opts *options) *cobra.Command {
	var (
		page    int
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one aggregated search and print the page as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			// Logs go to stderr so stdout stays valid JSON.
			log := newLogger(cfg, cmd.ErrOrStderr())
			defer log.Close()

			db, err := database.New(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			store := movies.NewService(db.Conn(), nil, log.Logger)
			var searcher search.Searcher = search.NewService(
				providers.Build(cfg, store, log.Logger),
				search.Config{ProviderTimeout: cfg.Search.ProviderTimeout},
				log.Logger,
			)
			if !noCache {
				c := cache.New(cfg.Cache, log.Logger)
				defer c.Close()
				searcher = cache.NewCachedSearcher(searcher, c, cfg.Cache.TTL, log.Logger)
			}

			result, err := searcher.Search(cmd.Context(), args[0], page)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Result page (20 results per page)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the response cache")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
