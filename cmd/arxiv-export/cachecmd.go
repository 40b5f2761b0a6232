package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/arxiv-export/internal/cache"
)

func (a *app) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or empty the API response cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "info",
			Short: "Show the cache location and size",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withCache(func(c *cache.Cache) error {
					n, err := c.Len(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "path:  %s\npages: %d\nttl:   %s\n", a.cfg.Cache.Path, n, a.cfg.Cache.TTL)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "purge",
			Short: "Delete expired pages",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withCache(func(c *cache.Cache) error {
					n, err := c.Purge(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired pages\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cached page",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withCache(func(c *cache.Cache) error {
					n, err := c.Clear(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %d pages\n", n)
					return nil
				})
			},
		},
	)
	return cmd
}

// withCache opens the configured cache for fn. It ignores cache.enabled
// and --no-cache so a disabled cache can still be emptied.
func (a *app) withCache(fn func(*cache.Cache) error) error {
	if a.cfg.Cache.Path == "" {
		return usageError{fmt.Errorf("no cache path configured")}
	}
	c, err := cache.Open(a.cfg.Cache.Path, cache.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
