package main

import (
	"fmt"

	"github.com/ZaguanLabs/modtl"
	"github.com/ZaguanLabs/modtl/cache"
	"github.com/spf13/cobra"
)

func newCacheCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Export or import the translation cache",
	}
	cmd.AddCommand(newCacheExportCmd(g), newCacheImportCmd(g))
	return cmd
}

// persistentCache opens the configured cache. Only Redis outlives a run, so
// the in-memory backend is refused.
func persistentCache(cmd *cobra.Command, g *globals) (*cache.RedisCache, error) {
	cc := g.cfg.Cache
	if cc.Backend != "redis" {
		return nil, fmt.Errorf("cache backend %q does not persist; configure cache.backend redis", cc.Backend)
	}
	return cache.NewRedisCache(cmd.Context(), cache.RedisConfig{
		URL:       cc.RedisURL,
		TTL:       cc.TTL,
		KeyPrefix: cc.KeyPrefix,
	})
}

func newCacheExportCmd(g *globals) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write cached masked translations to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := persistentCache(cmd, g)
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := cache.NewExporter(c).ExportToFile(args[0], target, map[string]string{
				"generator": modtl.UserAgent(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "lang", "", "only export entries for this target language")
	return cmd
}

func newCacheImportCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load masked translations from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := persistentCache(cmd, g)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := cache.NewImporter(c).ImportFromFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries (%d skipped, %d failed)\n", res.Imported, res.Skipped, res.Failed)
			return nil
		},
	}
}
