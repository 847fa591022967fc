package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ZaguanLabs/modtl"
	"github.com/ZaguanLabs/modtl/config"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	cfgPath string
	debug   bool
	cfg     *config.Config
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           modtl.Name,
		Short:         "Placeholder-safe LLM translation for game mods",
		Long:          modtl.Description + ".",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg := config.Default()
			if g.cfgPath != "" {
				loaded, err := config.Load(g.cfgPath)
				if err != nil {
					stylelog.InitDefault()
					return err
				}
				cfg = loaded
			}
			g.cfg = cfg

			level := cfg.LogLevel()
			if g.debug {
				level = slog.LevelDebug
			}
			stylelog.InitDefault(&tint.Options{
				Level:      level,
				TimeFormat: time.RFC3339,
			})
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&g.cfgPath, "config", "", "config file (YAML or TOML)")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newTranslateCmd(g),
		newProtectCmd(g),
		newCheckCmd(g),
		newBackoffCmd(g),
		newCacheCmd(g),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", modtl.Name, modtl.FullVersion())
			if modtl.BuildDate != "unknown" && modtl.BuildDate != "" {
				fmt.Fprintf(out, "  built:   %s\n", modtl.BuildDate)
			}
			return nil
		},
	}
}
