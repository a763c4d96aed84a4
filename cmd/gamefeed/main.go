// Package main provides the gamefeed CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/gauthierbraillon/gamefeed/internal/config"
	"github.com/gauthierbraillon/gamefeed/internal/logging"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// resolveVersion prefers the ldflags version and falls back to the module
// version recorded by go install.
func resolveVersion(ldflagsVersion string, info *debug.BuildInfo) string {
	if ldflagsVersion != "" && ldflagsVersion != "dev" {
		return ldflagsVersion
	}
	if info != nil && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// app carries what every subcommand needs once the root has loaded it.
type app struct {
	configPath string
	cfg        *config.Config
	cfgFile    string
	logger     *slog.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, used, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.cfgFile = used
	a.logger = logging.ForRun(logger, logging.NewRunID(), cmd.Name())
	if used != "" {
		a.logger.Debug("config loaded", "path", used)
	}
	return nil
}

// newRootCmd creates the root command for gamefeed CLI.
func newRootCmd() *cobra.Command {
	a := &app{}
	info, _ := debug.ReadBuildInfo()

	rootCmd := &cobra.Command{
		Use:   "gamefeed",
		Short: "Build curated shortlists of newly released games",
		Long: "Gamefeed picks trending new releases from IGDB, the best reviewed recent " +
			"Steam releases, and tracks Steam build updates for a list of apps.",
		Version:      resolveVersion(version, info),
		SilenceUsage: true,
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.setup(cmd)
	}

	rootCmd.SetVersionTemplate("gamefeed version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Config file (default $GAMEFEED_CONFIG or ./"+config.DefaultFile+")")

	rootCmd.AddCommand(newTrendingCmd(a))
	rootCmd.AddCommand(newTopRecentCmd(a))
	rootCmd.AddCommand(newPatchesCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// newConfigCmd creates the config subcommand.
func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  "Print the configuration gamefeed would run with, after the config file and environment are applied. Credentials are never printed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if a.cfgFile != "" {
				fmt.Fprintf(out, "# config file: %s\n", a.cfgFile)
			} else {
				fmt.Fprintln(out, "# config file: none (built-in defaults)")
			}
			fmt.Fprintf(out, "# IGDB credentials: %s\n", presence(a.cfg.Credentials.IGDBClientID != "" && a.cfg.Credentials.IGDBClientSecret != ""))
			fmt.Fprintf(out, "# Steam login: %s\n", presence(a.cfg.Credentials.SteamUsername != "" && a.cfg.Credentials.SteamPassword != ""))

			data, err := toml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func presence(ok bool) string {
	if ok {
		return "set"
	}
	return "not set"
}
