package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/flo-transform/internal/cmd/client"
	serverrun "github.com/rzbill/flo-transform/internal/cmd/server"
	cfgpkg "github.com/rzbill/flo-transform/internal/config"
	pebblestore "github.com/rzbill/flo-transform/internal/storage/pebble"
)

func main() {
	rootCmd := clientcmd.NewRoot(apiURL)
	rootCmd.Use = "flo"
	rootCmd.Short = "flo-transform CLI"
	rootCmd.Long = "flo-transform runs CEL transforms between partitioned logs. This CLI starts the server and manages transforms and logs."
	rootCmd.SilenceUsage = true

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverCmd.AddCommand(newServerStartCommand())
	rootCmd.AddCommand(serverCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServerStartCommand() *cobra.Command {
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the server (gRPC and HTTP)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgpkg.Default()
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				loaded, err := cfgpkg.Load(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			cfgpkg.FromEnv(&cfg)

			// Flags given on the command line win over file and env.
			flags := cmd.Flags()
			if flags.Changed("grpc") {
				cfg.GRPCAddr, _ = flags.GetString("grpc")
			}
			if flags.Changed("http") {
				cfg.HTTPAddr, _ = flags.GetString("http")
			}
			if flags.Changed("fsync") {
				cfg.Fsync, _ = flags.GetString("fsync")
			}
			if flags.Changed("fsync-interval-ms") {
				cfg.FsyncIntervalMs, _ = flags.GetInt("fsync-interval-ms")
			}
			if flags.Changed("log-level") {
				cfg.Log.Level, _ = flags.GetString("log-level")
			}
			if flags.Changed("log-format") {
				cfg.Log.Format, _ = flags.GetString("log-format")
			}
			if flags.Changed("no-resume") {
				noResume, _ := flags.GetBool("no-resume")
				cfg.Transform.Resume = !noResume
			}
			dataDir, _ := flags.GetString("data-dir")

			mode, err := pebblestore.ParseFsyncMode(cfg.Fsync)
			if err != nil {
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       dataDir,
				GRPCAddr:      cfg.GRPCAddr,
				HTTPAddr:      cfg.HTTPAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", os.Getenv("FLO_CONFIG"), "JSON config file")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("grpc", ":50051", "gRPC listen address")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms")
	serverStartCmd.Flags().String("log-level", "info", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "text", "Log format: text|json")
	serverStartCmd.Flags().Bool("no-resume", false, "Do not restart stored transforms on startup")
	return serverStartCmd
}

func apiURL() string {
	if v := os.Getenv("FLO_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
