package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hytous/RigidLabeler/internal/config"
	"github.com/hytous/RigidLabeler/internal/logging"
	"github.com/hytous/RigidLabeler/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level, _ := logging.ParseLevel(cfg.Logging.Level)
			logging.SetLevel(level)

			if err := cfg.EnsureDirs(); err != nil {
				return err
			}
			logging.Debug("configuration loaded from %s", configPath)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(cfg).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "backend.yaml", "path to the YAML configuration")
	cmd.Flags().StringVar(&host, "host", "", "override server.host")
	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	return cmd
}

// loadConfig reads the configuration and resolves its relative paths against
// the directory holding the file.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolving config path")
	}
	cfg.Resolve(filepath.Dir(abs))
	return cfg, nil
}
