package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gravitas-games/factorylab/internal/config"
	"github.com/gravitas-games/factorylab/internal/dataset"
	"github.com/gravitas-games/factorylab/internal/server"
	"github.com/gravitas-games/factorylab/pkg/models"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		check      bool
	)

	cmd := &cobra.Command{
		Use:           "factorylab-server",
		Short:         "Serve recipe adjustments over WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, d, err := prepare(configPath)
			if err != nil {
				return err
			}
			if check {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s dataset with %d recipes, digest %s\n",
					cfg.Dataset.Path, d.Game, len(d.RecipeIDs), d.Digest)
				return nil
			}
			return serve(cfg, d)
		},
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "./configs/server.yaml"
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "configuration file; FACTORYLAB_* variables override it")
	cmd.Flags().BoolVar(&check, "check", false, "validate the configuration and dataset, then exit")
	return cmd
}

// prepare loads the configuration and the dataset it points at, rejecting
// adjuster rules that would fail at the first request
func prepare(configPath string) (*config.Config, *models.Dataset, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if _, err := cfg.AdjusterConfig(); err != nil {
		return nil, nil, err
	}
	log.Printf("Configuration loaded from %s", configPath)

	d, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Loaded %s dataset from %s (%d recipes, digest %.12s)", d.Game, cfg.Dataset.Path, len(d.RecipeIDs), d.Digest)
	return cfg, d, nil
}

// serve runs the server until a signal arrives or listening fails
func serve(cfg *config.Config, d *models.Dataset) error {
	srv, err := server.New(cfg, d)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case err = <-errChan:
		if err != nil {
			err = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Println("Shutdown requested")
	}

	if shutdownErr := srv.Shutdown(); shutdownErr != nil {
		log.Printf("Error during shutdown: %v", shutdownErr)
	}
	log.Println("Server stopped")
	return err
}
