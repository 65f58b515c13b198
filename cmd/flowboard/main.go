// Package main is the entry point for the flowboard server and tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/probelab/flowboard/pkg/config"
)

// Version information
const (
	AppVersion = "0.1.0"
	AppName    = "flowboard"
)

var configPath string

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "flowboard",
		Short: "Investigation flow editor backend",
		Long:  "flowboard serves the node-graph investigation editor: flow storage, edit history, and custom node types",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(
		versionCmd(),
		serveCmd(),
		exportCmd(),
		importCmd(),
		nodeTypesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", AppName, AppVersion)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger := newLogger(cfg.Logging)

			app, err := NewApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error)
			go func() {
				errCh <- app.Start()
			}()

			select {
			case err := <-errCh:
				app.Shutdown(context.Background())
				return err
			case <-stop:
				logger.Info("shutting down gracefully")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return app.Shutdown(ctx)
			}
		},
	}
}

// loadConfig loads the configuration from the specified path or standard
// locations, creating a default file when none exists
func loadConfig() (*config.Config, error) {
	var cfg *config.Config

	if configPath != "" {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		locations := []string{
			"./config.json",
			"./configs/config.json",
			filepath.Join(os.Getenv("HOME"), ".flowboard", "config.json"),
			"/etc/flowboard/config.json",
		}

		for _, path := range locations {
			if loadedCfg, err := config.LoadConfig(path); err == nil {
				cfg = loadedCfg
				break
			}
		}

		if cfg == nil {
			cfg = config.DefaultConfig()

			defaultPath := filepath.Join(os.Getenv("HOME"), ".flowboard", "config.json")
			if err := config.SaveConfig(cfg, defaultPath); err != nil {
				return nil, fmt.Errorf("failed to save default config: %w", err)
			}

			fmt.Printf("Created default configuration at %s\n", defaultPath)
		}
	}

	overrideConfigFromEnv(cfg)
	return cfg, nil
}

// overrideConfigFromEnv overrides configuration values from environment variables
func overrideConfigFromEnv(cfg *config.Config) {
	if host := os.Getenv("FLOWBOARD_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("FLOWBOARD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if storageType := os.Getenv("FLOWBOARD_STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if path := os.Getenv("FLOWBOARD_BADGER_PATH"); path != "" {
		cfg.Storage.Badger.Path = path
	}
	if addr := os.Getenv("FLOWBOARD_REDIS_ADDR"); addr != "" {
		cfg.Storage.Redis.Addr = addr
	}
	if password := os.Getenv("FLOWBOARD_REDIS_PASSWORD"); password != "" {
		cfg.Storage.Redis.Password = password
	}
	if db := os.Getenv("FLOWBOARD_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Storage.Redis.DB = n
		}
	}
	if host := os.Getenv("FLOWBOARD_POSTGRES_HOST"); host != "" {
		cfg.Storage.Postgres.Host = host
	}
	if port := os.Getenv("FLOWBOARD_POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Storage.Postgres.Port = p
		}
	}
	if database := os.Getenv("FLOWBOARD_POSTGRES_DATABASE"); database != "" {
		cfg.Storage.Postgres.Database = database
	}
	if user := os.Getenv("FLOWBOARD_POSTGRES_USER"); user != "" {
		cfg.Storage.Postgres.User = user
	}
	if password := os.Getenv("FLOWBOARD_POSTGRES_PASSWORD"); password != "" {
		cfg.Storage.Postgres.Password = password
	}
	if sslMode := os.Getenv("FLOWBOARD_POSTGRES_SSL_MODE"); sslMode != "" {
		cfg.Storage.Postgres.SSLMode = sslMode
	}

	if level := os.Getenv("FLOWBOARD_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// newLogger builds the application logger from the logging configuration
func newLogger(cfg config.LoggingConfig) hclog.Logger {
	output := os.Stdout
	if cfg.Output == "file" && cfg.FilePath != "" {
		if f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			output = f
		}
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       AppName,
		Level:      hclog.LevelFromString(cfg.Level),
		JSONFormat: cfg.Format == "json",
		Output:     output,
	})
}
