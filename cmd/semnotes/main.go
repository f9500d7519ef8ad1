package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/semnotes/semnotes"
	"github.com/semnotes/semnotes/internal/config"
	"github.com/semnotes/semnotes/internal/errortypes"
	"github.com/semnotes/semnotes/internal/logger"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFilename, "path to the configuration file")
	flag.Parse()

	// A .env file is optional; SEMNOTES_* variables override the file.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env file")
	}

	appLogger := setupLogging()

	appLogger.Info("semnotes MCP server starting")

	cfg, err := config.LoadConfigWithPath(*configPath)
	if err != nil {
		errortypes.LogError(appLogger, err)
		appLogger.Error("Failed to load configuration", "path", *configPath)
		os.Exit(1)
	}

	// Reconfigure logging from the loaded config.
	appLogger = logger.Setup(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	svc, err := semnotes.NewService(semnotes.ServiceOptions{
		Config: cfg,
		Logger: appLogger,
	})
	if err != nil {
		errortypes.LogError(appLogger, err)
		appLogger.Error("Failed to initialize semnotes service")
		os.Exit(1)
	}

	setupSignalHandler(svc, appLogger)

	appLogger.Info("Starting MCP server")
	if err := svc.Start(); err != nil {
		errortypes.LogError(appLogger, err)
		appLogger.Error("MCP server failed")
		os.Exit(1)
	}
}

// setupLogging configures the application logger from the environment
// before the config file is available.
func setupLogging() *slog.Logger {
	cfg := logger.DefaultConfig()

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		cfg.Level = levelStr
	}
	if formatStr := os.Getenv("LOG_FORMAT"); formatStr != "" {
		cfg.Format = formatStr
	}

	return logger.Setup(cfg)
}

// setupSignalHandler sets up a signal handler for graceful shutdown.
func setupSignalHandler(svc *semnotes.Service, log *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Received shutdown signal, terminating gracefully")

		if err := svc.Stop(); err != nil {
			errortypes.LogError(log, err)
		}

		log.Info("Shutdown complete")
		os.Exit(0)
	}()
}
