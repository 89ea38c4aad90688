package globals

import (
	"log/slog"
	"os"
	"sync"

	"github.com/omramin/omramin/internal/config"
	"github.com/omramin/omramin/internal/database"
)

var (
	// Global instances
	Settings *config.Settings
	Logger   *slog.Logger

	// Ensure initialization happens only once
	initOnce sync.Once
)

// Initialize sets up global instances exactly once
func Initialize(verbose bool) {
	initOnce.Do(func() {
		setupLogger(verbose)

		Logger.Debug("Initializing global instances")

		config.LoadEnv()

		created, settings := config.LoadOrInitializeSettingsFromDefaultLocation()
		Settings = settings
		if created {
			Logger.Debug("Created new settings file")
			if err := Settings.Save(); err != nil {
				Logger.Error("Failed to save new settings", "error", err)
			}
		} else {
			Logger.Debug("Loaded existing settings")
		}

		if err := database.Init(); err != nil {
			Logger.Error("Failed to initialize database", "error", err)
		} else {
			Logger.Debug("Database initialized")
		}
	})
}

// setupLogger configures the global logger
func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	// Set as default logger
	slog.SetDefault(Logger)
}

// MustBeInitialized panics if globals haven't been initialized
func MustBeInitialized() {
	if Settings == nil || Logger == nil {
		panic("globals not initialized - call globals.Initialize() first")
	}
}
