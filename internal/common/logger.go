package common

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	"github.com/ternarybob/arbor/models"

	"github.com/tarslinks/linkhive/internal/config"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the global logger instance.
// If InitLogger() hasn't been called yet, returns a fallback console logger
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	// Double-check after acquiring write lock
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(createWriterConfig("", models.LogWriterTypeConsole, ""))
		globalLogger.Warn().Msg("using fallback logger - SetupLogger should be called during startup")
	}
	return globalLogger
}

// InitLogger stores the provided logger as the global singleton instance
func InitLogger(logger arbor.ILogger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalLogger = logger
}

// SetupLogger configures and initializes the global logger from
// cfg.Logging. No memory writer is attached: there is no websocket
// log stream to feed here.
func SetupLogger(cfg *config.Config) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFileOutput := false
	hasConsoleOutput := false
	for _, output := range cfg.Logging.Output {
		switch output {
		case "file":
			hasFileOutput = true
		case "stdout", "console":
			hasConsoleOutput = true
		}
	}

	if hasFileOutput {
		dir := cfg.Logging.Directory
		if dir == "" {
			if execPath, err := os.Executable(); err == nil {
				dir = filepath.Join(filepath.Dir(execPath), "logs")
			} else {
				dir = "./logs"
			}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			tempLogger := logger.WithConsoleWriter(createWriterConfig(cfg.Logging.Level, models.LogWriterTypeConsole, ""))
			tempLogger.Warn().Err(err).Str("logs_dir", dir).Msg("failed to create logs directory")
		} else {
			logFile := filepath.Join(dir, "linkhive.log")
			logger = logger.WithFileWriter(createWriterConfig(cfg.Logging.Level, models.LogWriterTypeFile, logFile))
		}
	}

	if hasConsoleOutput || !hasFileOutput {
		logger = logger.WithConsoleWriter(createWriterConfig(cfg.Logging.Level, models.LogWriterTypeConsole, ""))
	}

	if !hasFileOutput && !hasConsoleOutput {
		logger.Warn().Strs("configured_outputs", cfg.Logging.Output).Msg("no visible log outputs configured - falling back to console")
	}

	logger = logger.WithLevelFromString(cfg.Logging.Level)

	InitLogger(logger)
	return logger
}

// createWriterConfig creates a standard writer configuration.
func createWriterConfig(_ string, writerType models.LogWriterType, filename string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             writerType,
		FileName:         filename,
		TimeFormat:       "15:04:05.000",
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024, // 100 MB (only used for file writer)
		MaxBackups:       3,                 // (only used for file writer)
	}
}

// Stop flushes any remaining context logs before application shutdown
// Safe to call multiple times (Arbor's Stop is idempotent)
func Stop() {
	arborcommon.Stop()
}
