package logging

import (
	"log/slog"
)

// SetupServeMode initializes logging for the MCP server.
// Logs go to file only: stdout is reserved for JSON-RPC and some clients
// treat stderr output as a failed start.
func SetupServeMode(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("serve_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
