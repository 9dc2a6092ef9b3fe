package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/deanable/wanvidgen/core"
)

// CleanupIncompleteRuns returns a cleanup handler that removes run
// directories left behind by interrupted saves. A completed save always
// ends with a manifest.json, so any run directory without one holds
// partial frames that will never be usable.
//
// Suggested priority: 40+ so it runs after the pipeline and history
// store have been closed.
//
// The handler never returns an error; a leftover directory is not worth
// blocking the exit over, failures are logged instead.
func CleanupIncompleteRuns(logger *zap.Logger, outputDir string) core.ShutdownFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context) error {
		removeIncompleteRuns(ctx, logger, outputDir)
		return nil
	}
}

// SyncLogger returns a cleanup handler that flushes buffered log
// entries. Sync errors on stderr sinks are expected on some platforms
// and are swallowed.
//
// Suggested priority: 0-9 so the flush happens before anything that
// might still want to log.
func SyncLogger(logger *zap.Logger) core.ShutdownFunc {
	return func(ctx context.Context) error {
		if logger != nil {
			_ = logger.Sync()
		}
		return nil
	}
}

func removeIncompleteRuns(ctx context.Context, logger *zap.Logger, outputDir string) {
	entries, err := os.ReadDir(outputDir)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		logger.Warn("cannot scan output directory for incomplete runs",
			zap.String("dir", outputDir),
			zap.Error(err))
		return
	}

	var removed int
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			logger.Warn("shutdown deadline reached during run cleanup",
				zap.Int("removed", removed))
			return
		default:
		}

		if !entry.IsDir() {
			continue
		}
		runDir := filepath.Join(outputDir, entry.Name())
		if _, err := os.Stat(filepath.Join(runDir, "manifest.json")); err == nil {
			continue // complete save
		}

		if err := os.RemoveAll(runDir); err != nil {
			logger.Warn("failed to remove incomplete run",
				zap.String("dir", runDir),
				zap.Error(err))
			continue
		}
		removed++
		logger.Info("removed incomplete run", zap.String("dir", runDir))
	}

	if removed > 0 {
		logger.Info("incomplete run cleanup finished", zap.Int("removed", removed))
	}
}
