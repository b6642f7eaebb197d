// Package bootstrap provides initialization for the workbench runtime.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tessera-ide/tessera/internal/infrastructure/config"
	"github.com/tessera-ide/tessera/internal/infrastructure/persistence/sqlite"
	"github.com/tessera-ide/tessera/internal/logging"
)

const dataDirPerm = 0o750

// Result holds everything the composition root needs after startup.
type Result struct {
	Config   *config.Config
	KV       *sqlite.KV
	Duration time.Duration
}

// Run loads configuration and opens durable storage. The config read and the
// data-directory preparation are independent and run concurrently.
func Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	var (
		cfg     *config.Config
		dataDir string
	)

	var g errgroup.Group
	g.Go(func() error {
		mgr, err := config.NewManager()
		if err != nil {
			return fmt.Errorf("configure: %w", err)
		}
		if err := mgr.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = mgr.Get()
		return nil
	})
	g.Go(func() error {
		dir, err := config.GetDataDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, dataDirPerm); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		dataDir = dir
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dbPath, err := cfg.StoragePath()
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	kv, err := sqlite.Open(ctx, dbPath, cfg.Storage.QuotaBytes)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	elapsed := time.Since(start)
	logging.FromContext(ctx).Debug().
		Dur("duration", elapsed).
		Str("data_dir", dataDir).
		Msg("bootstrap complete")

	return &Result{Config: cfg, KV: kv, Duration: elapsed}, nil
}
