package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/reqwatch/internal/config"
	"github.com/samvad-hq/reqwatch/internal/logger"
	"github.com/samvad-hq/reqwatch/internal/monitor"
	"github.com/samvad-hq/reqwatch/internal/storage"
	"github.com/samvad-hq/reqwatch/pkg/httpclient"
	"github.com/samvad-hq/reqwatch/pkg/publishers"
	"github.com/samvad-hq/reqwatch/pkg/targets"
)

// Watcher represents the daemon runtime. It owns the monitor service, the
// refetch loop and the digest store.
type Watcher struct {
	cfg             *config.Config
	targetReg       *targets.Registry
	fanout          *publishers.Fanout
	monitor         *monitor.Service
	refetchInterval time.Duration
	log             logger.Logger
	store           storage.Store
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	targetReg, err := targets.LoadRegistry(cfg.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("load targets registry: %w", err)
	}
	log.InfoObj("targets registry loaded", "targets_meta", map[string]any{
		"count":   len(targetReg.All()),
		"enabled": len(targetReg.Enabled()),
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		TTL:             cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"ttl_seconds":              int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	defaults := targets.Defaults{
		Debounce: cfg.DefaultDebounce,
		Throttle: cfg.DefaultThrottle,
		Timeout:  cfg.RequestTimeout,
	}
	client := httpclient.NewRestyClient(cfg.RequestTimeout)

	return &Watcher{
		cfg:             cfg,
		targetReg:       targetReg,
		fanout:          fanout,
		monitor:         monitor.NewService(client, fanout, store, log, defaults),
		refetchInterval: cfg.RefetchInterval,
		log:             log,
		store:           store,
	}, nil
}

// buildFanout loads publishers. An empty path runs the watcher without sinks.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.WarnObj("no publishers file configured; settlements are only logged", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run starts the monitor and refetches every target on each tick until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.monitor == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.closeStore()
	defer w.closeFanout()

	enabled := w.targetReg.Enabled()
	if len(enabled) == 0 {
		w.log.WarnObj("no enabled targets; watcher idle", "targets_file", w.cfg.TargetsFile)
		<-ctx.Done()
		return nil
	}

	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"targets_count":    len(enabled),
		"publishers_count": w.fanout.Size(),
		"refetch_interval": w.refetchInterval.String(),
	})

	if err := w.monitor.Start(ctx, enabled); err != nil {
		w.log.ErrorObj("some targets failed to start", "error", err)
	}
	defer w.monitor.Close()

	ticker := time.NewTicker(w.refetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			w.log.DebugObj("refetch tick", "refetch_meta", map[string]any{
				"targets_count": len(w.monitor.TargetIDs()),
			})
			w.monitor.RefetchAll()
		}
	}
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (w *Watcher) closeStore() {
	if w == nil || w.store == nil {
		return
	}
	if err := w.store.Close(); err != nil {
		w.log.ErrorObj("storage close failed", "error", err)
	}
}

func (w *Watcher) closeFanout() {
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publisher close failed", "error", err)
	}
}
