package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/elit_catalog/internal/service"
	"github.com/GTDGit/elit_catalog/internal/utils"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

// CatalogReloader is the part of service.Session the worker drives.
type CatalogReloader interface {
	Credentials() (elit.Credentials, bool)
	LoadAll(ctx context.Context) (*service.Catalog, error)
}

// ReloadWorker periodically refreshes the full catalog from ELIT.
type ReloadWorker struct {
	session  CatalogReloader
	interval time.Duration
}

// NewReloadWorker constructs a ReloadWorker.
func NewReloadWorker(session CatalogReloader, interval time.Duration) *ReloadWorker {
	return &ReloadWorker{
		session:  session,
		interval: interval,
	}
}

// Start begins the periodic reload loop and listens for context cancellation.
// The startup load is handled elsewhere, so the first reload waits one interval.
func (w *ReloadWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("Reload worker disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("Starting reload worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Reload worker stopped")
			return
		}
	}
}

func (w *ReloadWorker) run(ctx context.Context) {
	if _, ok := w.session.Credentials(); !ok {
		log.Debug().Msg("Skipping catalog reload, no credentials")
		return
	}

	log.Info().Msg("Reloading catalog from ELIT...")

	start := time.Now()
	cat, err := w.session.LoadAll(ctx)
	if err != nil {
		if errors.Is(err, utils.ErrSuperseded) {
			log.Debug().Msg("Catalog reload superseded by a newer load")
			return
		}
		log.Error().Err(err).Msg("Failed to reload catalog")
		return
	}

	log.Info().Int("products", cat.Len()).Dur("duration", time.Since(start)).Msg("Catalog reload completed")
}
