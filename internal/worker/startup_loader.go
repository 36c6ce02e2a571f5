package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/elit_catalog/internal/cache"
	"github.com/GTDGit/elit_catalog/internal/service"
	"github.com/GTDGit/elit_catalog/pkg/elit"
)

// CredentialCache is the part of cache.CredentialStore used at startup.
type CredentialCache interface {
	Load(ctx context.Context) (elit.Credentials, error)
	Delete(ctx context.Context) error
}

// InitialLoader is the part of service.Session used at startup.
type InitialLoader interface {
	SetCredentials(creds elit.Credentials) error
	ClearCredentials()
	InitialLoad(ctx context.Context, retryDelay time.Duration) (*service.Catalog, error)
}

// StartupLoader loads the catalog when the process starts. Cached
// credentials from the last login are tried first; if ELIT rejects them they
// are removed from the cache and the configured account is tried instead.
type StartupLoader struct {
	session    InitialLoader
	store      CredentialCache
	configured elit.Credentials
	retryDelay time.Duration
}

// NewStartupLoader constructs a StartupLoader. store may be nil and
// configured may be empty.
func NewStartupLoader(session InitialLoader, store CredentialCache, configured elit.Credentials, retryDelay time.Duration) *StartupLoader {
	return &StartupLoader{
		session:    session,
		store:      store,
		configured: configured,
		retryDelay: retryDelay,
	}
}

// Run performs the startup load and returns the installed catalog.
func (l *StartupLoader) Run(ctx context.Context) (*service.Catalog, error) {
	cached, hasCached := l.cachedCredentials(ctx)
	if hasCached {
		cat, err := l.load(ctx, cached)
		if err == nil || !elit.IsRejected(err) {
			return cat, err
		}

		log.Warn().Err(err).Stringer("credentials", cached).Msg("Cached ELIT credentials rejected, removing them")
		if derr := l.store.Delete(ctx); derr != nil {
			log.Error().Err(derr).Msg("Failed to remove cached credentials")
		}
		l.session.ClearCredentials()
		if !l.hasConfigured() || l.configured == cached {
			return nil, err
		}
	}

	if !l.hasConfigured() {
		log.Info().Msg("No ELIT credentials configured, waiting for login")
		return nil, nil
	}
	return l.load(ctx, l.configured)
}

func (l *StartupLoader) hasConfigured() bool {
	return l.configured.Validate() == nil
}

func (l *StartupLoader) cachedCredentials(ctx context.Context) (elit.Credentials, bool) {
	if l.store == nil {
		return elit.Credentials{}, false
	}
	creds, err := l.store.Load(ctx)
	switch {
	case err == nil:
		log.Info().Stringer("credentials", creds).Msg("Using cached ELIT credentials")
		return creds, true
	case errors.Is(err, cache.ErrCredentialsNotFound):
	default:
		log.Warn().Err(err).Msg("Failed to read cached credentials")
	}
	return elit.Credentials{}, false
}

func (l *StartupLoader) load(ctx context.Context, creds elit.Credentials) (*service.Catalog, error) {
	if err := l.session.SetCredentials(creds); err != nil {
		return nil, err
	}
	cat, err := l.session.InitialLoad(ctx, l.retryDelay)
	if err != nil {
		return nil, err
	}
	log.Info().Int("products", cat.Len()).Msg("Initial catalog load completed")
	return cat, nil
}
