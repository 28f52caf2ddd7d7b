// Package remote loads the manifest of the remote UI component bundle once
// per process and resolves exposed components to asset URLs.
package remote

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/metrics"
)

// DefaultLoadTimeout bounds a shared manifest load.
const DefaultLoadTimeout = 10 * time.Second

// Manifest describes a remote bundle: its name and the components it
// exposes, mapped to asset paths relative to the bundle's base URL.
type Manifest struct {
	Name    string            `json:"name"`
	Exposes map[string]string `json:"exposes"`
}

// Source fetches the raw manifest document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Loader caches the manifest after the first successful load. Concurrent
// first callers share one in-flight fetch; failed loads are not cached.
type Loader struct {
	source  Source
	baseURL string
	timeout time.Duration
	logger  *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	manifest *Manifest
}

// NewLoader creates a loader reading from source. Resolved asset paths are
// joined onto baseURL.
func NewLoader(source Source, baseURL string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		source:  source,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultLoadTimeout,
		logger:  logger,
	}
}

// Load returns the cached manifest, fetching it on first use.
func (l *Loader) Load(ctx context.Context) (*Manifest, error) {
	l.mu.RLock()
	cached := l.manifest
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	ch := l.group.DoChan("manifest", func() (any, error) {
		l.mu.RLock()
		cached := l.manifest
		l.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		// Detached from the first caller so its cancellation does not fail
		// everyone waiting on the same load.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		m, err := l.fetch(loadCtx)
		if err != nil {
			metrics.RecordRemoteLoad(metrics.ResultFailure)
			return nil, err
		}

		l.mu.Lock()
		l.manifest = m
		l.mu.Unlock()
		metrics.RecordRemoteLoad(metrics.ResultSuccess)
		l.logger.Info("remote manifest loaded", "name", m.Name, "exposes", len(m.Exposes))
		return m, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Manifest), nil
	}
}

func (l *Loader) fetch(ctx context.Context) (*Manifest, error) {
	raw, err := l.source.Fetch(ctx)
	if err != nil {
		return nil, oops.Code("REMOTE_FETCH_FAILED").Wrap(err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, oops.Code("REMOTE_MANIFEST_INVALID").Wrap(err)
	}
	if m.Exposes == nil {
		m.Exposes = map[string]string{}
	}
	return &m, nil
}

// Resolve returns the asset URL for an exposed component. Names may be
// given with or without the leading "./".
func (l *Loader) Resolve(ctx context.Context, module string) (string, error) {
	m, err := l.Load(ctx)
	if err != nil {
		return "", err
	}

	name := module
	if !strings.HasPrefix(name, "./") {
		name = "./" + name
	}
	path, ok := m.Exposes[name]
	if !ok {
		return "", apperr.NotFound("remote component " + module + " is not exposed")
	}
	return l.baseURL + "/" + strings.TrimLeft(path, "/"), nil
}
