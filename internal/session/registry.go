package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/audit"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/platform"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/security"
)

// Registry holds every live orchestrator, keyed by session ID. Joins are
// idempotent: the first join creates and loads the orchestrator, concurrent
// joins wait for that load, later joins get the existing instance.
type Registry struct {
	api platform.API
	rdb *redis.Client
	cfg *config.Config
	log zerolog.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*registryEntry
}

type registryEntry struct {
	o      *Orchestrator
	result *LoadResult
	err    error
	done   chan struct{}
}

// NewRegistry creates the live-session registry.
func NewRegistry(api platform.API, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *Registry {
	return &Registry{
		api:     api,
		rdb:     rdb,
		cfg:     cfg,
		log:     log.With().Str("component", "session_registry").Logger(),
		entries: make(map[uuid.UUID]*registryEntry),
	}
}

// Obtain returns the live orchestrator for a session, creating and loading it
// on first join. The LoadResult tells the caller whether to proceed or route
// the candidate away.
func (r *Registry) Obtain(ctx context.Context, sessionID uuid.UUID) (*Orchestrator, *LoadResult, error) {
	r.mu.Lock()
	if e, ok := r.entries[sessionID]; ok {
		r.mu.Unlock()
		<-e.done
		return e.o, e.result, e.err
	}

	e := &registryEntry{done: make(chan struct{})}
	e.o = New(
		sessionID,
		r.api,
		security.NewQueueReporter(r.rdb, sessionID, r.log),
		audit.NewQueueAuditor(r.rdb, r.log),
		Callbacks{
			OnComplete: func(final *model.Session) {
				r.log.Info().
					Str("session_id", sessionID.String()).
					Str("status", string(final.Status)).
					Msg("Session finished")
				r.Remove(sessionID)
			},
			OnExit: func() { r.Remove(sessionID) },
		},
		Config{AllowReanswer: r.cfg.AllowReanswer},
		r.log,
	)
	r.entries[sessionID] = e
	r.mu.Unlock()

	e.result, e.err = e.o.Load(ctx)
	close(e.done)

	if e.err != nil || (e.result != nil && e.result.Disposition != DispositionProceed) {
		r.Remove(sessionID)
	}
	return e.o, e.result, e.err
}

// Get returns a loaded live orchestrator, or false.
func (r *Registry) Get(sessionID uuid.UUID) (*Orchestrator, bool) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.done:
	default:
		return nil, false // still loading
	}
	if e.err != nil {
		return nil, false
	}
	return e.o, true
}

// Remove drops a session from the registry.
func (r *Registry) Remove(sessionID uuid.UUID) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	r.mu.Unlock()
}

// Count returns how many sessions are currently live. Used by health checks.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
