package worker

import (
	"context"
	"time"

	"github.com/eduquest/questgate/internal/session"
	"github.com/rs/zerolog"
)

// reapInterval is how often idle sessions are swept. Sessions idle past the
// configured TTL are dropped; any in-flight upstream results they were
// waiting on are discarded with them.
const reapInterval = time.Minute

// ReaperWorker drops attempt sessions that have been idle past their TTL.
type ReaperWorker struct {
	store *session.Store
	ttl   time.Duration
	log   zerolog.Logger
}

// NewReaperWorker creates a new ReaperWorker.
func NewReaperWorker(store *session.Store, ttl time.Duration, log zerolog.Logger) *ReaperWorker {
	return &ReaperWorker{
		store: store,
		ttl:   ttl,
		log:   log.With().Str("component", "reaper_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ReaperWorker) Start(ctx context.Context) {
	w.log.Info().Dur("ttl", w.ttl).Msg("Worker started")

	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			if reaped := w.store.ReapIdle(w.ttl); reaped > 0 {
				w.log.Info().
					Int("reaped", reaped).
					Int("remaining", w.store.Len()).
					Msg("Reaped idle sessions")
			}
		}
	}
}
