package moderation

import (
	"sync/atomic"

	"github.com/Veraticus/ingredient-moderator/internal/model"
)

// sessionStats counts outcomes since start or the last reset. The counters
// are telemetry only and never drive control flow.
type sessionStats struct {
	processed  atomic.Int64
	autoLinked atomic.Int64
	aiCalls    atomic.Int64
	tokens     atomic.Int64
	cacheHits  atomic.Int64
	errors     atomic.Int64
}

func (s *sessionStats) snapshot() model.Stats {
	return model.Stats{
		TotalProcessed: s.processed.Load(),
		AutoLinked:     s.autoLinked.Load(),
		AICalls:        s.aiCalls.Load(),
		TokensUsed:     s.tokens.Load(),
		CacheHits:      s.cacheHits.Load(),
		Errors:         s.errors.Load(),
	}
}

func (s *sessionStats) reset() {
	s.processed.Store(0)
	s.autoLinked.Store(0)
	s.aiCalls.Store(0)
	s.tokens.Store(0)
	s.cacheHits.Store(0)
	s.errors.Store(0)
}
