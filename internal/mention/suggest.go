package mention

import (
	"context"
	"sync"
	"time"

	"clubhouse/internal/models"
)

const (
	// DefaultSuggestDelay is the idle time after the last keystroke before a
	// suggestion lookup runs.
	DefaultSuggestDelay = 300 * time.Millisecond
	// MaxSuggestions caps every suggestion result.
	MaxSuggestions = 5
)

// LookupFunc searches profiles by username prefix.
type LookupFunc func(ctx context.Context, prefix string, limit int) ([]models.Profile, error)

// Suggester debounces username-prefix lookups for one editing context.
// Only the latest query is ever delivered; Close cancels whatever is
// pending or in flight.
type Suggester struct {
	lookup LookupFunc
	delay  time.Duration

	mu       sync.Mutex
	ctx      context.Context
	stop     context.CancelFunc
	timer    *time.Timer
	inflight context.CancelFunc
	seq      uint64
}

// NewSuggester creates a Suggester. A non-positive delay uses DefaultSuggestDelay.
func NewSuggester(lookup LookupFunc, delay time.Duration) *Suggester {
	if delay <= 0 {
		delay = DefaultSuggestDelay
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Suggester{lookup: lookup, delay: delay, ctx: ctx, stop: stop}
}

// Query schedules a lookup for prefix, replacing any earlier pending query.
// deliver runs on a background goroutine with at most MaxSuggestions profiles.
func (s *Suggester) Query(prefix string, deliver func([]models.Profile, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	s.timer = time.AfterFunc(s.delay, func() { s.run(seq, prefix, deliver) })
}

func (s *Suggester) run(seq uint64, prefix string, deliver func([]models.Profile, error)) {
	s.mu.Lock()
	if seq != s.seq || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.inflight = cancel
	s.mu.Unlock()
	defer cancel()

	profiles, err := s.lookup(ctx, prefix, MaxSuggestions)
	if ctx.Err() != nil {
		return
	}
	if len(profiles) > MaxSuggestions {
		profiles = profiles[:MaxSuggestions]
	}

	s.mu.Lock()
	current := seq == s.seq
	s.mu.Unlock()
	if current {
		deliver(profiles, err)
	}
}

// Close cancels pending and in-flight lookups. Further queries are ignored.
func (s *Suggester) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.stop()
}
