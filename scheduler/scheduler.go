package scheduler

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"
	"github.com/rs/zerolog"
)

// WarmupDelay is how long after Start the first trigger may fire.
const WarmupDelay = 5 * time.Second

// Elector answers whether this replica currently leads a named trigger.
type Elector interface {
	RegisterTrigger(name string)
	IsLeader(name string) bool
}

// Scheduler drives the named periodic triggers. A trigger only fires when
// this replica is the leader for it AND its target workflow is idle; missed
// firings are dropped, never caught up.
type Scheduler struct {
	elector  Elector
	inflight *Inflight
	cron     *gron.Cron
	log      zerolog.Logger

	mu        sync.Mutex
	lastFired map[string]time.Time
	warmup    *time.Timer
}

// New returns a scheduler gated by elector and inflight.
func New(elector Elector, inflight *Inflight, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		elector:   elector,
		inflight:  inflight,
		cron:      gron.New(),
		log:       log.With().Str("component", "scheduler").Logger(),
		lastFired: map[string]time.Time{},
	}
}

// RegisterTrigger schedules fire() every period under the trigger name,
// suppressing invocations of workflow that would overlap within this replica.
// gron runs every firing on its own goroutine, so a slow workflow never
// delays the other triggers.
func (s *Scheduler) RegisterTrigger(name string, period time.Duration, workflow string, fire func()) {
	s.elector.RegisterTrigger(name)
	s.cron.AddFunc(gron.Every(period), func() {
		if !s.elector.IsLeader(name) {
			s.log.Trace().Str("trigger", name).Msg("not leader, skipping")
			return
		}
		if !s.inflight.IsIdle(workflow) {
			s.log.Debug().Str("trigger", name).Str("workflow", workflow).Msg("workflow still running, skipping")
			return
		}
		s.mu.Lock()
		s.lastFired[name] = time.Now()
		s.mu.Unlock()
		s.log.Debug().Str("trigger", name).Msg("triggered by timer")
		fire()
	})
	s.log.Info().Str("trigger", name).Dur("period", period).Msg("registered trigger")
}

// Start arms the timers after the warmup delay.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warmup = time.AfterFunc(WarmupDelay, s.cron.Start)
}

// Stop cancels the timers. In-flight workflows finish but are not restarted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.warmup != nil {
		s.warmup.Stop()
	}
	s.cron.Stop()
}

// LastFired returns when name last passed both gates, or the zero time.
func (s *Scheduler) LastFired(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFired[name]
}
