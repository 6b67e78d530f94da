package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Coordinator elects one leader per named trigger across all replicas by
// holding a lease entry in the shared map. Leadership is authoritative only
// while the lease is held: a replica that pauses or crashes loses its lease
// after leaseTTL and must win a new election before reporting leadership
// again.
type Coordinator struct {
	sharedMap SharedMap
	memberID  string
	leaseTTL  time.Duration
	log       zerolog.Logger

	mu       sync.RWMutex
	leaders  map[string]bool
	triggers []string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewCoordinator returns a coordinator identified as memberID. leaseTTL
// bounds failover time; leases are renewed at a third of it.
func NewCoordinator(m SharedMap, memberID string, leaseTTL time.Duration, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		sharedMap: m,
		memberID:  memberID,
		leaseTTL:  leaseTTL,
		log:       log.With().Str("component", "coordinator").Logger(),
		leaders:   map[string]bool{},
	}
}

// RegisterTrigger enters name into the election. Must be called before Start.
func (c *Coordinator) RegisterTrigger(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggers = append(c.triggers, name)
	c.leaders[name] = false
}

// IsLeader reports whether this replica currently owns the lease for name.
func (c *Coordinator) IsLeader(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.leaders[name]
}

// Start begins the election loop. Leases are contended immediately and then
// renewed on a cadence shorter than their expiry.
func (c *Coordinator) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.electAll()
	go c.run(ctx)
}

// Stop releases all held leases and stops renewing.
func (c *Coordinator) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.triggers {
		if c.leaders[name] {
			c.sharedMap.Release(lockKeyPrefix+name, c.memberID)
			c.leaders[name] = false
		}
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.leaseTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.electAll()
		}
	}
}

func (c *Coordinator) electAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.triggers {
		held := c.leaders[name]
		got := c.sharedMap.Acquire(lockKeyPrefix+name, c.memberID, c.leaseTTL)
		if got != held {
			if got {
				c.log.Info().Str("trigger", name).Msg("became leader")
			} else {
				c.log.Info().Str("trigger", name).Msg("lost leadership")
			}
		}
		c.leaders[name] = got
	}
}
