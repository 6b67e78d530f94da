package scheduler

import "sync"

// Inflight counts running invocations of each named workflow within this
// process. It is advisory and per-replica: the scheduler uses it to avoid
// piling work onto a workflow that is still executing; cluster-wide
// de-duplication is leader election's job.
type Inflight struct {
	mu      sync.Mutex
	running map[string]int
}

// NewInflight returns an empty registry.
func NewInflight() *Inflight {
	return &Inflight{running: map[string]int{}}
}

// Enter records the start of one invocation of name and returns the function
// that records its completion.
func (i *Inflight) Enter(name string) func() {
	i.mu.Lock()
	i.running[name]++
	i.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			i.mu.Lock()
			i.running[name]--
			i.mu.Unlock()
		})
	}
}

// IsIdle reports whether zero invocations of name are currently executing.
func (i *Inflight) IsIdle(name string) bool {
	return i.Count(name) == 0
}

// Count returns the number of running invocations of name.
func (i *Inflight) Count(name string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running[name]
}
