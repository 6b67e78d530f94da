package cluster

import (
	"sync"
	"time"
)

// Well-known shared map keys.
const (
	// RequestorIDKey holds the cluster-wide stable requestor identifier.
	RequestorIDKey = "AnsharRequestorId"
	// LastReceivedKeyPrefix is followed by the feed kind ("et"/"sx") and
	// maps to the epoch milliseconds of the last subscribed payload.
	LastReceivedKeyPrefix = "AnsharLastReceived-"
	// lockKeyPrefix is followed by a trigger name; entry ownership is the
	// leadership lease for that trigger.
	lockKeyPrefix = "lock/"
)

// SharedMap is the key/value store all replicas read and write. Liveness and
// requestor-id keys only need eventual consistency; Acquire must provide
// single-writer-per-key with bounded failover for the leases.
type SharedMap interface {
	// Get returns the value stored under key.
	Get(key string) (string, bool)
	// Set stores value under key, last writer wins.
	Set(key, value string)
	// PutIfAbsent stores value unless key already has one; it returns the
	// winning value and whether this call was the writer.
	PutIfAbsent(key, value string) (string, bool)
	// Acquire takes or renews a lease on key for owner. It returns false
	// when another owner holds an unexpired lease.
	Acquire(key, owner string, ttl time.Duration) bool
	// Release drops the lease on key if owner holds it.
	Release(key, owner string)
}

// LocalMap is the in-process SharedMap used for single-replica deployments
// and tests. Leases expire by wall clock.
type LocalMap struct {
	mu     sync.Mutex
	values map[string]string
	leases map[string]lease
	now    func() time.Time
}

type lease struct {
	owner   string
	expires time.Time
}

// NewLocalMap returns an empty LocalMap.
func NewLocalMap() *LocalMap {
	return &LocalMap{
		values: map[string]string{},
		leases: map[string]lease{},
		now:    time.Now,
	}
}

func (m *LocalMap) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *LocalMap) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *LocalMap) PutIfAbsent(key, value string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.values[key]; ok {
		return existing, false
	}
	m.values[key] = value
	return value, true
}

func (m *LocalMap) Acquire(key, owner string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	l, ok := m.leases[key]
	if ok && l.owner != owner && l.expires.After(now) {
		return false
	}
	m.leases[key] = lease{owner: owner, expires: now.Add(ttl)}
	return true
}

func (m *LocalMap) Release(key, owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[key]; ok && l.owner == owner {
		delete(m.leases, key)
	}
}
