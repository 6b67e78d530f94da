// Package tiamat maintains the quay to stop-place mapping fetched from the
// Tiamat stop-place registry. The matching engines use it to broaden quay
// ids to their parent stop places.
package tiamat

import (
	"sync"
	"time"
)

// Mapping is the process-wide quay to stop-place map. Reads vastly outnumber
// writes; a refresh swaps the maps wholesale.
type Mapping struct {
	mu               sync.RWMutex
	quayToStopPlace  map[string]string
	stopPlaceToQuays map[string][]string
	updated          time.Time
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{
		quayToStopPlace:  map[string]string{},
		stopPlaceToQuays: map[string][]string{},
	}
}

// StopPlaceForQuay resolves a quay id to its parent stop place.
func (m *Mapping) StopPlaceForQuay(quayID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sp, ok := m.quayToStopPlace[quayID]
	return sp, ok
}

// QuaysForStopPlace returns the quays belonging to a stop place.
func (m *Mapping) QuaysForStopPlace(stopPlaceID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	quays := m.stopPlaceToQuays[stopPlaceID]
	out := make([]string, len(quays))
	copy(out, quays)
	return out
}

// Update replaces the mapping with stopPlaceQuays (stop place id to its quay
// ids), as delivered by Tiamat.
func (m *Mapping) Update(stopPlaceQuays map[string][]string) {
	quayToStopPlace := make(map[string]string, len(stopPlaceQuays)*2)
	stopPlaceToQuays := make(map[string][]string, len(stopPlaceQuays))
	for stopPlace, quays := range stopPlaceQuays {
		copied := make([]string, len(quays))
		copy(copied, quays)
		stopPlaceToQuays[stopPlace] = copied
		for _, quay := range quays {
			quayToStopPlace[quay] = stopPlace
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quayToStopPlace = quayToStopPlace
	m.stopPlaceToQuays = stopPlaceToQuays
	m.updated = time.Now()
}

// Size returns the number of known quays.
func (m *Mapping) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.quayToStopPlace)
}

// LastUpdated returns when the mapping was last refreshed.
func (m *Mapping) LastUpdated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}
