// Package live keeps the in-memory cache of the most recent estimated
// journey per vehicle journey ref. It exists to answer the /journeys REST
// surface and is flushed periodically; journeys are never persisted.
package live

import (
	"sort"
	"sync"
	"time"

	"github.com/bratomyr/ukur/siri"
)

// Workflow is the inflight name of the flush workflow.
const Workflow = "FlushOldJourneys"

// Journeys caches the latest EstimatedVehicleJourney per journey ref.
type Journeys struct {
	mu    sync.RWMutex
	byRef map[string]*entry
}

type entry struct {
	journey  *siri.EstimatedVehicleJourney
	lastCall time.Time
}

// NewJourneys returns an empty cache.
func NewJourneys() *Journeys {
	return &Journeys{byRef: map[string]*entry{}}
}

// UpdateJourney stores j, replacing any previous version of the same
// journey. Journeys without a usable ref are ignored.
func (l *Journeys) UpdateJourney(j *siri.EstimatedVehicleJourney) {
	ref := j.JourneyRef()
	if ref == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byRef[ref] = &entry{journey: j, lastCall: lastCallTime(j)}
}

// Journeys lists cached journeys, optionally filtered by line ref, ordered by
// journey ref.
func (l *Journeys) Journeys(lineRef string) []*siri.EstimatedVehicleJourney {
	l.mu.RLock()
	defer l.mu.RUnlock()
	refs := make([]string, 0, len(l.byRef))
	for ref, e := range l.byRef {
		if lineRef == "" || e.journey.LineRef == lineRef {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	out := make([]*siri.EstimatedVehicleJourney, 0, len(refs))
	for _, ref := range refs {
		out = append(out, l.byRef[ref].journey)
	}
	return out
}

// FlushOldJourneys drops journeys whose final call is entirely in the past,
// returning how many were removed.
func (l *Journeys) FlushOldJourneys(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for ref, e := range l.byRef {
		if e.lastCall.Before(now) {
			delete(l.byRef, ref)
			removed++
		}
	}
	return removed
}

// Count returns the number of cached journeys.
func (l *Journeys) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byRef)
}

// lastCallTime finds the latest time mentioned on the journey's calls. A
// journey without any times is flushed on the next pass.
func lastCallTime(j *siri.EstimatedVehicleJourney) time.Time {
	var last time.Time
	consider := func(t *siri.XMLTime) {
		if t != nil && t.After(last) {
			last = t.Time
		}
	}
	if j.EstimatedCalls != nil {
		for i := range j.EstimatedCalls.EstimatedCall {
			c := &j.EstimatedCalls.EstimatedCall[i]
			consider(c.AimedArrivalTime)
			consider(c.ExpectedArrivalTime)
			consider(c.AimedDepartureTime)
			consider(c.ExpectedDepartureTime)
		}
	}
	if j.RecordedCalls != nil {
		for i := range j.RecordedCalls.RecordedCall {
			c := &j.RecordedCalls.RecordedCall[i]
			consider(c.AimedArrivalTime)
			consider(c.ActualArrivalTime)
			consider(c.AimedDepartureTime)
			consider(c.ActualDepartureTime)
		}
	}
	return last
}
