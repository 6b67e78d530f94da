package subscription

import (
	"sort"
	"sync"
)

// Lookup is the read side the matching engines use. Results are snapshots:
// mutating them does not affect the index.
type Lookup interface {
	ForStopPoint(stopPointRef string) []*Subscription
	ForLineRef(lineRef string) []*Subscription
	ForVehicleRef(vehicleRef string) []*Subscription
}

// Index is an in-memory subscription index keyed by stop point, line and
// vehicle ref.
type Index struct {
	mu        sync.RWMutex
	byID      map[string]*Subscription
	byStop    map[string]map[string]*Subscription
	byLine    map[string]map[string]*Subscription
	byVehicle map[string]map[string]*Subscription
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byID:      map[string]*Subscription{},
		byStop:    map[string]map[string]*Subscription{},
		byLine:    map[string]map[string]*Subscription{},
		byVehicle: map[string]map[string]*Subscription{},
	}
}

// Add validates and indexes s, assigning an id when absent.
func (x *Index) Add(s *Subscription) (*Subscription, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	s.ensureID()
	x.mu.Lock()
	defer x.mu.Unlock()
	if old, ok := x.byID[s.ID]; ok {
		x.removeLocked(old)
	}
	x.byID[s.ID] = s
	for _, ref := range s.FromStopPoints {
		x.indexInto(x.byStop, ref, s)
	}
	for _, ref := range s.ToStopPoints {
		x.indexInto(x.byStop, ref, s)
	}
	for _, ref := range s.LineRefs {
		x.indexInto(x.byLine, ref, s)
	}
	for _, ref := range s.VehicleRefs {
		x.indexInto(x.byVehicle, ref, s)
	}
	return s, nil
}

// Remove drops the subscription with the given id, reporting whether it
// existed.
func (x *Index) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	s, ok := x.byID[id]
	if !ok {
		return false
	}
	x.removeLocked(s)
	return true
}

// All lists every subscription, ordered by id.
func (x *Index) All() []*Subscription {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]*Subscription, 0, len(x.byID))
	for _, s := range x.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (x *Index) ForStopPoint(stopPointRef string) []*Subscription {
	return x.collect(x.byStop, stopPointRef)
}

func (x *Index) ForLineRef(lineRef string) []*Subscription {
	return x.collect(x.byLine, lineRef)
}

func (x *Index) ForVehicleRef(vehicleRef string) []*Subscription {
	return x.collect(x.byVehicle, vehicleRef)
}

func (x *Index) collect(m map[string]map[string]*Subscription, key string) []*Subscription {
	x.mu.RLock()
	defer x.mu.RUnlock()
	set := m[key]
	out := make([]*Subscription, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

func (x *Index) indexInto(m map[string]map[string]*Subscription, key string, s *Subscription) {
	set, ok := m[key]
	if !ok {
		set = map[string]*Subscription{}
		m[key] = set
	}
	set[s.ID] = s
}

func (x *Index) removeLocked(s *Subscription) {
	delete(x.byID, s.ID)
	for _, ref := range s.FromStopPoints {
		delete(x.byStop[ref], s.ID)
	}
	for _, ref := range s.ToStopPoints {
		delete(x.byStop[ref], s.ID)
	}
	for _, ref := range s.LineRefs {
		delete(x.byLine[ref], s.ID)
	}
	for _, ref := range s.VehicleRefs {
		delete(x.byVehicle[ref], s.ID)
	}
}
