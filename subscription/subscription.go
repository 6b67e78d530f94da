// Package subscription holds the subscription model, the in-memory index the
// matching engine queries, and the notifier boundary. The durable
// subscription store lives outside this process; ukur only reads.
package subscription

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Subscription describes one subscriber: a journey leg between two sets of
// stops, optionally narrowed to specific lines or vehicles. Empty LineRefs or
// VehicleRefs means "match any".
type Subscription struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	PushAddress    string   `json:"pushAddress,omitempty"`
	FromStopPoints []string `json:"fromStopPoints"`
	ToStopPoints   []string `json:"toStopPoints"`
	LineRefs       []string `json:"lineRefs,omitempty"`
	VehicleRefs    []string `json:"vehicleRefs,omitempty"`
}

// HasFromStop reports whether ref is one of the subscription's origin stops.
func (s *Subscription) HasFromStop(ref string) bool {
	return slices.Contains(s.FromStopPoints, ref)
}

// HasToStop reports whether ref is one of the subscription's destination stops.
func (s *Subscription) HasToStop(ref string) bool {
	return slices.Contains(s.ToStopPoints, ref)
}

func (s *Subscription) validate() error {
	if len(s.FromStopPoints) == 0 || len(s.ToStopPoints) == 0 {
		if len(s.LineRefs) == 0 && len(s.VehicleRefs) == 0 {
			return fmt.Errorf("subscription must name from/to stops or a line/vehicle")
		}
	}
	return nil
}

func (s *Subscription) ensureID() {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
}
