// Package et implements the EstimatedTimetable matching engine: it derives
// the per-stop deviations from one estimated journey and intersects them
// with the subscription index to decide who gets notified.
package et

import "time"

// DeviatingStop is one per-stop fact derived from an estimated journey:
// the stop's call is either cancelled, or delayed on departure, arrival or
// both.
type DeviatingStop struct {
	StopPointRef     string
	Cancelled        bool
	DelayedDeparture bool
	DelayedArrival   bool
}

// CancelledStop returns a cancellation deviation for ref.
func CancelledStop(ref string) DeviatingStop {
	return DeviatingStop{StopPointRef: ref, Cancelled: true}
}

// DelayedStop returns a delay deviation for ref. At least one of the two
// flags is expected to be true.
func DelayedStop(ref string, departure, arrival bool) DeviatingStop {
	return DeviatingStop{StopPointRef: ref, DelayedDeparture: departure, DelayedArrival: arrival}
}

// StopData is what the direction check needs to know about one stop of one
// journey: when the vehicle aims to leave it, and whether boarding or
// alighting is permitted there. Empty activity strings mean "not stated".
type StopData struct {
	AimedDepartureTime        *time.Time
	ArrivalBoardingActivity   string
	DepartureBoardingActivity string
}

// JourneyStopIndex maps stop point refs to StopData for exactly one journey.
// Entries keyed by a resolvable NSR quay id are duplicated under the parent
// stop-place key; originals remain, and the last writer wins on parent-key
// collisions.
type JourneyStopIndex map[string]StopData
