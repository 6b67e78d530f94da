package et

import (
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bratomyr/ukur/archive"
	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/siri"
	"github.com/bratomyr/ukur/subscription"
)

// Journeys attributed to this service feature are never of interest to
// passengers.
const freightTrainFeature = "freightTrain"

const (
	nsrPrefix     = "NSR:"
	nsrQuayPrefix = "NSR:Quay:"
)

// QuayResolver resolves a quay id to its parent stop place.
type QuayResolver interface {
	StopPlaceForQuay(quayID string) (string, bool)
}

// LiveJourneyUpdater receives every processed journey.
type LiveJourneyUpdater interface {
	UpdateJourney(j *siri.EstimatedVehicleJourney)
}

// Engine matches estimated journeys against the subscription index.
type Engine struct {
	subs     subscription.Lookup
	notifier subscription.Notifier
	quays    QuayResolver
	live     LiveJourneyUpdater
	archive  archive.Archive
	metrics  metrics.Provider
	log      zerolog.Logger
	now      func() time.Time
}

// NewEngine wires the engine to its collaborators. The index, quay mapping
// and live cache are treated as read-only snapshots per invocation.
func NewEngine(subs subscription.Lookup, notifier subscription.Notifier, quays QuayResolver, live LiveJourneyUpdater, arch archive.Archive, m metrics.Provider, log zerolog.Logger) *Engine {
	return &Engine{
		subs:     subs,
		notifier: notifier,
		quays:    quays,
		live:     live,
		archive:  arch,
		metrics:  m,
		log:      log.With().Str("component", "et").Logger(),
		now:      time.Now,
	}
}

// HandleMessage is the ET queue consumer entry point: msg is one serialized
// EstimatedVehicleJourney.
func (e *Engine) HandleMessage(msg []byte) {
	journey, err := siri.ParseEstimatedVehicleJourney(msg)
	if err != nil {
		e.metrics.IncError(metrics.ErrMalformedPayload)
		e.log.Error().Err(err).Int("bytes", len(msg)).Msg("dropping unparsable ET message")
		return
	}
	e.metrics.IncReceived("et")
	start := e.now()
	processed := e.ProcessJourney(journey)
	e.metrics.ObserveProcess("et", time.Since(start))
	if processed {
		if err := e.archive.WriteJourney(journey); err != nil {
			e.log.Error().Err(err).Msg("failed to archive journey")
		}
	}
}

// ProcessJourney runs the matching algorithm for one journey. It returns
// false only when the journey is ignored outright.
func (e *Engine) ProcessJourney(journey *siri.EstimatedVehicleJourney) bool {
	if shouldIgnoreJourney(journey) {
		e.log.Debug().Str("lineRef", journey.LineRef).Msg("ignoring freight train journey")
		return false
	}
	e.live.UpdateJourney(journey)

	deviations := e.estimatedDelaysAndCancellations(journey)
	if len(deviations) == 0 {
		e.log.Trace().Str("lineRef", journey.LineRef).Str("journeyRef", journey.JourneyRef()).Msg("no estimated delays or cancellations")
		return true
	}
	e.log.Debug().Str("lineRef", journey.LineRef).Str("journeyRef", journey.JourneyRef()).Int("deviations", len(deviations)).Msg("processing journey with deviations")

	lineRef := journey.LineRef
	vehicleRef := journey.VehicleRef
	toNotify := map[string]*subscription.Subscription{}
	for _, affected := range e.findAffectedSubscriptions(deviations, journey) {
		for _, sub := range affected.subs {
			if notIncluded(lineRef, sub.LineRefs) || notIncluded(vehicleRef, sub.VehicleRefs) {
				continue
			}
			// the same subscription is normally found twice, once for
			// its from stop and once for its to stop
			toNotify[sub.ID] = sub
		}
	}
	if err := e.notifier.NotifyOnStops(sortedByID(toNotify), journey); err != nil {
		e.metrics.IncError(metrics.ErrNotifyFailure)
		e.log.Error().Err(err).Msg("notify on stops failed")
	}

	lineOrVehicle := e.lineOrVehicleSubscriptions(lineRef, vehicleRef)
	if len(lineOrVehicle) > 0 {
		if err := e.notifier.NotifyFullMessage(sortedByID(lineOrVehicle), journey); err != nil {
			e.metrics.IncError(metrics.ErrNotifyFailure)
			e.log.Error().Err(err).Msg("notify full message failed")
		}
	}
	return true
}

func shouldIgnoreJourney(journey *siri.EstimatedVehicleJourney) bool {
	for _, feature := range journey.ServiceFeatureRef {
		if strings.EqualFold(feature, freightTrainFeature) {
			return true
		}
	}
	return false
}

// estimatedDelaysAndCancellations derives the deviations for all future
// estimated calls of the journey.
func (e *Engine) estimatedDelaysAndCancellations(journey *siri.EstimatedVehicleJourney) []DeviatingStop {
	if journey.EstimatedCalls == nil {
		return nil
	}
	cancelledJourney := journey.IsCancelled()
	now := e.now()
	var deviations []DeviatingStop
	for i := range journey.EstimatedCalls.EstimatedCall {
		call := &journey.EstimatedCalls.EstimatedCall[i]
		if !futureEstimatedCall(call, now) {
			continue
		}
		if cancelledJourney || (call.Cancellation != nil && *call.Cancellation) {
			deviations = append(deviations, CancelledStop(call.StopPointRef))
			continue
		}
		delayedDeparture := call.DepartureStatus == siri.CallStatusDelayed ||
			isDelayed(call.AimedDepartureTime, call.ExpectedDepartureTime)
		delayedArrival := call.ArrivalStatus == siri.CallStatusDelayed ||
			isDelayed(call.AimedArrivalTime, call.ExpectedArrivalTime)
		if delayedDeparture || delayedArrival {
			deviations = append(deviations, DelayedStop(call.StopPointRef, delayedDeparture, delayedArrival))
		}
	}
	return deviations
}

func futureEstimatedCall(call *siri.EstimatedCall, now time.Time) bool {
	if call.ExpectedDepartureTime != nil {
		return now.Before(call.ExpectedDepartureTime.Time)
	}
	if call.AimedDepartureTime != nil {
		return now.Before(call.AimedDepartureTime.Time)
	}
	return false
}

func isDelayed(aimed, expected *siri.XMLTime) bool {
	return aimed != nil && expected != nil && expected.After(aimed.Time)
}

type deviatingStopAndSubscriptions struct {
	deviation DeviatingStop
	subs      []*subscription.Subscription
}

// findAffectedSubscriptions joins the deviations against the subscription
// index, applying the direction and delayed/cancelled predicates. Only stop
// refs on the national format are considered.
func (e *Engine) findAffectedSubscriptions(deviations []DeviatingStop, journey *siri.EstimatedVehicleJourney) []deviatingStopAndSubscriptions {
	stops := e.journeyStopIndex(journey)
	var affected []deviatingStopAndSubscriptions
	for _, deviation := range deviations {
		stopPoint := deviation.StopPointRef
		if !hasPrefixFold(stopPoint, nsrPrefix) {
			continue
		}
		candidates := e.subs.ForStopPoint(stopPoint)
		if strings.HasPrefix(stopPoint, nsrQuayPrefix) {
			// subscriptions on the parent stop place cover all its quays
			if stopPlace, ok := e.quays.StopPlaceForQuay(stopPoint); ok {
				candidates = append(candidates, e.subs.ForStopPoint(stopPlace)...)
			}
		}
		var matched []*subscription.Subscription
		for _, sub := range candidates {
			if !e.validDirection(sub, stops) {
				continue
			}
			if deviation.Cancelled || e.subscribedStopDelayed(sub, stopPoint, deviation) {
				matched = append(matched, sub)
			}
		}
		if len(matched) > 0 {
			e.log.Debug().Str("stopPointRef", stopPoint).Int("subscriptions", len(matched)).Msg("deviation affects subscriptions")
			affected = append(affected, deviatingStopAndSubscriptions{deviation: deviation, subs: matched})
		}
	}
	return affected
}

// journeyStopIndex builds the per-journey stop index. Recorded calls are
// inserted first and carry only the aimed departure; estimated calls
// overwrite them and add the boarding activities. Every resolvable quay key
// is then duplicated under its parent stop place.
func (e *Engine) journeyStopIndex(journey *siri.EstimatedVehicleJourney) JourneyStopIndex {
	stops := JourneyStopIndex{}
	if journey.RecordedCalls != nil {
		for i := range journey.RecordedCalls.RecordedCall {
			call := &journey.RecordedCalls.RecordedCall[i]
			if call.StopPointRef == "" {
				continue
			}
			stops[call.StopPointRef] = StopData{AimedDepartureTime: timeOf(call.AimedDepartureTime)}
		}
	}
	if journey.EstimatedCalls != nil {
		for i := range journey.EstimatedCalls.EstimatedCall {
			call := &journey.EstimatedCalls.EstimatedCall[i]
			if call.StopPointRef == "" {
				continue
			}
			stops[call.StopPointRef] = StopData{
				AimedDepartureTime:        timeOf(call.AimedDepartureTime),
				ArrivalBoardingActivity:   call.ArrivalBoardingActivity,
				DepartureBoardingActivity: call.DepartureBoardingActivity,
			}
		}
	}
	mapped := map[string]StopData{}
	for ref, data := range stops {
		if strings.HasPrefix(ref, nsrQuayPrefix) {
			if stopPlace, ok := e.quays.StopPlaceForQuay(ref); ok {
				mapped[stopPlace] = data
			}
		}
	}
	for ref, data := range mapped {
		stops[ref] = data
	}
	return stops
}

const (
	directionFrom = 1
	directionTo   = 2
)

// validDirection holds when the subscription's from stop is departed before
// its to stop is reached, and boarding/alighting is permitted on the
// respective sides.
func (e *Engine) validDirection(sub *subscription.Subscription, stops JourneyStopIndex) bool {
	fromTime := resolveOne(stops, sub.FromStopPoints, directionFrom)
	toTime := resolveOne(stops, sub.ToStopPoints, directionTo)
	return fromTime != nil && toTime != nil && fromTime.Before(*toTime)
}

// resolveOne walks points in order and returns the aimed departure time of
// the first one present in the index. A stop whose boarding activity forbids
// the subscribed side resolves to nil immediately.
func resolveOne(stops JourneyStopIndex, points []string, direction int) *time.Time {
	for _, point := range points {
		data, ok := stops[point]
		if !ok {
			continue
		}
		switch direction {
		case directionFrom:
			if data.DepartureBoardingActivity != "" && data.DepartureBoardingActivity != siri.DepartureActivityBoarding {
				return nil
			}
		case directionTo:
			if data.ArrivalBoardingActivity != "" && data.ArrivalBoardingActivity != siri.ArrivalActivityAlighting {
				return nil
			}
		}
		return data.AimedDepartureTime
	}
	return nil
}

// subscribedStopDelayed holds when the deviation's delay concerns the side
// on which the subscription references the stop; quay refs are also checked
// under their parent stop place.
func (e *Engine) subscribedStopDelayed(sub *subscription.Subscription, stopPoint string, deviation DeviatingStop) bool {
	if (sub.HasFromStop(stopPoint) && deviation.DelayedDeparture) ||
		(sub.HasToStop(stopPoint) && deviation.DelayedArrival) {
		return true
	}
	if strings.HasPrefix(stopPoint, nsrQuayPrefix) {
		if stopPlace, ok := e.quays.StopPlaceForQuay(stopPoint); ok {
			if (sub.HasFromStop(stopPlace) && deviation.DelayedDeparture) ||
				(sub.HasToStop(stopPlace) && deviation.DelayedArrival) {
				return true
			}
		}
	}
	return false
}

// lineOrVehicleSubscriptions collects subscriptions matched purely on the
// journey's line or vehicle ref, each intersected with the other filter when
// the journey carries both refs.
func (e *Engine) lineOrVehicleSubscriptions(lineRef, vehicleRef string) map[string]*subscription.Subscription {
	out := map[string]*subscription.Subscription{}
	if notBlank(lineRef) {
		for _, sub := range e.subs.ForLineRef(lineRef) {
			if notBlank(vehicleRef) && len(sub.VehicleRefs) > 0 && !slices.Contains(sub.VehicleRefs, vehicleRef) {
				continue
			}
			out[sub.ID] = sub
		}
	}
	if notBlank(vehicleRef) {
		for _, sub := range e.subs.ForVehicleRef(vehicleRef) {
			if notBlank(lineRef) && len(sub.LineRefs) > 0 && !slices.Contains(sub.LineRefs, lineRef) {
				continue
			}
			out[sub.ID] = sub
		}
	}
	return out
}

func notIncluded(value string, values []string) bool {
	return len(values) > 0 && notBlank(value) && !slices.Contains(values, value)
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func timeOf(t *siri.XMLTime) *time.Time {
	if t == nil {
		return nil
	}
	return &t.Time
}

func sortedByID(set map[string]*subscription.Subscription) []*subscription.Subscription {
	out := make([]*subscription.Subscription, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *subscription.Subscription) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
