package subscription

import (
	"github.com/rs/zerolog"

	"github.com/bratomyr/ukur/siri"
)

// Notifier delivers a matched journey to a set of subscribers. Delivery
// itself (push endpoints, retry policy) lives outside this process.
type Notifier interface {
	// NotifyOnStops delivers the journey to subscriptions matched on their
	// from/to stops.
	NotifyOnStops(subs []*Subscription, journey *siri.EstimatedVehicleJourney) error
	// NotifyFullMessage delivers the whole journey to subscriptions matched
	// on line or vehicle ref alone.
	NotifyFullMessage(subs []*Subscription, journey *siri.EstimatedVehicleJourney) error
}

// LogNotifier is the default Notifier: it only records what would have been
// delivered. Useful until a real delivery backend is wired in, and in tests.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n *LogNotifier) NotifyOnStops(subs []*Subscription, journey *siri.EstimatedVehicleJourney) error {
	n.log("stops", subs, journey)
	return nil
}

func (n *LogNotifier) NotifyFullMessage(subs []*Subscription, journey *siri.EstimatedVehicleJourney) error {
	n.log("full-message", subs, journey)
	return nil
}

func (n *LogNotifier) log(mode string, subs []*Subscription, journey *siri.EstimatedVehicleJourney) {
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	n.Log.Info().
		Str("mode", mode).
		Str("lineRef", journey.LineRef).
		Str("journeyRef", journey.JourneyRef()).
		Strs("subscriptions", ids).
		Msg("notify")
}
