// Package anshar talks to the Anshar SIRI aggregator: polling its ET/SX
// feeds or holding push subscriptions against it, and fanning the received
// elements out to the internal work queues.
package anshar

import (
	"github.com/rs/zerolog"

	"github.com/bratomyr/ukur/cluster"
	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/queue"
	"github.com/bratomyr/ukur/siri"
)

// Feed kinds, as they appear in URLs, shared-map keys and metrics labels.
const (
	KindET = "et"
	KindSX = "sx"
)

// lastReceivedKey names the shared-map liveness entry for kind.
func lastReceivedKey(kind string) string {
	return cluster.LastReceivedKeyPrefix + kind
}

// Pipeline selects the elements attributed to the configured operator from a
// SIRI document and publishes each one to the per-kind work queue.
type Pipeline struct {
	operator string
	etQueue  queue.Queue
	sxQueue  queue.Queue
	metrics  metrics.Provider
	log      zerolog.Logger
}

// NewPipeline returns a pipeline filtering on operator.
func NewPipeline(operator string, etQueue, sxQueue queue.Queue, m metrics.Provider, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		operator: operator,
		etQueue:  etQueue,
		sxQueue:  sxQueue,
		metrics:  m,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Process fans the document's elements of the given kind out to the queue.
func (p *Pipeline) Process(kind string, doc *siri.Siri) {
	switch kind {
	case KindET:
		p.processET(doc)
	case KindSX:
		p.processSX(doc)
	}
}

func (p *Pipeline) processET(doc *siri.Siri) {
	journeys := doc.EstimatedVehicleJourneys()
	for i := range journeys {
		journey := &journeys[i]
		if journey.OperatorRef != p.operator {
			continue
		}
		data, err := siri.Marshal(journey)
		if err != nil {
			p.metrics.IncError(metrics.ErrMalformedPayload)
			p.log.Error().Err(err).Msg("could not serialize journey for queue")
			continue
		}
		if err := p.etQueue.Publish(data); err != nil {
			p.log.Error().Err(err).Msg("could not enqueue ET element")
			continue
		}
		p.metrics.IncQueued(KindET)
	}
}

func (p *Pipeline) processSX(doc *siri.Siri) {
	situations := doc.PtSituationElements()
	for i := range situations {
		situation := &situations[i]
		if situation.ParticipantRef != p.operator {
			continue
		}
		data, err := siri.Marshal(situation)
		if err != nil {
			p.metrics.IncError(metrics.ErrMalformedPayload)
			p.log.Error().Err(err).Msg("could not serialize situation for queue")
			continue
		}
		if err := p.sxQueue.Publish(data); err != nil {
			p.log.Error().Err(err).Msg("could not enqueue SX element")
			continue
		}
		p.metrics.IncQueued(KindSX)
	}
}
