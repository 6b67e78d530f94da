// Package sx drains the SituationExchange work queue. Situation matching is
// far thinner than ET matching: elements are parsed and handed to a
// pluggable processor, which by default only records them.
package sx

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/siri"
)

// Processor consumes one situation element at a time.
type Processor interface {
	ProcessSituation(situation *siri.PtSituationElement)
}

// Engine decodes queued SX payloads and forwards them to the processor.
type Engine struct {
	processor Processor
	metrics   metrics.Provider
	log       zerolog.Logger
}

// NewEngine wires an SX engine.
func NewEngine(processor Processor, m metrics.Provider, log zerolog.Logger) *Engine {
	return &Engine{
		processor: processor,
		metrics:   m,
		log:       log.With().Str("component", "sx").Logger(),
	}
}

// HandleMessage is the SX queue consumer entrypoint.
func (e *Engine) HandleMessage(msg []byte) {
	start := time.Now()
	situation, err := siri.ParsePtSituationElement(msg)
	if err != nil {
		e.metrics.IncError(metrics.ErrMalformedPayload)
		e.log.Error().Err(err).Msg("could not parse queued situation")
		return
	}
	e.processor.ProcessSituation(situation)
	e.metrics.ObserveProcess("sx", time.Since(start))
}

// LogProcessor is the default Processor: it logs the situation's headline
// fields at debug level.
type LogProcessor struct {
	Log zerolog.Logger
}

func (p LogProcessor) ProcessSituation(situation *siri.PtSituationElement) {
	p.Log.Debug().
		Str("situationNumber", situation.SituationNumber).
		Str("participant", situation.ParticipantRef).
		Str("progress", situation.Progress).
		Str("summary", situation.Summary).
		Msg("received situation")
}
