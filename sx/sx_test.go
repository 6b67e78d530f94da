package sx

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/siri"
)

type captureProcessor struct {
	situations []*siri.PtSituationElement
}

func (p *captureProcessor) ProcessSituation(s *siri.PtSituationElement) {
	p.situations = append(p.situations, s)
}

func TestHandleMessageForwardsSituation(t *testing.T) {
	capture := &captureProcessor{}
	e := NewEngine(capture, metrics.Noop(), zerolog.Nop())

	situation := &siri.PtSituationElement{
		ParticipantRef:  "NSB",
		SituationNumber: "status-168101694",
		Summary:         "Signal failure",
	}
	data, err := siri.Marshal(situation)
	require.NoError(t, err)

	e.HandleMessage(data)
	require.Len(t, capture.situations, 1)
	assert.Equal(t, "status-168101694", capture.situations[0].SituationNumber)
	assert.Equal(t, "Signal failure", capture.situations[0].Summary)
}

func TestHandleMessageDropsGarbage(t *testing.T) {
	capture := &captureProcessor{}
	e := NewEngine(capture, metrics.Noop(), zerolog.Nop())

	e.HandleMessage([]byte("not xml"))
	assert.Empty(t, capture.situations)
}
