package anshar

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/queue"
	"github.com/bratomyr/ukur/siri"
)

// drain collects everything published to q until it has n messages or the
// timeout passes.
func drain(t *testing.T, q queue.Queue, n int) []string {
	t.Helper()
	var mu sync.Mutex
	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Consume(ctx, 1, func(msg []byte) {
		mu.Lock()
		got = append(got, string(msg))
		mu.Unlock()
	})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= n
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	return got
}

func etDocument(operators ...string) *siri.Siri {
	frame := siri.EstimatedJourneyVersionFrame{}
	for _, op := range operators {
		frame.EstimatedVehicleJourney = append(frame.EstimatedVehicleJourney, siri.EstimatedVehicleJourney{
			LineRef:                op + ":Line:L1",
			DatedVehicleJourneyRef: "801",
			OperatorRef:            op,
		})
	}
	return &siri.Siri{ServiceDelivery: &siri.ServiceDelivery{
		EstimatedTimetableDelivery: []siri.EstimatedTimetableDelivery{{
			EstimatedJourneyVersionFrame: []siri.EstimatedJourneyVersionFrame{frame},
		}},
	}}
}

func sxDocument(participants ...string) *siri.Siri {
	situations := &siri.Situations{}
	for _, p := range participants {
		situations.PtSituationElement = append(situations.PtSituationElement, siri.PtSituationElement{
			ParticipantRef:  p,
			SituationNumber: "status-1",
		})
	}
	return &siri.Siri{ServiceDelivery: &siri.ServiceDelivery{
		SituationExchangeDelivery: []siri.SituationExchangeDelivery{{Situations: situations}},
	}}
}

func TestPipelineQueuesOnlyConfiguredOperator(t *testing.T) {
	etQ := queue.NewChan(10)
	sxQ := queue.NewChan(10)
	p := NewPipeline("NSB", etQ, sxQ, metrics.Noop(), zerolog.Nop())

	p.Process(KindET, etDocument("NSB", "FLY", "NSB"))

	got := drain(t, etQ, 2)
	require.Len(t, got, 2)
	for _, msg := range got {
		assert.Contains(t, msg, "<OperatorRef>NSB</OperatorRef>")
	}
}

func TestPipelineFiltersSituationsByParticipant(t *testing.T) {
	etQ := queue.NewChan(10)
	sxQ := queue.NewChan(10)
	p := NewPipeline("NSB", etQ, sxQ, metrics.Noop(), zerolog.Nop())

	p.Process(KindSX, sxDocument("FLY", "NSB"))

	got := drain(t, sxQ, 1)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "<ParticipantRef>NSB</ParticipantRef>")
}

func TestPipelineIgnoresUnknownKind(t *testing.T) {
	etQ := queue.NewChan(1)
	sxQ := queue.NewChan(1)
	p := NewPipeline("NSB", etQ, sxQ, metrics.Noop(), zerolog.Nop())

	p.Process("vm", etDocument("NSB"))
	// nothing published; a publish would be observable on the channel
	assert.NoError(t, etQ.Publish([]byte("probe")))
}

func TestQueuedElementsParseBackToJourneys(t *testing.T) {
	etQ := queue.NewChan(10)
	p := NewPipeline("NSB", etQ, queue.NewChan(1), metrics.Noop(), zerolog.Nop())
	p.Process(KindET, etDocument("NSB"))

	got := drain(t, etQ, 1)
	journey, err := siri.ParseEstimatedVehicleJourney([]byte(got[0]))
	require.NoError(t, err)
	assert.Equal(t, "NSB", journey.OperatorRef)
	assert.Equal(t, "801", journey.JourneyRef())
}
