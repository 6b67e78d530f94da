package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bratomyr/ukur/siri"
)

func journey(ref, lineRef string, lastCall time.Time) *siri.EstimatedVehicleJourney {
	return &siri.EstimatedVehicleJourney{
		DatedVehicleJourneyRef: ref,
		LineRef:                lineRef,
		EstimatedCalls: &siri.EstimatedCalls{EstimatedCall: []siri.EstimatedCall{
			{StopPointRef: "NSR:StopPlace:1", ExpectedArrivalTime: siri.NewXMLTime(lastCall)},
		}},
	}
}

func TestUpdateJourneyReplacesByRef(t *testing.T) {
	l := NewJourneys()
	future := time.Now().Add(time.Hour)
	l.UpdateJourney(journey("801", "L1", future))
	l.UpdateJourney(journey("801", "L2", future))

	all := l.Journeys("")
	require.Len(t, all, 1)
	assert.Equal(t, "L2", all[0].LineRef)
}

func TestUpdateJourneyIgnoresMissingRef(t *testing.T) {
	l := NewJourneys()
	l.UpdateJourney(&siri.EstimatedVehicleJourney{LineRef: "L1"})
	assert.Zero(t, l.Count())
}

func TestJourneysFiltersByLineRef(t *testing.T) {
	l := NewJourneys()
	future := time.Now().Add(time.Hour)
	l.UpdateJourney(journey("801", "L1", future))
	l.UpdateJourney(journey("802", "L2", future))

	assert.Len(t, l.Journeys(""), 2)
	filtered := l.Journeys("L1")
	require.Len(t, filtered, 1)
	assert.Equal(t, "801", filtered[0].JourneyRef())
}

func TestFlushOldJourneys(t *testing.T) {
	l := NewJourneys()
	now := time.Now()
	l.UpdateJourney(journey("past", "L1", now.Add(-time.Hour)))
	l.UpdateJourney(journey("future", "L1", now.Add(time.Hour)))

	removed := l.FlushOldJourneys(now)
	assert.Equal(t, 1, removed)
	require.Len(t, l.Journeys(""), 1)
	assert.Equal(t, "future", l.Journeys("")[0].JourneyRef())
}

func TestJourneyWithoutTimesFlushes(t *testing.T) {
	l := NewJourneys()
	l.UpdateJourney(&siri.EstimatedVehicleJourney{DatedVehicleJourneyRef: "801"})
	removed := l.FlushOldJourneys(time.Now())
	assert.Equal(t, 1, removed)
}
