package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsSubscriptionWithoutCriteria(t *testing.T) {
	_, err := NewIndex().Add(&Subscription{Name: "empty"})
	assert.Error(t, err)
}

func TestAddRejectsOneSidedStopSubscription(t *testing.T) {
	_, err := NewIndex().Add(&Subscription{FromStopPoints: []string{"NSR:StopPlace:1"}})
	assert.Error(t, err)
}

func TestAddAssignsID(t *testing.T) {
	index := NewIndex()
	created, err := index.Add(&Subscription{LineRefs: []string{"NSB:Line:L1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestLookupByStopLineAndVehicle(t *testing.T) {
	index := NewIndex()
	s, err := index.Add(&Subscription{
		ID:             "s1",
		FromStopPoints: []string{"NSR:StopPlace:1"},
		ToStopPoints:   []string{"NSR:StopPlace:2"},
		LineRefs:       []string{"NSB:Line:L1"},
		VehicleRefs:    []string{"801"},
	})
	require.NoError(t, err)

	assert.Equal(t, []*Subscription{s}, index.ForStopPoint("NSR:StopPlace:1"))
	assert.Equal(t, []*Subscription{s}, index.ForStopPoint("NSR:StopPlace:2"))
	assert.Equal(t, []*Subscription{s}, index.ForLineRef("NSB:Line:L1"))
	assert.Equal(t, []*Subscription{s}, index.ForVehicleRef("801"))
	assert.Empty(t, index.ForStopPoint("NSR:StopPlace:3"))
}

func TestAddSameIDReindexes(t *testing.T) {
	index := NewIndex()
	_, err := index.Add(&Subscription{ID: "s1", FromStopPoints: []string{"NSR:StopPlace:1"}, ToStopPoints: []string{"NSR:StopPlace:2"}})
	require.NoError(t, err)
	_, err = index.Add(&Subscription{ID: "s1", FromStopPoints: []string{"NSR:StopPlace:3"}, ToStopPoints: []string{"NSR:StopPlace:4"}})
	require.NoError(t, err)

	assert.Empty(t, index.ForStopPoint("NSR:StopPlace:1"), "old keys must be dropped")
	assert.Len(t, index.ForStopPoint("NSR:StopPlace:3"), 1)
	assert.Len(t, index.All(), 1)
}

func TestRemove(t *testing.T) {
	index := NewIndex()
	_, err := index.Add(&Subscription{ID: "s1", LineRefs: []string{"NSB:Line:L1"}})
	require.NoError(t, err)

	assert.True(t, index.Remove("s1"))
	assert.False(t, index.Remove("s1"))
	assert.Empty(t, index.ForLineRef("NSB:Line:L1"))
}

func TestAllSortedByID(t *testing.T) {
	index := NewIndex()
	for _, id := range []string{"c", "a", "b"} {
		_, err := index.Add(&Subscription{ID: id, LineRefs: []string{"NSB:Line:L1"}})
		require.NoError(t, err)
	}
	all := index.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)
}
