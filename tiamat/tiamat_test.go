package tiamat

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/scheduler"
)

func TestMappingResolvesBothDirections(t *testing.T) {
	m := NewMapping()
	m.Update(map[string][]string{
		"NSR:StopPlace:1": {"NSR:Quay:9", "NSR:Quay:10"},
		"NSR:StopPlace:2": {"NSR:Quay:11"},
	})

	stopPlace, ok := m.StopPlaceForQuay("NSR:Quay:9")
	require.True(t, ok)
	assert.Equal(t, "NSR:StopPlace:1", stopPlace)

	_, ok = m.StopPlaceForQuay("NSR:Quay:99")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"NSR:Quay:9", "NSR:Quay:10"}, m.QuaysForStopPlace("NSR:StopPlace:1"))
	assert.Equal(t, 3, m.Size())
}

func TestMappingUpdateReplacesWholesale(t *testing.T) {
	m := NewMapping()
	m.Update(map[string][]string{"NSR:StopPlace:1": {"NSR:Quay:9"}})
	m.Update(map[string][]string{"NSR:StopPlace:2": {"NSR:Quay:11"}})

	_, ok := m.StopPlaceForQuay("NSR:Quay:9")
	assert.False(t, ok, "stale entries must not survive an update")
	_, ok = m.StopPlaceForQuay("NSR:Quay:11")
	assert.True(t, ok)
}

func TestRefresherFillsMapping(t *testing.T) {
	var gotName, gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.Header.Get("ET-Client-Name")
		gotID = r.Header.Get("ET-Client-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"NSR:StopPlace:1":["NSR:Quay:9"]}`))
	}))
	defer server.Close()

	mapping := NewMapping()
	r := NewRefresher(server.URL, "Ukur", "test-host", mapping, scheduler.NewInflight(), metrics.Noop(), zerolog.Nop())
	r.Run()

	assert.Equal(t, "Ukur", gotName)
	assert.Equal(t, "test-host", gotID)
	stopPlace, ok := mapping.StopPlaceForQuay("NSR:Quay:9")
	require.True(t, ok)
	assert.Equal(t, "NSR:StopPlace:1", stopPlace)
	assert.False(t, mapping.LastUpdated().IsZero())
}

func TestRefresherKeepsMappingOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	mapping := NewMapping()
	mapping.Update(map[string][]string{"NSR:StopPlace:1": {"NSR:Quay:9"}})
	r := NewRefresher(server.URL, "Ukur", "test-host", mapping, scheduler.NewInflight(), metrics.Noop(), zerolog.Nop())
	r.Run()

	_, ok := mapping.StopPlaceForQuay("NSR:Quay:9")
	assert.True(t, ok, "a failed refresh must not clear the mapping")
}

func TestRefresherKeepsMappingOnMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	mapping := NewMapping()
	mapping.Update(map[string][]string{"NSR:StopPlace:1": {"NSR:Quay:9"}})
	r := NewRefresher(server.URL, "Ukur", "test-host", mapping, scheduler.NewInflight(), metrics.Noop(), zerolog.Nop())
	r.Run()

	_, ok := mapping.StopPlaceForQuay("NSR:Quay:9")
	assert.True(t, ok)
}
