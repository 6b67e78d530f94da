package anshar

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bratomyr/ukur/cluster"
	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/queue"
)

const pushedETDocument = `<?xml version="1.0" encoding="UTF-8"?>
<Siri xmlns="http://www.siri.org.uk/siri" version="2.0">
  <ServiceDelivery>
    <EstimatedTimetableDelivery>
      <EstimatedJourneyVersionFrame>
        <EstimatedVehicleJourney>
          <LineRef>NSB:Line:L1</LineRef>
          <DatedVehicleJourneyRef>801</DatedVehicleJourneyRef>
          <OperatorRef>NSB</OperatorRef>
        </EstimatedVehicleJourney>
      </EstimatedJourneyVersionFrame>
    </EstimatedTimetableDelivery>
  </ServiceDelivery>
</Siri>`

func newCallbackServer(t *testing.T, sharedMap cluster.SharedMap, etQ queue.Queue) *httptest.Server {
	t.Helper()
	pipeline := NewPipeline("NSB", etQ, queue.NewChan(10), metrics.Noop(), zerolog.Nop())
	cb := NewCallback("ukur-abc", true, true, sharedMap, pipeline, metrics.Noop(), zerolog.Nop())
	r := mux.NewRouter()
	cb.Register(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func post(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/xml", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return resp, string(buf[:n])
}

func TestCallbackRejectsUnknownRequestor(t *testing.T) {
	server := newCallbackServer(t, cluster.NewLocalMap(), queue.NewChan(10))

	resp, body := post(t, server.URL+"/siriMessages/someone-else/et", pushedETDocument)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN\n\n", body)
}

func TestCallbackRejectsUnknownKind(t *testing.T) {
	server := newCallbackServer(t, cluster.NewLocalMap(), queue.NewChan(10))

	resp, body := post(t, server.URL+"/siriMessages/ukur-abc/vm", pushedETDocument)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN\n\n", body)
}

func TestCallbackAcceptsAndDispatches(t *testing.T) {
	sharedMap := cluster.NewLocalMap()
	etQ := queue.NewChan(10)
	server := newCallbackServer(t, sharedMap, etQ)

	before := time.Now().UnixMilli()
	resp, body := post(t, server.URL+"/siriMessages/ukur-abc/et", pushedETDocument)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n\n", body)

	value, ok := sharedMap.Get("AnsharLastReceived-et")
	require.True(t, ok, "accepted callback must refresh the liveness key")
	ms, err := strconv.ParseInt(value, 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ms, before)

	got := drain(t, etQ, 1)
	assert.Contains(t, got[0], "<OperatorRef>NSB</OperatorRef>")
}

func TestCallbackHeartbeatRefreshesLivenessWithoutPayloadElements(t *testing.T) {
	sharedMap := cluster.NewLocalMap()
	server := newCallbackServer(t, sharedMap, queue.NewChan(10))

	heartbeat := `<Siri xmlns="http://www.siri.org.uk/siri" version="2.0"><ServiceDelivery></ServiceDelivery></Siri>`
	resp, body := post(t, server.URL+"/siriMessages/ukur-abc/sx", heartbeat)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n\n", body)

	_, ok := sharedMap.Get("AnsharLastReceived-sx")
	assert.True(t, ok)
}

func TestCallbackDisabledKindIsForbidden(t *testing.T) {
	pipeline := NewPipeline("NSB", queue.NewChan(1), queue.NewChan(1), metrics.Noop(), zerolog.Nop())
	cb := NewCallback("ukur-abc", true, false, cluster.NewLocalMap(), pipeline, metrics.Noop(), zerolog.Nop())
	r := mux.NewRouter()
	cb.Register(r)
	server := httptest.NewServer(r)
	defer server.Close()

	resp, _ := post(t, server.URL+"/siriMessages/ukur-abc/sx", pushedETDocument)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
