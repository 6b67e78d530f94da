package tiamat

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/scheduler"
)

// Workflow is the inflight name of the refresh workflow.
const Workflow = "TiamatRefresh"

// Refresher pulls the stop-place/quay registry from Tiamat and feeds the
// mapping. The payload is a JSON object from stop place id to its quay ids.
type Refresher struct {
	url        string
	clientName string
	clientID   string
	client     *http.Client
	mapping    *Mapping
	inflight   *scheduler.Inflight
	metrics    metrics.Provider
	log        zerolog.Logger
}

// NewRefresher returns a refresher targeting url. clientName and clientID are
// sent as the ET-Client-Name/ET-Client-ID request headers.
func NewRefresher(url, clientName, clientID string, mapping *Mapping, inflight *scheduler.Inflight, m metrics.Provider, log zerolog.Logger) *Refresher {
	return &Refresher{
		url:        url,
		clientName: clientName,
		clientID:   clientID,
		client:     &http.Client{Timeout: 2 * time.Minute},
		mapping:    mapping,
		inflight:   inflight,
		metrics:    m,
		log:        log.With().Str("component", "tiamat").Logger(),
	}
}

// Run performs one refresh. Errors are logged and counted; the next
// scheduled fire retries from scratch.
func (r *Refresher) Run() {
	exit := r.inflight.Enter(Workflow)
	defer exit()

	start := time.Now()
	stopPlaceQuays, err := r.fetch()
	r.metrics.ObservePull("tiamat", time.Since(start))
	if err != nil {
		r.metrics.IncError(metrics.ErrUpstreamUnavailable)
		r.log.Error().Err(err).Msg("tiamat refresh failed")
		return
	}
	r.mapping.Update(stopPlaceQuays)
	r.log.Info().Int("stopPlaces", len(stopPlaceQuays)).Int("quays", r.mapping.Size()).Msg("refreshed quay/stop-place mapping")
}

func (r *Refresher) fetch() (map[string][]string, error) {
	req, err := http.NewRequest(http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("tiamat request: %w", err)
	}
	req.Header.Set("ET-Client-Name", r.clientName)
	req.Header.Set("ET-Client-ID", r.clientID)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiamat fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, r.url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tiamat read body: %w", err)
	}
	var stopPlaceQuays map[string][]string
	if err := json.Unmarshal(body, &stopPlaceQuays); err != nil {
		return nil, fmt.Errorf("tiamat decode (%d bytes): %w", len(body), err)
	}
	return stopPlaceQuays, nil
}
