package anshar

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/scheduler"
	"github.com/bratomyr/ukur/siri"
)

// Workflow names for the Anshar-facing triggers.
const (
	WorkflowPollET  = "AnsharPollET"
	WorkflowPollSX  = "AnsharPollSX"
	WorkflowRenewer = "AnsharSubscriptionRenewer"
	WorkflowChecker = "AnsharSubscriptionChecker"
)

// requestorIDPlaceholder is replaced in polling URLs with the cluster-wide
// requestor id, so Anshar keeps per-client change tracking across pulls.
const requestorIDPlaceholder = "{requestorId}"

// Client identifies this deployment towards Anshar and Tiamat via the
// ET-Client-Name and ET-Client-ID headers.
type Client struct {
	Name string
	ID   string
}

func (c Client) apply(req *http.Request) {
	req.Header.Set("ET-Client-Name", c.Name)
	req.Header.Set("ET-Client-ID", c.ID)
}

// Poller pulls one kind of feed from Anshar and hands complete documents to
// the pipeline. One run follows the MoreData chain until the upstream has
// nothing further.
type Poller struct {
	kind     string
	workflow string
	url      string
	client   Client
	http     *http.Client
	pipeline *Pipeline
	inflight *scheduler.Inflight
	metrics  metrics.Provider
	log      zerolog.Logger
}

// NewPoller returns a poller for kind. The URL may contain the {requestorId}
// placeholder, substituted with requestorID before each request.
func NewPoller(kind, url, requestorID string, client Client, pipeline *Pipeline, inflight *scheduler.Inflight, m metrics.Provider, log zerolog.Logger) *Poller {
	workflow := WorkflowPollET
	if kind == KindSX {
		workflow = WorkflowPollSX
	}
	return &Poller{
		kind:     kind,
		workflow: workflow,
		url:      strings.ReplaceAll(url, requestorIDPlaceholder, requestorID),
		client:   client,
		http:     &http.Client{Timeout: 30 * time.Second},
		pipeline: pipeline,
		inflight: inflight,
		metrics:  m,
		log:      log.With().Str("component", "poller").Str("kind", kind).Logger(),
	}
}

// Workflow returns the inflight/trigger name of this poller.
func (p *Poller) Workflow() string { return p.workflow }

// Run performs one poll cycle: fetch, dispatch, and repeat while the
// upstream flags MoreData.
func (p *Poller) Run() {
	exit := p.inflight.Enter(p.workflow)
	defer exit()

	for page := 1; ; page++ {
		doc, err := p.fetchPage()
		if err != nil {
			p.log.Error().Err(err).Int("page", page).Msg("poll failed")
			return
		}
		p.pipeline.Process(p.kind, doc)
		if !doc.HasMoreData() {
			if page > 1 {
				p.log.Debug().Int("pages", page).Msg("finished MoreData chain")
			}
			return
		}
	}
}

func (p *Poller) fetchPage() (*siri.Siri, error) {
	start := time.Now()
	req, err := http.NewRequest(http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	p.client.apply(req)

	resp, err := p.http.Do(req)
	if err != nil {
		p.metrics.IncError(metrics.ErrUpstreamUnavailable)
		return nil, fmt.Errorf("fetch %s feed: %w", p.kind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.metrics.IncError(metrics.ErrUpstreamUnavailable)
		return nil, fmt.Errorf("fetch %s feed: unexpected status %d", p.kind, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.metrics.IncError(metrics.ErrUpstreamUnavailable)
		return nil, fmt.Errorf("read %s feed body: %w", p.kind, err)
	}
	p.metrics.ObservePull(p.kind, time.Since(start))

	doc, err := siri.Parse(body)
	if err != nil {
		p.metrics.IncError(metrics.ErrMalformedPayload)
		return nil, err
	}
	p.metrics.IncReceived(p.kind)
	return doc, nil
}
