package anshar

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/bratomyr/ukur/cluster"
	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/siri"
)

const (
	callbackOKBody        = "OK\n\n"
	callbackForbiddenBody = "FORBIDDEN\n\n"
)

// Callback receives Anshar's push deliveries and heartbeats on
// /siriMessages/{requestorId}/{kind}. Every accepted request, heartbeats
// included, refreshes the feed's liveness timestamp in the shared map;
// payload processing happens off the request goroutine.
type Callback struct {
	requestorID string
	etEnabled   bool
	sxEnabled   bool
	sharedMap   cluster.SharedMap
	pipeline    *Pipeline
	metrics     metrics.Provider
	log         zerolog.Logger
	now         func() time.Time
}

// NewCallback wires the push endpoint handler.
func NewCallback(requestorID string, etEnabled, sxEnabled bool, sharedMap cluster.SharedMap, pipeline *Pipeline, m metrics.Provider, log zerolog.Logger) *Callback {
	return &Callback{
		requestorID: requestorID,
		etEnabled:   etEnabled,
		sxEnabled:   sxEnabled,
		sharedMap:   sharedMap,
		pipeline:    pipeline,
		metrics:     m,
		log:         log.With().Str("component", "callback").Logger(),
		now:         time.Now,
	}
}

// Register mounts the handler on r.
func (c *Callback) Register(r *mux.Router) {
	r.HandleFunc("/siriMessages/{requestorId}/{kind}", c.Handle).Methods(http.MethodPost)
}

func (c *Callback) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := vars["kind"]
	c.metrics.IncCallback(kind)

	if vars["requestorId"] != c.requestorID || !c.kindAccepted(kind) {
		c.metrics.IncError(metrics.ErrRejectedCallback)
		c.log.Warn().
			Str("requestorId", vars["requestorId"]).
			Str("kind", kind).
			Msg("rejected callback")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, callbackForbiddenBody)
		return
	}

	c.sharedMap.Set(lastReceivedKey(kind), strconv.FormatInt(c.now().UnixMilli(), 10))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		c.log.Error().Err(err).Str("kind", kind).Msg("could not read callback body")
	} else if len(body) > 0 {
		go c.dispatch(kind, body)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, callbackOKBody)
}

func (c *Callback) kindAccepted(kind string) bool {
	switch kind {
	case KindET:
		return c.etEnabled
	case KindSX:
		return c.sxEnabled
	default:
		return false
	}
}

func (c *Callback) dispatch(kind string, body []byte) {
	doc, err := siri.Parse(body)
	if err != nil {
		c.metrics.IncError(metrics.ErrMalformedPayload)
		c.log.Error().Err(err).Str("kind", kind).Msg("could not parse pushed document")
		return
	}
	c.metrics.IncReceived(kind)
	c.pipeline.Process(kind, doc)
}
