package anshar

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bratomyr/ukur/cluster"
	"github.com/bratomyr/ukur/metrics"
	"github.com/bratomyr/ukur/scheduler"
	"github.com/bratomyr/ukur/siri"
)

const (
	// HeartbeatInterval is what we ask Anshar to send heartbeats at.
	HeartbeatInterval = 60 * time.Second
	// SubscriptionDuration is the requested lifetime of one subscription;
	// renewals are sent on a shorter period so the window never lapses.
	SubscriptionDuration = 720 * time.Minute
	// livenessFactor: a feed is considered dead after this many missed
	// heartbeat intervals.
	livenessFactor = 3
)

// Subscriber establishes and maintains the push subscriptions against Anshar
// when the service runs in subscription mode.
type Subscriber struct {
	requestorID     string
	productName     string
	subscriptionURL string
	ownBaseURL      string
	etEnabled       bool
	sxEnabled       bool
	sharedMap       cluster.SharedMap
	inflight        *scheduler.Inflight
	http            *http.Client
	metrics         metrics.Provider
	log             zerolog.Logger
	now             func() time.Time
}

// NewSubscriber wires a subscriber. ownBaseURL is the externally reachable
// base of this service, used as the subscription callback address.
func NewSubscriber(requestorID, productName, subscriptionURL, ownBaseURL string, etEnabled, sxEnabled bool, sharedMap cluster.SharedMap, inflight *scheduler.Inflight, m metrics.Provider, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		requestorID:     requestorID,
		productName:     productName,
		subscriptionURL: subscriptionURL,
		ownBaseURL:      strings.TrimSuffix(ownBaseURL, "/"),
		etEnabled:       etEnabled,
		sxEnabled:       sxEnabled,
		sharedMap:       sharedMap,
		inflight:        inflight,
		http:            &http.Client{Timeout: 30 * time.Second},
		metrics:         m,
		log:             log.With().Str("component", "subscriber").Logger(),
		now:             time.Now,
	}
}

// Renew posts a fresh subscription request per enabled kind. The posts are
// independent: a failed ET renewal does not stop the SX renewal.
func (s *Subscriber) Renew() {
	exit := s.inflight.Enter(WorkflowRenewer)
	defer exit()

	if s.etEnabled {
		s.renewKind(KindET)
	}
	if s.sxEnabled {
		s.renewKind(KindSX)
	}
}

// Check compares the last-received timestamps in the shared map against the
// liveness threshold and re-subscribes when any enabled feed has gone quiet.
// A feed that has never reported anything is left to the regular renewal.
func (s *Subscriber) Check() {
	exit := s.inflight.Enter(WorkflowChecker)
	defer exit()

	if (s.etEnabled && s.stale(KindET)) || (s.sxEnabled && s.stale(KindSX)) {
		if s.etEnabled {
			s.renewKind(KindET)
		}
		if s.sxEnabled {
			s.renewKind(KindSX)
		}
	}
}

func (s *Subscriber) stale(kind string) bool {
	value, ok := s.sharedMap.Get(lastReceivedKey(kind))
	if !ok || value == "" {
		return false
	}
	last, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		s.log.Warn().Str("kind", kind).Str("value", value).Msg("unreadable last-received timestamp")
		return false
	}
	silence := s.now().Sub(time.UnixMilli(last))
	if silence <= livenessFactor*HeartbeatInterval {
		return false
	}
	s.log.Info().Str("kind", kind).Dur("silence", silence).Msg("feed has gone quiet, re-subscribing")
	return true
}

func (s *Subscriber) renewKind(kind string) {
	doc := s.subscriptionRequest(kind)
	body, err := xml.Marshal(doc)
	if err != nil {
		s.log.Error().Err(err).Str("kind", kind).Msg("could not build subscription request")
		return
	}
	resp, err := s.http.Post(s.subscriptionURL, "application/xml", bytes.NewReader(body))
	if err != nil {
		s.metrics.IncError(metrics.ErrUpstreamUnavailable)
		s.log.Error().Err(err).Str("kind", kind).Msg("subscription request failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.metrics.IncError(metrics.ErrUpstreamUnavailable)
		s.log.Error().Str("kind", kind).Int("status", resp.StatusCode).Msg("subscription request rejected")
		return
	}
	s.log.Info().Str("kind", kind).Str("subscription", s.subscriptionID(kind)).Msg("subscription renewed")
}

func (s *Subscriber) subscriptionRequest(kind string) *siri.Siri {
	now := s.now()
	ts := siri.NewXMLTime(now)
	termination := siri.NewXMLTime(now.Add(SubscriptionDuration))
	messageID := fmt.Sprintf("required-by-siri-spec-%d", now.UnixMilli())

	req := &siri.SubscriptionRequest{
		RequestTimestamp:  ts,
		Address:           s.callbackAddress(kind),
		RequestorRef:      s.productName,
		MessageIdentifier: messageID,
		SubscriptionContext: &siri.SubscriptionContext{
			HeartbeatInterval: siri.ISODuration(HeartbeatInterval),
		},
	}
	switch kind {
	case KindET:
		req.EstimatedTimetableSubscriptionRequest = []siri.EstimatedTimetableSubscriptionRequest{{
			SubscriberRef:          s.productName,
			SubscriptionIdentifier: s.subscriptionID(kind),
			InitialTerminationTime: termination,
			EstimatedTimetableRequest: siri.EstimatedTimetableRequest{
				Version:           siri.Version,
				RequestTimestamp:  ts,
				MessageIdentifier: messageID,
			},
		}}
	case KindSX:
		req.SituationExchangeSubscriptionRequest = []siri.SituationExchangeSubscriptionRequest{{
			SubscriberRef:          s.productName,
			SubscriptionIdentifier: s.subscriptionID(kind),
			InitialTerminationTime: termination,
			SituationExchangeRequest: siri.SituationExchangeRequest{
				Version:           siri.Version,
				RequestTimestamp:  ts,
				MessageIdentifier: messageID,
			},
		}}
	}
	return &siri.Siri{
		Xmlns:               siri.Namespace,
		Version:             siri.Version,
		SubscriptionRequest: req,
	}
}

func (s *Subscriber) callbackAddress(kind string) string {
	return s.ownBaseURL + "/siriMessages/" + s.requestorID + "/" + kind
}

func (s *Subscriber) subscriptionID(kind string) string {
	return s.requestorID + "-" + strings.ToUpper(kind)
}
