package siri

// Subscription request types, as POSTed to Anshar when running in
// subscription mode.

// SubscriptionRequest asks the upstream to push deliveries to Address.
type SubscriptionRequest struct {
	RequestTimestamp                      *XMLTime                                `xml:"RequestTimestamp,omitempty"`
	Address                               string                                  `xml:"Address,omitempty"`
	RequestorRef                          string                                  `xml:"RequestorRef,omitempty"`
	MessageIdentifier                     string                                  `xml:"MessageIdentifier,omitempty"`
	SubscriptionContext                   *SubscriptionContext                    `xml:"SubscriptionContext,omitempty"`
	EstimatedTimetableSubscriptionRequest []EstimatedTimetableSubscriptionRequest `xml:"EstimatedTimetableSubscriptionRequest,omitempty"`
	SituationExchangeSubscriptionRequest  []SituationExchangeSubscriptionRequest  `xml:"SituationExchangeSubscriptionRequest,omitempty"`
}

// SubscriptionContext carries the heartbeat interval as an ISO 8601 duration.
type SubscriptionContext struct {
	HeartbeatInterval string `xml:"HeartbeatInterval,omitempty"`
}

// EstimatedTimetableSubscriptionRequest subscribes to ET deliveries.
type EstimatedTimetableSubscriptionRequest struct {
	SubscriberRef             string                    `xml:"SubscriberRef,omitempty"`
	SubscriptionIdentifier    string                    `xml:"SubscriptionIdentifier,omitempty"`
	InitialTerminationTime    *XMLTime                  `xml:"InitialTerminationTime,omitempty"`
	EstimatedTimetableRequest EstimatedTimetableRequest `xml:"EstimatedTimetableRequest"`
}

// EstimatedTimetableRequest is the embedded request structure.
type EstimatedTimetableRequest struct {
	Version           string   `xml:"version,attr,omitempty"`
	RequestTimestamp  *XMLTime `xml:"RequestTimestamp,omitempty"`
	MessageIdentifier string   `xml:"MessageIdentifier,omitempty"`
}

// SituationExchangeSubscriptionRequest subscribes to SX deliveries.
type SituationExchangeSubscriptionRequest struct {
	SubscriberRef            string                   `xml:"SubscriberRef,omitempty"`
	SubscriptionIdentifier   string                   `xml:"SubscriptionIdentifier,omitempty"`
	InitialTerminationTime   *XMLTime                 `xml:"InitialTerminationTime,omitempty"`
	SituationExchangeRequest SituationExchangeRequest `xml:"SituationExchangeRequest"`
}

// SituationExchangeRequest is the embedded request structure.
type SituationExchangeRequest struct {
	Version           string   `xml:"version,attr,omitempty"`
	RequestTimestamp  *XMLTime `xml:"RequestTimestamp,omitempty"`
	MessageIdentifier string   `xml:"MessageIdentifier,omitempty"`
}
