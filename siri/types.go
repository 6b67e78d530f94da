package siri

import (
	"encoding/xml"
	"strings"
	"time"
)

// Namespace is the SIRI XML namespace used by Anshar.
const Namespace = "http://www.siri.org.uk/siri"

// Version is the SIRI schema version ukur speaks.
const Version = "2.0"

// Call status and boarding activity values as they appear on the wire.
const (
	CallStatusDelayed = "delayed"

	DepartureActivityBoarding = "boarding"
	ArrivalActivityAlighting  = "alighting"
)

// XMLTime wraps time.Time so SIRI's ISO 8601 timestamps survive
// encoding/xml round-trips.
type XMLTime struct {
	time.Time
}

// NewXMLTime returns an XMLTime pointer for t.
func NewXMLTime(t time.Time) *XMLTime {
	return &XMLTime{Time: t}
}

func (t *XMLTime) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var s string
	if err := d.DecodeElement(&s, &start); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// some producers send fractional seconds without a zone colon
		parsed, err = time.Parse("2006-01-02T15:04:05.999999999Z0700", s)
		if err != nil {
			return err
		}
	}
	t.Time = parsed
	return nil
}

func (t XMLTime) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(t.Format(time.RFC3339), start)
}

// Siri is the document root for both deliveries and subscription requests.
type Siri struct {
	XMLName             xml.Name             `xml:"Siri"`
	Xmlns               string               `xml:"xmlns,attr,omitempty"`
	Version             string               `xml:"version,attr,omitempty"`
	ServiceDelivery     *ServiceDelivery     `xml:"ServiceDelivery,omitempty"`
	SubscriptionRequest *SubscriptionRequest `xml:"SubscriptionRequest,omitempty"`
}

// ServiceDelivery carries the payload of one Anshar response or push.
type ServiceDelivery struct {
	ResponseTimestamp          *XMLTime                     `xml:"ResponseTimestamp,omitempty"`
	ProducerRef                string                       `xml:"ProducerRef,omitempty"`
	MoreData                   *bool                        `xml:"MoreData,omitempty"`
	EstimatedTimetableDelivery []EstimatedTimetableDelivery `xml:"EstimatedTimetableDelivery,omitempty"`
	SituationExchangeDelivery  []SituationExchangeDelivery  `xml:"SituationExchangeDelivery,omitempty"`
}

// EstimatedTimetableDelivery groups versioned frames of estimated journeys.
type EstimatedTimetableDelivery struct {
	Version                      string                         `xml:"version,attr,omitempty"`
	ResponseTimestamp            *XMLTime                       `xml:"ResponseTimestamp,omitempty"`
	EstimatedJourneyVersionFrame []EstimatedJourneyVersionFrame `xml:"EstimatedJourneyVersionFrame,omitempty"`
}

// EstimatedJourneyVersionFrame contains a frame of estimated journeys.
type EstimatedJourneyVersionFrame struct {
	RecordedAtTime          *XMLTime                  `xml:"RecordedAtTime,omitempty"`
	EstimatedVehicleJourney []EstimatedVehicleJourney `xml:"EstimatedVehicleJourney,omitempty"`
}

// EstimatedVehicleJourney is a single journey with per-stop estimates.
type EstimatedVehicleJourney struct {
	XMLName                 xml.Name                 `xml:"EstimatedVehicleJourney"`
	RecordedAtTime          *XMLTime                 `xml:"RecordedAtTime,omitempty"`
	LineRef                 string                   `xml:"LineRef,omitempty"`
	DirectionRef            string                   `xml:"DirectionRef,omitempty"`
	FramedVehicleJourneyRef *FramedVehicleJourneyRef `xml:"FramedVehicleJourneyRef,omitempty"`
	DatedVehicleJourneyRef  string                   `xml:"DatedVehicleJourneyRef,omitempty"`
	Cancellation            *bool                    `xml:"Cancellation,omitempty"`
	VehicleMode             string                   `xml:"VehicleMode,omitempty"`
	OperatorRef             string                   `xml:"OperatorRef,omitempty"`
	ServiceFeatureRef       []string                 `xml:"ServiceFeatureRef,omitempty"`
	VehicleRef              string                   `xml:"VehicleRef,omitempty"`
	DataSource              string                   `xml:"DataSource,omitempty"`
	RecordedCalls           *RecordedCalls           `xml:"RecordedCalls,omitempty"`
	EstimatedCalls          *EstimatedCalls          `xml:"EstimatedCalls,omitempty"`
	IsCompleteStopSequence  bool                     `xml:"IsCompleteStopSequence,omitempty"`
}

// FramedVehicleJourneyRef uniquely identifies a vehicle journey.
type FramedVehicleJourneyRef struct {
	DataFrameRef           string `xml:"DataFrameRef,omitempty"`
	DatedVehicleJourneyRef string `xml:"DatedVehicleJourneyRef,omitempty"`
}

// RecordedCalls wraps the list of already visited stops.
type RecordedCalls struct {
	RecordedCall []RecordedCall `xml:"RecordedCall,omitempty"`
}

// EstimatedCalls wraps the list of stops not yet visited.
type EstimatedCalls struct {
	EstimatedCall []EstimatedCall `xml:"EstimatedCall,omitempty"`
}

// RecordedCall represents a stop that has already been visited.
type RecordedCall struct {
	StopPointRef        string   `xml:"StopPointRef,omitempty"`
	Order               int      `xml:"Order,omitempty"`
	StopPointName       string   `xml:"StopPointName,omitempty"`
	Cancellation        *bool    `xml:"Cancellation,omitempty"`
	AimedArrivalTime    *XMLTime `xml:"AimedArrivalTime,omitempty"`
	ActualArrivalTime   *XMLTime `xml:"ActualArrivalTime,omitempty"`
	AimedDepartureTime  *XMLTime `xml:"AimedDepartureTime,omitempty"`
	ActualDepartureTime *XMLTime `xml:"ActualDepartureTime,omitempty"`
}

// EstimatedCall represents a stop that has not yet been visited.
type EstimatedCall struct {
	StopPointRef              string   `xml:"StopPointRef,omitempty"`
	Order                     int      `xml:"Order,omitempty"`
	StopPointName             string   `xml:"StopPointName,omitempty"`
	Cancellation              *bool    `xml:"Cancellation,omitempty"`
	AimedArrivalTime          *XMLTime `xml:"AimedArrivalTime,omitempty"`
	ExpectedArrivalTime       *XMLTime `xml:"ExpectedArrivalTime,omitempty"`
	ArrivalStatus             string   `xml:"ArrivalStatus,omitempty"`
	ArrivalBoardingActivity   string   `xml:"ArrivalBoardingActivity,omitempty"`
	AimedDepartureTime        *XMLTime `xml:"AimedDepartureTime,omitempty"`
	ExpectedDepartureTime     *XMLTime `xml:"ExpectedDepartureTime,omitempty"`
	DepartureStatus           string   `xml:"DepartureStatus,omitempty"`
	DepartureBoardingActivity string   `xml:"DepartureBoardingActivity,omitempty"`
}

// SituationExchangeDelivery carries textual disruption situations.
type SituationExchangeDelivery struct {
	Version           string      `xml:"version,attr,omitempty"`
	ResponseTimestamp *XMLTime    `xml:"ResponseTimestamp,omitempty"`
	Situations        *Situations `xml:"Situations,omitempty"`
}

// Situations wraps the list of situation elements.
type Situations struct {
	PtSituationElement []PtSituationElement `xml:"PtSituationElement,omitempty"`
}

// PtSituationElement is one free-text disruption notice.
type PtSituationElement struct {
	XMLName         xml.Name `xml:"PtSituationElement"`
	CreationTime    *XMLTime `xml:"CreationTime,omitempty"`
	ParticipantRef  string   `xml:"ParticipantRef,omitempty"`
	SituationNumber string   `xml:"SituationNumber,omitempty"`
	Progress        string   `xml:"Progress,omitempty"`
	Summary         string   `xml:"Summary,omitempty"`
	Description     string   `xml:"Description,omitempty"`
}

// IsCancelled reports whether the whole journey is flagged as cancelled.
func (j *EstimatedVehicleJourney) IsCancelled() bool {
	return j.Cancellation != nil && *j.Cancellation
}

// JourneyRef returns the best available identifier for the journey.
func (j *EstimatedVehicleJourney) JourneyRef() string {
	if j.DatedVehicleJourneyRef != "" {
		return j.DatedVehicleJourneyRef
	}
	if j.FramedVehicleJourneyRef != nil {
		return j.FramedVehicleJourneyRef.DatedVehicleJourneyRef
	}
	return ""
}

// HasMoreData reports the /Siri/ServiceDelivery/MoreData flag.
func (s *Siri) HasMoreData() bool {
	return s.ServiceDelivery != nil &&
		s.ServiceDelivery.MoreData != nil &&
		*s.ServiceDelivery.MoreData
}
