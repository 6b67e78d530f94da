package siri

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Parse decodes a complete SIRI document.
func Parse(data []byte) (*Siri, error) {
	var s Siri
	if err := xml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse SIRI document (%d bytes): %w", len(data), err)
	}
	return &s, nil
}

// ParseEstimatedVehicleJourney decodes a single EstimatedVehicleJourney
// fragment, as transported on the internal ET queue.
func ParseEstimatedVehicleJourney(data []byte) (*EstimatedVehicleJourney, error) {
	var j EstimatedVehicleJourney
	if err := xml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to parse EstimatedVehicleJourney (%d bytes): %w", len(data), err)
	}
	return &j, nil
}

// ParsePtSituationElement decodes a single PtSituationElement fragment, as
// transported on the internal SX queue.
func ParsePtSituationElement(data []byte) (*PtSituationElement, error) {
	var p PtSituationElement
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse PtSituationElement (%d bytes): %w", len(data), err)
	}
	return &p, nil
}

// EstimatedVehicleJourneys flattens all journeys in the document.
func (s *Siri) EstimatedVehicleJourneys() []EstimatedVehicleJourney {
	if s.ServiceDelivery == nil {
		return nil
	}
	var out []EstimatedVehicleJourney
	for _, d := range s.ServiceDelivery.EstimatedTimetableDelivery {
		for _, f := range d.EstimatedJourneyVersionFrame {
			out = append(out, f.EstimatedVehicleJourney...)
		}
	}
	return out
}

// PtSituationElements flattens all situation elements in the document.
func (s *Siri) PtSituationElements() []PtSituationElement {
	if s.ServiceDelivery == nil {
		return nil
	}
	var out []PtSituationElement
	for _, d := range s.ServiceDelivery.SituationExchangeDelivery {
		if d.Situations != nil {
			out = append(out, d.Situations.PtSituationElement...)
		}
	}
	return out
}

// Marshal encodes any SIRI element back to XML, as placed on the internal
// queues or sent upstream.
func Marshal(v any) ([]byte, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SIRI element: %w", err)
	}
	return data, nil
}

// ISODuration renders d as an ISO 8601 duration, the format SIRI uses for
// heartbeat intervals.
func ISODuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs <= 0 {
		secs = 1
	}
	return fmt.Sprintf("PT%dS", secs)
}
