// Package siri contains the SIRI 2.0 model used by ukur: the service
// delivery types received from Anshar (EstimatedTimetable and
// SituationExchange) and the subscription request types sent to it.
// Only the subset of the schema ukur actually consumes is modelled.
package siri
