package ukur

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bratomyr/ukur/siri"
	"github.com/bratomyr/ukur/subscription"
)

const healthOKBody = "OK    \n\n"

// Router mounts the REST surface, the metrics endpoint and, in subscription
// mode, the Anshar callback.
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health/live", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/subscriptions", a.handleListSubscriptions).Methods(http.MethodGet)
	r.HandleFunc("/health/routes", a.handleRouteStatus).Methods(http.MethodGet)
	r.HandleFunc("/journeys", a.handleJourneys).Methods(http.MethodGet)
	r.HandleFunc("/journeys/{lineRef}", a.handleJourneys).Methods(http.MethodGet)
	r.HandleFunc("/subscription", a.handleCreateSubscription).Methods(http.MethodPost)
	r.HandleFunc("/subscription/{id}", a.handleDeleteSubscription).Methods(http.MethodDelete)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if a.callback != nil {
		a.callback.Register(r)
	}
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, healthOKBody)
}

// handleRouteStatus renders one line per registered trigger with its
// leadership and last-fired time, mirroring what operators need when
// debugging which replica does what.
func (a *App) handleRouteStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "Node started: %s\n", a.nodeStarted.Format(time.RFC3339))
	fmt.Fprintf(w, "Hostname: %s\n", a.hostname)
	mode := "polling"
	if a.cfg.Anshar.UseSubscription {
		mode = "subscribing"
	}
	fmt.Fprintf(w, "Mode: %s\n", mode)
	for _, name := range a.triggers {
		state := "NOT LEADER"
		if a.coordinator.IsLeader(name) {
			state = "LEADER"
		}
		last := "never"
		if t := a.scheduler.LastFired(name); !t.IsZero() {
			last = t.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s: %s, last fired %s\n", name, state, last)
	}
	for _, name := range a.disabled {
		fmt.Fprintf(w, "%s: (disabled)\n", name)
	}
}

func (a *App) handleListSubscriptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.subs.All())
}

func (a *App) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var s subscription.Subscription
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, "invalid subscription body: "+err.Error(), http.StatusBadRequest)
		return
	}
	created, err := a.subs.Add(&s)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.log.Info().Str("id", created.ID).Str("name", created.Name).Msg("subscription created")
	writeJSON(w, http.StatusCreated, created)
}

func (a *App) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !a.subs.Remove(id) {
		http.NotFound(w, r)
		return
	}
	a.log.Info().Str("id", id).Msg("subscription removed")
	w.WriteHeader(http.StatusOK)
}

// journeysDocument wraps the live journeys for XML rendering.
type journeysDocument struct {
	XMLName                 xml.Name `xml:"Journeys"`
	EstimatedVehicleJourney []*siri.EstimatedVehicleJourney
}

func (a *App) handleJourneys(w http.ResponseWriter, r *http.Request) {
	lineRef := mux.Vars(r)["lineRef"]
	doc := journeysDocument{EstimatedVehicleJourney: a.journeys.Journeys(lineRef)}
	w.Header().Set("Content-Type", "application/xml")
	if err := xml.NewEncoder(w).Encode(doc); err != nil {
		a.log.Error().Err(err).Msg("could not render journeys")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
