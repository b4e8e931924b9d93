// Package testservice exposes the reference API consumer (package apiclient)
// to the contract-test harness, speaking the protocol defined in servicedef:
// a status resource, consumer entity creation, synchronous commands, and
// asynchronous progress callbacks.
package testservice

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/qualitykit/api-contract-tests/servicedef"
)

// Logger matches the logging interface used elsewhere in this repository.
type Logger interface {
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Printf(string, ...interface{}) {}

// Service manages consumer entities on behalf of the harness.
type Service struct {
	description string
	stopFn      func()
	logger      Logger
	entities    map[string]*consumerEntity
	lastID      int
	lock        sync.Mutex
}

// NewService creates a Service. stopFn, if non-nil, is invoked when the
// harness sends DELETE to the root resource (normally it terminates the
// process). A nil logger disables logging.
func NewService(description string, stopFn func(), logger Logger) *Service {
	if logger == nil {
		logger = nullLogger{}
	}
	return &Service{
		description: description,
		stopFn:      stopFn,
		logger:      logger,
		entities:    make(map[string]*consumerEntity),
	}
}

// Handler returns the HTTP handler implementing the harness protocol.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.getStatus)
	r.Post("/", s.postCreateConsumer)
	r.Delete("/", s.deleteService)
	r.Post("/consumers/{id}", s.postCommand)
	r.Delete("/consumers/{id}", s.deleteConsumer)
	return r
}

func (s *Service) getStatus(w http.ResponseWriter, r *http.Request) {
	status := servicedef.StatusRep{
		Description: s.description,
		Capabilities: []string{
			servicedef.CapabilityAuth,
			servicedef.CapabilityRegistration,
			servicedef.CapabilityPagination,
			servicedef.CapabilityRateLimit,
			servicedef.CapabilityUploads,
			servicedef.CapabilityErrorDetails,
			servicedef.CapabilityCustomHeaders,
		},
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Service) postCreateConsumer(w http.ResponseWriter, r *http.Request) {
	var params servicedef.CreateConsumerParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, fmt.Sprintf("malformed create request: %s", err), http.StatusBadRequest)
		return
	}
	entity, err := newConsumerEntity(params, s.logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.lock.Lock()
	s.lastID++
	id := strconv.Itoa(s.lastID)
	s.entities[id] = entity
	s.lock.Unlock()

	s.logger.Printf("created consumer %s (tag=%q, baseUrl=%s)", id, params.Tag, params.BaseURL)
	w.Header().Set("Location", "/consumers/"+id)
	w.WriteHeader(http.StatusCreated)
}

func (s *Service) deleteService(w http.ResponseWriter, r *http.Request) {
	s.logger.Printf("harness requested shutdown")
	w.WriteHeader(http.StatusNoContent)
	if s.stopFn != nil {
		go s.stopFn()
	}
}

func (s *Service) lookup(id string) *consumerEntity {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.entities[id]
}

func (s *Service) postCommand(w http.ResponseWriter, r *http.Request) {
	entity := s.lookup(chi.URLParam(r, "id"))
	if entity == nil {
		http.Error(w, "no such consumer", http.StatusNotFound)
		return
	}
	var params servicedef.CommandParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, fmt.Sprintf("malformed command: %s", err), http.StatusBadRequest)
		return
	}
	result, err := entity.doCommand(r.Context(), params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) deleteConsumer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.lock.Lock()
	_, found := s.entities[id]
	delete(s.entities, id)
	s.lock.Unlock()
	if !found {
		http.Error(w, "no such consumer", http.StatusNotFound)
		return
	}
	s.logger.Printf("disposed consumer %s", id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
