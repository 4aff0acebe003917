// Package devserver is an in-memory stand-in for the remote campaign
// service, used for local development and integration tests of the client
// core. It mirrors the service contract: request/response entity endpoints
// plus a websocket push channel per scope. It is not the production service
// and persists nothing.
package devserver

import (
	"encoding/json"
	"net/http"
	gosync "sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	syncdomain "campsync/internal/domain/sync"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type entity struct {
	ID        string          `json:"id"`
	Kind      syncdomain.Kind `json:"kind"`
	Scope     string          `json:"-"`
	Attrs     map[string]any  `json:"attrs"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Server holds the in-memory entity table and the push hub.
type Server struct {
	log *slog.Logger
	hub *Hub

	mu       gosync.RWMutex
	entities map[string]*entity
}

func New(log *slog.Logger) *Server {
	return &Server{
		log:      log,
		hub:      NewHub(log),
		entities: make(map[string]*entity),
	}
}

// Router builds the HTTP surface.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/api/v1/health", s.handleHealth)
	r.Route("/api/v1/entities", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})
	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")

	s.mu.RLock()
	entities := make([]*entity, 0, len(s.entities))
	for _, e := range s.entities {
		if scope == "" || e.Scope == scope {
			entities = append(entities, e)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

type createRequest struct {
	ID    string          `json:"id"`
	Kind  syncdomain.Kind `json:"kind"`
	Scope string          `json:"scope"`
	Attrs map[string]any  `json:"attrs"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		http.Error(w, "kind is required", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Attrs == nil {
		req.Attrs = map[string]any{}
	}

	e := &entity{
		ID:        req.ID,
		Kind:      req.Kind,
		Scope:     req.Scope,
		Attrs:     req.Attrs,
		UpdatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.entities[e.ID] = e
	s.mu.Unlock()

	s.log.Info("entity created", "id", e.ID, "kind", e.Kind, "scope", e.Scope)
	s.hub.Broadcast(e.Scope, syncdomain.PushEvent{
		Operation: syncdomain.OpInsert,
		Kind:      e.Kind,
		EntityID:  e.ID,
		Data:      eventData(e.Attrs, e.UpdatedAt),
	})

	writeJSON(w, http.StatusCreated, e)
}

type updateRequest struct {
	Attrs map[string]any `json:"attrs"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	e, ok := s.entities[id]
	if !ok {
		s.mu.Unlock()
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}
	for k, v := range req.Attrs {
		e.Attrs[k] = v
	}
	e.UpdatedAt = time.Now().UTC()
	scope, kind, updatedAt := e.Scope, e.Kind, e.UpdatedAt
	s.mu.Unlock()

	s.log.Info("entity updated", "id", id)
	s.hub.Broadcast(scope, syncdomain.PushEvent{
		Operation: syncdomain.OpUpdate,
		Kind:      kind,
		EntityID:  id,
		Data:      eventData(req.Attrs, updatedAt),
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	e, ok := s.entities[id]
	if ok {
		delete(s.entities, id)
	}
	s.mu.Unlock()

	// deletes are idempotent; only a real removal is broadcast
	if ok {
		s.log.Info("entity deleted", "id", id)
		s.hub.Broadcast(e.Scope, syncdomain.PushEvent{
			Operation: syncdomain.OpDelete,
			Kind:      e.Kind,
			EntityID:  id,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		http.Error(w, "scope is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.log.Info("push subscriber connected", "scope", scope)
	go s.hub.serve(conn, scope)
}

func eventData(attrs map[string]any, updatedAt time.Time) map[string]any {
	data := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		data[k] = v
	}
	data["updated_at"] = updatedAt.Format(time.RFC3339)
	return data
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
