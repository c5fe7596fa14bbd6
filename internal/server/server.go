// Package server exposes the shape store over HTTP and pushes a change event
// to a room's websocket watchers after every successful mutation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"RoomBoard/internal/store"
)

type Server struct {
	svc      *store.Service
	hub      *Hub
	notifier Notifier
	origin   string
	router   *mux.Router
}

type Option func(*Server)

// WithNotifier replaces the hub as the destination of change events, e.g. with
// a RedisRelay that feeds the hub from pub/sub.
func WithNotifier(n Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

// WithOrigin sets the CORS allowed origin.
func WithOrigin(origin string) Option {
	return func(s *Server) { s.origin = origin }
}

func New(svc *store.Service, hub *Hub, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		hub:      hub,
		notifier: hub,
		origin:   "*",
		router:   mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Handle("/health", healthController{}).Methods(http.MethodGet)
	r.HandleFunc("/workspaces/{ws}/members", s.handleJoin).Methods(http.MethodPost)
	r.HandleFunc("/workspaces/{ws}/room", s.handleGetRoom).Methods(http.MethodGet)
	r.HandleFunc("/workspaces/{ws}/room", s.handleResolveRoom).Methods(http.MethodPost)
	r.HandleFunc("/workspaces/{ws}/shapes", s.handleListShapes).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{room}/shapes", s.handleListShapes).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{room}/shapes", s.handleCreateShape).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{room}/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/shapes/{id}", s.handleUpdateShape).Methods(http.MethodPut)
	r.HandleFunc("/shapes/{id}", s.handleDeleteShape).Methods(http.MethodDelete)
}

// Handler returns the routed handler wrapped in CORS headers.
func (s *Server) Handler() http.Handler { return setCors(s.origin, s.router) }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("[SERVER] Listening on %s", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", addr, err)
	}
	log.Printf("[SERVER] Stopped listening on %s", addr)
	return nil
}

func setCors(origin string, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, "+store.UserHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")
		if r.Method == http.MethodOptions {
			return
		}
		h.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

type healthController struct{}

func (c healthController) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Healthy\n")
}

func userID(r *http.Request) string { return r.Header.Get(store.UserHeader) }

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVER] Encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := store.HTTPError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[SERVER] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

var errBadRequest = errors.New("malformed request body")

func (s *Server) notify(ctx context.Context, roomID, shapeID string) {
	ev := store.Event{Type: store.EventShapesChanged, RoomID: roomID, ShapeID: shapeID}
	if err := s.notifier.Publish(ctx, ev); err != nil {
		log.Printf("[SERVER] Notify room %s: %v", roomID, err)
	}
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Join(r.Context(), userID(r), mux.Vars(r)["ws"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.svc.GetRoom(r.Context(), userID(r), mux.Vars(r)["ws"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleResolveRoom(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ConversationID string `json:"conversationId"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	room, err := s.svc.ResolveRoom(r.Context(), userID(r), mux.Vars(r)["ws"], in.ConversationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleListShapes answers 204 when there is nothing to show yet.
func (s *Server) handleListShapes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	q := store.ShapeQuery{RoomID: vars["room"], WorkspaceID: vars["ws"]}
	records, err := s.svc.ListShapes(r.Context(), userID(r), q)
	if errors.Is(err, store.ErrNotLoaded) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleCreateShape(w http.ResponseWriter, r *http.Request) {
	var in struct {
		WorkspaceID    string `json:"workspaceId"`
		MemberID       string `json:"memberId"`
		ConversationID string `json:"conversationId"`
		Body           string `json:"body"`
	}
	if err := decode(r, &in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	roomID := mux.Vars(r)["room"]
	id, err := s.svc.CreateShape(r.Context(), userID(r), store.Record{
		RoomID:         roomID,
		WorkspaceID:    in.WorkspaceID,
		MemberID:       in.MemberID,
		ConversationID: in.ConversationID,
		Body:           in.Body,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.notify(r.Context(), roomID, id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateShape(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Body string `json:"body"`
	}
	if err := decode(r, &in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := s.svc.UpdateShape(r.Context(), userID(r), mux.Vars(r)["id"], in.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.notify(r.Context(), rec.RoomID, rec.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteShape(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.DeleteShape(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.notify(r.Context(), rec.RoomID, rec.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	room, err := s.svc.Room(r.Context(), userID(r), mux.Vars(r)["room"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.hub.ServeWS(w, r, room.ID)
}
