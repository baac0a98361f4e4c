// internal/status/server.go
package status

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/user/tunefetch/internal/types"
)

// Server is a lightweight HTTP handler exposing daemon health and the live
// session table for debugging. It is loopback-only by default via config.
type Server struct {
	sessions types.SessionStore
	mux      *http.ServeMux
}

// NewServer creates a status Server over the given session store.
func NewServer(sessions types.SessionStore) *Server {
	s := &Server{
		sessions: sessions,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/sessions", s.handleSessions)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type sessionResponse struct {
	SessionID   string `json:"session_id"`
	Owner       int64  `json:"owner"`
	QueryLabel  string `json:"query_label"`
	Results     int    `json:"results"`
	CurrentPage int    `json:"current_page"`
	CreatedAt   string `json:"created_at"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.List()

	result := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionResponse{
			SessionID:   string(sess.ID),
			Owner:       int64(sess.Owner),
			QueryLabel:  sess.QueryLabel,
			Results:     len(sess.Results),
			CurrentPage: sess.CurrentPage,
			CreatedAt:   sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
