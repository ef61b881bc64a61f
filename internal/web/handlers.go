package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/flowforge/internal/logging"
	"github.com/JonMunkholm/flowforge/internal/session"
)

type ctxKey int

const sessionKey ctxKey = iota

// sessionContext resolves {id} and stores the session in the request
// context. Unknown and expired IDs answer 404.
func (s *Server) sessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		ctx = logging.WithSession(ctx, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentSession returns the session stored by sessionContext.
func currentSession(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionKey).(*session.Session)
	return sess
}

// intParam parses a positive integer query parameter, falling back to def.
func intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 1 {
		return def
	}
	return i
}

// boolParam accepts the strconv.ParseBool spellings, falling back to def.
func boolParam(r *http.Request, name string, def bool) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return b
}

type sessionResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.FromContext(logging.WithSession(r.Context(), sess.ID)).Info("session created")
	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if err := s.sessions.Delete(sess.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("session deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	view := sessionView{
		ID:      sess.ID,
		Source:  sess.Source(),
		Table:   sess.Current(),
		Limit:   intParam(r, "limit", s.cfg.Upload.PreviewRows),
		History: sess.History(),
		Log:     sess.Log(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := SessionPage(view).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render session page", "error", err)
	}
}
