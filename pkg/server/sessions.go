package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/netlens/pkg/customize"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/explorer"
	"github.com/matzehuels/netlens/pkg/filter"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/notify"
	"github.com/matzehuels/netlens/pkg/render"
)

// session is one explorer plus the notifications of the request in flight.
// Requests on the same session are serialized so each response carries
// exactly its own notifications.
type session struct {
	mu    sync.Mutex
	exp   *explorer.Explorer
	notes *notify.Recorder

	// used is guarded by Server.mu.
	used time.Time
}

// createSessionRequest opens a stored record by id, or an inline graph.
type createSessionRequest struct {
	ResearchID string         `json:"research_id" validate:"required_without=Nodes,max=128"`
	Nodes      []network.Node `json:"nodes"`
	Links      []network.Link `json:"links"`
	Directed   bool           `json:"directed"`
	Algorithm  string         `json:"algorithm"`
}

// sessionResponse is returned by every session operation.
type sessionResponse struct {
	Session       explorer.Snapshot `json:"session"`
	Graph         *network.Graph    `json:"graph,omitempty"`
	Notifications []notify.Message  `json:"notifications"`
	// Relayout asks the client to reheat its force layout and fit the view.
	Relayout bool `json:"relayout,omitempty"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err, nil)
		return
	}

	var rec *network.Research
	if req.ResearchID != "" {
		got, err := s.opts.Store.Get(r.Context(), req.ResearchID)
		if err != nil {
			s.writeError(w, err, nil)
			return
		}
		rec = got
	} else {
		rec = &network.Research{Filters: network.Filters{Directed: req.Directed}}
		rec.SetGraph(network.New(req.Nodes, req.Links))
	}
	if req.Algorithm != "" {
		if err := errors.ValidateAlgorithm(req.Algorithm); err != nil {
			s.writeError(w, err, nil)
			return
		}
		if rec.Analysis == nil {
			rec.Analysis = &network.Analysis{}
		}
		rec.Analysis.Algorithm = req.Algorithm
	}

	notes := &notify.Recorder{}
	exp, err := explorer.Open(r.Context(), rec, explorer.Options{
		Detector:      s.opts.Detector,
		Notifier:      notify.Multi{notes, notify.Log{Logger: s.logger}},
		Logger:        s.logger,
		AutoDetect:    s.opts.AutoDetect,
		Settings:      s.opts.Settings,
		FilterOptions: s.opts.FilterOptions,
	})
	if err != nil {
		s.writeError(w, err, notes.Drain())
		return
	}
	s.mu.Lock()
	s.addSessionLocked(exp.ID(), &session{exp: exp, notes: notes})
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, sessionResponse{
		Session:       exp.Snapshot(),
		Graph:         exp.Display(),
		Notifications: drain(notes),
	})
}

// withSession runs fn with the session named in the URL locked.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session)) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	sess, ok := s.lookupSessionLocked(id)
	s.mu.Unlock()
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id), nil)
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess)
}

// addSessionLocked stores sess after dropping expired sessions and, at the
// cap, the least recently used one.
func (s *Server) addSessionLocked(id string, sess *session) {
	now := s.now()
	s.expireLocked(now)
	for len(s.sessions) >= s.opts.MaxSessions {
		var oldest string
		for sid, other := range s.sessions {
			if oldest == "" || other.used.Before(s.sessions[oldest].used) {
				oldest = sid
			}
		}
		delete(s.sessions, oldest)
		s.logger.Debug("session evicted", "session", oldest, "reason", "limit")
	}
	sess.used = now
	s.sessions[id] = sess
}

// lookupSessionLocked returns a live session and marks it used. An expired
// session is dropped and reported missing.
func (s *Server) lookupSessionLocked(id string) (*session, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(sess.used) > s.opts.SessionTTL {
		delete(s.sessions, id)
		s.logger.Debug("session evicted", "session", id, "reason", "idle")
		return nil, false
	}
	sess.used = now
	return sess, true
}

func (s *Server) expireLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.used) > s.opts.SessionTTL {
			delete(s.sessions, id)
			s.logger.Debug("session evicted", "session", id, "reason", "idle")
		}
	}
}

func drain(r *notify.Recorder) []notify.Message {
	msgs := r.Drain()
	if msgs == nil {
		msgs = []notify.Message{}
	}
	return msgs
}

func (s *Server) respond(w http.ResponseWriter, sess *session, withGraph bool) {
	resp := sessionResponse{Session: sess.exp.Snapshot(), Notifications: drain(sess.notes)}
	if withGraph {
		resp.Graph = sess.exp.Display()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		s.respond(w, sess, false)
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		s.writeError(w, errors.New(errors.ErrCodeSessionNotFound, "session %s not found", id), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionGraph(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		writeJSON(w, http.StatusOK, sess.exp.Display())
	})
}

func (s *Server) sessionStats(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		writeJSON(w, http.StatusOK, summaryResponse(sess.exp.Summary()))
	})
}

func (s *Server) sessionSearch(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		writeJSON(w, http.StatusOK, sess.exp.Search(r.URL.Query().Get("q")))
	})
}

func (s *Server) sessionRender(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		opts := render.OptionsFrom(sess.exp.Settings(), sess.exp.Research().Directed())
		s.writeRendered(w, r, sess.exp.Display(), opts)
	})
}

// toggleFilter flips one filter. For the highlight filter, ?metric= selects
// the centrality metric by label or field name first.
func (s *Server) toggleFilter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filter")
	s.withSession(w, r, func(sess *session) {
		if m := r.URL.Query().Get("metric"); m != "" {
			info, ok := filter.LookupMetric(m)
			if !ok {
				s.writeError(w, errors.New(errors.ErrCodeInvalidMetric, "unknown metric: %s", m), nil)
				return
			}
			sess.exp.SelectMetric(info.Label)
		}
		if err := sess.exp.Toggle(name, nil); err != nil {
			s.writeError(w, err, drain(sess.notes))
			return
		}
		resp := sessionResponse{
			Session:       sess.exp.Snapshot(),
			Graph:         sess.exp.Display(),
			Notifications: drain(sess.notes),
			Relayout:      name == filter.NameCommunities,
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) detectCommunities(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		if err := sess.exp.DetectCommunities(r.Context()); err != nil {
			s.writeError(w, err, drain(sess.notes))
			return
		}
		s.respond(w, sess, true)
	})
}

// customizeSession applies settings decoded over the defaults, so partial
// bodies work.
func (s *Server) customizeSession(w http.ResponseWriter, r *http.Request) {
	settings := customize.DefaultSettings()
	if err := s.decode(r, &settings); err != nil {
		s.writeError(w, err, nil)
		return
	}
	s.withSession(w, r, func(sess *session) {
		sess.exp.Customize(settings)
		s.respond(w, sess, true)
	})
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		sess.exp.Reset()
		s.respond(w, sess, true)
	})
}
