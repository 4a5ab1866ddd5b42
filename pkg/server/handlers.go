package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/customize"
	"github.com/matzehuels/netlens/pkg/errors"
	"github.com/matzehuels/netlens/pkg/network"
	"github.com/matzehuels/netlens/pkg/render"
	"github.com/matzehuels/netlens/pkg/stats"
)

// =============================================================================
// Request Types
// =============================================================================

// analyzeRequest is the detection endpoint body. The algorithm may also be
// given as a query parameter; the body wins.
type analyzeRequest struct {
	Nodes     []network.Node `json:"nodes" validate:"required"`
	Links     []network.Link `json:"links" validate:"required"`
	Algorithm string         `json:"algorithm"`
}

type customizeRequest struct {
	Nodes    []network.Node      `json:"nodes" validate:"required"`
	Links    []network.Link      `json:"links"`
	Settings *customize.Settings `json:"settings"`
}

type renderRequest struct {
	Nodes    []network.Node      `json:"nodes" validate:"required"`
	Links    []network.Link      `json:"links"`
	Settings *customize.Settings `json:"settings"`
	Directed bool                `json:"directed"`
}

// =============================================================================
// Stateless Endpoints
// =============================================================================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analyzeCommunities(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err, nil)
		return
	}
	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = r.URL.Query().Get("algorithm")
	}
	if algorithm == "" {
		algorithm = community.DefaultAlgorithm
	}
	if err := errors.ValidateAlgorithm(algorithm); err != nil {
		s.writeError(w, err, nil)
		return
	}

	resp, err := s.opts.Analyzer.Detect(r.Context(), network.New(req.Nodes, req.Links), algorithm)
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// statsResponse is the statistics plus the derived summary values.
type statsResponse struct {
	stats.Summary
	Reciprocity string `json:"reciprocityFormatted"`
}

func summaryResponse(sum stats.Summary) statsResponse {
	return statsResponse{Summary: sum, Reciprocity: sum.FormatReciprocity()}
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	g, err := network.ReadGraph(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode graph"), nil)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse(stats.Summarize(g, g.CommunityCount())))
}

func (s *Server) settingsOrDefault(p *customize.Settings) customize.Settings {
	if p != nil {
		return *p
	}
	if s.opts.Settings != nil {
		return s.opts.Settings.Clone()
	}
	return customize.DefaultSettings()
}

// customize and render decode settings over the server defaults, so partial
// settings objects work.
func (s *Server) customize(w http.ResponseWriter, r *http.Request) {
	base := s.settingsOrDefault(nil)
	req := customizeRequest{Settings: &base}
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err, nil)
		return
	}
	out := customize.Apply(network.New(req.Nodes, req.Links), s.settingsOrDefault(req.Settings))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	base := s.settingsOrDefault(nil)
	req := renderRequest{Settings: &base}
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err, nil)
		return
	}
	settings := s.settingsOrDefault(req.Settings)
	g := network.New(req.Nodes, req.Links)
	if req.Directed {
		g = network.ReverseLinks(g)
	}
	s.writeRendered(w, r, customize.Apply(g, settings), render.OptionsFrom(settings, req.Directed))
}

func (s *Server) writeRendered(w http.ResponseWriter, r *http.Request, g *network.Graph, opts render.Options) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = render.FormatSVG
	}
	data, err := render.Render(r.Context(), g, opts, format)
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func contentType(format string) string {
	switch format {
	case render.FormatSVG:
		return "image/svg+xml"
	case render.FormatPDF:
		return "application/pdf"
	case render.FormatPNG:
		return "image/png"
	}
	return "text/vnd.graphviz"
}

// =============================================================================
// Research Records
// =============================================================================

func (s *Server) listResearch(w http.ResponseWriter, r *http.Request) {
	list, err := s.opts.Store.List(r.Context())
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	if list == nil {
		list = []*network.Research{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createResearch(w http.ResponseWriter, r *http.Request) {
	var rec network.Research
	if err := s.decode(r, &rec); err != nil {
		s.writeError(w, err, nil)
		return
	}
	if rec.Analysis != nil && rec.Analysis.Algorithm != "" {
		if err := errors.ValidateAlgorithm(rec.Analysis.Algorithm); err != nil {
			s.writeError(w, err, nil)
			return
		}
	}
	if err := s.opts.Store.Put(r.Context(), &rec); err != nil {
		s.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getResearch(w http.ResponseWriter, r *http.Request) {
	rec, err := s.opts.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteResearch(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
