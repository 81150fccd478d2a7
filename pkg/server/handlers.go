package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/open-sauced/benchtrend/pkg/insights"
	"github.com/open-sauced/benchtrend/pkg/providers"
	"github.com/open-sauced/benchtrend/pkg/render"
	"github.com/open-sauced/benchtrend/pkg/trends"
	"github.com/open-sauced/benchtrend/pkg/validator"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type trendsResponse struct {
	Source   providers.FeedSource     `json:"source"`
	Series   map[string]trends.Trends `json:"series"`
	Warnings []string                 `json:"warnings"`
}

type insightsResponse struct {
	Source      providers.FeedSource          `json:"source"`
	Series      map[string][]insights.Insight `json:"series"`
	Regressions map[string][]insights.Insight `json:"regressions"`
	Warnings    []string                      `json:"warnings"`
}

func (s *BenchTrendServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.Logger.Errorf("Received request with invalid method: %s", r.Method)
		http.Error(w, "Invalid request method, expected post", http.StatusMethodNotAllowed)
		return
	}

	var data providers.FeedSource
	err := json.NewDecoder(r.Body).Decode(&data)
	if err != nil {
		s.Logger.Errorf("Could not decode request json body with error: %v", err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Could not decode request body"})
		return
	}

	src, ok := s.validate(w, data)
	if !ok {
		return
	}

	result, err := s.Refresh(r.Context(), src)
	if err != nil {
		s.Logger.Errorf("Could not refresh feed %s with error: %v", src, err)
		s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *BenchTrendServer) handleTrends(w http.ResponseWriter, r *http.Request) {
	src, series, warnings, ok := s.extractFromQuery(w, r)
	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, trendsResponse{Source: src, Series: series, Warnings: warnings})
}

func (s *BenchTrendServer) handleInsights(w http.ResponseWriter, r *http.Request) {
	src, series, warnings, ok := s.extractFromQuery(w, r)
	if !ok {
		return
	}

	resp := insightsResponse{
		Source:      src,
		Series:      make(map[string][]insights.Insight, len(series)),
		Regressions: make(map[string][]insights.Insight),
		Warnings:    warnings,
	}

	for name, tr := range series {
		all := insights.CompareAll(tr, s.Insights)
		if all == nil {
			all = []insights.Insight{}
		}
		resp.Series[name] = all

		if regressions := insights.Regressions(all); len(regressions) > 0 {
			resp.Regressions[name] = regressions
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *BenchTrendServer) handleChart(w http.ResponseWriter, r *http.Request) {
	src, series, warnings, ok := s.extractFromQuery(w, r)
	if !ok {
		return
	}

	if len(warnings) > 0 {
		w.Header().Set("X-Record-Warnings", strconv.Itoa(len(warnings)))
	}

	var buf bytes.Buffer
	if err := render.Page(&buf, src.RepoURL, series); err != nil {
		s.Logger.Errorf("Could not render chart for %s: %v", src, err)
		http.Error(w, "Could not render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		s.Logger.Errorf("Could not write chart response: %v", err)
	}
}

// extractFromQuery loads the feed named by the query string and extracts its
// trends, optionally narrowed to one series and deduplicated by commit, along
// with the warnings for records skipped while loading. On failure the error
// response has already been written.
func (s *BenchTrendServer) extractFromQuery(w http.ResponseWriter, r *http.Request) (providers.FeedSource, map[string]trends.Trends, []string, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Invalid request method, expected get", http.StatusMethodNotAllowed)
		return providers.FeedSource{}, nil, nil, false
	}

	query := r.URL.Query()

	src, ok := s.validate(w, sourceFromQuery(query))
	if !ok {
		return providers.FeedSource{}, nil, nil, false
	}

	var policy *trends.Policy
	if d := query.Get("dedupe"); d != "" {
		p, err := trends.ParsePolicy(d)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return providers.FeedSource{}, nil, nil, false
		}
		policy = &p
	}

	store, warnings, err := s.loadFeed(r.Context(), src)
	if err != nil {
		s.Logger.Errorf("Could not load feed %s with error: %v", src, err)
		s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return providers.FeedSource{}, nil, nil, false
	}

	all := trends.ExtractAll(store)

	if name := query.Get("series"); name != "" {
		tr, ok := all[name]
		if !ok {
			s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown series: " + name})
			return providers.FeedSource{}, nil, nil, false
		}
		all = map[string]trends.Trends{name: tr}
	}

	if policy != nil {
		for name, tr := range all {
			all[name] = tr.DedupeByCommit(*policy)
		}
	}

	return src, all, warningStrings(warnings), true
}

func sourceFromQuery(query url.Values) providers.FeedSource {
	return providers.FeedSource{
		RepoURL: query.Get("url"),
		Branch:  query.Get("branch"),
		Path:    query.Get("path"),
	}
}

// validate normalizes src and writes a 400 response listing every problem
// when it is invalid.
func (s *BenchTrendServer) validate(w http.ResponseWriter, src providers.FeedSource) (providers.FeedSource, bool) {
	v := validator.New()
	src = validator.ValidateFeedSource(v, src, s.GitHubOnly)

	if !v.Valid() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid feed source", Fields: v.Errors})
		return providers.FeedSource{}, false
	}

	return src, true
}

func (s *BenchTrendServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Errorf("Could not encode response: %v", err)
	}
}
