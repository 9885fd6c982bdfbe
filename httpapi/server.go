package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poiesic/placerank"
	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/metrics"
	"github.com/poiesic/placerank/retrieval"
)

// MaxLimit caps the page size a client may request.
const MaxLimit = 1000

// Model runs searches. *retrieval.Model implements it.
type Model interface {
	Run(ctx context.Context, q core.Query, limit, offset int) (*retrieval.Result, error)
	Expand(ctx context.Context, text string) (string, error)
	Correct(ctx context.Context, q core.Query) string
	SetAutoexpansion(on bool)
	Autoexpansion() bool
}

// Catalog answers listing lookups. *placerank.Engine implements it.
type Catalog interface {
	Listing(ctx context.Context, id core.ListingID) (*core.Listing, error)
	ListingSentiment(id core.ListingID) placerank.ListingSentiment
	DocCount() (uint64, error)
}

var (
	_ Model   = (*retrieval.Model)(nil)
	_ Catalog = (*placerank.Engine)(nil)
)

// Server serves the HTTP API.
type Server struct {
	model    Model
	catalog  Catalog
	pageSize int
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPageSize sets the number of results returned when no limit is given.
func WithPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = min(n, MaxLimit)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an API server.
func NewServer(model Model, catalog Catalog, opts ...Option) *Server {
	s := &Server{
		model:    model,
		catalog:  catalog,
		pageSize: 50,
		logger:   slog.Default().With("component", "httpapi"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with recovery, request ids, access
// logging and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(s.logger))
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/search", s.search)
	r.Get("/expand", s.expand)
	r.Get("/correct", s.correct)
	r.Get("/autoexpansion", s.getAutoexpansion)
	r.Put("/autoexpansion", s.putAutoexpansion)
	r.Get("/listings/{id}", s.listing)
	r.Get("/listings/{id}/sentiment", s.listingSentiment)
	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// SearchResult is one ranked listing.
type SearchResult struct {
	ID           core.ListingID `json:"id"`
	Name         string         `json:"name"`
	RoomType     string         `json:"room_type"`
	LexicalScore float64        `json:"lexical_score"`
	Score        float64        `json:"score"`
}

// SearchResponse is the body of GET /search. DidYouMean and ExpandedQuery
// are set only when they differ from the submitted text.
type SearchResponse struct {
	Query         string         `json:"query"`
	Total         int            `json:"total"`
	Offset        int            `json:"offset"`
	Limit         int            `json:"limit"`
	Results       []SearchResult `json:"results"`
	DidYouMean    string         `json:"did_you_mean,omitempty"`
	ExpandedQuery string         `json:"expanded_query,omitempty"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", s.pageSize)
	if err == nil && (limit < 1 || limit > MaxLimit) {
		err = fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err == nil && offset < 0 {
		err = errors.New("offset cannot be negative")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.model.Run(r.Context(), q, limit, offset)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	resp := SearchResponse{
		Query:   q.Text,
		Total:   res.Total,
		Offset:  offset,
		Limit:   limit,
		Results: make([]SearchResult, len(res.Hits)),
	}
	for i, h := range res.Hits {
		resp.Results[i] = SearchResult{
			ID:           h.DocumentID,
			Name:         h.Name,
			RoomType:     h.RoomType,
			LexicalScore: h.LexicalScore,
			Score:        h.FinalScore,
		}
	}
	if suggestion := s.model.Correct(r.Context(), q); differs(suggestion, q.Text) {
		resp.DidYouMean = suggestion
	}
	if differs(res.Executed, q.Text) {
		resp.ExpandedQuery = res.Executed
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) expand(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	expanded, err := s.model.Expand(r.Context(), text)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"query": text, "expanded": expanded})
}

func (s *Server) correct(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"query":      q.Text,
		"suggestion": s.model.Correct(r.Context(), q),
	})
}

type autoexpansionBody struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) getAutoexpansion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, autoexpansionBody{Enabled: s.model.Autoexpansion()})
}

func (s *Server) putAutoexpansion(w http.ResponseWriter, r *http.Request) {
	var body autoexpansionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.model.SetAutoexpansion(body.Enabled)
	requestLogger(r, s.logger).Info("autoexpansion changed", "enabled", body.Enabled)
	writeJSON(w, http.StatusOK, autoexpansionBody{Enabled: s.model.Autoexpansion()})
}

// ListingResponse is the body of GET /listings/{id}.
type ListingResponse struct {
	ID                   core.ListingID `json:"id"`
	Name                 string         `json:"name"`
	RoomType             string         `json:"room_type"`
	Description          string         `json:"description"`
	NeighborhoodOverview string         `json:"neighborhood_overview"`
}

func (s *Server) listing(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(w, r)
	if !ok {
		return
	}
	l, err := s.catalog.Listing(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if l == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("listing %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, ListingResponse{
		ID:                   l.ID,
		Name:                 l.Name,
		RoomType:             l.RoomType,
		Description:          l.Description,
		NeighborhoodOverview: l.NeighborhoodOverview,
	})
}

// ReviewResponse is one classified review.
type ReviewResponse struct {
	ID     int64              `json:"review_id"`
	Date   string             `json:"date"`
	Scores map[string]float64 `json:"sentiment_scores"`
}

// SentimentResponse is the body of GET /listings/{id}/sentiment.
type SentimentResponse struct {
	ID      core.ListingID       `json:"id"`
	Reviews []ReviewResponse     `json:"reviews"`
	Decayed core.SentimentVector `json:"decayed"`
	Mean    core.SentimentVector `json:"mean"`
}

func (s *Server) listingSentiment(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(w, r)
	if !ok {
		return
	}
	report := s.catalog.ListingSentiment(id)
	resp := SentimentResponse{
		ID:      id,
		Reviews: make([]ReviewResponse, len(report.Reviews)),
		Decayed: report.Decayed,
		Mean:    report.Mean,
	}
	for i, rv := range report.Reviews {
		scores := make(map[string]float64, len(rv.Scores))
		for _, sc := range rv.Scores {
			scores[sc.Label] = sc.Score
		}
		resp.Reviews[i] = ReviewResponse{ID: rv.ID, Date: rv.Date.Format(time.DateOnly), Scores: scores}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.DocCount()
	if err != nil {
		requestLogger(r, s.logger).Error("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "listings": n})
}

func queryFromRequest(r *http.Request) (core.Query, error) {
	params := r.URL.Query()
	q := core.Query{
		Text:          params.Get("q"),
		RoomType:      params.Get("room_type"),
		SentimentTags: params.Get("sentiment"),
	}
	if raw := params.Get("fields"); raw != "" {
		fields, err := core.ParseSearchFields(raw)
		if err != nil {
			return q, err
		}
		q.Fields = fields
	}
	return q, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func listingID(w http.ResponseWriter, r *http.Request) (core.ListingID, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "listing id must be a positive integer")
		return 0, false
	}
	return core.ListingID(n), true
}

func differs(candidate, submitted string) bool {
	candidate = strings.TrimSpace(candidate)
	return candidate != "" && candidate != strings.TrimSpace(submitted)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	logger := requestLogger(r, s.logger)
	switch {
	case errors.Is(err, core.ErrInvalidQuery), errors.Is(err, core.ErrUnknownField):
		logger.Debug("rejected query", "err", err)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrEmbeddingServiceUnavailable):
		logger.Warn("embedding service unavailable", "err", err)
		writeError(w, http.StatusBadGateway, core.ErrEmbeddingServiceUnavailable.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Info("request abandoned", "err", err)
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		logger.Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
