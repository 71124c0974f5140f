// Package api exposes the stored weather data over HTTP: station,
// observation, and summary listings plus the operational endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store"
)

// ReadStore is the slice of the store the API serves from.
type ReadStore interface {
	ListStations(ctx context.Context, f store.StationFilter) ([]domain.Station, int, error)
	ListFacts(ctx context.Context, f store.FactFilter) ([]domain.WeatherFact, int, error)
	ListSummaries(ctx context.Context, f store.SummaryFilter) ([]domain.Summary, int, error)
	Ping(ctx context.Context) error
}

// Server exposes the read API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	store      ReadStore
	logger     *slog.Logger
}

// NewServer builds the router and wraps it in an http.Server on addr.
func NewServer(addr string, st ReadStore, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:  st,
		logger: logger,
	}

	apiGroup := router.Group("/api")
	apiGroup.GET("/stations", s.handleListStations)
	apiGroup.GET("/weather", s.handleListWeather)
	apiGroup.GET("/weather/stats", s.handleListStats)

	router.GET("/healthz", s.handleHealth)
	router.GET("/readyz", s.handleReady)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleListStations(c *gin.Context) {
	filter := store.StationFilter{
		State:   c.Query("state"),
		Country: c.Query("country"),
		Page:    pageFromQuery(c),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, fmt.Sprintf("invalid active %q", raw))
			return
		}
		filter.Active = &active
	}

	stations, total, err := s.store.ListStations(c.Request.Context(), filter)
	if err != nil {
		s.internalError(c, "list stations", err)
		return
	}

	data := make([]stationDTO, 0, len(stations))
	for _, st := range stations {
		data = append(data, toStationDTO(st))
	}
	writeList(c, data, filter.Page, total)
}

func (s *Server) handleListWeather(c *gin.Context) {
	filter := store.FactFilter{
		StationID: c.Query("station_id"),
		Source:    c.Query("source"),
		Quality:   c.Query("quality"),
		Page:      pageFromQuery(c),
	}

	var err error
	if filter.From, err = dateFromQuery(c, "start_date"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.To, err = dateFromQuery(c, "end_date"); err != nil {
		badRequest(c, err.Error())
		return
	}

	facts, total, err := s.store.ListFacts(c.Request.Context(), filter)
	if err != nil {
		s.internalError(c, "list weather", err)
		return
	}

	data := make([]factDTO, 0, len(facts))
	for _, f := range facts {
		data = append(data, toFactDTO(f))
	}
	writeList(c, data, filter.Page, total)
}

func (s *Server) handleListStats(c *gin.Context) {
	filter := store.SummaryFilter{
		Granularity: domain.GranularityAnnual,
		StationID:   c.Query("station_id"),
		Page:        pageFromQuery(c),
	}
	if raw := c.Query("granularity"); raw != "" {
		g := domain.Granularity(raw)
		if !g.Valid() {
			badRequest(c, fmt.Sprintf("invalid granularity %q", raw))
			return
		}
		filter.Granularity = g
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, fmt.Sprintf("invalid year %q", raw))
			return
		}
		filter.Year = year
	}

	summaries, total, err := s.store.ListSummaries(c.Request.Context(), filter)
	if err != nil {
		s.internalError(c, "list stats", err)
		return
	}

	data := make([]summaryDTO, 0, len(summaries))
	for _, sum := range summaries {
		data = append(data, toSummaryDTO(sum))
	}
	writeList(c, data, filter.Page, total)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func writeList(c *gin.Context, data any, page store.Page, total int) {
	page = page.Normalize()
	c.JSON(http.StatusOK, listResponse{
		Data:       data,
		Pagination: newPagination(page.Number, page.PerPage, total),
	})
}

// pageFromQuery reads page and per_page, falling back to defaults on any
// unparseable value. Out-of-range values are normalized by the store layer.
func pageFromQuery(c *gin.Context) store.Page {
	var p store.Page
	if n, err := strconv.Atoi(c.Query("page")); err == nil {
		p.Number = n
	}
	if n, err := strconv.Atoi(c.Query("per_page")); err == nil {
		p.PerPage = n
	}
	return p.Normalize()
}

func dateFromQuery(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q, want YYYY-MM-DD", key, raw)
	}
	return d, nil
}
