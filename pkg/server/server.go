// package server serves benchmark trends, insights and charts over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/open-sauced/benchtrend/pkg/database"
	"github.com/open-sauced/benchtrend/pkg/insights"
	"github.com/open-sauced/benchtrend/pkg/metrics"
	"github.com/open-sauced/benchtrend/pkg/providers"
)

// BenchTrendServer provides a leveled logger for use during serving requests,
// a FeedProvider to fetch benchmark feeds with and an optional
// BenchDbHandler to persist refreshed history.
type BenchTrendServer struct {
	Logger   *zap.SugaredLogger
	DB       *database.BenchDbHandler
	Feeds    providers.FeedProvider
	Metrics  *metrics.Metrics
	Insights insights.Options

	// GitHubOnly restricts feed URLs to github.com repositories, which the
	// GitHub API provider requires.
	GitHubOnly bool

	mux *http.ServeMux
}

// NewBenchTrendServer returns a BenchTrendServer with its routes registered.
// dbHandler may be nil to serve without persistence.
func NewBenchTrendServer(dbHandler *database.BenchDbHandler, feeds providers.FeedProvider, m *metrics.Metrics, logger *zap.SugaredLogger) *BenchTrendServer {
	s := &BenchTrendServer{
		Logger:  logger,
		DB:      dbHandler,
		Feeds:   feeds,
		Metrics: m,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("/refresh", s.handleRefresh)
	s.mux.HandleFunc("/trends", s.handleTrends)
	s.mux.HandleFunc("/insights", s.handleInsights)
	s.mux.HandleFunc("/chart", s.handleChart)
	s.mux.HandleFunc("/ping", s.pingHandler)
	s.mux.Handle("/metrics", m.Handler())

	return s
}

// ServeHTTP makes the server usable as an http.Handler
func (s *BenchTrendServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run starts the http server on the provided port and blocks until ctx is
// done or the server fails.
func (s *BenchTrendServer) Run(ctx context.Context, serverPort string) error {
	//nolint:errcheck
	defer s.Logger.Sync()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", serverPort),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Infof("Starting server on port %s", serverPort)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.Logger.Infof("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not shut down server: %w", err)
	}

	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *BenchTrendServer) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		s.Logger.Errorf("Could not connect to /ping endpoint: %v", err.Error())
		http.Error(w, "Could not connect, server is down", http.StatusInternalServerError)
	}
}
