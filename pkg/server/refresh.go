package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/open-sauced/benchtrend/pkg/history"
	"github.com/open-sauced/benchtrend/pkg/providers"
	"github.com/open-sauced/benchtrend/pkg/validator"
)

// SeriesSummary is the size of one series after a load.
type SeriesSummary struct {
	Name      string `json:"name"`
	Snapshots int    `json:"snapshots"`
}

// RefreshResult is the outcome of fetching, loading and saving a feed.
type RefreshResult struct {
	Source   providers.FeedSource `json:"source"`
	Series   []SeriesSummary      `json:"series"`
	Warnings []string             `json:"warnings"`

	// Saved counts snapshots new to the database, zero without one.
	Saved int `json:"saved"`
}

// Refresh fetches and loads the feed of src and, when a database is
// configured, saves its history.
func (s *BenchTrendServer) Refresh(ctx context.Context, src providers.FeedSource) (RefreshResult, error) {
	store, warnings, err := s.loadFeed(ctx, src)
	if err != nil {
		return RefreshResult{}, err
	}

	result := RefreshResult{
		Source:   src,
		Series:   []SeriesSummary{},
		Warnings: warningStrings(warnings),
	}

	for _, name := range store.SeriesNames() {
		result.Series = append(result.Series, SeriesSummary{
			Name:      name,
			Snapshots: len(store.Snapshots(name)),
		})
	}

	if s.DB != nil {
		result.Saved, err = s.DB.SaveHistory(src.RepoURL, store)
		if err != nil {
			return RefreshResult{}, fmt.Errorf("could not save history of %s: %w", src.RepoURL, err)
		}
		s.Logger.Debugf("Saved %d new snapshots for %s", result.Saved, src.RepoURL)
	}

	return result, nil
}

// RefreshAll validates and refreshes every source in turn, logging failures
// instead of stopping at them.
func (s *BenchTrendServer) RefreshAll(ctx context.Context, sources []providers.FeedSource) {
	for _, src := range sources {
		if ctx.Err() != nil {
			return
		}

		v := validator.New()
		src = validator.ValidateFeedSource(v, src, s.GitHubOnly)
		if !v.Valid() {
			s.Logger.Errorf("Skipping invalid feed %s: %v", src, v.Errors)
			continue
		}

		result, err := s.Refresh(ctx, src)
		if err != nil {
			s.Logger.Errorf("Could not refresh feed %s: %v", src, err)
			continue
		}

		s.Logger.Infof("Refreshed feed %s: %d series, %d warnings", result.Source, len(result.Series), len(result.Warnings))
	}
}

// loadFeed fetches and parses a feed, recording metrics and logging every
// record warning.
func (s *BenchTrendServer) loadFeed(ctx context.Context, src providers.FeedSource) (*history.Store, []history.RecordWarning, error) {
	start := time.Now()

	raw, err := s.Feeds.FetchFeed(ctx, src)
	if err != nil {
		s.Metrics.ObserveRefresh(outcome(err), time.Since(start))
		return nil, nil, fmt.Errorf("could not fetch feed %s: %w", src, err)
	}

	store, warnings, err := history.Load(raw)
	if err != nil {
		s.Metrics.ObserveRefresh(outcome(err), time.Since(start))
		return nil, nil, fmt.Errorf("could not load feed %s: %w", src, err)
	}

	s.Metrics.ObserveRefresh("ok", time.Since(start))
	s.Metrics.AddRecordWarnings(src.RepoURL, len(warnings))

	for _, name := range store.SeriesNames() {
		s.Metrics.SetSnapshots(src.RepoURL, name, len(store.Snapshots(name)))
	}

	for _, w := range warnings {
		s.Logger.Warnw("Skipped malformed benchmark data",
			"feed", src.String(),
			"series", w.Series,
			"record", w.Record,
			"measurement", w.Measurement,
			"commit", w.CommitID,
			"reason", w.Reason,
		)
	}

	return store, warnings, nil
}

func warningStrings(warnings []history.RecordWarning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}

	return out
}

func outcome(err error) string {
	var formatErr *history.FormatError

	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, providers.ErrFeedNotFound):
		return "not_found"
	case errors.As(err, &formatErr):
		return "format_error"
	default:
		return "fetch_error"
	}
}

func statusFor(err error) int {
	switch outcome(err) {
	case "not_found":
		return http.StatusNotFound
	case "format_error":
		return http.StatusUnprocessableEntity
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
}
