// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/recipex/recipex/internal/cache"
	"github.com/recipex/recipex/internal/metrics"
	"github.com/recipex/recipex/internal/model"
	"github.com/recipex/recipex/internal/repository"
)

// Operation names recorded against the metrics collector.
const (
	opGetAllRecipes = "get_all_recipes"
	opSearchRecipes = "search_recipes"
	opGetRecipe     = "get_recipe"
	opSearchMeals   = "search_meals"
	opGetMealByID   = "get_meal_by_id"
)

// DefaultExternalTimeout bounds the external branch of a combined query.
const DefaultExternalTimeout = 5 * time.Second

// ExternalSource is the part of the external catalog client the query
// orchestrator depends on.
type ExternalSource interface {
	SearchMeals(ctx context.Context, query string) ([]model.Recipe, error)
}

// SearchCache remembers external search results between queries.
// *cache.Cache implements it; a nil SearchCache disables caching.
type SearchCache interface {
	GetSearchResults(ctx context.Context, query string) ([]model.Recipe, error)
	SetSearchResults(ctx context.Context, query string, recipes []model.Recipe, ttl time.Duration) error
}

// QueryService answers combined recipe queries by fanning out to the
// internal store and the external source concurrently and merging the
// results internal-first. Each branch is timed as its own operation;
// external failures degrade to an empty contribution instead of failing
// the query.
type QueryService struct {
	store           repository.RecipeStore
	external        ExternalSource
	searchCache     SearchCache
	searchCacheTTL  time.Duration
	externalTimeout time.Duration
	metrics         metrics.Recorder
	logger          *slog.Logger
}

// QueryOptions carries the orchestrator's optional tunables.
type QueryOptions struct {
	// SearchCache, when non-nil, is consulted before the external source.
	SearchCache SearchCache
	// SearchCacheTTL is how long cached external results live.
	// Zero uses the cache layer's default.
	SearchCacheTTL time.Duration
	// ExternalTimeout bounds the external branch.
	// Zero means DefaultExternalTimeout.
	ExternalTimeout time.Duration
}

// NewQueryService creates a QueryService.
func NewQueryService(store repository.RecipeStore, external ExternalSource, opts QueryOptions, recorder metrics.Recorder, logger *slog.Logger) *QueryService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if opts.ExternalTimeout <= 0 {
		opts.ExternalTimeout = DefaultExternalTimeout
	}
	return &QueryService{
		store:           store,
		external:        external,
		searchCache:     opts.SearchCache,
		searchCacheTTL:  opts.SearchCacheTTL,
		externalTimeout: opts.ExternalTimeout,
		metrics:         recorder,
		logger:          logger,
	}
}

// QueryInput defines input for a combined recipe query.
type QueryInput struct {
	// Search is the optional title search term.
	Search string
	// HasSearch records whether the request carried a search parameter at
	// all; the response meta reports it separately from the term.
	HasSearch bool
}

// Performance carries the per-branch timings for one combined query.
type Performance struct {
	InternalQueryMS float64
	// ExternalAPIMS is nil when the external branch did not run.
	ExternalAPIMS *float64
	// TotalRequestMS is wall-clock time for the whole query. With both
	// branches running concurrently it tracks the slower branch, not
	// their sum.
	TotalRequestMS float64
}

// QueryResult is the merged outcome of a combined recipe query.
type QueryResult struct {
	Recipes       []model.Recipe
	InternalCount int
	ExternalCount int
	SearchTerm    string
	HasSearch     bool
	Performance   Performance
}

// List executes the combined query. Without a search term only the
// internal catalog answers; with one, both sources are queried
// concurrently and merged with internal results first.
func (s *QueryService) List(ctx context.Context, input QueryInput) (*QueryResult, error) {
	start := time.Now()

	term := strings.TrimSpace(input.Search)
	runExternal := term != ""

	var (
		internal   []model.Recipe
		internalMS float64
		external   []model.Recipe
		externalMS float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		internal, internalMS, err = s.fetchInternal(gctx, term)
		return err
	})
	if runExternal {
		g.Go(func() error {
			// Failures are normalized inside the branch, so it can
			// never cancel the internal one.
			external, externalMS = s.fetchExternal(gctx, term)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stamp provenance so the merged response always distinguishes the
	// two sources, whatever the stores hold.
	for i := range internal {
		internal[i].Source = model.SourceInternal
	}
	for i := range external {
		external[i].Source = model.SourceExternal
	}

	merged := make([]model.Recipe, 0, len(internal)+len(external))
	merged = append(merged, internal...)
	merged = append(merged, external...)

	result := &QueryResult{
		Recipes:       merged,
		InternalCount: len(internal),
		ExternalCount: len(external),
		SearchTerm:    term,
		HasSearch:     input.HasSearch,
		Performance: Performance{
			InternalQueryMS: internalMS,
			TotalRequestMS:  metrics.RoundMS(float64(time.Since(start)) / float64(time.Millisecond)),
		},
	}
	if runExternal {
		result.Performance.ExternalAPIMS = &externalMS
	}

	s.logger.Info("combined query completed",
		slog.Bool("has_search", input.HasSearch),
		slog.Int("internal_count", result.InternalCount),
		slog.Int("external_count", result.ExternalCount),
		slog.Float64("total_ms", result.Performance.TotalRequestMS))

	return result, nil
}

// fetchInternal reads the internal branch, recording it as exactly one
// internal operation whatever the outcome.
func (s *QueryService) fetchInternal(ctx context.Context, term string) ([]model.Recipe, float64, error) {
	name := opGetAllRecipes
	base := metrics.Metadata{}
	if term != "" {
		name = opSearchRecipes
		base.Query = term
	}

	timer := metrics.StartTimer(s.metrics, metrics.OpInternal, name)
	// Stop is idempotent; the deferred call only records when the store
	// call panics before the normal stop below.
	defer timer.Stop(base)

	var (
		recipes []model.Recipe
		err     error
	)
	if term != "" {
		recipes, err = s.store.Search(ctx, term)
	} else {
		recipes, err = s.store.List(ctx)
	}

	count := len(recipes)
	md := metrics.Metadata{ResultCount: &count}
	if term != "" {
		md = metrics.SearchMetadata(term, count)
	}
	elapsed := timer.Stop(md)

	if err != nil {
		return nil, elapsed, fmt.Errorf("failed to query internal store: %w", err)
	}
	return recipes, elapsed, nil
}

// fetchExternal reads the external branch, consulting the search cache
// first. It records exactly one external operation per invocation and
// normalizes every failure to an empty result: the external source being
// down, slow, or malformed must never sink the combined query.
func (s *QueryService) fetchExternal(ctx context.Context, term string) ([]model.Recipe, float64) {
	ctx, cancel := context.WithTimeout(ctx, s.externalTimeout)
	defer cancel()

	timer := metrics.StartTimer(s.metrics, metrics.OpExternal, opSearchMeals)
	defer timer.Stop(metrics.Metadata{Query: term})

	if s.searchCache != nil {
		cached, err := s.searchCache.GetSearchResults(ctx, term)
		switch {
		case err == nil:
			md := metrics.SearchMetadata(term, len(cached))
			md.CacheHit = boolPtr(true)
			return cached, timer.Stop(md)
		case !errors.Is(err, cache.ErrCacheMiss):
			s.logger.Warn("search cache read failed",
				slog.String("query", term),
				slog.String("error", err.Error()))
		}
	}

	recipes, err := s.external.SearchMeals(ctx, term)
	if err != nil {
		elapsed := timer.Stop(metrics.SearchMetadata(term, 0))
		s.logger.Warn("external search failed, serving internal results only",
			slog.String("query", term),
			slog.String("error", err.Error()))
		return []model.Recipe{}, elapsed
	}

	recipes = s.dropInvalid(recipes)

	md := metrics.SearchMetadata(term, len(recipes))
	if s.searchCache != nil {
		md.CacheHit = boolPtr(false)
	}
	elapsed := timer.Stop(md)

	if s.searchCache != nil {
		if err := s.searchCache.SetSearchResults(ctx, term, recipes, s.searchCacheTTL); err != nil {
			s.logger.Warn("search cache write failed",
				slog.String("query", term),
				slog.String("error", err.Error()))
		}
	}
	return recipes, elapsed
}

// dropInvalid filters out external records that fail domain validation,
// so one malformed upstream payload cannot break the merged response.
func (s *QueryService) dropInvalid(recipes []model.Recipe) []model.Recipe {
	valid := make([]model.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if err := r.Validate(); err != nil {
			s.logger.Warn("dropping invalid external recipe",
				slog.String("recipe_id", r.ID),
				slog.String("error", err.Error()))
			continue
		}
		valid = append(valid, r)
	}
	return valid
}

func boolPtr(b bool) *bool { return &b }
