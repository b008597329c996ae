package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/recipex/recipex/internal/mealdb"
	"github.com/recipex/recipex/internal/metrics"
	"github.com/recipex/recipex/internal/model"
	"github.com/recipex/recipex/internal/repository"
)

// Service errors.
var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrRecipeExists   = errors.New("recipe already exists")
)

// ExternalLookup is the part of the external catalog client the recipe
// service depends on.
type ExternalLookup interface {
	GetMealByID(ctx context.Context, id string) (*model.Recipe, error)
}

// RecipeService handles recipe management: CRUD against the internal
// store, bulk import/export, and single-record lookups on either source.
type RecipeService struct {
	store           repository.RecipeStore
	external        ExternalLookup
	externalTimeout time.Duration
	metrics         metrics.Recorder
	logger          *slog.Logger
}

// NewRecipeService creates a RecipeService.
func NewRecipeService(store repository.RecipeStore, external ExternalLookup, externalTimeout time.Duration, recorder metrics.Recorder, logger *slog.Logger) *RecipeService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if externalTimeout <= 0 {
		externalTimeout = DefaultExternalTimeout
	}
	return &RecipeService{
		store:           store,
		external:        external,
		externalTimeout: externalTimeout,
		metrics:         recorder,
		logger:          logger,
	}
}

// RecipeInput defines the caller-supplied fields for creating or fully
// replacing a recipe.
type RecipeInput struct {
	Title        string
	Description  string
	Ingredients  []string
	Instructions []string
	Tags         []string
	Region       string
	Cuisine      string
}

// Create validates and stores a new internal recipe.
func (s *RecipeService) Create(ctx context.Context, input RecipeInput) (*model.Recipe, error) {
	now := time.Now().UTC()
	recipe := &model.Recipe{
		ID:           model.NewRecipeID(),
		Title:        input.Title,
		Description:  input.Description,
		Ingredients:  input.Ingredients,
		Instructions: input.Instructions,
		Tags:         input.Tags,
		Region:       input.Region,
		Cuisine:      input.Cuisine,
		Source:       model.SourceInternal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if recipe.Tags == nil {
		recipe.Tags = []string{}
	}

	if err := recipe.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, recipe); err != nil {
		if errors.Is(err, repository.ErrRecipeExists) {
			return nil, ErrRecipeExists
		}
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.logger.Info("recipe created", slog.String("recipe_id", recipe.ID))
	return recipe, nil
}

// Update fully replaces the mutable fields of an existing recipe,
// preserving its identity and creation time.
func (s *RecipeService) Update(ctx context.Context, id string, input RecipeInput) (*model.Recipe, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}

	updated := &model.Recipe{
		ID:           existing.ID,
		Title:        input.Title,
		Description:  input.Description,
		Ingredients:  input.Ingredients,
		Instructions: input.Instructions,
		Tags:         input.Tags,
		Region:       input.Region,
		Cuisine:      input.Cuisine,
		Source:       model.SourceInternal,
		CreatedAt:    existing.CreatedAt,
	}
	if updated.Tags == nil {
		updated.Tags = []string{}
	}
	updated.Touch()

	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, updated); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}

	s.logger.Info("recipe updated", slog.String("recipe_id", id))
	return updated, nil
}

// Delete removes an internal recipe.
func (s *RecipeService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.logger.Info("recipe deleted", slog.String("recipe_id", id))
	return nil
}

// GetInternal fetches one recipe from the internal store, timing the
// lookup.
func (s *RecipeService) GetInternal(ctx context.Context, id string) (*model.Recipe, error) {
	timer := metrics.StartTimer(s.metrics, metrics.OpInternal, opGetRecipe)
	defer timer.Stop(metrics.Metadata{RecipeID: id})

	recipe, err := s.store.Get(ctx, id)
	timer.Stop(metrics.LookupMetadata(id, err == nil))

	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return recipe, nil
}

// GetExternal fetches one recipe from the external source, timing the
// lookup. Unlike combined queries there is no internal fallback here, so
// failures propagate to the caller.
func (s *RecipeService) GetExternal(ctx context.Context, id string) (*model.Recipe, error) {
	ctx, cancel := context.WithTimeout(ctx, s.externalTimeout)
	defer cancel()

	timer := metrics.StartTimer(s.metrics, metrics.OpExternal, opGetMealByID)
	defer timer.Stop(metrics.Metadata{RecipeID: id})

	recipe, err := s.external.GetMealByID(ctx, id)
	timer.Stop(metrics.LookupMetadata(id, err == nil))

	if err != nil {
		if errors.Is(err, mealdb.ErrMealNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to fetch external recipe: %w", err)
	}
	return recipe, nil
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Total    int
	Imported int
}

// Import replaces the entire internal catalog with the uploaded records.
// Records keep their IDs and creation times when present and valid;
// missing or malformed IDs are regenerated. Records failing validation
// are skipped rather than failing the import.
func (s *RecipeService) Import(ctx context.Context, records []model.Recipe) (*ImportResult, error) {
	now := time.Now().UTC()
	valid := make([]model.Recipe, 0, len(records))
	for i := range records {
		r := records[i]
		if model.ValidateRecipeID(r.ID) != nil {
			r.ID = model.NewRecipeID()
		}
		r.Source = model.SourceInternal
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		if r.Tags == nil {
			r.Tags = []string{}
		}

		if err := r.Validate(); err != nil {
			s.logger.Warn("skipping invalid recipe during import",
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		valid = append(valid, r)
	}

	imported, err := s.store.ReplaceAll(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("failed to import recipes: %w", err)
	}

	s.logger.Info("recipes imported",
		slog.Int("total", len(records)),
		slog.Int("imported", imported))
	return &ImportResult{Total: len(records), Imported: imported}, nil
}

// Export returns every internal recipe for download.
func (s *RecipeService) Export(ctx context.Context) ([]model.Recipe, error) {
	recipes, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export recipes: %w", err)
	}

	s.logger.Info("recipes exported", slog.Int("count", len(recipes)))
	return recipes, nil
}
