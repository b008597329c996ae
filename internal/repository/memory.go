package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/recipex/recipex/internal/model"
)

// MemoryStore is a mutex-guarded in-memory RecipeStore. It is the default
// driver and ships pre-seeded with one sample recipe so a fresh instance
// has something to serve.
type MemoryStore struct {
	mu      sync.RWMutex
	recipes map[string]model.Recipe
	order   []string // IDs in insertion order
}

// NewMemoryStore returns a seeded in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		recipes: make(map[string]model.Recipe),
	}
	seed := seedRecipe()
	s.recipes[seed.ID] = seed
	s.order = append(s.order, seed.ID)
	return s
}

// seedRecipe is the sample recipe every fresh store starts with.
func seedRecipe() model.Recipe {
	now := time.Now().UTC()
	return model.Recipe{
		ID:          "sample-recipe-001",
		Title:       "Classic Spaghetti Carbonara",
		Description: "The Roman standard: spaghetti tossed with cured pork, egg, and pecorino. No cream.",
		Ingredients: []string{
			"400g spaghetti",
			"150g guanciale or pancetta",
			"4 large egg yolks",
			"100g pecorino romano, finely grated",
			"Freshly ground black pepper",
		},
		Instructions: []string{
			"Cook the spaghetti in well-salted boiling water until al dente.",
			"Fry the guanciale over medium heat until the fat renders and the pieces crisp.",
			"Whisk the egg yolks with the pecorino and a generous amount of black pepper.",
			"Drain the pasta, reserving a cup of the cooking water.",
			"Off the heat, toss the pasta with the guanciale, then the egg mixture, loosening with cooking water until glossy.",
			"Serve immediately with more pecorino and pepper.",
		},
		Tags:      []string{"pasta", "italian", "classic"},
		Region:    "Lazio",
		Cuisine:   "Italian",
		Source:    model.SourceInternal,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// List returns every stored recipe in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Recipe, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.recipes[id])
	}
	return out, nil
}

// Search returns recipes whose title contains query, case-insensitively.
func (s *MemoryStore) Search(ctx context.Context, query string) ([]model.Recipe, error) {
	if query == "" {
		return s.List(ctx)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []model.Recipe
	for _, id := range s.order {
		r := s.recipes[id]
		if strings.Contains(strings.ToLower(r.Title), needle) {
			out = append(out, r)
		}
	}
	if out == nil {
		out = []model.Recipe{}
	}
	return out, nil
}

// Get returns a copy of the recipe with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, ErrRecipeNotFound
	}
	return &r, nil
}

// Create stores a new recipe.
func (s *MemoryStore) Create(ctx context.Context, recipe *model.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[recipe.ID]; ok {
		return ErrRecipeExists
	}
	s.recipes[recipe.ID] = *recipe
	s.order = append(s.order, recipe.ID)
	return nil
}

// Update replaces the stored recipe with the same ID.
func (s *MemoryStore) Update(ctx context.Context, recipe *model.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[recipe.ID]; !ok {
		return ErrRecipeNotFound
	}
	s.recipes[recipe.ID] = *recipe
	return nil
}

// Delete removes the recipe with the given ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[id]; !ok {
		return ErrRecipeNotFound
	}
	delete(s.recipes, id)
	for i, stored := range s.order {
		if stored == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ReplaceAll discards the current contents and stores the given recipes.
// Later duplicates of an ID win, matching map semantics.
func (s *MemoryStore) ReplaceAll(ctx context.Context, recipes []model.Recipe) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recipes = make(map[string]model.Recipe, len(recipes))
	s.order = s.order[:0]
	for _, r := range recipes {
		if _, ok := s.recipes[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.recipes[r.ID] = r
	}
	return len(s.recipes), nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}

// Reset empties the store completely, including the seed recipe.
// Intended for tests.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recipes = make(map[string]model.Recipe)
	s.order = s.order[:0]
}
