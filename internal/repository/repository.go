// Package repository provides recipe persistence.
package repository

import (
	"context"
	"errors"

	"github.com/recipex/recipex/internal/model"
)

// Common errors for recipe store operations.
var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrRecipeExists   = errors.New("recipe already exists")
)

// RecipeStore is the persistence boundary for recipes. Implementations
// return value copies, so callers may reassign fields on results (for
// example the provenance tag) without affecting stored state.
type RecipeStore interface {
	// List returns every stored recipe in insertion order.
	List(ctx context.Context) ([]model.Recipe, error)
	// Search returns recipes whose title contains query, case-insensitively.
	// An empty query matches everything.
	Search(ctx context.Context, query string) ([]model.Recipe, error)
	// Get returns the recipe with the given ID or ErrRecipeNotFound.
	Get(ctx context.Context, id string) (*model.Recipe, error)
	// Create stores a new recipe. Returns ErrRecipeExists on ID collision.
	Create(ctx context.Context, recipe *model.Recipe) error
	// Update replaces the stored recipe with the same ID.
	Update(ctx context.Context, recipe *model.Recipe) error
	// Delete removes the recipe with the given ID or returns ErrRecipeNotFound.
	Delete(ctx context.Context, id string) error
	// ReplaceAll discards the current contents and stores the given recipes,
	// returning how many were stored.
	ReplaceAll(ctx context.Context, recipes []model.Recipe) (int, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	// Close releases any held resources.
	Close()
}
