// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Source marks where a recipe came from.
type Source string

const (
	// SourceInternal marks recipes owned by the application's own store.
	SourceInternal Source = "internal"
	// SourceExternal marks recipes fetched from the external lookup service.
	SourceExternal Source = "external"
)

// IsValid checks if the source is a known provenance tag.
func (s Source) IsValid() bool {
	return s == SourceInternal || s == SourceExternal
}

// Recipe represents a recipe entity shared by both sources.
// External records are mapped into this shape by the adapter before
// they ever reach the merge path.
type Recipe struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	Tags         []string  `json:"tags"`
	Region       string    `json:"region"`
	Cuisine      string    `json:"cuisine"`
	Source       Source    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewRecipeID generates a recipe ID.
func NewRecipeID() string {
	return uuid.New().String()
}

// Touch refreshes the updated timestamp.
func (r *Recipe) Touch() {
	r.UpdatedAt = time.Now().UTC()
}
