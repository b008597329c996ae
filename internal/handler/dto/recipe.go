package dto

import (
	"time"

	"github.com/recipex/recipex/internal/model"
)

// RecipeRequest represents the request body for creating or updating a
// recipe. Unknown fields are ignored; field-level rules are enforced by
// domain validation, not by decoding.
type RecipeRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Tags         []string `json:"tags,omitempty"`
	Region       string   `json:"region"`
	Cuisine      string   `json:"cuisine"`
}

// ImportRecipe is one record in an uploaded import file. Records exported
// earlier may carry identifiers and timestamps; both are optional, and
// timestamps are kept as strings because export formats differ on whether
// they include a timezone.
type ImportRecipe struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Tags         []string `json:"tags,omitempty"`
	Region       string   `json:"region"`
	Cuisine      string   `json:"cuisine"`
	Source       string   `json:"source,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// ToRecipe converts an import record to the domain model. Timestamps that
// are missing or unparseable are left zero for the import to fill.
func (r ImportRecipe) ToRecipe() model.Recipe {
	return model.Recipe{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
		Tags:         r.Tags,
		Region:       r.Region,
		Cuisine:      r.Cuisine,
		Source:       model.Source(r.Source),
		CreatedAt:    parseImportTime(r.CreatedAt),
		UpdatedAt:    parseImportTime(r.UpdatedAt),
	}
}

// importTimeLayouts are the accepted timestamp formats: RFC 3339 as this
// API exports, and zone-less ISO 8601 as older export files carry.
var importTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseImportTime(s string) time.Time {
	for _, layout := range importTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
