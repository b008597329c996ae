package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation limits for recipe fields.
const (
	MinTitleLength       = 3
	MaxTitleLength       = 200
	MinDescriptionLength = 10
	MaxDescriptionLength = 2000
	MaxIngredients       = 50
	MaxInstructions      = 50
	MaxTags              = 20
	MaxTagLength         = 30
	MaxRecipeIDLength    = 100
	MaxSearchQueryLength = 100
)

// ValidationError describes a single failed field check.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every failed check for a value.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e))
	for _, ve := range e {
		msgs = append(msgs, ve.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// add appends an error and returns the updated slice.
func (e ValidationErrors) add(field, message, code string) ValidationErrors {
	return append(e, ValidationError{Field: field, Message: message, Code: code})
}

// OrNil returns nil when no checks failed, so callers can write
// `return errs.OrNil()` and compare against nil normally.
func (e ValidationErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Validate checks the recipe against the shared domain schema.
// It returns ValidationErrors listing every violated rule, or nil.
// External records must pass this before they are merged into a response.
func (r *Recipe) Validate() error {
	var errs ValidationErrors

	title := strings.TrimSpace(r.Title)
	switch {
	case title == "":
		errs = errs.add("title", "title is required and cannot be empty", "required")
	case len(title) < MinTitleLength:
		errs = errs.add("title", fmt.Sprintf("title must be at least %d characters long", MinTitleLength), "too_short")
	case len(title) > MaxTitleLength:
		errs = errs.add("title", fmt.Sprintf("title cannot exceed %d characters", MaxTitleLength), "too_long")
	}

	desc := strings.TrimSpace(r.Description)
	switch {
	case desc == "":
		errs = errs.add("description", "description is required and cannot be empty", "required")
	case len(desc) < MinDescriptionLength:
		errs = errs.add("description", fmt.Sprintf("description must be at least %d characters long", MinDescriptionLength), "too_short")
	case len(desc) > MaxDescriptionLength:
		errs = errs.add("description", fmt.Sprintf("description cannot exceed %d characters", MaxDescriptionLength), "too_long")
	}

	switch {
	case len(r.Ingredients) == 0:
		errs = errs.add("ingredients", "at least one ingredient is required", "required")
	case len(r.Ingredients) > MaxIngredients:
		errs = errs.add("ingredients", fmt.Sprintf("cannot exceed %d ingredients", MaxIngredients), "too_many")
	default:
		for i, ing := range r.Ingredients {
			trimmed := strings.TrimSpace(ing)
			if trimmed == "" {
				errs = errs.add(fmt.Sprintf("ingredients[%d]", i), "ingredient cannot be empty", "empty")
			} else if len(trimmed) < 2 {
				errs = errs.add(fmt.Sprintf("ingredients[%d]", i), "each ingredient must be at least 2 characters", "too_short")
			}
		}
	}

	switch {
	case len(r.Instructions) == 0:
		errs = errs.add("instructions", "at least one instruction step is required", "required")
	case len(r.Instructions) > MaxInstructions:
		errs = errs.add("instructions", fmt.Sprintf("cannot exceed %d instruction steps", MaxInstructions), "too_many")
	default:
		for i, step := range r.Instructions {
			trimmed := strings.TrimSpace(step)
			if trimmed == "" {
				errs = errs.add(fmt.Sprintf("instructions[%d]", i), "instruction step cannot be empty", "empty")
			} else if len(trimmed) < 5 {
				errs = errs.add(fmt.Sprintf("instructions[%d]", i), "each instruction must be at least 5 characters", "too_short")
			}
		}
	}

	if region := strings.TrimSpace(r.Region); region == "" {
		errs = errs.add("region", "region is required", "required")
	} else if len(region) < 2 {
		errs = errs.add("region", "region must be at least 2 characters", "too_short")
	}

	if cuisine := strings.TrimSpace(r.Cuisine); cuisine == "" {
		errs = errs.add("cuisine", "cuisine is required", "required")
	} else if len(cuisine) < 2 {
		errs = errs.add("cuisine", "cuisine must be at least 2 characters", "too_short")
	}

	if len(r.Tags) > MaxTags {
		errs = errs.add("tags", fmt.Sprintf("cannot exceed %d tags", MaxTags), "too_many")
	} else {
		for i, tag := range r.Tags {
			trimmed := strings.TrimSpace(tag)
			if trimmed == "" {
				errs = errs.add(fmt.Sprintf("tags[%d]", i), "tag cannot be empty", "empty")
			} else if len(trimmed) > MaxTagLength {
				errs = errs.add(fmt.Sprintf("tags[%d]", i), fmt.Sprintf("each tag cannot exceed %d characters", MaxTagLength), "too_long")
			}
		}
	}

	return errs.OrNil()
}

// recipeIDPattern accepts UUIDs and other reasonable ID strings.
// Test fixtures use a "test-" prefix, external IDs are numeric.
var recipeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateRecipeID checks a recipe ID supplied in a request path.
func ValidateRecipeID(id string) error {
	var errs ValidationErrors

	switch {
	case strings.TrimSpace(id) == "":
		errs = errs.add("recipe_id", "recipe ID is required", "required")
	case len(id) > MaxRecipeIDLength:
		errs = errs.add("recipe_id", fmt.Sprintf("recipe ID cannot exceed %d characters", MaxRecipeIDLength), "too_long")
	case !recipeIDPattern.MatchString(id):
		errs = errs.add("recipe_id", "recipe ID contains invalid characters", "invalid_format")
	}

	return errs.OrNil()
}

// ValidateSearchQuery checks an optional search term.
// An absent term is valid; a present term must be non-blank and bounded.
func ValidateSearchQuery(query string, present bool) error {
	if !present {
		return nil
	}

	var errs ValidationErrors
	if strings.TrimSpace(query) == "" {
		errs = errs.add("search", "search query cannot be empty", "empty")
	} else if len(query) > MaxSearchQueryLength {
		errs = errs.add("search", fmt.Sprintf("search query cannot exceed %d characters", MaxSearchQueryLength), "too_long")
	}

	return errs.OrNil()
}
