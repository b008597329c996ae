package mealdb

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/recipex/recipex/internal/model"
)

// maxIngredientSlots is how many strIngredientN/strMeasureN pairs the API
// schema carries per meal.
const maxIngredientSlots = 20

// rawMeal is a single meal object as returned by TheMealDB. Every value in
// the payload is a string or null, so the whole object decodes into one map.
type rawMeal map[string]*string

// field returns the trimmed value for key, or "" when absent or null.
func (m rawMeal) field(key string) string {
	if v := m[key]; v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}

// transformMeal maps one raw meal into the domain recipe shape. Missing
// fields get placeholder values so the result always carries a complete
// record; validation of the merged response happens upstream.
func transformMeal(m rawMeal) model.Recipe {
	title := m.field("strMeal")
	if title == "" {
		title = "Unknown Recipe"
	}
	area := m.field("strArea")
	category := m.field("strCategory")

	region := area
	if region == "" {
		region = "International"
	}

	now := time.Now().UTC()
	return model.Recipe{
		ID:           m.field("idMeal"),
		Title:        title,
		Description:  buildDescription(title, area, category),
		Ingredients:  extractIngredients(m),
		Instructions: parseInstructions(m.field("strInstructions")),
		Tags:         parseTags(m.field("strTags"), category),
		Region:       region,
		Cuisine:      region,
		Source:       model.SourceExternal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// extractIngredients walks the numbered ingredient/measure slots and joins
// each pair into a single line like "3/4 cup soy sauce". Empty slots are
// skipped; an ingredient without a measure stands alone.
func extractIngredients(m rawMeal) []string {
	out := make([]string, 0, maxIngredientSlots)
	for i := 1; i <= maxIngredientSlots; i++ {
		ingredient := m.field(fmt.Sprintf("strIngredient%d", i))
		if ingredient == "" {
			continue
		}
		if measure := m.field(fmt.Sprintf("strMeasure%d", i)); measure != "" {
			out = append(out, measure+" "+ingredient)
			continue
		}
		out = append(out, ingredient)
	}
	if len(out) == 0 {
		return []string{"No ingredients listed"}
	}
	return out
}

// parseInstructions splits the API's free-form instruction text into steps.
// The text usually has one step per line, often prefixed with "STEP 1" or
// "1." noise that gets stripped. When line splitting yields fewer than two
// steps, sentence splitting is tried as a fallback.
func parseInstructions(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{"No instructions provided"}
	}

	var steps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 5 {
			continue
		}
		line = strings.TrimSpace(strings.ReplaceAll(line, "STEP", ""))
		line = strings.TrimSpace(strings.TrimPrefix(line, ":"))
		if line != "" && unicode.IsDigit(rune(line[0])) {
			line = strings.TrimSpace(strings.TrimLeft(line, "0123456789.:) "))
		}
		if line != "" {
			steps = append(steps, line)
		}
	}

	if len(steps) < 2 && strings.Contains(text, ".") {
		var sentences []string
		for _, s := range strings.Split(text, ".") {
			if s = strings.TrimSpace(s); len(s) > 10 {
				sentences = append(sentences, s)
			}
		}
		if len(sentences) > 0 {
			steps = sentences
		}
	}

	if len(steps) == 0 {
		return []string{trimmed}
	}
	return steps
}

// parseTags splits the comma-separated tag string and appends the meal's
// category as an extra tag when it is not already present. The result is
// never nil so tags always serialize as an array.
func parseTags(rawTags, category string) []string {
	tags := []string{}
	for _, tag := range strings.Split(rawTags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	if category != "" && !slices.Contains(tags, category) {
		tags = append(tags, category)
	}
	if len(tags) > model.MaxTags {
		tags = tags[:model.MaxTags]
	}
	return tags
}

// buildDescription composes a short description, since the API has no
// description field of its own.
func buildDescription(title, area, category string) string {
	var b strings.Builder
	if area != "" {
		fmt.Fprintf(&b, "A delicious %s dish", area)
	} else {
		b.WriteString("A delicious recipe")
	}
	if category != "" {
		fmt.Fprintf(&b, " from the %s category", category)
	}
	fmt.Fprintf(&b, ". This %s is sourced from TheMealDB community database.", title)
	return b.String()
}
