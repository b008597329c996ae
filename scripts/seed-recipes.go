package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/recipex/recipex/internal/handler/dto"
	"github.com/recipex/recipex/internal/model"
	"github.com/recipex/recipex/internal/repository"
)

type output struct {
	Seeded   int      `json:"seeded"`
	Replaced bool     `json:"replaced"`
	IDs      []string `json:"ids"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		file        = flag.String("file", "", "Path to a JSON array of recipes")
		replace     = flag.Bool("replace", false, "Discard existing recipes before seeding")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		os.Exit(1)
	}

	recipes, err := loadRecipes(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := repository.NewPostgresStore(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer store.Close()

	seeded := 0
	ids := make([]string, 0, len(recipes))

	if *replace {
		n, err := store.ReplaceAll(ctx, recipes)
		if err != nil {
			fmt.Fprintln(os.Stderr, "replace recipes:", err)
			os.Exit(1)
		}
		seeded = n
		for _, r := range recipes {
			ids = append(ids, r.ID)
		}
	} else {
		for i := range recipes {
			if err := store.Create(ctx, &recipes[i]); err != nil {
				fmt.Fprintf(os.Stderr, "create recipe %s: %v\n", recipes[i].ID, err)
				os.Exit(1)
			}
			seeded++
			ids = append(ids, recipes[i].ID)
		}
	}

	out := output{
		Seeded:   seeded,
		Replaced: *replace,
		IDs:      ids,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Printf("seeded %d recipes\n", out.Seeded)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// loadRecipes reads an export-format JSON file and normalizes the records
// the same way the import endpoint does: generated IDs where missing,
// source forced to internal, zero timestamps filled with now.
func loadRecipes(path string) ([]model.Recipe, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []dto.ImportRecipe
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s holds no recipes", path)
	}

	now := time.Now().UTC()
	recipes := make([]model.Recipe, 0, len(records))
	for i, record := range records {
		recipe := record.ToRecipe()
		if model.ValidateRecipeID(recipe.ID) != nil {
			recipe.ID = model.NewRecipeID()
		}
		recipe.Source = model.SourceInternal
		if recipe.CreatedAt.IsZero() {
			recipe.CreatedAt = now
		}
		if recipe.UpdatedAt.IsZero() {
			recipe.UpdatedAt = now
		}
		if recipe.Tags == nil {
			recipe.Tags = []string{}
		}
		if err := recipe.Validate(); err != nil {
			return nil, fmt.Errorf("recipe %d: %s", i, err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}
