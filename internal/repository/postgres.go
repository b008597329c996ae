package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/recipex/recipex/internal/model"
)

// PostgresStore is a RecipeStore backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pgx pool and verifies the connection.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

const recipeColumns = "id, title, description, ingredients, instructions, tags, region, cuisine, source, created_at, updated_at"

// List returns every stored recipe, oldest first.
func (s *PostgresStore) List(ctx context.Context) ([]model.Recipe, error) {
	query := "SELECT " + recipeColumns + " FROM recipes ORDER BY created_at, id"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	return collectRecipes(rows)
}

// Search returns recipes whose title contains query, case-insensitively.
func (s *PostgresStore) Search(ctx context.Context, query string) ([]model.Recipe, error) {
	if query == "" {
		return s.List(ctx)
	}

	sql := "SELECT " + recipeColumns + ` FROM recipes WHERE title ILIKE '%' || $1 || '%' ESCAPE '\' ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, sql, escapeLike(query))
	if err != nil {
		return nil, fmt.Errorf("failed to search recipes: %w", err)
	}
	defer rows.Close()

	return collectRecipes(rows)
}

// Get returns the recipe with the given ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Recipe, error) {
	query := "SELECT " + recipeColumns + " FROM recipes WHERE id = $1"

	recipe, err := scanRecipe(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return recipe, nil
}

// Create inserts a new recipe.
func (s *PostgresStore) Create(ctx context.Context, recipe *model.Recipe) error {
	query := `
		INSERT INTO recipes (` + recipeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		recipe.ID,
		recipe.Title,
		recipe.Description,
		recipe.Ingredients,
		recipe.Instructions,
		recipe.Tags,
		recipe.Region,
		recipe.Cuisine,
		recipe.Source,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRecipeExists
		}
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	return nil
}

// Update replaces the stored recipe with the same ID.
func (s *PostgresStore) Update(ctx context.Context, recipe *model.Recipe) error {
	query := `
		UPDATE recipes
		SET title = $2, description = $3, ingredients = $4, instructions = $5,
		    tags = $6, region = $7, cuisine = $8, source = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		recipe.ID,
		recipe.Title,
		recipe.Description,
		recipe.Ingredients,
		recipe.Instructions,
		recipe.Tags,
		recipe.Region,
		recipe.Cuisine,
		recipe.Source,
		recipe.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// Delete removes the recipe with the given ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM recipes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// ReplaceAll atomically swaps the table contents for the given recipes.
// Later duplicates of an ID win, matching the in-memory store.
func (s *PostgresStore) ReplaceAll(ctx context.Context, recipes []model.Recipe) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM recipes"); err != nil {
		return 0, fmt.Errorf("failed to clear recipes: %w", err)
	}

	insert := `
		INSERT INTO recipes (` + recipeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			ingredients = EXCLUDED.ingredients,
			instructions = EXCLUDED.instructions,
			tags = EXCLUDED.tags,
			region = EXCLUDED.region,
			cuisine = EXCLUDED.cuisine,
			source = EXCLUDED.source,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`
	for _, r := range recipes {
		if _, err := tx.Exec(ctx, insert,
			r.ID, r.Title, r.Description, r.Ingredients, r.Instructions,
			r.Tags, r.Region, r.Cuisine, r.Source, r.CreatedAt, r.UpdatedAt,
		); err != nil {
			return 0, fmt.Errorf("failed to import recipe %s: %w", r.ID, err)
		}
	}

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM recipes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count imported recipes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return count, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to PostgresStore.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// scanRecipe scans a single row into a Recipe model. pgx.Rows satisfies
// pgx.Row, so it works for both single-row and iterated queries.
func scanRecipe(row pgx.Row) (*model.Recipe, error) {
	var r model.Recipe
	err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Description,
		&r.Ingredients,
		&r.Instructions,
		&r.Tags,
		&r.Region,
		&r.Cuisine,
		&r.Source,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return &r, err
}

// collectRecipes drains rows into a slice.
func collectRecipes(rows pgx.Rows) ([]model.Recipe, error) {
	recipes := []model.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}
	return recipes, nil
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	// PostgreSQL error code 23505 is unique_violation
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// escapeLike escapes LIKE metacharacters so query matches literally.
func escapeLike(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(query)
}
