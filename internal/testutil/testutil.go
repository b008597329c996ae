// Package testutil holds helpers shared by the integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipex/recipex/internal/model"
)

// RequireEnv returns the value of an environment variable, skipping the
// test when it is unset. Integration tests use it to stay silent on
// machines without the backing services.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		t.Skipf("%s not set, skipping", key)
	}
	return v
}

// Tests touching Postgres serialize on one advisory lock so schema
// resets cannot interleave.
const dbLockID int64 = 724724

// AcquireDBLock takes the advisory lock on a dedicated connection. The
// returned function releases the lock and the connection.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", dbLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("take advisory lock: %w", err)
	}

	release := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", dbLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}
	return release, nil
}

// ResetRecipesSchema rebuilds the recipes table by replaying the down
// and up migrations, leaving the schema freshly migrated and empty.
func ResetRecipesSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, name := range []string{"000001_recipes.down.sql", "000001_recipes.up.sql"} {
		if err := applyMigration(ctx, pool, name); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, name string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	sql, err := os.ReadFile(filepath.Join(root, "migrations", name))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", name, err)
	}
	return nil
}

// projectRoot locates the repository root relative to this source file,
// so tests work regardless of the package they run from.
func projectRoot() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("cannot locate testutil source file")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..")), nil
}

var fixtureSeq atomic.Int64

// NewTestRecipe builds a recipe that passes validation, with an ID that
// is unique within the process.
func NewTestRecipe(t testing.TB, title string) *model.Recipe {
	t.Helper()
	now := time.Now().UTC()
	return &model.Recipe{
		ID:          fmt.Sprintf("recipe-%d-%d", now.UnixNano(), fixtureSeq.Add(1)),
		Title:       title,
		Description: "A fixture recipe with enough detail to pass validation.",
		Ingredients: []string{
			"2 cups of the main ingredient",
			"1 tablespoon of seasoning",
			"Salt and pepper to taste",
		},
		Instructions: []string{
			"Prepare all ingredients before starting.",
			"Combine everything in a large pan over medium heat.",
			"Cook until done and serve immediately.",
		},
		Tags:      []string{"fixture"},
		Region:    "Test Region",
		Cuisine:   "Test Cuisine",
		Source:    model.SourceInternal,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
