package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recipex/recipex/internal/metrics"
	"github.com/recipex/recipex/internal/model"
	"github.com/recipex/recipex/internal/repository"
)

const seededRecipeID = "sample-recipe-001"

func newRecipeService(t *testing.T, external ExternalLookup) (*RecipeService, *metrics.Collector, *repository.MemoryStore) {
	t.Helper()
	logger := testLogger()
	store := repository.NewMemoryStore()
	collector := metrics.NewCollector(logger)
	return NewRecipeService(store, external, 0, collector, logger), collector, store
}

func validInput() RecipeInput {
	return RecipeInput{
		Title:        "Garlic Butter Shrimp",
		Description:  "Juicy shrimp tossed in a garlic butter pan sauce.",
		Ingredients:  []string{"500g shrimp", "3 cloves garlic", "50g butter"},
		Instructions: []string{"Melt the butter over medium heat.", "Cook the shrimp until pink."},
		Tags:         []string{"Seafood"},
		Region:       "Louisiana",
		Cuisine:      "Cajun",
	}
}

func TestRecipeService_Create(t *testing.T) {
	svc, _, store := newRecipeService(t, &fakeCatalog{})

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := model.ValidateRecipeID(created.ID); err != nil {
		t.Errorf("generated ID %q invalid: %v", created.ID, err)
	}
	if created.Source != model.SourceInternal {
		t.Errorf("Source = %q, want %q", created.Source, model.SourceInternal)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}

	stored, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("created recipe not in store: %v", err)
	}
	if stored.Title != "Garlic Butter Shrimp" {
		t.Errorf("stored title = %q, want the created one", stored.Title)
	}
}

func TestRecipeService_Create_Invalid(t *testing.T) {
	svc, _, store := newRecipeService(t, &fakeCatalog{})

	input := validInput()
	input.Title = "ab"

	_, err := svc.Create(context.Background(), input)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verrs model.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want model.ValidationErrors", err)
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("store holds %d recipes after rejected create, want the seed only", len(all))
	}
}

func TestRecipeService_Create_NormalizesNilTags(t *testing.T) {
	svc, _, _ := newRecipeService(t, &fakeCatalog{})

	input := validInput()
	input.Tags = nil

	created, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Tags == nil {
		t.Error("Tags = nil, want empty slice")
	}
}

func TestRecipeService_Update(t *testing.T) {
	svc, _, store := newRecipeService(t, &fakeCatalog{})

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	input := validInput()
	input.Title = "Garlic Butter Shrimp Deluxe"

	updated, err := svc.Update(context.Background(), created.ID, input)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("ID changed on update: %q -> %q", created.ID, updated.ID)
	}
	if updated.Title != "Garlic Butter Shrimp Deluxe" {
		t.Errorf("Title = %q, want the updated one", updated.Title)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Error("UpdatedAt not advanced on update")
	}

	stored, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Title != "Garlic Butter Shrimp Deluxe" {
		t.Errorf("stored title = %q, want the update persisted", stored.Title)
	}
}

func TestRecipeService_Update_NotFound(t *testing.T) {
	svc, _, _ := newRecipeService(t, &fakeCatalog{})

	_, err := svc.Update(context.Background(), "missing-recipe", validInput())
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("error = %v, want ErrRecipeNotFound", err)
	}
}

func TestRecipeService_Update_InvalidLeavesStoreUntouched(t *testing.T) {
	svc, _, store := newRecipeService(t, &fakeCatalog{})

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	input := validInput()
	input.Title = "ab"

	if _, err := svc.Update(context.Background(), created.ID, input); err == nil {
		t.Fatal("expected validation error")
	}

	stored, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Title != "Garlic Butter Shrimp" {
		t.Errorf("stored title = %q, want unchanged after rejected update", stored.Title)
	}
}

func TestRecipeService_Delete(t *testing.T) {
	svc, _, _ := newRecipeService(t, &fakeCatalog{})

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.GetInternal(context.Background(), created.ID); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("Get after delete = %v, want ErrRecipeNotFound", err)
	}
	if err := svc.Delete(context.Background(), created.ID); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("second delete = %v, want ErrRecipeNotFound", err)
	}
}

func TestRecipeService_GetInternal(t *testing.T) {
	svc, collector, _ := newRecipeService(t, &fakeCatalog{})

	recipe, err := svc.GetInternal(context.Background(), seededRecipeID)
	if err != nil {
		t.Fatalf("GetInternal() error = %v", err)
	}
	if recipe.ID != seededRecipeID {
		t.Errorf("ID = %q, want %q", recipe.ID, seededRecipeID)
	}

	stats := collector.Statistics()
	op, ok := stats.Operations[opGetRecipe]
	if !ok || op.Count != 1 {
		t.Fatalf("operations[%q] = %+v, want one recorded lookup", opGetRecipe, op)
	}
	rec := findRecordByName(collector.Recent(1), opGetRecipe)
	if rec == nil {
		t.Fatal("no get_recipe record found")
	}
	if rec.Metadata.Found == nil || !*rec.Metadata.Found {
		t.Error("lookup not flagged as found in metadata")
	}
}

func TestRecipeService_GetInternal_NotFound(t *testing.T) {
	svc, collector, _ := newRecipeService(t, &fakeCatalog{})

	_, err := svc.GetInternal(context.Background(), "missing-recipe")
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("error = %v, want ErrRecipeNotFound", err)
	}

	// The miss is still timed and recorded.
	rec := findRecordByName(collector.Recent(1), opGetRecipe)
	if rec == nil {
		t.Fatal("no get_recipe record found")
	}
	if rec.Metadata.Found == nil || *rec.Metadata.Found {
		t.Error("miss not flagged in metadata")
	}
}

func TestRecipeService_GetExternal(t *testing.T) {
	meal := externalRecipe("52772", "Teriyaki Chicken Casserole")
	external := &fakeCatalog{lookup: &meal}
	svc, collector, _ := newRecipeService(t, external)

	recipe, err := svc.GetExternal(context.Background(), "52772")
	if err != nil {
		t.Fatalf("GetExternal() error = %v", err)
	}
	if recipe.ID != "52772" {
		t.Errorf("ID = %q, want 52772", recipe.ID)
	}

	stats := collector.Statistics()
	if stats.ExternalCount != 1 {
		t.Errorf("recorded external operations = %d, want 1", stats.ExternalCount)
	}
	rec := findRecordByName(collector.Recent(1), opGetMealByID)
	if rec == nil {
		t.Fatal("no get_meal_by_id record found")
	}
	if rec.Metadata.RecipeID != "52772" {
		t.Errorf("recorded recipe id = %q, want 52772", rec.Metadata.RecipeID)
	}
}

func TestRecipeService_GetExternal_NotFound(t *testing.T) {
	svc, _, _ := newRecipeService(t, &fakeCatalog{})

	_, err := svc.GetExternal(context.Background(), "99999")
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("error = %v, want ErrRecipeNotFound", err)
	}
}

func TestRecipeService_GetExternal_FailurePropagates(t *testing.T) {
	external := &fakeCatalog{err: errors.New("upstream down")}
	svc, collector, _ := newRecipeService(t, external)

	_, err := svc.GetExternal(context.Background(), "52772")
	if err == nil {
		t.Fatal("expected error from a failing upstream")
	}
	if errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("error = %v, want upstream failure distinct from not-found", err)
	}

	// The failed call is still timed and recorded.
	if stats := collector.Statistics(); stats.ExternalCount != 1 {
		t.Errorf("recorded external operations = %d, want 1", stats.ExternalCount)
	}
}

func TestRecipeService_GetExternal_Timeout(t *testing.T) {
	meal := externalRecipe("52772", "Teriyaki Chicken Casserole")
	external := &fakeCatalog{lookup: &meal, delay: 300 * time.Millisecond}
	logger := testLogger()
	svc := NewRecipeService(repository.NewMemoryStore(), external, 30*time.Millisecond, metrics.NewCollector(logger), logger)

	start := time.Now()
	_, err := svc.GetExternal(context.Background(), "52772")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("lookup took %s, want it cut off near its 30ms budget", elapsed)
	}
}

func TestRecipeService_Import_ReplacesCatalog(t *testing.T) {
	svc, _, store := newRecipeService(t, &fakeCatalog{})

	records := []model.Recipe{
		*internalRecipe("import-1", "Buttermilk Pancakes"),
		*internalRecipe("import-2", "Belgian Waffles"),
	}

	res, err := svc.Import(context.Background(), records)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Total != 2 || res.Imported != 2 {
		t.Errorf("result = %+v, want 2/2", res)
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("store holds %d recipes, want the import to replace the catalog", len(all))
	}
	if _, err := store.Get(context.Background(), seededRecipeID); err == nil {
		t.Error("seeded recipe survived the import")
	}
}

func TestRecipeService_Import_SkipsInvalid(t *testing.T) {
	svc, _, store := newRecipeService(t, &fakeCatalog{})

	bad := *internalRecipe("import-2", "Belgian Waffles")
	bad.Title = "x"
	records := []model.Recipe{*internalRecipe("import-1", "Buttermilk Pancakes"), bad}

	res, err := svc.Import(context.Background(), records)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Total != 2 || res.Imported != 1 {
		t.Errorf("result = %+v, want 1 of 2 imported", res)
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 || all[0].Title != "Buttermilk Pancakes" {
		t.Errorf("stored = %v, want only the valid record", all)
	}
}

func TestRecipeService_Import_RegeneratesInvalidIDs(t *testing.T) {
	svc, _, store := newRecipeService(t, &fakeCatalog{})

	r := *internalRecipe("not a valid id!!", "Buttermilk Pancakes")
	res, err := svc.Import(context.Background(), []model.Recipe{r})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("Imported = %d, want 1", res.Imported)
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("store holds %d recipes, want 1", len(all))
	}
	if all[0].ID == "not a valid id!!" {
		t.Error("invalid ID kept, want a fresh one generated")
	}
	if err := model.ValidateRecipeID(all[0].ID); err != nil {
		t.Errorf("regenerated ID %q invalid: %v", all[0].ID, err)
	}
}

func TestRecipeService_Import_PreservesTimestamps(t *testing.T) {
	svc, _, store := newRecipeService(t, &fakeCatalog{})

	r := *internalRecipe("import-1", "Buttermilk Pancakes")
	r.CreatedAt = time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	r.UpdatedAt = time.Date(2023, 4, 2, 12, 0, 0, 0, time.UTC)

	if _, err := svc.Import(context.Background(), []model.Recipe{r}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("store holds %d recipes, want 1", len(all))
	}
	if !all[0].CreatedAt.Equal(r.CreatedAt) || !all[0].UpdatedAt.Equal(r.UpdatedAt) {
		t.Errorf("timestamps = %v/%v, want the file's preserved", all[0].CreatedAt, all[0].UpdatedAt)
	}
}

func TestRecipeService_Export(t *testing.T) {
	svc, _, _ := newRecipeService(t, &fakeCatalog{})

	recipes, err := svc.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(recipes) != 1 || recipes[0].ID != seededRecipeID {
		t.Errorf("exported %d recipes, want the seeded catalog", len(recipes))
	}

	if _, err := svc.Create(context.Background(), validInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	recipes, err = svc.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(recipes) != 2 {
		t.Errorf("exported %d recipes after create, want 2", len(recipes))
	}
}
