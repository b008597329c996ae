package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recipex/recipex/internal/handler/dto"
	"github.com/recipex/recipex/internal/model"
	"github.com/recipex/recipex/internal/service"
)

// Limits for uploaded import files.
const (
	// MaxImportFileSize caps the uploaded file size in bytes.
	MaxImportFileSize = 2 * 1024 * 1024
	// MaxImportRecords caps how many recipes one upload may contain.
	MaxImportRecords = 1000
)

// RecipeHandler handles HTTP requests for recipe operations.
type RecipeHandler struct {
	queries *service.QueryService
	recipes *service.RecipeService
	logger  *slog.Logger
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(queries *service.QueryService, recipes *service.RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		queries: queries,
		recipes: recipes,
		logger:  logger,
	}
}

// List handles GET /api/v1/recipes. Without a search parameter it returns
// the internal catalog only; with one, internal and external results are
// queried concurrently and merged internal-first.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	search := query.Get("search")
	hasSearch := query.Has("search")

	if err := model.ValidateSearchQuery(search, hasSearch); err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := h.queries.List(r.Context(), service.QueryInput{Search: search, HasSearch: hasSearch})
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, dto.NewServerErrorResponse("Failed to retrieve recipes"))
		return
	}

	performance := map[string]any{
		"internal_query_ms": result.Performance.InternalQueryMS,
		"total_request_ms":  result.Performance.TotalRequestMS,
	}
	if result.Performance.ExternalAPIMS != nil {
		performance["external_api_ms"] = *result.Performance.ExternalAPIMS
	}

	// null rather than "" when the request carried no usable term.
	var searchQuery any
	if result.SearchTerm != "" {
		searchQuery = result.SearchTerm
	}

	writeSuccess(w, http.StatusOK,
		fmt.Sprintf("Successfully retrieved %d recipes", len(result.Recipes)),
		map[string]any{"recipes": result.Recipes},
		map[string]any{
			"count":          len(result.Recipes),
			"internal_count": result.InternalCount,
			"external_count": result.ExternalCount,
			"search_query":   searchQuery,
			"has_search":     result.HasSearch,
			"performance":    performance,
		})
}

// Create handles POST /api/v1/recipes.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.RecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dto.NewErrorResponse(http.StatusBadRequest, "bad_request",
			"Invalid JSON in request body",
			map[string]any{"json_error": err.Error()}))
		return
	}

	recipe, err := h.recipes.Create(r.Context(), recipeInput(req))
	if err != nil {
		h.handleServiceError(w, err, "Recipe", "", "Failed to create recipe")
		return
	}

	writeSuccess(w, http.StatusCreated, "Recipe created successfully", recipe,
		map[string]any{"recipe_id": recipe.ID, "action": "create"})
}

// Update handles PUT /api/v1/recipes/{id}. A missing recipe reports 404
// before the body is checked, so callers learn about the wrong ID first.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := model.ValidateRecipeID(id); err != nil {
		writeValidationError(w, err)
		return
	}

	var req dto.RecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dto.NewErrorResponse(http.StatusBadRequest, "bad_request",
			"Invalid JSON in request body",
			map[string]any{"json_error": err.Error()}))
		return
	}

	recipe, err := h.recipes.Update(r.Context(), id, recipeInput(req))
	if err != nil {
		h.handleServiceError(w, err, "Recipe", id, "Failed to update recipe")
		return
	}

	writeSuccess(w, http.StatusOK, "Recipe updated successfully", recipe,
		map[string]any{"recipe_id": id, "action": "update"})
}

// Delete handles DELETE /api/v1/recipes/{id}.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := model.ValidateRecipeID(id); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.recipes.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, err, "Recipe", id, "Failed to delete recipe")
		return
	}

	writeSuccess(w, http.StatusOK, "Recipe deleted successfully",
		map[string]any{"deleted_recipe_id": id},
		map[string]any{"recipe_id": id, "action": "delete"})
}

// Get handles GET /api/v1/recipes/{id}, the original single-recipe route.
// It reads the internal store only; the internal/ and external/ routes
// exist for source-explicit lookups.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := model.ValidateRecipeID(id); err != nil {
		writeValidationError(w, err)
		return
	}

	recipe, err := h.recipes.GetInternal(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err, "Recipe", id, "Failed to retrieve recipe")
		return
	}

	writeSuccess(w, http.StatusOK, "Recipe retrieved successfully", recipe,
		map[string]any{"recipe_id": id})
}

// GetInternal handles GET /api/v1/recipes/internal/{id}.
func (h *RecipeHandler) GetInternal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := model.ValidateRecipeID(id); err != nil {
		writeValidationError(w, err)
		return
	}

	recipe, err := h.recipes.GetInternal(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err, "Internal recipe", id, "Failed to retrieve internal recipe")
		return
	}

	writeSuccess(w, http.StatusOK, "Internal recipe retrieved successfully", recipe,
		map[string]any{"recipe_id": id, "source": "internal"})
}

// GetExternal handles GET /api/v1/recipes/external/{id}. The lookup has
// no internal fallback, so upstream failures surface as server errors.
func (h *RecipeHandler) GetExternal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := model.ValidateRecipeID(id); err != nil {
		writeValidationError(w, err)
		return
	}

	recipe, err := h.recipes.GetExternal(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err, "External recipe", id, "Failed to retrieve external recipe")
		return
	}

	writeSuccess(w, http.StatusOK, "External recipe retrieved successfully", recipe,
		map[string]any{"recipe_id": id, "source": "external"})
}

// Export handles GET /api/v1/recipes/export. A non-empty catalog is
// served as a download; an empty one reports success without the
// attachment header.
func (h *RecipeHandler) Export(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.Export(r.Context())
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, dto.NewServerErrorResponse("Failed to export recipes"))
		return
	}

	if len(recipes) == 0 {
		writeSuccess(w, http.StatusOK, "No recipes found to export",
			[]model.Recipe{},
			map[string]any{"count": 0, "action": "export"})
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=recipes_export.json")
	writeSuccess(w, http.StatusOK,
		fmt.Sprintf("Successfully exported %d recipes", len(recipes)),
		recipes,
		map[string]any{
			"count":            len(recipes),
			"export_timestamp": time.Now().UTC().Format(time.RFC3339),
			"action":           "export",
		})
}

// Import handles POST /api/v1/recipes/import. The uploaded JSON array
// replaces the entire internal catalog; any invalid record rejects the
// whole file so a partial import never goes unnoticed.
func (h *RecipeHandler) Import(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, dto.NewErrorResponse(http.StatusBadRequest, "file_error",
			"No file was uploaded",
			map[string]any{"form_field": "file"}))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".json") {
		writeError(w, dto.NewErrorResponse(http.StatusBadRequest, "file_error",
			"Invalid file type. Only JSON files are allowed",
			map[string]any{"filename": header.Filename, "expected_extension": ".json"}))
		return
	}

	if header.Size > MaxImportFileSize {
		writeError(w, dto.NewErrorResponse(http.StatusBadRequest, "file_error",
			fmt.Sprintf("File too large. Maximum size is %.1fMB", float64(MaxImportFileSize)/(1024*1024)),
			map[string]any{
				"file_size": header.Size,
				"max_size":  MaxImportFileSize,
				"filename":  header.Filename,
			}))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, dto.NewServerErrorResponse("Failed to import recipes"))
		return
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(content, &raws); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeValidationError(w, model.ValidationErrors{
				{Field: "data", Message: "import data must be an array of recipes", Code: "type_error"},
			})
			return
		}
		writeError(w, dto.NewErrorResponse(http.StatusBadRequest, "bad_request",
			"Invalid JSON format in uploaded file",
			map[string]any{"json_error": err.Error(), "filename": header.Filename}))
		return
	}

	records, verrs := decodeImportRecords(raws)
	if verrs != nil {
		writeError(w, dto.NewValidationErrorResponse(verrs))
		return
	}

	result, err := h.recipes.Import(r.Context(), records)
	if err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, dto.NewServerErrorResponse("Failed to import recipes"))
		return
	}

	writeSuccess(w, http.StatusCreated,
		fmt.Sprintf("Successfully imported %d recipes", result.Imported),
		map[string]any{"imported_count": result.Imported, "filename": header.Filename},
		map[string]any{
			"total_recipes_in_file": result.Total,
			"successfully_imported": result.Imported,
			"filename":              header.Filename,
			"action":                "import",
		})
}

// decodeImportRecords validates the uploaded array and decodes its
// records. Failures are reported per record with a data[i] field path.
func decodeImportRecords(raws []json.RawMessage) ([]model.Recipe, model.ValidationErrors) {
	var errs model.ValidationErrors

	if len(raws) == 0 {
		return nil, append(errs, model.ValidationError{
			Field: "data", Message: "import data cannot be empty", Code: "empty",
		})
	}
	if len(raws) > MaxImportRecords {
		return nil, append(errs, model.ValidationError{
			Field:   "data",
			Message: fmt.Sprintf("cannot import more than %d recipes at once", MaxImportRecords),
			Code:    "too_many",
		})
	}

	records := make([]model.Recipe, 0, len(raws))
	for i, raw := range raws {
		var rec dto.ImportRecipe
		if err := json.Unmarshal(raw, &rec); err != nil {
			errs = append(errs, model.ValidationError{
				Field:   fmt.Sprintf("data[%d]", i),
				Message: "each recipe must be an object",
				Code:    "type_error",
			})
			continue
		}

		recipe := rec.ToRecipe()
		if err := recipe.Validate(); err != nil {
			var fieldErrs model.ValidationErrors
			if errors.As(err, &fieldErrs) {
				for _, fe := range fieldErrs {
					errs = append(errs, model.ValidationError{
						Field:   fmt.Sprintf("data[%d].%s", i, fe.Field),
						Message: fe.Message,
						Code:    fe.Code,
					})
				}
			}
			continue
		}
		records = append(records, recipe)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return records, nil
}

// recipeInput maps a request body to the service input.
func recipeInput(req dto.RecipeRequest) service.RecipeInput {
	return service.RecipeInput{
		Title:        req.Title,
		Description:  req.Description,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		Tags:         req.Tags,
		Region:       req.Region,
		Cuisine:      req.Cuisine,
	}
}

// handleServiceError maps service errors to the response envelope.
// resourceType labels 404s for the endpoint's source; serverMessage is
// the endpoint's 500 message.
func (h *RecipeHandler) handleServiceError(w http.ResponseWriter, err error, resourceType, id, serverMessage string) {
	var verrs model.ValidationErrors
	switch {
	case errors.Is(err, service.ErrRecipeNotFound):
		writeError(w, dto.NewNotFoundResponse(resourceType, id))
	case errors.As(err, &verrs):
		writeError(w, dto.NewValidationErrorResponse(verrs))
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, dto.NewServerErrorResponse(serverMessage))
	}
}
