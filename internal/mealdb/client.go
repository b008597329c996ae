// Package mealdb provides a client for TheMealDB public API and maps its
// meal payloads into domain recipes.
package mealdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/recipex/recipex/internal/model"
)

const (
	// DefaultBaseURL is the root of TheMealDB free-tier API.
	DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1"
	// DefaultTimeout is the total request timeout. The external source must
	// never hold up a query longer than this.
	DefaultTimeout = 5 * time.Second

	// DialTimeout is the connection timeout.
	DialTimeout = 2 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 2 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 3 * time.Second
)

// Client calls TheMealDB over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a TheMealDB client. Empty baseURL and zero timeout fall
// back to the public API defaults.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    newHTTPClient(timeout),
		logger:  logger,
	}
}

// newHTTPClient creates an HTTP client configured for external API lookups.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// SearchMeals queries TheMealDB by name and maps every hit into a recipe.
// A blank query returns an empty result without calling the API. The API
// reports "no matches" as a null meals array, which also maps to an empty
// result rather than an error.
func (c *Client) SearchMeals(ctx context.Context, query string) ([]model.Recipe, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		c.logger.Warn("empty search query provided, skipping external call")
		return []model.Recipe{}, nil
	}

	meals, err := c.getMeals(ctx, "search.php", url.Values{"s": []string{query}})
	if err != nil {
		return nil, err
	}

	recipes := make([]model.Recipe, 0, len(meals))
	for _, meal := range meals {
		recipes = append(recipes, transformMeal(meal))
	}

	c.logger.Debug("external search completed",
		slog.String("query", query),
		slog.Int("results", len(recipes)))
	return recipes, nil
}

// GetMealByID looks up a single meal and maps it into a recipe.
// It returns ErrMealNotFound when the API has no meal under that ID.
func (c *Client) GetMealByID(ctx context.Context, id string) (*model.Recipe, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMealNotFound
	}

	meals, err := c.getMeals(ctx, "lookup.php", url.Values{"i": []string{id}})
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		c.logger.Debug("external lookup found no meal", slog.String("meal_id", id))
		return nil, ErrMealNotFound
	}

	recipe := transformMeal(meals[0])
	return &recipe, nil
}

// mealsResponse is the envelope TheMealDB wraps every result list in.
// The meals key is null, not an empty array, when nothing matched.
type mealsResponse struct {
	Meals []rawMeal `json:"meals"`
}

func (c *Client) getMeals(ctx context.Context, endpoint string, params url.Values) ([]rawMeal, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s took longer than %s", ErrTimeout, endpoint, c.http.Timeout)
		}
		return nil, fmt.Errorf("failed to call external api: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var payload mealsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode external api response: %w", err)
	}
	return payload.Meals, nil
}

// isTimeout reports whether err is a deadline or timeout failure, either
// from the request context or from the client's own timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
