// Recipe Explorer Performance Probe Example
//
// This is a minimal example client that drives combined searches against a
// running Recipe Explorer API and prints the per-source timings the server
// reports, followed by its internal-vs-external comparison.
//
// Usage:
//   go run main.go -search pasta -n 10
//
// Point it at a non-local server with -base-url.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

type listResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta"`
}

type metricsResponse struct {
	Data struct {
		Statistics struct {
			InternalAvgMS   float64 `json:"internal_avg_ms"`
			InternalCount   int64   `json:"internal_count"`
			ExternalAvgMS   float64 `json:"external_avg_ms"`
			ExternalCount   int64   `json:"external_count"`
			TotalOperations int64   `json:"total_operations"`
		} `json:"statistics"`
		PerformanceComparison *struct {
			FasterSource  string  `json:"faster_source"`
			SpeedupFactor float64 `json:"speedup_factor"`
			Message       string  `json:"message"`
		} `json:"performance_comparison"`
	} `json:"data"`
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "Recipe Explorer API base URL")
	search := flag.String("search", "chicken", "Search term sent to both sources")
	runs := flag.Int("n", 5, "Number of searches to run")
	flag.Parse()

	client := &http.Client{Timeout: 15 * time.Second}

	endpoint := fmt.Sprintf("%s/api/v1/recipes?search=%s", *baseURL, url.QueryEscape(*search))
	log.Printf("Searching %q %d times via %s", *search, *runs, endpoint)

	for i := 0; i < *runs; i++ {
		resp, err := client.Get(endpoint)
		if err != nil {
			log.Fatalf("search request failed: %v", err)
		}

		var body listResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			resp.Body.Close()
			log.Fatalf("decode search response: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Fatalf("search returned %d: %s", resp.StatusCode, body.Message)
		}

		perf, _ := body.Meta["performance"].(map[string]any)
		log.Printf("run %d: count=%v internal=%vms external=%vms total=%vms",
			i+1,
			body.Meta["count"],
			perf["internal_query_ms"],
			perf["external_api_ms"],
			perf["total_request_ms"],
		)
	}

	resp, err := client.Get(*baseURL + "/api/v1/metrics")
	if err != nil {
		log.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	var metrics metricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		log.Fatalf("decode metrics response: %v", err)
	}

	stats := metrics.Data.Statistics
	fmt.Println()
	fmt.Printf("Recorded operations: %d\n", stats.TotalOperations)
	fmt.Printf("Internal: %d ops, avg %.2fms\n", stats.InternalCount, stats.InternalAvgMS)
	fmt.Printf("External: %d ops, avg %.2fms\n", stats.ExternalCount, stats.ExternalAvgMS)

	if cmp := metrics.Data.PerformanceComparison; cmp != nil {
		fmt.Printf("Winner: %s (%.2fx) - %s\n", cmp.FasterSource, cmp.SpeedupFactor, cmp.Message)
	} else {
		fmt.Println("No comparison yet: one of the sources has no measurements.")
	}
}
