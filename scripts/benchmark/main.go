package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "a11yd API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering 5 site types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Request / Response types (mirrors models package) ---

type scanRequest struct {
	URL     string            `json:"url"`
	Timeout int               `json:"timeout"`
	Headers map[string]string `json:"headers,omitempty"`
}

type scanResponse struct {
	Success    bool         `json:"success"`
	StatusCode int          `json:"status_code"`
	Metadata   metadata     `json:"metadata"`
	Counts     issueCounts  `json:"counts"`
	Timing     timingInfo   `json:"timing"`
	Error      *errorDetail `json:"error,omitempty"`
}

type metadata struct {
	Title string `json:"title"`
}

type issueCounts struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
	Total    int `json:"total"`
}

type timingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	NavigationMs int64 `json:"navigation_ms"`
	AuditMs      int64 `json:"audit_ms"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run          int    `json:"run"`
	TotalMs      int64  `json:"total_ms"`
	NavigationMs int64  `json:"navigation_ms"`
	AuditMs      int64  `json:"audit_ms"`
	Issues       int    `json:"issues"`
	Critical     int    `json:"critical"`
	StatusCode   int    `json:"status_code"`
	HasTitle     bool   `json:"has_title"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs      float64 `json:"total_ms"`
	NavigationMs float64 `json:"navigation_ms"`
	AuditMs      float64 `json:"audit_ms"`
	Issues       float64 `json:"issues"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== a11yd Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure a11yd is running\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d issues\n", rr.TotalMs, rr.Issues)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	reqBody := scanRequest{
		URL:     url,
		Timeout: 60,
		// A unique header per run changes the cache key, so every run
		// measures a real scan instead of a cache hit.
		Headers: map[string]string{"X-Bench-Run": fmt.Sprintf("%d-%d", run, time.Now().UnixNano())},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/scan", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = sr.Success
	rr.StatusCode = sr.StatusCode
	rr.TotalMs = sr.Timing.TotalMs
	rr.NavigationMs = sr.Timing.NavigationMs
	rr.AuditMs = sr.Timing.AuditMs
	rr.Issues = sr.Counts.Total
	rr.Critical = sr.Counts.Critical
	rr.HasTitle = sr.Metadata.Title != ""

	if sr.Error != nil {
		rr.Error = sr.Error.Message
	}

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.NavigationMs += float64(r.NavigationMs)
		avg.AuditMs += float64(r.AuditMs)
		avg.Issues += float64(r.Issues)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.NavigationMs /= n
	avg.AuditMs /= n
	avg.Issues /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tAvg Audit\tIssues\tStatus\n")
	fmt.Fprintf(w, "───\t───────────\t─────────\t──────\t──────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		// Determine dominant status code from runs.
		status := dominantStatus(r.Runs)

		fmt.Fprintf(w, "%s\t%dms\t%dms\t%.1f\t%d\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			int64(r.Averages.AuditMs),
			r.Averages.Issues,
			status,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func dominantStatus(runs []runResult) int {
	counts := map[int]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.StatusCode]++
		}
	}
	best, bestCount := 0, 0
	for code, count := range counts {
		if count > bestCount {
			best = code
			bestCount = count
		}
	}
	return best
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
