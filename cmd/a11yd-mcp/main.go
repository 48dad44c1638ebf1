package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scanRequest mirrors the a11yd API request model.
type scanRequest struct {
	URL            string   `json:"url"`
	Rules          []string `json:"rules,omitempty"`
	Scope          string   `json:"scope,omitempty"`
	Severity       string   `json:"severity,omitempty"`
	IncludeSummary bool     `json:"include_summary,omitempty"`
}

// scanResponse mirrors the a11yd API response model.
type scanResponse struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	FinalURL   string `json:"final_url"`
	Metadata   *struct {
		Title     string `json:"title"`
		Language  string `json:"language"`
		SourceURL string `json:"source_url"`
	} `json:"metadata"`
	Issues []struct {
		Rule     string `json:"rule"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Selector string `json:"selector"`
	} `json:"issues"`
	Counts struct {
		Critical int `json:"critical"`
		Serious  int `json:"serious"`
		Moderate int `json:"moderate"`
		Minor    int `json:"minor"`
		Total    int `json:"total"`
	} `json:"counts"`
	Summary string `json:"summary"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// screenshotRequest mirrors the a11yd screenshot API request model.
type screenshotRequest struct {
	URL      string `json:"url"`
	FullPage bool   `json:"full_page,omitempty"`
}

// screenshotResponse mirrors the a11yd screenshot API response model.
type screenshotResponse struct {
	Success  bool   `json:"success"`
	Data     string `json:"data"`
	FinalURL string `json:"final_url"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("A11Y_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("A11Y_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "A11Y_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"a11yd",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scanPageTool := mcp.NewTool("scan_page",
		mcp.WithDescription("Scan a web page for accessibility issues (missing alt text, unlabeled inputs, empty links, heading structure and more). Uses a headless browser to render JavaScript-heavy pages and returns findings ordered by severity."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scan"),
		),
		mcp.WithString("severity",
			mcp.Description("Drop findings below this severity: 'minor' (default, keep everything), 'moderate', 'serious', or 'critical'"),
			mcp.Enum("minor", "moderate", "serious", "critical"),
		),
		mcp.WithString("scope",
			mcp.Description("CSS selector limiting the scan to matching containers, e.g. 'main' to skip site-wide chrome"),
		),
		mcp.WithArray("rules",
			mcp.Description("Restrict the scan to these rule ids (e.g. 'img-alt', 'link-name'); empty runs every rule"),
		),
		mcp.WithBoolean("include_summary",
			mcp.Description("Attach a readable extract of the page's main content to the result (default: false)"),
		),
	)
	s.AddTool(scanPageTool, handleScanPage(apiURL, apiKey))

	screenshotPageTool := mcp.NewTool("screenshot_page",
		mcp.WithDescription("Capture a PNG screenshot of a rendered web page, either the viewport or the full scrollable height."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to capture"),
		),
		mcp.WithBoolean("full_page",
			mcp.Description("Capture the entire scrollable page instead of just the viewport (default: false)"),
		),
	)
	s.AddTool(screenshotPageTool, handleScreenshotPage(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the a11yd API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleScanPage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scanRequest{
			URL:            url,
			Rules:          request.GetStringSlice("rules", nil),
			Scope:          request.GetString("scope", ""),
			Severity:       request.GetString("severity", ""),
			IncludeSummary: request.GetBool("include_summary", false),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scan", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan request failed: %v", err)), nil
		}

		var scanResp scanResponse
		if err := json.Unmarshal(respBody, &scanResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !scanResp.Success {
			errMsg := "scan failed"
			if scanResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", scanResp.Error.Code, scanResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		// Build a readable report: header, per-severity tally, findings.
		var sb strings.Builder
		if scanResp.Metadata != nil {
			sb.WriteString(fmt.Sprintf("Title: %s\n", scanResp.Metadata.Title))
		}
		sb.WriteString(fmt.Sprintf("Source: %s\n", scanResp.FinalURL))
		if scanResp.StatusCode != 0 {
			sb.WriteString(fmt.Sprintf("HTTP status: %d\n", scanResp.StatusCode))
		}

		c := scanResp.Counts
		sb.WriteString(fmt.Sprintf("\nIssues: %d total (%d critical, %d serious, %d moderate, %d minor)\n\n",
			c.Total, c.Critical, c.Serious, c.Moderate, c.Minor))

		for i, issue := range scanResp.Issues {
			sb.WriteString(fmt.Sprintf("%d. [%s] %s: %s\n", i+1, issue.Severity, issue.Rule, issue.Message))
			if issue.Selector != "" {
				sb.WriteString(fmt.Sprintf("   at %s\n", issue.Selector))
			}
		}

		if scanResp.Summary != "" {
			sb.WriteString("\n---\nPage content:\n\n")
			sb.WriteString(scanResp.Summary)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleScreenshotPage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := screenshotRequest{
			URL:      url,
			FullPage: request.GetBool("full_page", false),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/screenshot", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("screenshot request failed: %v", err)), nil
		}

		var shotResp screenshotResponse
		if err := json.Unmarshal(respBody, &shotResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !shotResp.Success {
			errMsg := "screenshot failed"
			if shotResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", shotResp.Error.Code, shotResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		// Data is already base64-encoded PNG, which is exactly what the
		// MCP image content type expects.
		return mcp.NewToolResultImage("Screenshot of "+shotResp.FinalURL, shotResp.Data, "image/png"), nil
	}
}
