package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"ecosense-relay/internal/record"
)

const analyzePath = "/analyze-product-page"

// HTTPClient implements Client against the combined-analysis endpoint.
type HTTPClient struct {
	baseURL    string
	scoreScale float64
	httpClient *http.Client
}

// NewHTTPClient constructs a backend client. scoreScale is the maximum score
// the backend emits (100 for the original service); scores are divided by
// scoreScale/10 so the rest of the system only ever sees the 0-10 scale.
func NewHTTPClient(baseURL string, scoreScale float64) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}
	if scoreScale <= 0 {
		scoreScale = 100
	}
	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("BACKEND_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		scoreScale: scoreScale,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type analyzeRequest struct {
	URL         string `json:"url"`
	HTMLContent string `json:"html_content"`
}

type analyzeResponse struct {
	Success             bool                 `json:"success"`
	HasMainProduct      bool                 `json:"hasMainProduct"`
	Message             string               `json:"message"`
	ProductTitle        string               `json:"productTitle"`
	BrandName           string               `json:"brandName"`
	OverallScore        float64              `json:"overallScore"`
	OverallExplanation  string               `json:"overallExplanation"`
	PillarScores        map[string]float64   `json:"pillarScores"`
	PillarExplanations  map[string]string    `json:"pillarExplanations"`
	JustifyingLinks     []record.Link        `json:"justifyingLinks"`
	AlternativeProducts []record.Alternative `json:"alternativeProducts"`
}

// AnalyzePage performs a single POST with no retry. Transport failures and
// undecodable responses are returned as errors; the caller maps them to the
// error outcome.
func (c *HTTPClient) AnalyzePage(ctx context.Context, input AnalyzeInput) (AnalyzeResult, error) {
	payload, err := json.Marshal(analyzeRequest{URL: input.URL, HTMLContent: input.HTMLContent})
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(payload))
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("call analysis backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("read backend response: %w", err)
	}

	var decoded analyzeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return AnalyzeResult{}, fmt.Errorf("decode backend response (status %d): %w", resp.StatusCode, err)
	}

	// The backend reports request-level problems in-band via success=false,
	// including its 4xx responses, so a decodable body always wins over the
	// HTTP status.
	result := AnalyzeResult{
		Success:        decoded.Success,
		HasMainProduct: decoded.HasMainProduct,
		Message:        decoded.Message,
		ProductTitle:   decoded.ProductTitle,
		BrandName:      decoded.BrandName,
	}
	if decoded.Success && decoded.HasMainProduct {
		sustainability := &record.Sustainability{
			OverallScore:       c.normalize(decoded.OverallScore),
			OverallExplanation: decoded.OverallExplanation,
			PillarScores:       make(map[string]float64, len(decoded.PillarScores)),
			PillarExplanations: decoded.PillarExplanations,
		}
		for pillar, score := range decoded.PillarScores {
			sustainability.PillarScores[pillar] = c.normalize(score)
		}
		record.AlignPillars(sustainability)
		result.Sustainability = sustainability
		result.JustifyingLinks = decoded.JustifyingLinks
		result.AlternativeProducts = make([]record.Alternative, len(decoded.AlternativeProducts))
		for i, alt := range decoded.AlternativeProducts {
			alt.Score = c.normalize(alt.Score)
			result.AlternativeProducts[i] = alt
		}
	}
	return result, nil
}

func (c *HTTPClient) normalize(score float64) float64 {
	scaled := score * 10 / c.scoreScale
	if scaled < 0 {
		return 0
	}
	if scaled > 10 {
		return 10
	}
	return scaled
}

var _ Client = (*HTTPClient)(nil)
