// Package backend talks to the remote sustainability analysis service.
package backend

import (
	"context"
	"errors"

	"ecosense-relay/internal/record"
)

// Client abstracts the analysis backend.
type Client interface {
	AnalyzePage(ctx context.Context, input AnalyzeInput) (AnalyzeResult, error)
}

// AnalyzeInput captures one page submitted for analysis.
type AnalyzeInput struct {
	URL         string
	HTMLContent string
}

// AnalyzeResult is the decoded backend outcome. Scores are already
// normalized to the 0-10 scale by the client.
type AnalyzeResult struct {
	Success             bool
	HasMainProduct      bool
	Message             string
	ProductTitle        string
	BrandName           string
	Sustainability      *record.Sustainability
	JustifyingLinks     []record.Link
	AlternativeProducts []record.Alternative
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("analysis backend not configured")

// PlaceholderClient is a stub implementation for wiring without a backend.
type PlaceholderClient struct{}

// AnalyzePage returns ErrNotConfigured.
func (PlaceholderClient) AnalyzePage(ctx context.Context, input AnalyzeInput) (AnalyzeResult, error) {
	_ = ctx
	_ = input
	return AnalyzeResult{}, ErrNotConfigured
}
