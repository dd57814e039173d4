package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"ecosense-relay/internal/backend"
	"ecosense-relay/internal/dispatch"
	"ecosense-relay/internal/record"
	"ecosense-relay/internal/store"
	"ecosense-relay/internal/tabs"
)

type stubBackend struct {
	result backend.AnalyzeResult
	err    error
	calls  int
	lastIn backend.AnalyzeInput
}

func (b *stubBackend) AnalyzePage(ctx context.Context, in backend.AnalyzeInput) (backend.AnalyzeResult, error) {
	b.calls++
	b.lastIn = in
	return b.result, b.err
}

type stubNotifier struct {
	mu     sync.Mutex
	toasts []tabs.Toast
	err    error
}

func (n *stubNotifier) PushToast(ctx context.Context, t tabs.Toast) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.toasts = append(n.toasts, t)
	return nil
}

func successResult() backend.AnalyzeResult {
	return backend.AnalyzeResult{
		Success:        true,
		HasMainProduct: true,
		ProductTitle:   "Bamboo Toothbrush",
		BrandName:      "GreenCo",
		Sustainability: &record.Sustainability{
			OverallScore:       8,
			OverallExplanation: "Mostly renewable materials.",
			PillarScores:       map[string]float64{"carbonFootprint": 7.5},
			PillarExplanations: map[string]string{"carbonFootprint": "Low transport emissions."},
		},
		JustifyingLinks:     []record.Link{{Title: "Report", URL: "https://example.com/report"}},
		AlternativeProducts: []record.Alternative{{Name: "Wooden Brush", Score: 9, Reason: "Compostable handle."}},
	}
}

// seedPriorSuccess writes an earlier successful cycle into the store so
// tests can verify what later outcomes preserve or replace.
func seedPriorSuccess(t *testing.T, s store.Store) {
	t.Helper()
	err := s.Set(context.Background(), record.Patch{
		record.KeyAnalysisStatus:     record.StatusSuccess,
		record.KeyHasMainProduct:     true,
		record.KeyProductTitle:       "Old Product",
		record.KeyBrandName:          "Old Brand",
		record.KeySustainabilityData: &record.Sustainability{OverallScore: 6},
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

func snapshot(t *testing.T, s store.Store) record.Record {
	t.Helper()
	rec, err := store.Snapshot(context.Background(), s)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return rec
}

func TestHandleAnalysisRequestSuccessReplacesResultKeys(t *testing.T) {
	mem := store.NewMemoryStore()
	// Leftover message from a previous failed cycle must be cleared.
	if err := mem.Set(context.Background(), record.Patch{record.KeyErrorMessage: "stale failure"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	be := &stubBackend{result: successResult()}
	notifier := &stubNotifier{}
	svc := &Service{Store: mem, Backend: be, Notifier: notifier}

	svc.HandleAnalysisRequest(context.Background(), "cycle-1", "https://amazon.com/dp/B01", "<html></html>")

	rec := snapshot(t, mem)
	if rec.AnalysisStatus != record.StatusSuccess {
		t.Fatalf("status = %q, want success", rec.AnalysisStatus)
	}
	if rec.ProductTitle == nil || *rec.ProductTitle != "Bamboo Toothbrush" {
		t.Errorf("productTitle = %v, want Bamboo Toothbrush", rec.ProductTitle)
	}
	if rec.Sustainability == nil || rec.Sustainability.OverallScore != 8 {
		t.Errorf("sustainabilityData = %+v, want overall 8", rec.Sustainability)
	}
	if rec.ErrorMessage != nil {
		t.Errorf("errorMessage = %q, want cleared", *rec.ErrorMessage)
	}
	if len(notifier.toasts) != 1 || notifier.toasts[0].Status != tabs.ToastSuccess {
		t.Fatalf("toasts = %+v, want one success toast", notifier.toasts)
	}
	if got := notifier.toasts[0].Message; got != "Sustainability score: 8/10" {
		t.Errorf("toast message = %q", got)
	}
	if be.lastIn.URL != "https://amazon.com/dp/B01" {
		t.Errorf("backend url = %q", be.lastIn.URL)
	}
}

func TestHandleAnalysisRequestNoMainProductPreservesPriorResult(t *testing.T) {
	mem := store.NewMemoryStore()
	seedPriorSuccess(t, mem)
	be := &stubBackend{result: backend.AnalyzeResult{Success: true, HasMainProduct: false}}
	notifier := &stubNotifier{}
	svc := &Service{Store: mem, Backend: be, Notifier: notifier}

	svc.HandleAnalysisRequest(context.Background(), "cycle-2", "https://amazon.com/", "<html></html>")

	rec := snapshot(t, mem)
	if rec.AnalysisStatus != record.StatusNoMainProduct {
		t.Fatalf("status = %q, want no-main-product", rec.AnalysisStatus)
	}
	if rec.HasMainProduct == nil || *rec.HasMainProduct {
		t.Error("hasMainProduct should be false")
	}
	if rec.ErrorMessage == nil || *rec.ErrorMessage != "No specific product found on this page." {
		t.Errorf("errorMessage = %v", rec.ErrorMessage)
	}
	// The last good result stays readable.
	if rec.ProductTitle == nil || *rec.ProductTitle != "Old Product" {
		t.Errorf("productTitle = %v, want preserved Old Product", rec.ProductTitle)
	}
	if rec.Sustainability == nil || rec.Sustainability.OverallScore != 6 {
		t.Errorf("sustainabilityData = %+v, want preserved", rec.Sustainability)
	}
	if len(notifier.toasts) != 1 || notifier.toasts[0].Status != tabs.ToastInfo {
		t.Fatalf("toasts = %+v, want one info toast", notifier.toasts)
	}
}

func TestHandleAnalysisRequestBackendFailurePreservesPriorResult(t *testing.T) {
	mem := store.NewMemoryStore()
	seedPriorSuccess(t, mem)
	be := &stubBackend{result: backend.AnalyzeResult{Success: false, Message: "model overloaded"}}
	svc := &Service{Store: mem, Backend: be, Notifier: &stubNotifier{}}

	svc.HandleAnalysisRequest(context.Background(), "cycle-3", "https://amazon.com/dp/B02", "<html></html>")

	rec := snapshot(t, mem)
	if rec.AnalysisStatus != record.StatusError {
		t.Fatalf("status = %q, want error", rec.AnalysisStatus)
	}
	if rec.ErrorMessage == nil || *rec.ErrorMessage != "model overloaded" {
		t.Errorf("errorMessage = %v", rec.ErrorMessage)
	}
	if rec.ProductTitle == nil || *rec.ProductTitle != "Old Product" {
		t.Errorf("productTitle = %v, want preserved", rec.ProductTitle)
	}
	if rec.Sustainability == nil {
		t.Error("sustainabilityData cleared, want preserved")
	}
}

func TestHandleAnalysisRequestBackendFailureDefaultMessage(t *testing.T) {
	mem := store.NewMemoryStore()
	be := &stubBackend{result: backend.AnalyzeResult{Success: false}}
	svc := &Service{Store: mem, Backend: be}

	svc.HandleAnalysisRequest(context.Background(), "cycle-4", "https://amazon.com/dp/B03", "<html></html>")

	rec := snapshot(t, mem)
	if rec.ErrorMessage == nil || *rec.ErrorMessage != "Unknown backend error during analysis." {
		t.Errorf("errorMessage = %v", rec.ErrorMessage)
	}
}

func TestHandleAnalysisRequestTransportFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	seedPriorSuccess(t, mem)
	be := &stubBackend{err: errors.New("connection refused")}
	notifier := &stubNotifier{}
	svc := &Service{Store: mem, Backend: be, Notifier: notifier}

	svc.HandleAnalysisRequest(context.Background(), "cycle-5", "https://amazon.com/dp/B04", "<html></html>")

	rec := snapshot(t, mem)
	if rec.AnalysisStatus != record.StatusError {
		t.Fatalf("status = %q, want error", rec.AnalysisStatus)
	}
	if rec.ErrorMessage == nil || !strings.HasPrefix(*rec.ErrorMessage, "Network error: ") {
		t.Errorf("errorMessage = %v, want network error prefix", rec.ErrorMessage)
	}
	if rec.ProductTitle == nil || *rec.ProductTitle != "Old Product" {
		t.Errorf("productTitle = %v, want preserved", rec.ProductTitle)
	}
	if len(notifier.toasts) != 1 || notifier.toasts[0].Status != tabs.ToastError {
		t.Fatalf("toasts = %+v, want one error toast", notifier.toasts)
	}
}

func TestHandleAnalysisRequestToastFailureIsSwallowed(t *testing.T) {
	mem := store.NewMemoryStore()
	be := &stubBackend{result: successResult()}
	svc := &Service{Store: mem, Backend: be, Notifier: &stubNotifier{err: tabs.ErrNoActiveTab}}

	svc.HandleAnalysisRequest(context.Background(), "cycle-6", "https://amazon.com/dp/B05", "<html></html>")

	rec := snapshot(t, mem)
	if rec.AnalysisStatus != record.StatusSuccess {
		t.Fatalf("status = %q, store write must land even when the toast fails", rec.AnalysisStatus)
	}
}

func TestHandleMessageRoutesAnalysisRequests(t *testing.T) {
	mem := store.NewMemoryStore()
	be := &stubBackend{result: successResult()}
	svc := &Service{Store: mem, Backend: be}

	svc.HandleMessage(context.Background(), dispatchMessage("analyzePageContent"))
	if be.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", be.calls)
	}

	svc.HandleMessage(context.Background(), dispatchMessage("checkPageType"))
	svc.HandleMessage(context.Background(), dispatchMessage("somethingElse"))
	if be.calls != 1 {
		t.Fatalf("backend calls = %d, non-analysis actions must not reach the backend", be.calls)
	}
}

func dispatchMessage(action string) dispatch.Message {
	return dispatch.NewMessage(action, "cycle-msg", "https://amazon.com/dp/B10", "<html></html>")
}

func TestFormatScore(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{8, "8"},
		{7.5, "7.5"},
		{0, "0"},
		{9.25, "9.2"},
	}
	for _, tc := range cases {
		if got := formatScore(tc.in); got != tc.want {
			t.Errorf("formatScore(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
