// Package relay bridges page probes and the analysis backend. It consumes
// dispatched analysis requests, calls the backend once per request, and
// writes the outcome into the shared result store; the originating page is
// additionally notified through a best-effort toast push.
package relay

import (
	"context"
	"fmt"
	"strings"

	"ecosense-relay/internal/backend"
	"ecosense-relay/internal/dispatch"
	"ecosense-relay/internal/record"
	"ecosense-relay/internal/shared/metrics"
	"ecosense-relay/internal/shared/storage/object"
	"ecosense-relay/internal/shared/telemetry"
	"ecosense-relay/internal/store"
	"ecosense-relay/internal/tabs"
)

// Default user-facing copy for non-success outcomes.
const (
	msgNoMainProduct  = "No specific product found on this page."
	msgBackendFailure = "Unknown backend error during analysis."
	networkErrPrefix  = "Network error: "
)

// Notifier pushes a toast to the currently active page.
type Notifier interface {
	PushToast(ctx context.Context, t tabs.Toast) error
}

// Service performs analysis cycles. Results are delivered purely via side
// effects on the store and the toast channel, never as return values.
type Service struct {
	Store    store.Store
	Backend  backend.Client
	Notifier Notifier
	// Snapshots, when set, archives submitted page markup per cycle for
	// diagnostics. Archival failures never affect the outcome.
	Snapshots object.ObjectStore
}

// HandleMessage routes a dispatched message. It implements dispatch.Handler.
func (s *Service) HandleMessage(ctx context.Context, msg dispatch.Message) {
	switch msg.Action {
	case dispatch.ActionAnalyzePageContent:
		s.HandleAnalysisRequest(ctx, msg.CycleID, msg.ProductURL, msg.HTMLContent)
	case dispatch.ActionCheckPageType:
		telemetry.Warn("relay.superseded_action", map[string]any{
			"action":   msg.Action,
			"cycle_id": msg.CycleID,
		})
	default:
		telemetry.Warn("relay.unknown_action", map[string]any{
			"action":   msg.Action,
			"cycle_id": msg.CycleID,
		})
	}
}

// HandleAnalysisRequest runs one analysis cycle: a single backend call with
// no retry, then exactly one outcome write. Non-success outcomes only touch
// the status fields so the last good result stays visible in the panel.
func (s *Service) HandleAnalysisRequest(ctx context.Context, cycleID, pageURL, htmlContent string) {
	s.archiveSnapshot(ctx, cycleID, htmlContent)

	start := metrics.NowMillis()
	result, err := s.Backend.AnalyzePage(ctx, backend.AnalyzeInput{URL: pageURL, HTMLContent: htmlContent})
	metrics.ObserveBackendDurationMs(metrics.NowMillis() - start)

	var patch record.Patch
	var toast tabs.Toast

	switch {
	case err != nil:
		patch = record.Patch{
			record.KeyAnalysisStatus: record.StatusError,
			record.KeyHasMainProduct: false,
			record.KeyErrorMessage:   networkErrPrefix + err.Error(),
		}
		toast = tabs.Toast{Status: tabs.ToastError, Message: "Analysis failed: network error."}
		metrics.IncCycleFailed()
		telemetry.Error("relay.backend_call_failed", map[string]any{
			"cycle_id": cycleID,
			"url":      pageURL,
			"error":    err.Error(),
		})

	case result.Success && result.HasMainProduct:
		patch = record.Patch{
			record.KeyAnalysisStatus:      record.StatusSuccess,
			record.KeyHasMainProduct:      true,
			record.KeyProductTitle:        result.ProductTitle,
			record.KeyBrandName:           result.BrandName,
			record.KeySustainabilityData:  result.Sustainability,
			record.KeyJustifyingLinks:     result.JustifyingLinks,
			record.KeyAlternativeProducts: result.AlternativeProducts,
			record.KeyErrorMessage:        nil,
		}
		score := 0.0
		if result.Sustainability != nil {
			score = result.Sustainability.OverallScore
		}
		toast = tabs.Toast{
			Status:  tabs.ToastSuccess,
			Message: fmt.Sprintf("Sustainability score: %s/10", formatScore(score)),
		}
		metrics.IncCycleCompleted()

	case result.Success:
		patch = record.Patch{
			record.KeyAnalysisStatus: record.StatusNoMainProduct,
			record.KeyHasMainProduct: false,
			record.KeyErrorMessage:   messageOrDefault(result.Message, msgNoMainProduct),
		}
		toast = tabs.Toast{Status: tabs.ToastInfo, Message: msgNoMainProduct}
		metrics.IncCycleCompleted()

	default:
		patch = record.Patch{
			record.KeyAnalysisStatus: record.StatusError,
			record.KeyHasMainProduct: false,
			record.KeyErrorMessage:   messageOrDefault(result.Message, msgBackendFailure),
		}
		toast = tabs.Toast{Status: tabs.ToastError, Message: "Analysis failed."}
		metrics.IncCycleFailed()
	}

	if err := s.Store.Set(ctx, patch); err != nil {
		telemetry.Error("relay.store_write_failed", map[string]any{
			"cycle_id": cycleID,
			"error":    err.Error(),
		})
		return
	}

	s.pushToast(ctx, cycleID, toast)
}

// pushToast delivers a toast to the active page. The page may be gone by the
// time the backend answers; that failure is logged and swallowed.
func (s *Service) pushToast(ctx context.Context, cycleID string, t tabs.Toast) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.PushToast(ctx, t); err != nil {
		metrics.IncToastDropped()
		telemetry.Warn("relay.toast_dropped", map[string]any{
			"cycle_id": cycleID,
			"status":   t.Status,
			"error":    err.Error(),
		})
	}
}

func (s *Service) archiveSnapshot(ctx context.Context, cycleID, htmlContent string) {
	if s.Snapshots == nil || htmlContent == "" {
		return
	}
	_, size, _, err := s.Snapshots.Save(ctx, cycleID, "page.html", strings.NewReader(htmlContent))
	if err != nil {
		telemetry.Warn("relay.snapshot_archive_failed", map[string]any{
			"cycle_id": cycleID,
			"error":    err.Error(),
		})
		return
	}
	telemetry.Info("relay.snapshot_archived", map[string]any{
		"cycle_id": cycleID,
		"bytes":    size,
	})
}

func messageOrDefault(msg, def string) string {
	if strings.TrimSpace(msg) == "" {
		return def
	}
	return msg
}

func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return fmt.Sprintf("%d", int64(score))
	}
	return fmt.Sprintf("%.1f", score)
}

var _ dispatch.Handler = (*Service)(nil)
