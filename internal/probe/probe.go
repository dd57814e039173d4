// Package probe is the page-side entry point of an analysis cycle: it
// decides eligibility, resets the shared record for the new cycle, shows
// the loading indicator and fires the analysis request at the dispatch bus.
package probe

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ecosense-relay/internal/dispatch"
	"ecosense-relay/internal/record"
	"ecosense-relay/internal/shared/metrics"
	"ecosense-relay/internal/shared/telemetry"
	"ecosense-relay/internal/store"
	"ecosense-relay/internal/tabs"
)

// User-facing copy written by the probe itself.
const (
	msgDisabled     = "Extension is temporarily off."
	msgNotEcommerce = "This site is not a supported e-commerce domain."
)

// Page is one page the probe observes.
type Page struct {
	URL  string
	HTML string
}

// Probe coordinates the page side of a cycle. All fields except Tabs are
// required.
type Probe struct {
	Store       store.Store
	Eligibility Strategy
	Bus         dispatch.Bus
	Indicator   *Indicator
	// Tabs, when set, gets the indicator registered as the active toast
	// receiver for the page being probed.
	Tabs *tabs.Registry
}

// Run executes one probe pass over a page and returns the cycle ID when a
// cycle was dispatched. Ineligible and disabled pages produce a terminal
// status write instead of a cycle.
func (p *Probe) Run(ctx context.Context, page Page) (string, error) {
	if p.Tabs != nil && p.Indicator != nil {
		p.Tabs.SetActive(p.Indicator)
	}

	if !p.Eligibility.Eligible(page.URL) {
		metrics.IncCycleSkipped()
		telemetry.Info("probe.skipped_ineligible", map[string]any{"url": page.URL})
		err := p.Store.Set(ctx, record.Patch{
			record.KeyAnalysisStatus: record.StatusNotEcommerce,
			record.KeyErrorMessage:   msgNotEcommerce,
		})
		return "", err
	}

	enabled, err := p.extensionEnabled(ctx)
	if err != nil {
		return "", fmt.Errorf("read extensionEnabled: %w", err)
	}
	if !enabled {
		metrics.IncCycleSkipped()
		p.showToast(tabs.Toast{Status: tabs.ToastOff, Message: msgDisabled})
		err := p.Store.Set(ctx, record.Patch{
			record.KeyAnalysisStatus: record.StatusDisabled,
			record.KeyErrorMessage:   msgDisabled,
		})
		return "", err
	}

	if err := p.Store.Set(ctx, record.LoadingReset()); err != nil {
		return "", fmt.Errorf("reset record: %w", err)
	}
	p.showToast(tabs.Toast{Status: tabs.ToastLoading, Message: "Analyzing product sustainability..."})

	cycleID := uuid.NewString()
	msg := dispatch.NewMessage(dispatch.ActionAnalyzePageContent, cycleID, page.URL, page.HTML)
	if err := p.Bus.Send(ctx, msg); err != nil {
		// The cycle dies here; record it so the panel does not spin forever.
		metrics.IncCycleFailed()
		telemetry.Error("probe.dispatch_failed", map[string]any{
			"cycle_id": cycleID,
			"url":      page.URL,
			"error":    err.Error(),
		})
		writeErr := p.Store.Set(ctx, record.Patch{
			record.KeyAnalysisStatus: record.StatusError,
			record.KeyHasMainProduct: false,
			record.KeyErrorMessage:   "Failed to dispatch analysis request: " + err.Error(),
		})
		if writeErr != nil {
			return "", writeErr
		}
		return "", err
	}

	metrics.IncCycleStarted()
	telemetry.Info("probe.cycle_started", map[string]any{
		"cycle_id": cycleID,
		"url":      page.URL,
	})
	return cycleID, nil
}

func (p *Probe) extensionEnabled(ctx context.Context) (bool, error) {
	values, err := p.Store.Get(ctx, record.KeyExtensionEnabled)
	if err != nil {
		return false, err
	}
	rec, err := record.FromMap(values)
	if err != nil {
		return false, err
	}
	return rec.Enabled(), nil
}

func (p *Probe) showToast(t tabs.Toast) {
	if p.Indicator == nil {
		return
	}
	p.Indicator.UpdateToast(t)
}
