package panel

import (
	"context"
	"fmt"

	"ecosense-relay/internal/record"
	"ecosense-relay/internal/shared/metrics"
	"ecosense-relay/internal/shared/telemetry"
	"ecosense-relay/internal/store"
	"ecosense-relay/internal/tabs"
)

const msgDisabled = "Extension is temporarily off."

// Trigger starts a fresh analysis cycle on the current page.
type Trigger interface {
	RequestRun(ctx context.Context) error
}

// ToastPusher delivers a toast to the active page.
type ToastPusher interface {
	PushToast(ctx context.Context, t tabs.Toast) error
}

// Service backs the panel endpoints: derived state reads and the enable
// toggle. Notifier and Trigger are optional.
type Service struct {
	Store    store.Store
	Notifier ToastPusher
	Trigger  Trigger
}

// State derives the current panel view from the shared record.
func (s *Service) State(ctx context.Context) (View, error) {
	rec, err := store.Snapshot(ctx, s.Store)
	if err != nil {
		return View{}, fmt.Errorf("read record: %w", err)
	}
	return Derive(rec), nil
}

// SetEnabled flips the extension on or off. Disabling writes a terminal
// disabled status and tells the page immediately; enabling triggers exactly
// one fresh cycle on the current page.
func (s *Service) SetEnabled(ctx context.Context, enabled bool) error {
	if enabled {
		if err := s.Store.Set(ctx, record.Patch{record.KeyExtensionEnabled: true}); err != nil {
			return fmt.Errorf("write extensionEnabled: %w", err)
		}
		if s.Trigger == nil {
			return nil
		}
		if err := s.Trigger.RequestRun(ctx); err != nil {
			// There may simply be no page open yet; the next page visit
			// starts a cycle anyway.
			telemetry.Warn("panel.rerun_failed", map[string]any{"error": err.Error()})
		}
		return nil
	}

	err := s.Store.Set(ctx, record.Patch{
		record.KeyExtensionEnabled: false,
		record.KeyAnalysisStatus:   record.StatusDisabled,
		record.KeyErrorMessage:     msgDisabled,
	})
	if err != nil {
		return fmt.Errorf("write disabled state: %w", err)
	}

	if s.Notifier != nil {
		toast := tabs.Toast{Status: tabs.ToastOff, Message: msgDisabled}
		if err := s.Notifier.PushToast(ctx, toast); err != nil {
			metrics.IncToastDropped()
			telemetry.Warn("panel.toast_dropped", map[string]any{"error": err.Error()})
		}
	}
	return nil
}
