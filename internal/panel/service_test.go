package panel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ecosense-relay/internal/record"
	"ecosense-relay/internal/store"
	"ecosense-relay/internal/tabs"
)

type pushRecorder struct {
	mu     sync.Mutex
	toasts []tabs.Toast
	err    error
}

func (p *pushRecorder) PushToast(ctx context.Context, t tabs.Toast) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.toasts = append(p.toasts, t)
	return nil
}

type triggerRecorder struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (t *triggerRecorder) RequestRun(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs++
	return t.err
}

func TestSetEnabledFalseWritesDisabledState(t *testing.T) {
	mem := store.NewMemoryStore()
	pusher := &pushRecorder{}
	trigger := &triggerRecorder{}
	svc := &Service{Store: mem, Notifier: pusher, Trigger: trigger}

	if err := svc.SetEnabled(context.Background(), false); err != nil {
		t.Fatalf("SetEnabled(false): %v", err)
	}

	rec, err := store.Snapshot(context.Background(), mem)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if rec.Enabled() {
		t.Error("extensionEnabled still true")
	}
	if rec.AnalysisStatus != record.StatusDisabled {
		t.Errorf("status = %q, want disabled", rec.AnalysisStatus)
	}
	if len(pusher.toasts) != 1 || pusher.toasts[0].Status != tabs.ToastOff {
		t.Fatalf("toasts = %+v, want one off toast", pusher.toasts)
	}
	if trigger.runs != 0 {
		t.Errorf("disable must not trigger a cycle, got %d runs", trigger.runs)
	}

	view, err := svc.State(context.Background())
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if view.State != StateDisabled {
		t.Errorf("view state = %q, want disabled", view.State)
	}
}

func TestSetEnabledTrueTriggersExactlyOneCycle(t *testing.T) {
	mem := store.NewMemoryStore()
	if err := mem.Set(context.Background(), record.Patch{record.KeyExtensionEnabled: false}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	trigger := &triggerRecorder{}
	svc := &Service{Store: mem, Trigger: trigger}

	if err := svc.SetEnabled(context.Background(), true); err != nil {
		t.Fatalf("SetEnabled(true): %v", err)
	}

	rec, err := store.Snapshot(context.Background(), mem)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !rec.Enabled() {
		t.Error("extensionEnabled still false")
	}
	if trigger.runs != 1 {
		t.Fatalf("trigger runs = %d, want exactly 1", trigger.runs)
	}
}

func TestSetEnabledTrueSurvivesTriggerFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	trigger := &triggerRecorder{err: errors.New("no page observed")}
	svc := &Service{Store: mem, Trigger: trigger}

	if err := svc.SetEnabled(context.Background(), true); err != nil {
		t.Fatalf("SetEnabled(true) must not fail when no page is open: %v", err)
	}
	rec, err := store.Snapshot(context.Background(), mem)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !rec.Enabled() {
		t.Error("flag write must land regardless of the rerun outcome")
	}
}

func TestSetEnabledFalseSwallowsToastFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := &Service{Store: mem, Notifier: &pushRecorder{err: tabs.ErrNoActiveTab}}

	if err := svc.SetEnabled(context.Background(), false); err != nil {
		t.Fatalf("SetEnabled(false): %v", err)
	}
	rec, err := store.Snapshot(context.Background(), mem)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if rec.AnalysisStatus != record.StatusDisabled {
		t.Errorf("status = %q, want disabled even when the toast drops", rec.AnalysisStatus)
	}
}
