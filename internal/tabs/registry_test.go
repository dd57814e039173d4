package tabs

import (
	"context"
	"errors"
	"testing"
)

type captureReceiver struct {
	toasts []Toast
}

func (c *captureReceiver) UpdateToast(t Toast) {
	c.toasts = append(c.toasts, t)
}

func TestPushToastNoActiveTab(t *testing.T) {
	r := NewRegistry()
	err := r.PushToast(context.Background(), Toast{Status: ToastError, Message: "x"})
	if !errors.Is(err, ErrNoActiveTab) {
		t.Fatalf("expected ErrNoActiveTab, got %v", err)
	}
}

func TestPushToastDeliversToActive(t *testing.T) {
	r := NewRegistry()
	recv := &captureReceiver{}
	r.SetActive(recv)

	if err := r.PushToast(context.Background(), Toast{Status: ToastSuccess, Message: "Score 8/10"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(recv.toasts) != 1 || recv.toasts[0].Status != ToastSuccess {
		t.Fatalf("expected delivered toast, got %+v", recv.toasts)
	}
}

func TestClearActiveDropsReceiver(t *testing.T) {
	r := NewRegistry()
	recv := &captureReceiver{}
	r.SetActive(recv)
	r.ClearActive()

	if err := r.PushToast(context.Background(), Toast{Status: ToastInfo}); !errors.Is(err, ErrNoActiveTab) {
		t.Fatalf("expected ErrNoActiveTab after clear, got %v", err)
	}
}

func TestLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	first := &captureReceiver{}
	second := &captureReceiver{}
	r.SetActive(first)
	r.SetActive(second)

	if err := r.PushToast(context.Background(), Toast{Status: ToastInfo}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(first.toasts) != 0 || len(second.toasts) != 1 {
		t.Fatalf("expected delivery to latest receiver")
	}
}
