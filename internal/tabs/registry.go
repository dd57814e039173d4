// Package tabs tracks the currently active page so the relay and panel can
// push toast updates to it. Delivery is best-effort: when no page is active
// the push fails with ErrNoActiveTab and callers swallow it.
package tabs

import (
	"context"
	"errors"
	"sync"
)

// Toast statuses understood by the on-page indicator.
const (
	ToastLoading = "loading"
	ToastSuccess = "success"
	ToastInfo    = "info"
	ToastError   = "error"
	ToastOff     = "off"
	ToastHide    = "hide"
)

// Toast is the update-indicator payload.
type Toast struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Receiver consumes toast updates. The page probe's indicator implements it.
type Receiver interface {
	UpdateToast(t Toast)
}

// ErrNoActiveTab indicates the target page is gone (navigated away, closed).
var ErrNoActiveTab = errors.New("no active tab")

// Registry holds at most one active receiver. Last registration wins, which
// matches the single-global-record model: only one page is ever analyzed at
// a time.
type Registry struct {
	mu     sync.Mutex
	active Receiver
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// SetActive registers the receiver for the currently focused page.
func (r *Registry) SetActive(recv Receiver) {
	r.mu.Lock()
	r.active = recv
	r.mu.Unlock()
}

// ClearActive drops the active receiver, e.g. on navigation.
func (r *Registry) ClearActive() {
	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()
}

// PushToast delivers the toast to the active page, if any.
func (r *Registry) PushToast(ctx context.Context, t Toast) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	recv := r.active
	r.mu.Unlock()

	if recv == nil {
		return ErrNoActiveTab
	}
	recv.UpdateToast(t)
	return nil
}
