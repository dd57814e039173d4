package probe

import (
	"context"
	"errors"
	"sync"
)

// ErrNoPage indicates the probe has not observed a page yet.
var ErrNoPage = errors.New("no page observed")

// Rerunner wraps a probe and remembers the last page it ran against so the
// panel can request a fresh cycle on that page, e.g. after re-enabling.
type Rerunner struct {
	Probe *Probe

	mu   sync.Mutex
	last *Page
}

// Run records the page and delegates to the wrapped probe.
func (r *Rerunner) Run(ctx context.Context, page Page) (string, error) {
	r.mu.Lock()
	copied := page
	r.last = &copied
	r.mu.Unlock()
	return r.Probe.Run(ctx, page)
}

// RequestRun starts one new cycle on the last observed page.
func (r *Rerunner) RequestRun(ctx context.Context) error {
	r.mu.Lock()
	last := r.last
	r.mu.Unlock()
	if last == nil {
		return ErrNoPage
	}
	_, err := r.Probe.Run(ctx, *last)
	return err
}
