package probe

import (
	"sync"
	"time"

	"ecosense-relay/internal/tabs"
)

// DefaultToastTTL is how long a non-loading toast stays visible.
const DefaultToastTTL = 5 * time.Second

// Indicator is the in-page toast: a tiny state machine that is either
// hidden or showing one message. Loading toasts persist until replaced;
// every other severity auto-hides after the TTL. It implements
// tabs.Receiver.
type Indicator struct {
	ttl time.Duration

	mu      sync.Mutex
	visible bool
	status  string
	message string
	timer   *time.Timer
	gen     uint64
}

// NewIndicator constructs a hidden indicator. A non-positive ttl falls back
// to DefaultToastTTL.
func NewIndicator(ttl time.Duration) *Indicator {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	return &Indicator{ttl: ttl}
}

// UpdateToast applies a toast update from the relay or the probe itself.
func (i *Indicator) UpdateToast(t tabs.Toast) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.gen++
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}

	if t.Status == tabs.ToastHide || t.Status == tabs.ToastOff {
		i.visible = t.Status == tabs.ToastOff && t.Message != ""
		i.status = t.Status
		i.message = t.Message
		if !i.visible {
			i.status = ""
			i.message = ""
			return
		}
	} else {
		i.visible = true
		i.status = t.Status
		i.message = t.Message
	}

	if i.status == tabs.ToastLoading {
		return
	}

	gen := i.gen
	i.timer = time.AfterFunc(i.ttl, func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		// A newer toast supersedes this hide.
		if i.gen != gen {
			return
		}
		i.visible = false
		i.status = ""
		i.message = ""
		i.timer = nil
	})
}

// Snapshot returns the current display state.
func (i *Indicator) Snapshot() (visible bool, status, message string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.visible, i.status, i.message
}
