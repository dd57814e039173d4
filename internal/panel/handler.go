package panel

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ecosense-relay/internal/shared/server/respond"
	"ecosense-relay/internal/store"
)

// Handler exposes the panel surface: derived state, the enable toggle, the
// raw record, and a change feed.
type Handler struct {
	Svc   *Service
	Store store.Store
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, st store.Store) *Handler {
	return &Handler{Svc: svc, Store: st}
}

// RegisterRoutes attaches panel routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/panel/state", h.getState)
	rg.PUT("/panel/enabled", h.putEnabled)
	rg.GET("/panel/events", h.streamEvents)
	rg.GET("/store", h.getStore)
}

func (h *Handler) getState(c *gin.Context) {
	view, err := h.Svc.State(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to derive panel state", nil)
		return
	}
	c.Set("viewState", string(view.State))
	respond.JSON(c, http.StatusOK, view)
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) putEnabled(c *gin.Context) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "enabled flag is required", nil)
		return
	}
	if err := h.Svc.SetEnabled(c.Request.Context(), *req.Enabled); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update extension state", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"extensionEnabled": *req.Enabled})
}

func (h *Handler) getStore(c *gin.Context) {
	var keys []string
	for _, raw := range c.QueryArray("keys") {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	values, err := h.Store.Get(c.Request.Context(), keys...)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read record", nil)
		return
	}
	respond.JSON(c, http.StatusOK, values)
}

// streamEvents pushes a server-sent event for every record change so the
// panel re-derives without polling. Each event carries the changed keys and
// the freshly derived view; a "state" event with the current view opens the
// stream.
func (h *Handler) streamEvents(c *gin.Context) {
	changes := make(chan []string, 16)
	unsubscribe := h.Store.Subscribe(func(changed []string) {
		select {
		case changes <- changed:
		default:
			// Slow consumer; it re-derives from the next event anyway.
		}
	})
	defer unsubscribe()

	view, err := h.Svc.State(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to derive panel state", nil)
		return
	}

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.SSEvent("state", view)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case changed := <-changes:
			view, err := h.Svc.State(ctx)
			if err != nil {
				return false
			}
			c.SSEvent("change", gin.H{
				"changedKeys": changed,
				"view":        view,
			})
			return true
		}
	})
}
