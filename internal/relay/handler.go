package relay

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ecosense-relay/internal/dispatch"
	"ecosense-relay/internal/shared/server/respond"
)

// Handler exposes the message ingress over HTTP. Accepted messages are
// forwarded to the dispatch bus; analysis outcomes are never returned in the
// response, callers observe them through the result store.
type Handler struct {
	Bus dispatch.Bus
}

// NewHandler constructs a Handler.
func NewHandler(bus dispatch.Bus) *Handler {
	return &Handler{Bus: bus}
}

// RegisterRoutes attaches message routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/messages", h.postMessage)
}

type messageRequest struct {
	Action      string `json:"action"`
	CycleID     string `json:"cycleId"`
	ProductURL  string `json:"productUrl"`
	HTMLContent string `json:"htmlContent"`
}

func (h *Handler) postMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid message body", nil)
		return
	}
	c.Set("messageAction", req.Action)

	switch req.Action {
	case dispatch.ActionAnalyzePageContent:
		// proceed below
	case dispatch.ActionCheckPageType:
		// Eligibility is decided by the probe before dispatch; this action
		// no longer has a handler on the relay side.
		respond.Error(c, http.StatusGone, "superseded_action", "page type checks are performed by the probe", nil)
		return
	case "":
		respond.Error(c, http.StatusBadRequest, "validation_error", "action is required", nil)
		return
	default:
		respond.Error(c, http.StatusBadRequest, "unknown_action", "unsupported message action", nil)
		return
	}

	if req.ProductURL == "" || req.HTMLContent == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "productUrl and htmlContent are required", nil)
		return
	}

	if req.CycleID == "" {
		req.CycleID = uuid.NewString()
	}
	c.Set("cycleId", req.CycleID)

	msg := dispatch.NewMessage(req.Action, req.CycleID, req.ProductURL, req.HTMLContent)
	if err := h.Bus.Send(c.Request.Context(), msg); err != nil {
		respond.Error(c, http.StatusServiceUnavailable, "dispatch_failed", "failed to dispatch analysis request", nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"cycleId": msg.CycleID,
		"status":  "accepted",
	})
}
