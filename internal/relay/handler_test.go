package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"ecosense-relay/internal/dispatch"
)

type stubBus struct {
	mu   sync.Mutex
	sent []dispatch.Message
	err  error
}

func (b *stubBus) Send(ctx context.Context, msg dispatch.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, msg)
	return nil
}

func setupMessageRouter(bus *stubBus) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(bus).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postMessage(t *testing.T, router *gin.Engine, payload map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPostMessageDispatchesAnalysis(t *testing.T) {
	bus := &stubBus{}
	router := setupMessageRouter(bus)

	resp := postMessage(t, router, map[string]string{
		"action":      "analyzePageContent",
		"productUrl":  "https://amazon.com/dp/B01",
		"htmlContent": "<html><body>product</body></html>",
	})

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var accepted struct {
		CycleID string `json:"cycleId"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if accepted.CycleID == "" {
		t.Fatal("expected a generated cycleId")
	}
	if len(bus.sent) != 1 {
		t.Fatalf("bus deliveries = %d, want 1", len(bus.sent))
	}
	if bus.sent[0].CycleID != accepted.CycleID {
		t.Errorf("dispatched cycleId %q != response cycleId %q", bus.sent[0].CycleID, accepted.CycleID)
	}
	if bus.sent[0].Version != 1 {
		t.Errorf("message version = %d, want 1", bus.sent[0].Version)
	}
}

func TestPostMessageKeepsCallerCycleID(t *testing.T) {
	bus := &stubBus{}
	router := setupMessageRouter(bus)

	resp := postMessage(t, router, map[string]string{
		"action":      "analyzePageContent",
		"cycleId":     "caller-cycle",
		"productUrl":  "https://amazon.com/dp/B01",
		"htmlContent": "<html></html>",
	})

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", resp.Code)
	}
	if len(bus.sent) != 1 || bus.sent[0].CycleID != "caller-cycle" {
		t.Fatalf("sent = %+v, want caller-cycle preserved", bus.sent)
	}
}

func TestPostMessageValidation(t *testing.T) {
	cases := []struct {
		name     string
		payload  map[string]string
		wantCode int
	}{
		{
			name:     "missing action",
			payload:  map[string]string{"productUrl": "https://amazon.com/", "htmlContent": "<html></html>"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown action",
			payload:  map[string]string{"action": "selfDestruct"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing url",
			payload:  map[string]string{"action": "analyzePageContent", "htmlContent": "<html></html>"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing html",
			payload:  map[string]string{"action": "analyzePageContent", "productUrl": "https://amazon.com/"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "superseded page type check",
			payload:  map[string]string{"action": "checkPageType", "productUrl": "https://amazon.com/"},
			wantCode: http.StatusGone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &stubBus{}
			router := setupMessageRouter(bus)
			resp := postMessage(t, router, tc.payload)
			if resp.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", resp.Code, tc.wantCode, resp.Body.String())
			}
			if len(bus.sent) != 0 {
				t.Fatalf("rejected message must not be dispatched, got %+v", bus.sent)
			}
		})
	}
}

func TestPostMessageDispatchFailure(t *testing.T) {
	bus := &stubBus{err: errors.New("queue unavailable")}
	router := setupMessageRouter(bus)

	resp := postMessage(t, router, map[string]string{
		"action":      "analyzePageContent",
		"productUrl":  "https://amazon.com/dp/B01",
		"htmlContent": "<html></html>",
	})

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.Code)
	}
}
