// Package dispatch is the command channel between the page probe and the
// relay: fire-and-forget messages, with results delivered out of band
// through the shared result store.
package dispatch

import (
	"encoding/json"
	"time"
)

// Message actions.
const (
	// ActionAnalyzePageContent requests a combined page analysis.
	ActionAnalyzePageContent = "analyzePageContent"
	// ActionCheckPageType is the superseded two-call flow. It is recognized
	// at the message surface and rejected with guidance.
	ActionCheckPageType = "checkPageType"
)

// Message is the payload dispatched from a probe to the relay.
type Message struct {
	Action      string `json:"action"`
	CycleID     string `json:"cycleId"`
	ProductURL  string `json:"productUrl"`
	HTMLContent string `json:"htmlContent,omitempty"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// NewMessage builds a versioned message stamped with the enqueue time.
func NewMessage(action, cycleID, productURL, htmlContent string) Message {
	return Message{
		Action:      action,
		CycleID:     cycleID,
		ProductURL:  productURL,
		HTMLContent: htmlContent,
		EnqueuedAt:  time.Now().UTC().Format(time.RFC3339),
		Version:     1,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
