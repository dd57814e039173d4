// Package workerproc validates and processes queued analysis messages on
// behalf of the worker binary.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"ecosense-relay/internal/dispatch"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrUnsupportedAction indicates a message whose action has no handler.
type ErrUnsupportedAction struct {
	Meta    MessageMeta
	Action  string
	CycleID string
}

func (e ErrUnsupportedAction) Error() string { return "unsupported action: " + e.Action }

// ErrMissingProductURL indicates an analysis message without a page URL.
type ErrMissingProductURL struct {
	Meta    MessageMeta
	CycleID string
}

func (e ErrMissingProductURL) Error() string { return "missing product url" }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (dispatch.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return dispatch.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := dispatch.DecodeMessage([]byte(body))
	if err != nil {
		return dispatch.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Action != dispatch.ActionAnalyzePageContent {
		return msg, meta, ErrUnsupportedAction{Meta: meta, Action: msg.Action, CycleID: msg.CycleID}
	}
	if strings.TrimSpace(msg.ProductURL) == "" {
		return msg, meta, ErrMissingProductURL{Meta: meta, CycleID: msg.CycleID}
	}
	return msg, meta, nil
}

// Processor runs one analysis cycle end to end.
type Processor interface {
	HandleAnalysisRequest(ctx context.Context, cycleID, pageURL, htmlContent string)
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, processor Processor, body string) error {
	if processor == nil {
		return errors.New("relay service not configured")
	}

	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}

	processor.HandleAnalysisRequest(ctx, msg.CycleID, msg.ProductURL, msg.HTMLContent)
	return nil
}
