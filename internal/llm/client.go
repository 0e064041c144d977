// Package llm is the gateway to the hosted completion service, with ordered
// multi-model failover and an optional cross-provider last resort.
package llm

import (
	"context"

	"github.com/gozaobot/gozao/internal/session"
)

// Request carries one completion call. Generation parameters are per-call
// configuration; the gateway holds no persistent parameter state and never
// mutates the caller's message slice.
type Request struct {
	Messages      []session.Message
	Temperature   float32
	MaxTokens     int32
	DisableSafety bool
}

// Prompt builds a single-shot request, used by the curation pipeline.
func Prompt(instruction string, temperature float32) Request {
	return Request{
		Messages:    []session.Message{{Role: session.RoleUser, Content: instruction}},
		Temperature: temperature,
	}
}

// Result is the outcome of a completion call. Failure is a value: when every
// candidate model fails, Err holds the last error and Text is empty. A
// successful call that produced no text (content policy block) has empty Text
// and nil Err; callers substitute their own fallback message for that case.
type Result struct {
	Text    string
	Model   string
	Blocked bool
	Err     error
}

// Completer is what command handlers and the curation pipeline depend on.
type Completer interface {
	Complete(ctx context.Context, req Request) Result
}
