// Package llm talks to chat-completion endpoints and classifies their failures.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/pdfqa/internal/credentials"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Response is the model's reply.
type Response struct {
	Text     string
	Model    string
	Duration time.Duration
}

// Completer sends one request and returns one reply. Implementations return
// one of the typed errors in this package on failure.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Options configures an HTTP client for a provider.
type Options struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

const (
	defaultMaxTokens = 1024
	defaultTimeout   = 120 * time.Second
	maxResponseBytes = 1 << 20
)

func (o Options) withDefaults(baseURL string) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// New returns the client for provider: "openai" (any OpenAI-compatible
// endpoint) or "anthropic".
func New(provider string, opts Options, creds credentials.Provider) (Completer, error) {
	switch strings.ToLower(provider) {
	case "", "openai":
		return NewOpenAIClient(opts, creds), nil
	case "anthropic", "claude":
		return NewAnthropicClient(opts, creds), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
