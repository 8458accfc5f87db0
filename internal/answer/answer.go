// Package answer asks the model one question at a time against document chunks
// and turns every outcome into an Answer.
package answer

import (
	"fmt"
	"strings"
	"time"
)

// Status is the outcome of one question.
type Status string

const (
	StatusAnswered Status = "answered"
	StatusNoAnswer Status = "no_answer"
	StatusFailed   Status = "failed"
)

// Export cell values for questions without an answer.
const (
	NoAnswerText = "no answer found"
	FailedText   = "failed"
)

// Answer is the recorded result for one question in one run.
type Answer struct {
	QuestionID   string    `json:"question_id"`
	QuestionText string    `json:"question_text"`
	Text         string    `json:"text,omitempty"`
	Status       Status    `json:"status"`
	SourceChunks []int     `json:"source_chunks,omitempty"`
	PageStart    int       `json:"page_start,omitempty"`
	PageEnd      int       `json:"page_end,omitempty"`
	Attempts     int       `json:"attempts"`
	Error        string    `json:"error,omitempty"`
	Cached       bool      `json:"cached,omitempty"`
	AnsweredAt   time.Time `json:"answered_at"`
}

// CellText is the value written to the answer column of an export.
func (a Answer) CellText() string {
	switch a.Status {
	case StatusAnswered:
		return a.Text
	case StatusFailed:
		return FailedText
	default:
		return NoAnswerText
	}
}

// Pages renders the page span, e.g. "3" or "3-5". Empty when unknown.
func (a Answer) Pages() string {
	switch {
	case a.PageStart == 0:
		return ""
	case a.PageEnd <= a.PageStart:
		return fmt.Sprint(a.PageStart)
	default:
		return fmt.Sprintf("%d-%d", a.PageStart, a.PageEnd)
	}
}

// Strategy selects which chunks go into a request.
type Strategy string

const (
	// StrategyAuto sends the whole document when it fits the context budget
	// and falls back to StrategyRanked otherwise.
	StrategyAuto Strategy = "auto"
	// StrategyWhole sends every chunk in one request.
	StrategyWhole Strategy = "whole"
	// StrategyRanked sends the chunks sharing the most terms with the question.
	StrategyRanked Strategy = "ranked"
	// StrategySequential asks chunk by chunk until one yields an answer.
	StrategySequential Strategy = "sequential"
)

// ParseStrategy accepts a strategy name; empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyAuto, nil
	case StrategyAuto, StrategyWhole, StrategyRanked, StrategySequential:
		return st, nil
	default:
		return "", fmt.Errorf("unknown context strategy %q", s)
	}
}

// Config controls context selection and retries.
type Config struct {
	Strategy         Strategy
	ContextTokens    int // token budget for document excerpts in one request
	MaxTokens        int // reply token limit
	MaxRetries       int // retries after a network failure
	RetryDelay       time.Duration
	MaxRetryDelay    time.Duration
	RateLimitRetries int
	RateLimitDelay   time.Duration // used when a 429 carries no Retry-After
	MaxAnswerRunes   int
}

// MaxRetries is the default number of retries after a network failure.
const MaxRetries = 3

func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyAuto,
		ContextTokens:    24000,
		MaxTokens:        512,
		MaxRetries:       MaxRetries,
		RetryDelay:       time.Second,
		MaxRetryDelay:    30 * time.Second,
		RateLimitRetries: 5,
		RateLimitDelay:   20 * time.Second,
		MaxAnswerRunes:   2000,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Strategy == "" {
		c.Strategy = def.Strategy
	}
	if c.ContextTokens <= 0 {
		c.ContextTokens = def.ContextTokens
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = def.MaxTokens
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.MaxRetryDelay < c.RetryDelay {
		c.MaxRetryDelay = c.RetryDelay
	}
	if c.RateLimitRetries < 0 {
		c.RateLimitRetries = 0
	}
	if c.RateLimitDelay <= 0 {
		c.RateLimitDelay = def.RateLimitDelay
	}
	if c.MaxAnswerRunes <= 0 {
		c.MaxAnswerRunes = def.MaxAnswerRunes
	}
	return c
}
