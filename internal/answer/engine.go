package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/pdfqa/internal/document"
	"github.com/dgallion1/pdfqa/internal/llm"
	"github.com/dgallion1/pdfqa/internal/questions"
)

// Engine answers questions against document chunks through an llm.Completer.
type Engine struct {
	llm   llm.Completer
	cfg   Config
	stats *llm.Stats
	log   *slog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewEngine creates an engine. stats may be nil.
func NewEngine(c llm.Completer, cfg Config, stats *llm.Stats, log *slog.Logger) *Engine {
	return &Engine{
		llm:   c,
		cfg:   cfg.normalize(),
		stats: stats,
		log:   log,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Answer answers q from chunks. It never fails: errors are recorded in the
// returned Answer's Status and Error.
func (e *Engine) Answer(ctx context.Context, q questions.Question, chunks []document.Chunk) Answer {
	return e.AnswerIn(ctx, "", q, chunks)
}

// AnswerIn is Answer with the document title included in the prompt.
func (e *Engine) AnswerIn(ctx context.Context, docTitle string, q questions.Question, chunks []document.Chunk) Answer {
	log := e.log.With("question_id", q.ID)
	ans := Answer{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		Status:       StatusNoAnswer,
	}

	groups := selectContexts(e.cfg, q.Text, chunks)
	if len(groups) == 0 {
		ans.Error = "document has no text"
		return e.finish(ans)
	}

	for _, group := range groups {
		req := llm.Request{
			System:    SystemPrompt,
			Messages:  []llm.Message{{Role: "user", Content: BuildPrompt(docTitle, q, group)}},
			MaxTokens: e.cfg.MaxTokens,
		}
		resp, attempts, err := e.complete(ctx, log, req)
		ans.Attempts += attempts
		if err != nil {
			var malformed *llm.MalformedResponseError
			if errors.As(err, &malformed) {
				log.Warn("malformed reply", "chunks", len(group), "error", err)
				ans.Error = err.Error()
				continue
			}
			log.Error("question failed", "attempts", ans.Attempts, "error", err)
			ans.Status = StatusFailed
			ans.Error = err.Error()
			return e.finish(ans)
		}

		text := Clean(resp.Text, e.cfg.MaxAnswerRunes)
		if IsNoAnswer(text) {
			log.Debug("no answer in context", "chunks", len(group))
			continue
		}
		ans.Status = StatusAnswered
		ans.Text = text
		ans.Error = ""
		ans.SourceChunks, ans.PageStart, ans.PageEnd = sources(group)
		return e.finish(ans)
	}
	return e.finish(ans)
}

func (e *Engine) finish(ans Answer) Answer {
	ans.AnsweredAt = e.now().UTC()
	return ans
}

// complete sends req, retrying network failures with backoff and rate limits
// after the server's hint. It returns the number of calls made.
func (e *Engine) complete(ctx context.Context, log *slog.Logger, req llm.Request) (llm.Response, int, error) {
	var netRetries, rateRetries int
	for attempt := 1; ; attempt++ {
		start := time.Now()
		resp, err := e.llm.Complete(ctx, req)
		if e.stats != nil {
			e.stats.Record(time.Since(start), err)
		}
		if err == nil {
			return resp, attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return llm.Response{}, attempt, ctxErr
		}

		var wait time.Duration
		var rateErr *llm.RateLimitError
		var netErr *llm.NetworkError
		switch {
		case errors.As(err, &rateErr):
			if rateRetries >= e.cfg.RateLimitRetries {
				return llm.Response{}, attempt, fmt.Errorf("gave up after %d attempts: %w", attempt, err)
			}
			wait = rateErr.RetryAfter
			if wait <= 0 {
				wait = e.cfg.RateLimitDelay
			}
			rateRetries++
		case errors.As(err, &netErr):
			if netRetries >= e.cfg.MaxRetries {
				return llm.Response{}, attempt, fmt.Errorf("gave up after %d attempts: %w", attempt, err)
			}
			wait = Backoff(netRetries, e.cfg.RetryDelay, e.cfg.MaxRetryDelay)
			netRetries++
		default:
			return llm.Response{}, attempt, err
		}

		log.Warn("retryable llm error", "attempt", attempt, "wait", wait, "error", err)
		if err := e.sleep(ctx, wait); err != nil {
			return llm.Response{}, attempt, err
		}
	}
}

// sources returns the chunk indices and page span of group.
func sources(group []document.Chunk) (idx []int, pageStart, pageEnd int) {
	for _, c := range group {
		idx = append(idx, c.Index)
		if c.PageStart > 0 && (pageStart == 0 || c.PageStart < pageStart) {
			pageStart = c.PageStart
		}
		if c.PageEnd > pageEnd {
			pageEnd = c.PageEnd
		}
	}
	return idx, pageStart, pageEnd
}

// WithStrategy returns a copy of e that selects context with s.
func (e *Engine) WithStrategy(s Strategy) *Engine {
	cp := *e
	cp.cfg.Strategy = s
	return &cp
}
