package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/pdfqa/internal/answer"
	"github.com/dgallion1/pdfqa/internal/chunker"
	"github.com/dgallion1/pdfqa/internal/document"
	"github.com/dgallion1/pdfqa/internal/questions"
	"github.com/dgallion1/pdfqa/internal/store"
)

// ProgressFunc is called after each question is recorded.
type ProgressFunc func(current, total int, a answer.Answer)

// Config controls how a run is executed.
type Config struct {
	Chunk       chunker.Config
	Concurrency int    // questions in flight at once; 1 runs them in order
	CacheKey    string // identifies the model setup in the answer cache
}

// Runner answers the question bank for one document at a time.
type Runner struct {
	engine *answer.Engine
	bank   *questions.Bank
	store  *store.Store
	cfg    Config
	log    *slog.Logger

	// OnProgress, when set, is called after every recorded answer.
	OnProgress ProgressFunc
}

// NewRunner creates a runner. st may be nil to disable the answer cache.
func NewRunner(engine *answer.Engine, bank *questions.Bank, st *store.Store, cfg Config, log *slog.Logger) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Runner{
		engine: engine,
		bank:   bank,
		store:  st,
		cfg:    cfg,
		log:    log,
	}
}

// Bank returns the question bank.
func (r *Runner) Bank() *questions.Bank {
	return r.bank
}

var errNoText = errors.New("document has no text")

// Run answers every question of the bank against doc in bank order, updating
// run as it goes. It returns an error only when no question could be issued.
func (r *Runner) Run(ctx context.Context, run *Run, doc *document.Document) error {
	log := r.log.With("run_id", run.ID, "filename", run.Filename)

	chunks := chunker.ChunkDocument(doc, r.cfg.Chunk)
	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		run.fail("chunking", errNoText)
		return errNoText
	}

	docID := ""
	if r.store != nil {
		rec, err := r.store.SaveDocument(ctx, doc, len(chunks))
		if err != nil {
			log.Warn("record document failed", "error", err)
		} else {
			docID = rec.ID
		}
	}
	run.setDocument(docID, doc.Title, doc.ContentHash, doc.Method, doc.PageCount(), len(chunks))
	log = log.With("doc_id", docID)

	engine := r.engine
	if run.Strategy != "" && run.Strategy != engine.Config().Strategy {
		engine = r.engine.WithStrategy(run.Strategy)
	}

	qs := r.bank.Questions()
	run.begin(len(qs))
	log.Info("run started", "questions", len(qs), "chunks", len(chunks), "tokens", chunker.EstimateChunkTokens(chunks), "concurrency", r.cfg.Concurrency)

	var progressMu sync.Mutex
	ask := func(q questions.Question) {
		a := r.answerOne(ctx, engine, run, doc, chunks, q)
		progressMu.Lock()
		defer progressMu.Unlock()
		cur := run.record(q.Position, a)
		log.Info("question done", "question_id", q.ID, "status", a.Status, "cached", a.Cached, "current", cur, "total", len(qs))
		if r.OnProgress != nil {
			r.OnProgress(cur, len(qs), a)
		}
	}

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for _, q := range qs {
		if run.StopRequested() || ctx.Err() != nil {
			break
		}
		if r.cfg.Concurrency == 1 {
			ask(q)
			continue
		}
		g.Go(func() error {
			ask(q)
			return nil
		})
	}
	_ = g.Wait()

	snap := run.Snapshot()
	switch {
	case run.StopRequested():
		run.setStatus(StatusStopped, "stopped")
	case ctx.Err() != nil:
		run.AddError("canceled: " + ctx.Err().Error())
		run.setStatus(StatusStopped, "canceled")
	default:
		run.setStatus(StatusCompleted, "done")
	}
	log.Info("run finished", "status", run.Status(), "answered", snap.Progress.Answered,
		"no_answer", snap.Progress.NoAnswer, "failed", snap.Progress.Failed, "cached", snap.Progress.Cached)
	return nil
}

// answerOne serves q from the cache when possible and otherwise asks the engine.
func (r *Runner) answerOne(ctx context.Context, engine *answer.Engine, run *Run, doc *document.Document, chunks []document.Chunk, q questions.Question) answer.Answer {
	key := r.cacheKey(engine)
	if r.store != nil && !run.Force {
		cached, ok, err := r.store.LookupAnswer(ctx, doc.ContentHash, q.Text, key)
		if err != nil {
			r.log.Warn("answer cache lookup failed", "question_id", q.ID, "error", err)
		} else if ok {
			cached.QuestionID = q.ID
			cached.QuestionText = q.Text
			return cached
		}
	}

	a := engine.AnswerIn(ctx, doc.Title, q, chunks)
	if r.store != nil && ctx.Err() == nil {
		if err := r.store.SaveAnswer(ctx, doc.ContentHash, key, a); err != nil {
			r.log.Warn("answer cache write failed", "question_id", q.ID, "error", err)
		}
	}
	return a
}

func (r *Runner) cacheKey(engine *answer.Engine) string {
	return r.cfg.CacheKey + "|" + string(engine.Config().Strategy)
}
