package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/pdfqa/internal/document"
	"github.com/dgallion1/pdfqa/internal/pdftext"
)

// Worker processes a single uploaded run: extract, then answer.
type Worker struct {
	extractor *pdftext.Extractor
	runner    *Runner
	log       *slog.Logger
}

func NewWorker(extractor *pdftext.Extractor, runner *Runner, log *slog.Logger) *Worker {
	return &Worker{
		extractor: extractor,
		runner:    runner,
		log:       log,
	}
}

// Process runs the full pipeline for run.
func (w *Worker) Process(ctx context.Context, run *Run) {
	log := w.log.With("run_id", run.ID, "filename", run.Filename)

	// Phase 1: Extract
	data := run.takeFileData()
	var (
		doc *document.Document
		err error
	)
	if run.Manual {
		doc, err = pdftext.ParseText(bytes.NewReader(data), run.Filename)
	} else {
		doc, err = w.extractor.Extract(ctx, bytes.NewReader(data), run.Filename)
	}
	if err != nil {
		log.Error("extraction failed", "error", err)
		run.fail("extracting", err)
		return
	}
	log.Info("extracted document", "method", doc.Method, "pages", doc.PageCount(), "chars", len(doc.Text))

	// Phase 2: Answer
	if err := w.runner.Run(ctx, run, doc); err != nil {
		log.Error("run failed", "error", err)
	}
}

// ProcessFile extracts the PDF at path and runs the bank against it.
func (w *Worker) ProcessFile(ctx context.Context, run *Run, path string) error {
	doc, err := w.extractor.ExtractFile(ctx, path)
	if err != nil {
		run.fail("extracting", err)
		return fmt.Errorf("extract %s: %w", path, err)
	}
	return w.runner.Run(ctx, run, doc)
}
