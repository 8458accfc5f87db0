package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfqa/internal/answer"
	"github.com/dgallion1/pdfqa/internal/config"
	"github.com/dgallion1/pdfqa/internal/document"
	"github.com/dgallion1/pdfqa/internal/export"
	"github.com/dgallion1/pdfqa/internal/llm"
	"github.com/dgallion1/pdfqa/internal/pdftext"
	"github.com/dgallion1/pdfqa/internal/pipeline"
	"github.com/dgallion1/pdfqa/internal/questions"
	"github.com/dgallion1/pdfqa/internal/store"
)

type runFlags struct {
	out         string
	format      string
	strategy    string
	concurrency int
	force       bool
	noCache     bool
	text        bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <file.pdf>",
		Short: "Answer every question against a PDF and export the results",
		Long: `Extracts the text of the PDF, asks each question of the bank in order and
writes question_id,question_text,answer_text rows. Press Ctrl-C once to stop
after the questions in flight and export what was answered; press it again to
abort immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := g.setup(cmd)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runQuestionnaire(cmd, cfg, log, f, args[0])
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "", "output file (default <input>-answers.<format>)")
	fl.StringVarP(&f.format, "format", "f", "", "csv or xlsx (default from --out, else csv)")
	fl.StringVar(&f.strategy, "strategy", "", "context strategy: auto, whole, ranked or sequential")
	fl.IntVarP(&f.concurrency, "concurrency", "c", 0, "questions in flight at once")
	fl.BoolVar(&f.force, "force", false, "ignore cached answers")
	fl.BoolVar(&f.noCache, "no-cache", false, "do not read or write the answer cache")
	fl.BoolVar(&f.text, "text", false, "input is plain text, not a PDF")
	return cmd
}

func runQuestionnaire(cmd *cobra.Command, cfg config.Config, log *slog.Logger, f runFlags, input string) error {
	format, out, err := outputTarget(input, f.out, f.format)
	if err != nil {
		return err
	}
	if f.strategy != "" {
		cfg.ContextStrategy = f.strategy
	}
	if f.concurrency > 0 {
		cfg.Concurrency = f.concurrency
	}
	if _, err := answer.ParseStrategy(cfg.ContextStrategy); err != nil {
		return err
	}

	bank, err := questions.Load(cfg.QuestionsFile)
	if err != nil {
		return err
	}

	var st *store.Store
	if !f.noCache {
		st, err = store.Open(cfg.CacheDBPath)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	client, err := llm.New(cfg.LLMProvider, cfg.LLMOptions(), cfg.Credentials())
	if err != nil {
		return err
	}
	if c, ok := client.(interface{ Close() }); ok {
		defer c.Close()
	}

	engine := answer.NewEngine(client, cfg.AnswerConfig(), nil, log)
	runner := pipeline.NewRunner(engine, bank, st, cfg.PipelineConfig(), log)

	run := pipeline.NewRun(filepath.Base(input))
	run.Force = f.force
	run.Manual = f.text

	stderr := cmd.ErrOrStderr()
	runner.OnProgress = func(current, total int, a answer.Answer) {
		mark := string(a.Status)
		if a.Cached {
			mark += " (cached)"
		}
		printf(stderr, "[%d/%d] %s %s\n", current, total, a.QuestionID, mark)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stopOnSignal(ctx, cancel, run, log)

	doc, err := loadDocument(ctx, cfg, log, input, f.text)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, run, doc); err != nil {
		return err
	}

	if err := writeExport(out, format, run.Answers()); err != nil {
		return err
	}
	if err := run.MarkExported(); err != nil {
		return err
	}

	snap := run.Snapshot()
	p := snap.Progress
	printf(cmd.OutOrStdout(), "%s: %d/%d questions (%d answered, %d no answer, %d failed, %d cached) -> %s\n",
		snap.Status, p.Current, p.Total, p.Answered, p.NoAnswer, p.Failed, p.Cached, out)
	return nil
}

// stopOnSignal maps the first SIGINT to a graceful stop and a second SIGINT
// or a SIGTERM to cancellation.
func stopOnSignal(ctx context.Context, cancel context.CancelFunc, run *pipeline.Run, log *slog.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				if sig == os.Interrupt && !run.StopRequested() {
					log.Warn("stopping after questions in flight; interrupt again to abort")
					run.RequestStop()
					continue
				}
				log.Warn("aborting", "signal", sig.String())
				cancel()
				return
			}
		}
	}()
}

func loadDocument(ctx context.Context, cfg config.Config, log *slog.Logger, path string, text bool) (*document.Document, error) {
	if !text {
		return pdftext.NewExtractor(cfg.ExtractorOptions(), log).ExtractFile(ctx, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pdftext.ParseText(f, filepath.Base(path))
}

// outputTarget resolves the export format and path from the flags. An
// explicit --format wins; otherwise the --out extension decides.
func outputTarget(input, out, format string) (export.Format, string, error) {
	if format == "" && out != "" {
		format = strings.TrimPrefix(filepath.Ext(out), ".")
		if format != string(export.FormatXLSX) {
			format = string(export.FormatCSV)
		}
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return "", "", err
	}
	if out == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		out = base + "-answers." + string(f)
	}
	return f, out, nil
}

func writeExport(path string, format export.Format, answers []answer.Answer) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := export.Write(file, format, answers); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
