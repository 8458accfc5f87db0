// Command pdfqa answers a fixed questionnaire against the text of a PDF and
// writes the answers as CSV or XLSX.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfqa/internal/config"
)

type globalFlags struct {
	verbose       bool
	envFile       string
	questionsFile string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:          "pdfqa",
		Short:        "Answer a questionnaire from the text of a PDF",
		SilenceUsage: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.StringVar(&g.envFile, "env-file", "", "env file with local settings (default .env)")
	pf.StringVarP(&g.questionsFile, "questions", "q", "", "markdown question bank (default: built-in questionnaire)")

	rootCmd.AddCommand(
		newRunCmd(&g),
		newExtractCmd(&g),
		newQuestionsCmd(&g),
		newDocumentsCmd(&g),
	)
	return rootCmd
}

// setup loads settings and builds the stderr logger shared by all commands.
func (g *globalFlags) setup(cmd *cobra.Command) (config.Config, *slog.Logger) {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if g.envFile != "" {
		os.Setenv("PDFQA_ENV_FILE", g.envFile)
	}
	if err := config.LoadDotenv(); err != nil {
		log.Warn("ignoring env file", "error", err)
	}
	cfg := config.Load()
	if g.questionsFile != "" {
		cfg.QuestionsFile = g.questionsFile
	}
	return cfg, log
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
