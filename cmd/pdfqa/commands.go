package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfqa/internal/pdftext"
	"github.com/dgallion1/pdfqa/internal/questions"
	"github.com/dgallion1/pdfqa/internal/store"
)

func newExtractCmd(g *globalFlags) *cobra.Command {
	var (
		out      string
		metaOnly bool
	)
	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Print the text extracted from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := g.setup(cmd)
			doc, err := pdftext.NewExtractor(cfg.ExtractorOptions(), log).ExtractFile(cmd.Context(), args[0])
			if err != nil {
				if extErr, ok := pdftext.AsExtractionError(err); ok && extErr.Reason == pdftext.ReasonNoText {
					return fmt.Errorf("%w; paste the text into a file and use `pdfqa run --text`", err)
				}
				return err
			}

			if metaOnly {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"title":        doc.Title,
					"method":       doc.Method,
					"pages":        doc.PageCount(),
					"length":       utf8.RuneCountInString(doc.Text),
					"content_hash": doc.ContentHash,
				})
			}
			if out != "" {
				return os.WriteFile(out, []byte(doc.Text+"\n"), 0o644)
			}
			printf(cmd.OutOrStdout(), "%s\n", doc.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the text to a file instead of stdout")
	cmd.Flags().BoolVar(&metaOnly, "meta", false, "print extraction metadata as JSON instead of the text")
	return cmd
}

func newQuestionsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List the question bank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := g.setup(cmd)
			bank, err := questions.Load(cfg.QuestionsFile)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if bank.Title != "" {
				printf(w, "%s (%d questions)\n", bank.Title, bank.Len())
			}
			section := ""
			for _, q := range bank.Questions() {
				if q.Section != section {
					section = q.Section
					printf(w, "\n## %s\n", section)
				}
				printf(w, "%-5s %s\n", q.ID, q.Text)
			}
			return nil
		},
	}
}

func newDocumentsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List documents in the answer cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := g.setup(cmd)
			st, err := store.Open(cfg.CacheDBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			docs, err := st.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "ID\tFILE\tMETHOD\tPAGES\tANSWERS\tUPDATED\n")
			for _, d := range docs {
				n, err := st.CountAnswers(cmd.Context(), d.ContentHash)
				if err != nil {
					return err
				}
				printf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", d.ID, d.Filename, d.Method, d.Pages, n, d.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its cached answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := g.setup(cmd)
			st, err := store.Open(cfg.CacheDBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteDocument(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("document %s not found", args[0])
				}
				return err
			}
			printf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}
