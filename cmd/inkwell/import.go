package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/dgallion1/inkwell/internal/editor"
	"github.com/dgallion1/inkwell/internal/markup"
	"github.com/dgallion1/inkwell/internal/parser"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var importCmd = &cobra.Command{
	Use:   "import [flags] file...",
	Short: "Convert documents to editor HTML",
	Long:  `Import reads txt, md, html, pdf or docx files and prints them in the editor's HTML, JSON or plain text form`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

var countCmd = &cobra.Command{
	Use:   "count [flags] file...",
	Short: "Report the character budget of documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCount,
}

func init() {
	importCmd.Flags().String("format", "html", "output format (html|json|text)")
	importCmd.Flags().Bool("pdftotext", false, "fall back to pdftotext for pdf files")
	countCmd.Flags().Int("jobs", 0, "files to read in parallel (0 = GOMAXPROCS)")
}

// loadAll imports files in parallel. Results keep argument order.
func loadAll(ctx context.Context, files []string, jobs int, pdftotext bool) ([]*parser.Imported, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]*parser.Imported, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			imp, err := loadFile(path, pdftotext)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = imp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func loadFile(path string, pdftotext bool) (*parser.Imported, error) {
	p, err := parser.ForFile(path)
	if err != nil {
		return nil, err
	}
	if pdf, ok := p.(*parser.PDFParser); ok {
		pdf.FallbackPdftotext = pdftotext
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Parse(f, path)
}

func runImport(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	pdftotext, _ := cmd.Flags().GetBool("pdftotext")

	docs, err := loadAll(cmd.Context(), args, 0, pdftotext)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, imp := range docs {
		if err := writeDocument(out, imp, format); err != nil {
			return err
		}
	}
	return nil
}

func writeDocument(w io.Writer, imp *parser.Imported, format string) error {
	switch format {
	case "html":
		_, err := fmt.Fprintln(w, markup.RenderHTML(imp.Document))
		return err
	case "json":
		return json.NewEncoder(w).Encode(map[string]any{
			"title":    imp.Title,
			"document": imp.Document,
		})
	case "text":
		_, err := fmt.Fprintln(w, imp.Document.PlainText())
		return err
	}
	return fmt.Errorf("unknown format: %s", format)
}

func runCount(cmd *cobra.Command, args []string) error {
	setupColor(cmd)
	limit, _ := cmd.Root().PersistentFlags().GetInt("limit")
	jobs, _ := cmd.Flags().GetInt("jobs")

	docs, err := loadAll(cmd.Context(), args, jobs, false)
	if err != nil {
		return err
	}
	tracker := editor.NewBudgetTracker(limit)
	over := 0
	for i, imp := range docs {
		b := tracker.Update(imp.Document)
		printBudget(cmd.OutOrStdout(), args[i], b)
		if b.OverLimit {
			over++
		}
	}
	if over > 0 {
		return fmt.Errorf("%d of %d documents over the %d character budget", over, len(docs), tracker.Limit)
	}
	return nil
}
