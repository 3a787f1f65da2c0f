package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/inkwell/internal/editor"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// setupColor applies the --color flag.
func setupColor(cmd *cobra.Command) {
	mode, _ := cmd.Root().PersistentFlags().GetString("color")
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stdout)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func levelColor(l editor.BudgetLevel) *color.Color {
	switch l {
	case editor.BudgetOver:
		return color.New(color.FgRed, color.Bold)
	case editor.BudgetWarning:
		return color.New(color.FgYellow, color.Bold)
	}
	return color.New(color.FgGreen)
}

// printBudget writes one budget line, e.g. "notes.txt  212/280  (68 left)".
func printBudget(w io.Writer, name string, b editor.Budget) {
	label := color.New(color.Bold).Sprint(name)
	counts := levelColor(b.Level).Sprintf("%d/%d", b.Count, b.Limit)
	var tail string
	if b.OverLimit {
		tail = color.New(color.FgRed).Sprintf("%d over", -b.Remaining)
	} else {
		tail = fmt.Sprintf("%d left", b.Remaining)
	}
	fmt.Fprintf(w, "%s  %s  (%s)\n", label, counts, tail)
}

func printNotice(w io.Writer, n editor.Notice) {
	c := color.New(color.FgCyan)
	if n.Variant == editor.VariantDestructive {
		c = color.New(color.FgRed)
	}
	fmt.Fprintf(w, "%s %s\n", c.Sprint(n.Title+":"), n.Description)
}
