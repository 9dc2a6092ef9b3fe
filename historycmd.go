package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/deanable/wanvidgen/core"
	"github.com/deanable/wanvidgen/history"
	"github.com/deanable/wanvidgen/logging"
)

// runHistory lists the most recent generation runs, newest first.
func runHistory(cfg *AppConfig, log *logging.Logger, stdout, stderr io.Writer, limit int) int {
	store, err := history.Open(cfg.HistoryPath(), log.Zap().Named("history"))
	if err != nil {
		failLine(stderr, "cannot open history at %s: %v", cfg.HistoryPath(), err)
		return core.ExitCodeError
	}
	defer store.Close()

	ctx := context.Background()
	records, err := store.Recent(ctx, limit)
	if err != nil {
		failLine(stderr, "cannot read history: %v", err)
		return core.ExitCodeError
	}
	total, err := store.Count(ctx)
	if err != nil {
		failLine(stderr, "cannot read history: %v", err)
		return core.ExitCodeError
	}

	if len(records) == 0 {
		fmt.Fprintln(stdout, "No generation runs recorded yet.")
		return core.ExitCodeSuccess
	}

	fmt.Fprintln(stdout)
	color.New(color.FgCyan, color.Bold).Fprintf(stdout, "━━━ Generation History ━━━\n")
	fmt.Fprintln(stdout)
	for _, rec := range records {
		printRecord(stdout, rec)
	}
	fmt.Fprintln(stdout)
	color.New(color.FgHiBlack).Fprintf(stdout, "showing %d of %d runs\n", len(records), total)
	return core.ExitCodeSuccess
}

// printRecord renders one history row plus a dim detail line: the
// output location for completed runs, the failure message otherwise.
func printRecord(w io.Writer, rec history.GenerationRecord) {
	statusColor := color.New(color.FgGreen)
	icon := "✓"
	if rec.Status == history.StatusFailed {
		statusColor = color.New(color.FgRed)
		icon = "✗"
	}

	statusColor.Fprintf(w, "  %s %s", icon, rec.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  %s", truncatePrompt(rec.Prompt, 48))

	dim := color.New(color.FgHiBlack)
	dim.Fprintf(w, "  %dx%d, %d steps, seed %d, %.1fs",
		rec.Width, rec.Height, rec.Steps, rec.Seed, float64(rec.DurationMS)/1000)
	fmt.Fprintln(w)

	if rec.Status == history.StatusFailed && rec.ErrorMessage != "" {
		dim.Fprintf(w, "      └─ %s\n", rec.ErrorMessage)
	} else if rec.OutputDir != "" {
		dim.Fprintf(w, "      └─ %s\n", rec.OutputDir)
	}
}

// truncatePrompt shortens long prompts for single-line display,
// counting runes so multibyte prompts are not cut mid-character.
func truncatePrompt(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-1]) + "…"
}
