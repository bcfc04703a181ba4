package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/internal/outwriter"
	"github.com/huangsam/repolens/schema"
)

// analyzeCmd analyzes one repository.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Analyze one repository and add it to the index",
	Long: `Scan a local repository for languages, frameworks, dependencies, structure and
code metrics, then store the result in the index.

Results are cached by content fingerprint: analyzing an unchanged repository again
with the same options returns the stored analysis without rescanning.

Examples:
  # Standard analysis of the current directory
  repolens analyze .

  # Fast pass without per-file metrics
  repolens analyze ~/src/api --mode quick

  # Full analysis with a narrative, exported as Markdown and HTML
  repolens analyze ~/src/api --mode comprehensive --llm --llm-provider summary \
    --formats markdown,html --export-dir ./reports`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		analysis, err := orchestrator.AnalyzeOne(rootCtx, args[0], cfg.Options)
		if err != nil {
			logAnalysisError("Analysis failed", err)
		}
		if err := outwriter.NewOutWriter().WriteAnalysis(analysis, cfg); err != nil {
			contract.LogFatal("Failed to write analysis", err)
		}
		if dir := viper.GetString("export-dir"); dir != "" {
			written, err := outwriter.WriteExports(outwriter.NewRenderer(), dir, analysis.Name, cfg.Options.OutputFormats, analysis)
			if err != nil {
				contract.LogFatal("Failed to export analysis", err)
			}
			for _, path := range written {
				_, _ = fmt.Fprintf(os.Stderr, "💾 Exported %s\n", path)
			}
		}
	},
}

// batchCmd analyzes several repositories concurrently.
var batchCmd = &cobra.Command{
	Use:   "batch <path>...",
	Short: "Analyze many repositories concurrently with live progress",
	Long: `Analyze every given repository, at most --concurrency at a time.

A failing repository never aborts the batch: it is reported with its error kind
and a remediation hint while the rest continue. Ctrl-C cancels pending and
running members.

Examples:
  # Analyze every checkout under ~/src
  repolens batch ~/src/*

  # Limit parallelism and write the report as JSON
  repolens batch ~/src/* --concurrency 2 --output json --output-file batch.json`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		start := time.Now()
		var onProgress func(schema.ProgressEvent)
		if !viper.GetBool("quiet") {
			onProgress = progressPrinter(term.IsTerminal(int(os.Stderr.Fd())))
		}
		job, err := orchestrator.AnalyzeBatch(rootCtx, args, cfg.Options, viper.GetInt("concurrency"), onProgress)
		if err != nil {
			logAnalysisError("Batch failed", err)
		}
		if err := outwriter.NewOutWriter().WriteBatch(job, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Failed to write batch report", err)
		}
	},
}

// progressPrinter redraws one status line on a terminal and prints one line per event otherwise.
func progressPrinter(interactive bool) func(schema.ProgressEvent) {
	return func(ev schema.ProgressEvent) {
		line := outwriter.FormatProgress(ev)
		if !interactive {
			_, _ = fmt.Fprintln(os.Stderr, line)
			return
		}
		_, _ = fmt.Fprintf(os.Stderr, "\r\033[K%s", line)
		if c := ev.Counters; c.Completed+c.Failed == c.Total {
			_, _ = fmt.Fprintln(os.Stderr)
		}
	}
}

// logAnalysisError prints the error with its remediation hints and exits.
func logAnalysisError(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	for _, fix := range contract.AsAnalysisError(err, "").Remediation {
		_, _ = fmt.Fprintf(os.Stderr, "  hint: %s\n", fix)
	}
	os.Exit(1)
}
