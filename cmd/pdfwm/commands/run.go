package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/benedoc-inc/pdfwm/cmd/pdfwm/ui"
	"github.com/benedoc-inc/pdfwm/core/asset"
	"github.com/benedoc-inc/pdfwm/core/batch"
	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/stamp"
)

// runOptions are the flags that override configuration for a batch run
type runOptions struct {
	input       string
	output      string
	workers     int
	onPageError string
	noProgress  bool
}

func (o *runOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "directory with the PDFs to stamp")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "directory for stamped PDFs")
	cmd.Flags().IntVarP(&o.workers, "workers", "w", 0, "pages prepared concurrently within a document")
	cmd.Flags().StringVar(&o.onPageError, "on-page-error", "", "abort_file or skip_page")
	cmd.Flags().BoolVar(&o.noProgress, "no-progress", false, "do not draw a progress bar")
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watermark every PDF in the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, root, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func runBatch(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	cfg := root.cfg
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputDir = opts.input
	}
	if flags.Changed("output") {
		cfg.OutputDir = opts.output
	}
	if flags.Changed("workers") {
		cfg.Processing.Workers = opts.workers
	}
	if flags.Changed("on-page-error") {
		cfg.Processing.OnPageError = opts.onPageError
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	table, err := cfg.AssetTable()
	if err != nil {
		return err
	}
	store := asset.NewStore(table, root.log)
	stamper := stamp.New(store, cfg.StampOptions(), root.log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batchOpts := batch.Options{InputDir: cfg.InputDir, OutputDir: cfg.OutputDir}
	var bar *ui.ProgressBar
	if !opts.noProgress && ui.IsTerminal(os.Stderr) {
		batchOpts.Start = func(total int) {
			bar = ui.NewProgressBar(cmd.ErrOrStderr(), int64(total), "stamping")
		}
		batchOpts.Progress = func(p batch.Progress) {
			bar.Describe(p.Result.Name)
			bar.Set(int64(p.Done))
		}
	}

	summary, err := batch.New(stamper, batchOpts, root.log).Run(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), cfg.InputDir, summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Files)
	}
	return nil
}

func printSummary(w io.Writer, inputDir string, s *batch.Summary) {
	if s.Files == 0 {
		ui.Warning(w, "no PDF files found in %s", inputDir)
		return
	}

	ui.Section(w, "Summary")
	ui.Success(w, "%d of %d files stamped, %d pages", s.Succeeded, s.Files, s.Pages)
	for _, class := range classify.AllClasses {
		if n := s.PerClass[class]; n > 0 {
			ui.Info(w, "%s: %d pages", class, n)
		}
	}
	for _, r := range s.Results {
		if r.Report == nil {
			continue
		}
		if r.Report.Fallbacks > 0 {
			ui.Warning(w, "%s: %d pages matched no reference size and used A4", r.Name, r.Report.Fallbacks)
		}
		if r.Report.Skipped > 0 {
			ui.Warning(w, "%s: %d pages left without a watermark", r.Name, r.Report.Skipped)
		}
	}
	if len(s.Ignored) > 0 {
		ui.Info(w, "%d non-PDF entries ignored", len(s.Ignored))
	}
	for _, r := range s.Failures() {
		ui.Error(w, "%s: %v", r.Name, r.Err)
	}
}
