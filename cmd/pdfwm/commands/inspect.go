package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/benedoc-inc/pdfwm/cmd/pdfwm/ui"
	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/manipulate"
)

func newInspectCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Show the geometry and size class of every page",
		Long: `Inspect prints, for each page, the box used for classification, its
rotation, the effective size after rotation, the aspect ratio and the size
class. Nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.cfg.ValidateClassification(); err != nil {
				return fmt.Errorf("validate config: %w", err)
			}
			out := cmd.OutOrStdout()
			classifier := root.cfg.Classifier()
			failed := 0
			for _, path := range args {
				if err := inspectFile(out, root, classifier, path); err != nil {
					ui.Error(out, "%s: %v", path, err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be inspected", failed, len(args))
			}
			return nil
		},
	}
}

func inspectFile(w io.Writer, root *rootOptions, classifier classify.Classifier, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := manipulate.Open(data, manipulate.Options{Logger: &root.log})
	if err != nil {
		return err
	}

	ui.Section(w, fmt.Sprintf("%s (PDF %s, %d pages)", filepath.Base(path), doc.Version(), doc.NumPages()))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tBOX\tSIZE\tROTATE\tEFFECTIVE\tRATIO\tCLASS\t")
	for _, page := range doc.Pages() {
		g := page.Geometry
		res := classifier.Evaluate(g)

		box := string(page.BoxSource)
		if box == "" {
			box = "default"
		}
		class := res.Class.String()
		if !res.Matched {
			class += " (fallback)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.1fx%.1f\t%d\t%.1fx%.1f\t%.4f\t%s\t\n",
			page.Index+1, box, g.RawWidth, g.RawHeight, page.Rotate,
			g.EffectiveWidth, g.EffectiveHeight, res.Ratio, class)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, page := range doc.Pages() {
		for _, warn := range page.Warnings {
			ui.Warning(w, "page %d: %s", page.Index+1, warn.Message)
		}
	}
	return nil
}
