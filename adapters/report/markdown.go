package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gllvmord/domain/ordination"
	"gllvmord/domain/run"
	"gllvmord/internal/errors"
	"gllvmord/internal/profiling"
	"gllvmord/ports"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownWriter writes a run summary as Markdown, or as a standalone HTML
// page when the path ends in .html or .htm
type MarkdownWriter struct {
	path string
}

// NewMarkdownWriter creates a report writer for path
func NewMarkdownWriter(path string) *MarkdownWriter {
	return &MarkdownWriter{path: path}
}

var _ ports.ReportWriter = (*MarkdownWriter)(nil)

// WriteReport renders and saves the summary
func (w *MarkdownWriter) WriteReport(ctx context.Context, manifest *run.Manifest, display *ordination.Display, warnings []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if manifest == nil || display == nil {
		return errors.InvalidInput("report needs a manifest and a display")
	}

	md := Render(manifest, display, warnings)
	out := md
	if ext := strings.ToLower(filepath.Ext(w.path)); ext == ".html" || ext == ".htm" {
		out = ToHTML(md, "Ordination "+manifest.RunID.String())
	}

	if err := os.WriteFile(w.path, out, 0o644); err != nil {
		return errors.IOError(w.path, err)
	}
	return nil
}

// ToHTML converts Markdown to a complete HTML page
func ToHTML(md []byte, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: title,
	})
	return markdown.ToHTML(md, p, r)
}

// Render builds the Markdown summary
func Render(manifest *run.Manifest, display *ordination.Display, warnings []string) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Ordination %s\n\n", manifest.RunID)
	fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Source | `%s` |\n", manifest.Source)
	fmt.Fprintf(&b, "| Sites | %d |\n", manifest.Sites)
	fmt.Fprintf(&b, "| Species | %d |\n", manifest.Species)
	fmt.Fprintf(&b, "| Latent variables | %d |\n", manifest.Latent)
	fmt.Fprintf(&b, "| Display | %s |\n", display.Mode)
	if display.Scaled != nil {
		fmt.Fprintf(&b, "| Alpha | %.3g |\n", display.Alpha)
		fmt.Fprintf(&b, "| Axes | %s |\n", display.Scaled.Axes)
	}
	fmt.Fprintf(&b, "| Fingerprint | `%s` |\n", manifest.Fingerprint.Fingerprint.Short())
	fmt.Fprintf(&b, "| Created | %s |\n\n", manifest.CreatedAt)

	b.WriteString("## Dispersion\n\n")
	b.WriteString("| Set | Axis | Mean | SD | Min | Median | Max | Outliers |\n|---|---|---|---|---|---|---|---|\n")
	writeDispersion(&b, "sites", display.XLabel, xs(display.Sites))
	writeDispersion(&b, "sites", display.YLabel, ys(display.Sites))
	if display.HasSpecies() {
		writeDispersion(&b, "species", display.XLabel, xs(display.Species))
		writeDispersion(&b, "species", display.YLabel, ys(display.Species))
	}
	b.WriteString("\n")

	if display.Scaled != nil && len(display.Scaled.JointNorm) > 0 {
		b.WriteString("## Singular values\n\n| Dimension | Joint norm |\n|---|---|\n")
		for j, v := range display.Scaled.JointNorm {
			fmt.Fprintf(&b, "| %d | %.6g |\n", j+1, v)
		}
		b.WriteString("\n")
	}

	if display.HasSpecies() && len(display.LabeledSpecies) > 0 {
		b.WriteString("## Labeled species\n\n")
		for _, i := range display.LabeledSpecies {
			if i >= 0 && i < len(display.Species) {
				sp := display.Species[i]
				fmt.Fprintf(&b, "- %s (%.4g, %.4g)\n", sp.Label, sp.X, sp.Y)
			}
		}
		b.WriteString("\n")
	}

	if len(display.Groups) > 0 {
		b.WriteString("## Groups\n\n| Group | Sites |\n|---|---|\n")
		counts := make([]int, len(display.Groups))
		missing := 0
		for _, s := range display.Sites {
			if s.Group >= 0 && s.Group < len(counts) {
				counts[s.Group]++
			} else {
				missing++
			}
		}
		for g, name := range display.Groups {
			fmt.Fprintf(&b, "| %s | %d |\n", name, counts[g])
		}
		if missing > 0 {
			fmt.Fprintf(&b, "| NA | %d |\n", missing)
		}
		b.WriteString("\n")
	}

	if len(display.Ellipses) > 0 {
		fmt.Fprintf(&b, "## Prediction regions\n\n%d ellipses at level %.3g.\n\n", len(display.Ellipses), display.Ellipses[0].Level)
	}

	if len(warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
	return b.Bytes()
}

func writeDispersion(b *bytes.Buffer, set, axis string, data []float64) {
	sum, err := profiling.Summarize(data)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "| %s | %s | %.4g | %.4g | %.4g | %.4g | %.4g | %d |\n",
		set, axis, sum.Mean, sum.StdDev, sum.Min, sum.Median, sum.Max, sum.Outliers)
}

func xs(points []ordination.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.X
	}
	return out
}

func ys(points []ordination.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Y
	}
	return out
}
