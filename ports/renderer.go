package ports

import (
	"context"
	"image/color"

	"gllvmord/domain/ordination"
	"gllvmord/domain/run"
)

// RenderContext is the drawing session passed to every render call instead
// of process-wide plotting state.
type RenderContext struct {
	OutputPath   string
	WidthInches  float64
	HeightInches float64
	Palette      []color.Color
	PointRadius  float64
	ShowLabels   bool
}

// Renderer draws a computed ordination. It never changes coordinates.
type Renderer interface {
	Render(ctx context.Context, rc RenderContext, display *ordination.Display) error
}

// ReportWriter persists a human-readable summary of a run
type ReportWriter interface {
	WriteReport(ctx context.Context, manifest *run.Manifest, display *ordination.Display, warnings []string) error
}
