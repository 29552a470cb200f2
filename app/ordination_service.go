package app

import (
	"context"
	"fmt"
	"time"

	"gllvmord/domain/core"
	"gllvmord/domain/ordination"
	"gllvmord/domain/run"
	"gllvmord/internal"
	"gllvmord/internal/biplot"
	"gllvmord/internal/palette"
	"gllvmord/ports"

	"gonum.org/v1/gonum/mat"
)

// OrdinationService turns a fitted model into a drawn ordination
type OrdinationService struct {
	source   ports.ModelSource
	renderer ports.Renderer
	report   ports.ReportWriter
	rngPort  ports.RNGPort
	logger   *internal.Logger
}

// Request defines the inputs of one ordination run
type Request struct {
	Options   ordination.Options
	ColorBy   string // covariate name, optional
	ColorBins int
	Render    ports.RenderContext // empty OutputPath skips drawing
}

// Result contains everything a run produced
type Result struct {
	Manifest *run.Manifest       `json:"manifest"`
	Display  *ordination.Display `json:"display"`
	Warnings []string            `json:"warnings,omitempty"`
}

// NewOrdinationService creates an ordination service. renderer and report may
// be nil to skip those stages.
func NewOrdinationService(source ports.ModelSource, renderer ports.Renderer, report ports.ReportWriter, rngPort ports.RNGPort, logger *internal.Logger) *OrdinationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &OrdinationService{
		source:   source,
		renderer: renderer,
		report:   report,
		rngPort:  rngPort,
		logger:   logger,
	}
}

// Run loads the model and executes Compute on it
func (s *OrdinationService) Run(ctx context.Context, req Request) (*Result, error) {
	if s.source == nil {
		return nil, core.NewInvalidParameterError("source", "no model source configured")
	}
	model, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	return s.Compute(ctx, model, req)
}

// Compute scales model for display, adds species labels, prediction regions
// and color groups, then renders and reports. Missing uncertainty only drops
// the ellipses and is recorded as a warning.
func (s *OrdinationService) Compute(ctx context.Context, model ports.FittedModel, req Request) (*Result, error) {
	startTime := time.Now()
	opts := req.Options
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sites, err := ordination.NewSiteScores(model.Sites().Labels, model.Sites().Values)
	if err != nil {
		return nil, err
	}
	species, err := ordination.NewSpeciesLoadings(model.Species().Labels, model.Species().Values)
	if err != nil {
		return nil, err
	}
	n, k := sites.Dims()
	p, _ := species.Dims()
	if declared := model.NumLatent(); declared != k {
		return nil, core.NewDimensionError("declared latent dimensions", declared, k)
	}

	manifest := run.NewManifest(model.Source(), n, p, k,
		core.ComputeInputHash(matrixHash(sites.Values), matrixHash(species.Values)),
		core.ComputeOptionsHash(requestOptions(req)),
		opts.Seed)
	log := s.logger.With("run_id", manifest.RunID.String())
	log.Info("Ordination of %d sites, %d species, %d latent variables (%s)", n, p, k, opts.Display)

	layout, err := biplot.Scale(sites.Values, species.Values, opts.Display, opts.Alpha, opts.Axes)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Manifest: manifest}
	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		log.Warn("%s", msg)
		result.Warnings = append(result.Warnings, msg)
	}

	display := &ordination.Display{Mode: opts.Display, Alpha: opts.Alpha}
	var sitePoints *mat.Dense
	if layout.OneDimensional() {
		display.OneDimensional = true
		display.XLabel, display.YLabel = "index", "LV1"
		sitePoints = indexed(layout.Passthrough)
		if opts.Ellipses {
			warn("prediction regions need at least two latent variables")
		}
	} else {
		scaled := layout.Scaled
		display.Scaled = scaled
		display.XLabel, display.YLabel = scaled.Axes.Labels()
		sitePoints = scaled.Sites

		if display.Mode == ordination.DisplayBiplot {
			display.Species = points(scaled.Species, species.Labels)
			display.LabeledSpecies = biplot.SelectTopSpecies(species.Values, opts.SpeciesSubsetSize)
		}

		if opts.Ellipses {
			ellipses, err := s.ellipses(model.Uncertainty(), scaled, opts.ConfidenceLevel)
			switch {
			case core.IsMissingUncertaintyError(err):
				warn("ellipses skipped: %v", err)
			case err != nil:
				return nil, err
			default:
				display.Ellipses = ellipses
			}
		}
	}
	display.Title = title(display)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.JitterAmount > 0 {
		jittered, err := s.jitter(ctx, sitePoints, opts, display.OneDimensional)
		if err != nil {
			return nil, err
		}
		sitePoints = jittered
	}
	display.Sites = points(sitePoints, sites.Labels)

	if req.ColorBy != "" {
		s.colorSites(display, model.Covariates(), req, warn)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	result.Display = display

	if s.renderer != nil && req.Render.OutputPath != "" {
		if err := s.renderer.Render(ctx, req.Render, display); err != nil {
			return nil, err
		}
	}
	if s.report != nil {
		if err := s.report.WriteReport(ctx, manifest, display, result.Warnings); err != nil {
			return nil, err
		}
	}

	log.Info("Ordination finished in %dms with %d warning(s)", time.Since(startTime).Milliseconds(), len(result.Warnings))
	return result, nil
}

func (s *OrdinationService) ellipses(u ordination.Uncertainty, scaled *ordination.Scaled, level float64) ([]ordination.Ellipse, error) {
	n, _ := scaled.Sites.Dims()
	source, err := biplot.NewCovarianceSource(u, n, scaled.Latent())
	if err != nil {
		return nil, err
	}
	return biplot.EllipsesFor(scaled, source, level)
}

// jitter perturbs the drawn site positions; in one dimension only the score
// column moves
func (s *OrdinationService) jitter(ctx context.Context, points *mat.Dense, opts ordination.Options, oneDimensional bool) (*mat.Dense, error) {
	if s.rngPort == nil {
		return nil, core.NewInvalidParameterError("jitter", "no random source configured")
	}
	rng, err := s.rngPort.SeededStream(ctx, "jitter", opts.Seed)
	if err != nil {
		return nil, err
	}
	if !oneDimensional {
		return biplot.Jitter(points, opts.JitterAmount, rng)
	}

	n, _ := points.Dims()
	col := points.Slice(0, n, 1, 2).(*mat.Dense)
	moved, err := biplot.Jitter(mat.DenseCopyOf(col), opts.JitterAmount, rng)
	if err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(points)
	out.SetCol(1, mat.Col(nil, 0, moved))
	return out, nil
}

func (s *OrdinationService) colorSites(display *ordination.Display, covariates []ordination.Covariate, req Request, warn func(string, ...interface{})) {
	for _, cov := range covariates {
		if cov.Name != req.ColorBy {
			continue
		}
		assignment, err := palette.Assign(cov, req.ColorBins)
		if err != nil {
			warn("coloring by %q skipped: %v", req.ColorBy, err)
			return
		}
		if len(assignment.Groups) != len(display.Sites) {
			warn("covariate %q has %d values for %d sites; coloring skipped", req.ColorBy, len(assignment.Groups), len(display.Sites))
			return
		}
		display.Groups = assignment.Labels
		for i := range display.Sites {
			display.Sites[i].Group = assignment.Groups[i]
		}
		return
	}
	warn("covariate %q not found; sites drawn in one color", req.ColorBy)
}

func requestOptions(req Request) map[string]interface{} {
	m := req.Options.Map()
	m["color_by"] = req.ColorBy
	m["color_bins"] = req.ColorBins
	return m
}

func matrixHash(m *mat.Dense) core.Hash {
	if m == nil || m.IsEmpty() {
		return core.ComputeMatrixHash(0, 0, nil)
	}
	c := mat.DenseCopyOf(m)
	r, cols := c.Dims()
	return core.ComputeMatrixHash(r, cols, c.RawMatrix().Data)
}

// indexed pairs each one-dimensional score with its 1-based site index
func indexed(scores *mat.Dense) *mat.Dense {
	n, _ := scores.Dims()
	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, float64(i+1))
		out.Set(i, 1, scores.At(i, 0))
	}
	return out
}

func points(m *mat.Dense, labels []string) []ordination.Point {
	n, _ := m.Dims()
	out := make([]ordination.Point, n)
	for i := 0; i < n; i++ {
		out[i] = ordination.Point{Index: i, X: m.At(i, 0), Y: m.At(i, 1), Label: labels[i]}
	}
	return out
}

func title(d *ordination.Display) string {
	switch {
	case d.OneDimensional:
		return "Latent variable scores"
	case d.Mode == ordination.DisplayBiplot:
		return fmt.Sprintf("Biplot (alpha = %.2g)", d.Alpha)
	default:
		return "Ordination"
	}
}
