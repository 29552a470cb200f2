package container

import (
	"fmt"

	"gllvmord/adapters/excel"
	"gllvmord/adapters/render"
	"gllvmord/adapters/report"
	"gllvmord/adapters/rng"
	"gllvmord/app"
	"gllvmord/internal"
	"gllvmord/internal/config"
	"gllvmord/ports"
)

// Container holds all application dependencies for one command invocation
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Adapters
	Source   ports.ModelSource
	Renderer ports.Renderer
	Report   ports.ReportWriter
	RNG      ports.RNGPort

	// Services
	Ordination *app.OrdinationService
}

// New creates a container from a validated configuration
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Data.ModelPath == "" {
		return nil, fmt.Errorf("no model path configured")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
		RNG:    rng.New(),
	}
	c.initAdapters()
	c.Ordination = app.NewOrdinationService(c.Source, c.Renderer, c.Report, c.RNG, c.Logger)

	c.Logger.Debug("Container initialized for model %s", cfg.Data.ModelPath)
	return c, nil
}

func (c *Container) initAdapters() {
	mc := excel.DefaultModelConfig(c.Config.Data.ModelPath)
	mc.Uncertainty = c.Config.UncertaintyMode()
	mc.Covariates = c.Config.Data.ColorBy != ""
	c.Source = excel.NewModelSource(mc)

	c.Renderer = render.NewPlotRenderer(c.Logger)

	// Leave Report as a nil interface, not a typed nil, when no report is asked for.
	if c.Config.Render.Report != "" {
		c.Report = report.NewMarkdownWriter(c.Config.Render.Report)
	}
}

// Request builds the service request the configuration describes
func (c *Container) Request() app.Request {
	return app.Request{
		Options:   c.Config.Ordination,
		ColorBy:   c.Config.Data.ColorBy,
		ColorBins: c.Config.Data.ColorBins,
		Render: ports.RenderContext{
			OutputPath:   c.Config.Render.Output,
			WidthInches:  c.Config.Render.WidthInches,
			HeightInches: c.Config.Render.HeightInches,
			ShowLabels:   c.Config.Render.ShowLabels,
		},
	}
}
