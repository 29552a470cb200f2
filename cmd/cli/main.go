package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"gllvmord/adapters/excel"
	"gllvmord/domain/ordination"
	"gllvmord/internal/biplot"
	"gllvmord/internal/config"
	"gllvmord/internal/container"
	"gllvmord/ports"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gllvmord",
		Short: "Ordination plots and biplots for fitted latent variable models",
	}

	rootCmd.AddCommand(
		newPlotCmd(),
		newScaleCmd(),
		newSpeciesCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// runFlags are the command-line overrides of the configuration file
type runFlags struct {
	configPath  string
	model       string
	out         string
	reportPath  string
	detailed    string
	alpha       float64
	axes        string
	biplot      bool
	indSpp      int
	level       float64
	ellipses    bool
	uncertainty string
	jitter      float64
	seed        int64
	colorBy     string
}

func addModelFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&f.model, "model", "", "Fitted model: .xlsx workbook or directory of CSV tables")
}

func addScalingFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0.5, "Share of the singular values given to sites (0..1)")
	cmd.Flags().StringVar(&f.axes, "axes", "1,2", "Latent variables on the x and y axes")
}

func newPlotCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Draw an ordination or biplot of a fitted model",
		Long: `Draw site scores, and optionally species loadings and prediction ellipses.

Example: gllvmord plot --model model.xlsx --out biplot.png --ind-spp 10 --ellipses --uncertainty direct`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runPlot(cmd.Context(), cfg, f.detailed)
		},
	}

	addModelFlags(cmd, &f)
	addScalingFlags(cmd, &f)
	addPlotFlags(cmd, &f)

	return cmd
}

func addPlotFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.out, "out", "ordiplot.png", "Output image (.png, .svg, .pdf)")
	cmd.Flags().StringVar(&f.reportPath, "report", "", "Write a run summary (.md or .html)")
	cmd.Flags().StringVar(&f.detailed, "detailed", "", "Save manifest and warnings to a JSON file")
	cmd.Flags().BoolVar(&f.biplot, "biplot", true, "Overlay species loadings on the site scores")
	cmd.Flags().IntVar(&f.indSpp, "ind-spp", 0, "Number of species to label, 0 for all")
	cmd.Flags().Float64Var(&f.level, "level", 0.95, "Confidence level of prediction ellipses")
	cmd.Flags().BoolVar(&f.ellipses, "ellipses", false, "Draw prediction ellipses around sites")
	cmd.Flags().StringVar(&f.uncertainty, "uncertainty", "none", "Uncertainty source: none|direct|reconstructed")
	cmd.Flags().Float64Var(&f.jitter, "jitter", 0, "Uniform jitter added to drawn site positions")
	cmd.Flags().Int64Var(&f.seed, "seed", 42, "Random seed for deterministic jitter")
	cmd.Flags().StringVar(&f.colorBy, "color-by", "", "Covariate used to color sites")
}

func newScaleCmd() *cobra.Command {
	var f runFlags
	var export string

	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Print scaled site and species coordinates",
		Long: `Print the biplot coordinates of sites and species for the selected axes.

Example: gllvmord scale --model model.xlsx --alpha 0.3 --axes 1,3 --export scaled.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runScale(cmd.Context(), cfg, export)
		},
	}

	addModelFlags(cmd, &f)
	addScalingFlags(cmd, &f)
	cmd.Flags().StringVar(&export, "export", "", "Also write coordinates to an .xlsx workbook")

	return cmd
}

func newSpeciesCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "species",
		Short: "Rank species by loading norm",
		Long: `Rank species by the sum of squared loadings, largest first.

Example: gllvmord species --model model.xlsx --ind-spp 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runSpecies(cmd.Context(), cfg)
		},
	}

	addModelFlags(cmd, &f)
	cmd.Flags().IntVar(&f.indSpp, "ind-spp", 0, "Number of species to list, 0 for all")

	return cmd
}

// loadConfig reads the configuration and applies the flags the user set
func loadConfig(cmd *cobra.Command, f *runFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	o := &cfg.Ordination
	if set("model") {
		cfg.Data.ModelPath = f.model
	}
	if set("out") {
		cfg.Render.Output = f.out
	}
	if set("report") {
		cfg.Render.Report = f.reportPath
	}
	if set("alpha") {
		o.Alpha = f.alpha
	}
	if set("axes") {
		axes, err := ordination.ParseAxes(f.axes)
		if err != nil {
			return nil, err
		}
		o.Axes = axes
	}
	if set("biplot") {
		o.Display = ordination.DisplayScatter
		if f.biplot {
			o.Display = ordination.DisplayBiplot
		}
	}
	if set("ind-spp") {
		o.SpeciesSubsetSize = f.indSpp
	}
	if set("level") {
		o.ConfidenceLevel = f.level
	}
	if set("ellipses") {
		o.Ellipses = f.ellipses
	}
	if set("uncertainty") {
		cfg.Uncertainty = f.uncertainty
	}
	if set("jitter") {
		o.JitterAmount = f.jitter
	}
	if set("seed") {
		o.Seed = f.seed
	}
	if set("color-by") {
		cfg.Data.ColorBy = f.colorBy
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Data.ModelPath == "" {
		return nil, fmt.Errorf("no model given: use --model or ORDI_MODEL")
	}
	return cfg, nil
}

func runPlot(ctx context.Context, cfg *config.Config, detailed string) error {
	c, err := container.New(cfg)
	if err != nil {
		return err
	}

	result, err := c.Ordination.Run(ctx, c.Request())
	if err != nil {
		return err
	}

	fmt.Printf("Run ID: %s\n", result.Manifest.RunID)
	fmt.Printf("Fingerprint: %s\n", result.Manifest.Fingerprint.Fingerprint.Short())
	fmt.Printf("Plot: %s\n", cfg.Render.Output)
	if cfg.Render.Report != "" {
		fmt.Printf("Report: %s\n", cfg.Render.Report)
	}
	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	if detailed != "" {
		jsonData, err := json.MarshalIndent(struct {
			Manifest interface{} `json:"manifest"`
			Warnings []string    `json:"warnings"`
		}{result.Manifest, result.Warnings}, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(detailed, jsonData, 0o644); err != nil {
			return err
		}
		fmt.Printf("Detailed results saved to: %s\n", detailed)
	}
	return nil
}

func runScale(ctx context.Context, cfg *config.Config, export string) error {
	cfg.Ordination.Ellipses = false
	cfg.Ordination.JitterAmount = 0
	cfg.Render.Report = ""

	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	req := c.Request()
	req.Render = ports.RenderContext{}

	result, err := c.Ordination.Run(ctx, req)
	if err != nil {
		return err
	}

	d := result.Display
	fmt.Printf("%-20s %14s %14s\n", "site", d.XLabel, d.YLabel)
	for _, p := range d.Sites {
		fmt.Printf("%-20s %14.6f %14.6f\n", p.Label, p.X, p.Y)
	}
	if d.HasSpecies() {
		fmt.Printf("\n%-20s %14s %14s\n", "species", d.XLabel, d.YLabel)
		for _, p := range d.Species {
			fmt.Printf("%-20s %14.6f %14.6f\n", p.Label, p.X, p.Y)
		}
	}

	if export != "" {
		if err := excel.ExportScaled(export, d); err != nil {
			return err
		}
		fmt.Printf("\nCoordinates exported to: %s\n", export)
	}
	return nil
}

func runSpecies(ctx context.Context, cfg *config.Config) error {
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	model, err := c.Source.Load(ctx)
	if err != nil {
		return err
	}

	species := model.Species()
	norms := biplot.LoadingNorms(species.Values)
	fmt.Printf("%-6s %-24s %14s\n", "rank", "species", "sum loading^2")
	for rank, i := range biplot.SelectTopSpecies(species.Values, cfg.Ordination.SpeciesSubsetSize) {
		fmt.Printf("%-6d %-24s %14.6f\n", rank+1, species.Labels[i], norms[i])
	}
	return nil
}
