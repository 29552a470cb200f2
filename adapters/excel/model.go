package excel

import (
	"context"
	"fmt"
	"strconv"

	"gllvmord/domain/core"
	"gllvmord/domain/ordination"
	"gllvmord/internal/errors"
	"gllvmord/ports"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ModelSource loads a fitted model exported as tables
type ModelSource struct {
	config ModelConfig
}

// NewModelSource creates a model source for config
func NewModelSource(config ModelConfig) *ModelSource {
	return &ModelSource{config: config}
}

var _ ports.ModelSource = (*ModelSource)(nil)

// tableModel is a fitted model backed by in-memory matrices
type tableModel struct {
	source      string
	sites       ordination.SiteScores
	species     ordination.SpeciesLoadings
	uncertainty ordination.Uncertainty
	covariates  []ordination.Covariate
}

func (m *tableModel) Source() string                      { return m.source }
func (m *tableModel) Sites() ordination.SiteScores        { return m.sites }
func (m *tableModel) Species() ordination.SpeciesLoadings { return m.species }
func (m *tableModel) Uncertainty() ordination.Uncertainty { return m.uncertainty }
func (m *tableModel) Covariates() []ordination.Covariate  { return m.covariates }

func (m *tableModel) NumLatent() int {
	_, k := m.sites.Dims()
	return k
}

// Load reads every table the configuration asks for. Tables are read
// concurrently and shapes are reconciled once all of them are in.
func (s *ModelSource) Load(ctx context.Context) (ports.FittedModel, error) {
	reader := NewDataReader(s.config.Path)
	if err := reader.Open(); err != nil {
		return nil, errors.IOError(s.config.Path, err)
	}
	defer reader.Close()

	wanted := []string{TableSites, TableSpecies}
	switch s.config.Uncertainty {
	case ordination.UncertaintyDirectTensor:
		wanted = append(wanted, TablePredictionErrors)
	case ordination.UncertaintyReconstructedDiagonal:
		wanted = append(wanted, TableSiteVariances, TableRotation, TableSEAdjustment)
	}
	if s.config.Covariates {
		wanted = append(wanted, TableCovariates)
	}

	tables := make([]*Table, len(wanted))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range wanted {
		i, name := i, name
		required := name == TableSites || name == TableSpecies
		if !required && !reader.Has(name) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := reader.ReadTable(name)
			if err != nil {
				return errors.IOError(s.config.Path, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		if t != nil {
			byName[t.Name] = t
		}
	}

	return buildModel(s.config, byName)
}

func buildModel(config ModelConfig, tables map[string]*Table) (*tableModel, error) {
	siteLabels, siteValues, err := parseLabeledMatrix(tables[TableSites])
	if err != nil {
		return nil, err
	}
	sites, err := ordination.NewSiteScores(siteLabels, siteValues)
	if err != nil {
		return nil, err
	}

	speciesLabels, speciesValues, err := parseLabeledMatrix(tables[TableSpecies])
	if err != nil {
		return nil, err
	}
	species, err := ordination.NewSpeciesLoadings(speciesLabels, speciesValues)
	if err != nil {
		return nil, err
	}

	n, k := sites.Dims()
	if _, kp := species.Dims(); kp != k {
		return nil, core.NewDimensionMismatchError("latent dimensions of sites and species tables", k, kp)
	}

	model := &tableModel{
		source:      config.Path,
		sites:       sites,
		species:     species,
		uncertainty: ordination.Uncertainty{Mode: config.Uncertainty},
	}
	if model.uncertainty.Mode == "" {
		model.uncertainty.Mode = ordination.UncertaintyNone
	}

	index := make(map[string]int, n)
	for i, l := range sites.Labels {
		index[l] = i
	}

	if t := tables[TablePredictionErrors]; t != nil {
		errs, err := parsePredictionErrors(t, index, k)
		if err != nil {
			return nil, err
		}
		model.uncertainty.PredictionErrors = errs
	}
	if t := tables[TableSiteVariances]; t != nil {
		vars, err := alignedMatrix(t, index, k)
		if err != nil {
			return nil, err
		}
		model.uncertainty.SiteVariances = vars
	}
	if t := tables[TableRotation]; t != nil {
		_, rot, err := parseLabeledMatrix(t)
		if err != nil {
			return nil, err
		}
		model.uncertainty.Rotation = rot
	}
	if t := tables[TableSEAdjustment]; t != nil {
		_, adj, err := parseLabeledMatrix(t)
		if err != nil {
			return nil, err
		}
		r, c := adj.Dims()
		if r != c {
			return nil, fmt.Errorf("%w: %s is %dx%d, want square", core.ErrDimension, TableSEAdjustment, r, c)
		}
		model.uncertainty.SEAdjustment = symmetrize(adj)
	}
	if t := tables[TableCovariates]; t != nil {
		model.covariates = parseCovariates(t, index, n)
	}

	return model, nil
}

// parseLabeledMatrix reads a table whose first column names the row and
// whose remaining columns are numbers
func parseLabeledMatrix(t *Table) ([]string, *mat.Dense, error) {
	if t == nil {
		return nil, nil, fmt.Errorf("%w: missing table", core.ErrEmptyInput)
	}
	cols := len(t.Headers) - 1
	if cols < 1 {
		return nil, nil, fmt.Errorf("%w: table %s has no value columns", core.ErrDimension, t.Name)
	}

	labels := make([]string, len(t.Rows))
	data := make([]float64, 0, len(t.Rows)*cols)
	for i, row := range t.Rows {
		labels[i] = row[0]
		for j := 1; j <= cols; j++ {
			v, err := parseCell(t, i, j, row[j])
			if err != nil {
				return nil, nil, err
			}
			data = append(data, v)
		}
	}
	return labels, mat.NewDense(len(t.Rows), cols, data), nil
}

func parseCell(t *Table, row, col int, cell string) (float64, error) {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.InvalidInput(err.Error()), "table %s row %d column %s", t.Name, row+2, t.Headers[col])
	}
	return v, nil
}

// alignedMatrix reorders a labeled n×k table into site order
func alignedMatrix(t *Table, index map[string]int, k int) (*mat.Dense, error) {
	labels, m, err := parseLabeledMatrix(t)
	if err != nil {
		return nil, err
	}
	if _, c := m.Dims(); c != k {
		return nil, core.NewDimensionError(t.Name+" columns", c, k)
	}
	if len(labels) != len(index) {
		return nil, core.NewDimensionError(t.Name+" rows", len(labels), len(index))
	}
	out := mat.NewDense(len(index), k, nil)
	for i, l := range labels {
		site, ok := index[l]
		if !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("table %s names unknown site %q", t.Name, l))
		}
		out.SetRow(site, mat.Row(nil, i, m))
	}
	return out, nil
}

// parsePredictionErrors reads the long format site,row,col,value with 1-based
// row and col into one symmetric k×k matrix per site
func parsePredictionErrors(t *Table, index map[string]int, k int) ([]*mat.SymDense, error) {
	if len(t.Headers) < 4 {
		return nil, fmt.Errorf("%w: %s needs site,row,col,value columns", core.ErrDimension, t.Name)
	}
	errs := make([]*mat.SymDense, len(index))
	for r, row := range t.Rows {
		site, ok := index[row[0]]
		if !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("table %s names unknown site %q", t.Name, row[0]))
		}
		i, err := strconv.Atoi(row[1])
		if err != nil || i < 1 || i > k {
			return nil, core.NewInvalidParameterError(t.Name, fmt.Sprintf("row %d has row index %q outside 1..%d", r+2, row[1], k))
		}
		j, err := strconv.Atoi(row[2])
		if err != nil || j < 1 || j > k {
			return nil, core.NewInvalidParameterError(t.Name, fmt.Sprintf("row %d has column index %q outside 1..%d", r+2, row[2], k))
		}
		v, err := parseCell(t, r, 3, row[3])
		if err != nil {
			return nil, err
		}
		if errs[site] == nil {
			errs[site] = mat.NewSymDense(k, nil)
		}
		errs[site].SetSym(i-1, j-1, v)
	}
	// Sites without entries stay nil; the covariance source reports them.
	return errs, nil
}

func parseCovariates(t *Table, index map[string]int, n int) []ordination.Covariate {
	covs := make([]ordination.Covariate, 0, len(t.Headers)-1)
	for j := 1; j < len(t.Headers); j++ {
		covs = append(covs, ordination.Covariate{Name: t.Headers[j], Values: make([]string, n)})
	}
	for _, row := range t.Rows {
		site, ok := index[row[0]]
		if !ok {
			continue
		}
		for j := 1; j < len(t.Headers); j++ {
			covs[j-1].Values[site] = row[j]
		}
	}
	return covs
}

func symmetrize(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return out
}
