package excel

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"gllvmord/domain/core"
	"gllvmord/domain/ordination"
	"gllvmord/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeCSVTables(t *testing.T, tables map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range tables {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".csv"), []byte(body), 0o644))
	}
	return dir
}

const (
	sitesCSV = `site,LV1,LV2
s1,0.5,-1.0
s2,1.5,0.25
s3,-2.0,0.75
`
	speciesCSV = `species,LV1,LV2
sp1,1.0,0.0
sp2,0.5,2.0
`
)

func TestModelSource_LoadCSV(t *testing.T) {
	dir := writeCSVTables(t, map[string]string{
		TableSites:   sitesCSV,
		TableSpecies: speciesCSV,
		TableCovariates: `site,habitat,elevation
s2,wet,120
s1,dry,80
s3,,NA
`,
	})

	model, err := NewModelSource(DefaultModelConfig(dir)).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, dir, model.Source())
	assert.Equal(t, 2, model.NumLatent())
	assert.Equal(t, []string{"s1", "s2", "s3"}, model.Sites().Labels)
	assert.Equal(t, []string{"sp1", "sp2"}, model.Species().Labels)
	assert.Equal(t, -1.0, model.Sites().Values.At(0, 1))
	assert.Equal(t, 2.0, model.Species().Values.At(1, 1))
	assert.Equal(t, ordination.UncertaintyNone, model.Uncertainty().Mode)

	covs := model.Covariates()
	require.Len(t, covs, 2)
	assert.Equal(t, "habitat", covs[0].Name)
	assert.Equal(t, []string{"dry", "wet", ""}, covs[0].Values, "covariates follow site order")
	assert.Equal(t, []string{"80", "120", "NA"}, covs[1].Values)
}

func TestModelSource_DirectTensor(t *testing.T) {
	dir := writeCSVTables(t, map[string]string{
		TableSites:   sitesCSV,
		TableSpecies: speciesCSV,
		TablePredictionErrors: `site,row,col,value
s1,1,1,0.2
s1,1,2,0.05
s1,2,2,0.1
s2,1,1,0.3
s2,2,2,0.3
s3,1,1,0.1
s3,2,2,0.4
`,
	})

	cfg := DefaultModelConfig(dir)
	cfg.Uncertainty = ordination.UncertaintyDirectTensor
	model, err := NewModelSource(cfg).Load(context.Background())
	require.NoError(t, err)

	u := model.Uncertainty()
	assert.Equal(t, ordination.UncertaintyDirectTensor, u.Mode)
	require.Len(t, u.PredictionErrors, 3)
	assert.Equal(t, 0.05, u.PredictionErrors[0].At(1, 0), "entries are mirrored")
	assert.Equal(t, 0.4, u.PredictionErrors[2].At(1, 1))
}

func TestModelSource_DirectTensorMissingTable(t *testing.T) {
	dir := writeCSVTables(t, map[string]string{
		TableSites:   sitesCSV,
		TableSpecies: speciesCSV,
	})

	cfg := DefaultModelConfig(dir)
	cfg.Uncertainty = ordination.UncertaintyDirectTensor
	model, err := NewModelSource(cfg).Load(context.Background())
	require.NoError(t, err, "absent uncertainty is reported later, not at load")

	u := model.Uncertainty()
	assert.Equal(t, ordination.UncertaintyDirectTensor, u.Mode)
	assert.Empty(t, u.PredictionErrors)
}

func TestModelSource_Reconstructed(t *testing.T) {
	dir := writeCSVTables(t, map[string]string{
		TableSites:   sitesCSV,
		TableSpecies: speciesCSV,
		TableSiteVariances: `site,LV1,LV2
s3,0.3,0.6
s1,0.1,0.4
s2,0.2,0.5
`,
		TableRotation: `axis,LV1,LV2
LV1,1,0
LV2,0,1
`,
		TableSEAdjustment: `axis,LV1,LV2
LV1,0.01,0.002
LV2,0.004,0.02
`,
	})

	cfg := DefaultModelConfig(dir)
	cfg.Uncertainty = ordination.UncertaintyReconstructedDiagonal
	model, err := NewModelSource(cfg).Load(context.Background())
	require.NoError(t, err)

	u := model.Uncertainty()
	require.NotNil(t, u.SiteVariances)
	assert.Equal(t, 0.1, u.SiteVariances.At(0, 0), "rows realigned to site order")
	assert.Equal(t, 0.6, u.SiteVariances.At(2, 1))
	assert.Equal(t, 1.0, u.Rotation.At(1, 1))
	assert.InDelta(t, 0.003, u.SEAdjustment.At(0, 1), 1e-12)
}

func TestModelSource_Errors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		_, err := NewModelSource(DefaultModelConfig(filepath.Join(t.TempDir(), "nope"))).Load(context.Background())
		require.Error(t, err)
		assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
	})

	t.Run("latent mismatch", func(t *testing.T) {
		dir := writeCSVTables(t, map[string]string{
			TableSites:   sitesCSV,
			TableSpecies: "species,LV1,LV2,LV3\nsp1,1,2,3\n",
		})
		_, err := NewModelSource(DefaultModelConfig(dir)).Load(context.Background())
		assert.True(t, core.IsDimensionError(err), "got %v", err)
	})

	t.Run("non numeric cell", func(t *testing.T) {
		dir := writeCSVTables(t, map[string]string{
			TableSites:   "site,LV1,LV2\ns1,abc,1\n",
			TableSpecies: speciesCSV,
		})
		_, err := NewModelSource(DefaultModelConfig(dir)).Load(context.Background())
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	})

	t.Run("duplicate site label", func(t *testing.T) {
		dir := writeCSVTables(t, map[string]string{
			TableSites:      "site,LV1,LV2\ns1,0.5,-1\ns1,1.5,0.25\ns3,-2,0.75\n",
			TableSpecies:    speciesCSV,
			TableCovariates: "site,elevation\ns1,100\ns1,900\ns3,500\n",
		})
		_, err := NewModelSource(DefaultModelConfig(dir)).Load(context.Background())
		assert.True(t, core.IsInvalidParameterError(err), "got %v", err)
	})

	t.Run("prediction error index out of range", func(t *testing.T) {
		dir := writeCSVTables(t, map[string]string{
			TableSites:            sitesCSV,
			TableSpecies:          speciesCSV,
			TablePredictionErrors: "site,row,col,value\ns1,3,1,0.1\n",
		})
		cfg := DefaultModelConfig(dir)
		cfg.Uncertainty = ordination.UncertaintyDirectTensor
		_, err := NewModelSource(cfg).Load(context.Background())
		assert.True(t, core.IsInvalidParameterError(err), "got %v", err)
	})

	t.Run("cancelled", func(t *testing.T) {
		dir := writeCSVTables(t, map[string]string{TableSites: sitesCSV, TableSpecies: speciesCSV})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewModelSource(DefaultModelConfig(dir)).Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestModelSource_LoadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.xlsx")
	f := excelize.NewFile()
	writeSheet(t, f, TableSites, [][]interface{}{
		{"site", "LV1", "LV2"},
		{"a", 1.0, 2.0},
		{"b", -1.0, 0.5},
	})
	writeSheet(t, f, TableSpecies, [][]interface{}{
		{"species", "LV1", "LV2"},
		{"x", 0.25, -0.75},
	})
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	model, err := NewModelSource(DefaultModelConfig(path)).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, model.Sites().Labels)
	assert.Equal(t, 0.5, model.Sites().Values.At(1, 1))
	assert.Equal(t, -0.75, model.Species().Values.At(0, 1))
	assert.Empty(t, model.Covariates())
}

func writeSheet(t *testing.T, f *excelize.File, sheet string, rows [][]interface{}) {
	t.Helper()
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	for i, row := range rows {
		row := row
		require.NoError(t, f.SetSheetRow(sheet, "A"+strconv.Itoa(i+1), &row))
	}
}

func TestExportScaled(t *testing.T) {
	display := &ordination.Display{
		Mode:   ordination.DisplayBiplot,
		XLabel: "LV1",
		YLabel: "LV2",
		Groups: []string{"dry", "wet"},
		Sites: []ordination.Point{
			{Index: 0, X: 0.5, Y: -0.25, Label: "s1", Group: 1},
			{Index: 1, X: 1.5, Y: 2, Label: "s2", Group: -1},
		},
		Species: []ordination.Point{
			{Index: 0, X: -1, Y: 0.125, Label: "sp1"},
		},
	}

	path := filepath.Join(t.TempDir(), "scaled.xlsx")
	require.NoError(t, ExportScaled(path, display))

	reader := NewDataReader(path)
	require.NoError(t, reader.Open())
	defer reader.Close()

	sites, err := reader.ReadTable(TableSites)
	require.NoError(t, err)
	assert.Equal(t, []string{"site", "LV1", "LV2", "group"}, sites.Headers)
	require.Len(t, sites.Rows, 2)
	assert.Equal(t, []string{"s1", "0.5", "-0.25", "wet"}, sites.Rows[0])
	assert.Equal(t, "NA", sites.Rows[1][3])

	species, err := reader.ReadTable(TableSpecies)
	require.NoError(t, err)
	assert.Equal(t, []string{"sp1", "-1", "0.125"}, species.Rows[0])
	assert.False(t, reader.Has("Sheet1"))

	assert.Error(t, ExportScaled(path, nil))
}
