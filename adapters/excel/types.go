package excel

// Table is one sheet (or CSV file) of raw cell text
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Table names a fitted model export uses
const (
	TableSites            = "sites"
	TableSpecies          = "species"
	TablePredictionErrors = "prediction_errors"
	TableSiteVariances    = "site_variances"
	TableRotation         = "rotation"
	TableSEAdjustment     = "se_adjustment"
	TableCovariates       = "covariates"
)
