package excel

import (
	"gllvmord/domain/ordination"
)

// ModelConfig holds configuration for a fitted model export
type ModelConfig struct {
	// Path is an .xlsx workbook or a directory of <table>.csv files
	Path string `json:"path"`

	// Uncertainty selects which uncertainty tables are read
	Uncertainty ordination.UncertaintyMode `json:"uncertainty"`

	// Covariates enables reading the covariates table when present
	Covariates bool `json:"covariates"`
}

// DefaultModelConfig returns sensible defaults for a model at path
func DefaultModelConfig(path string) ModelConfig {
	return ModelConfig{
		Path:        path,
		Uncertainty: ordination.UncertaintyNone,
		Covariates:  true,
	}
}
