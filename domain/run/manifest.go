package run

import (
	"crypto/sha256"
	"fmt"

	"gllvmord/domain/core"
)

// CodeVersion is stamped into every manifest.
const CodeVersion = "gllvmord/1"

// OrdinationFingerprint ensures deterministic replay of one ordination.
type OrdinationFingerprint struct {
	InputHash   core.InputHash   `json:"input_hash"`
	OptionsHash core.OptionsHash `json:"options_hash"`
	Seed        int64            `json:"seed"`
	CodeVersion string           `json:"code_version"`
	Fingerprint core.Hash        `json:"fingerprint"` // Hash of all above
}

// NewOrdinationFingerprint creates a fingerprint from determinism parameters
func NewOrdinationFingerprint(inputHash core.InputHash, optionsHash core.OptionsHash, seed int64, codeVersion string) OrdinationFingerprint {
	return OrdinationFingerprint{
		InputHash:   inputHash,
		OptionsHash: optionsHash,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: computeFingerprint(inputHash, optionsHash, seed, codeVersion),
	}
}

func computeFingerprint(inputHash core.InputHash, optionsHash core.OptionsHash, seed int64, codeVersion string) core.Hash {
	data := fmt.Sprintf("input:%s|options:%s|seed:%d|code:%s",
		inputHash, optionsHash, seed, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

// Manifest describes one ordination run. Two runs with the same fingerprint
// produce identical display coordinates.
type Manifest struct {
	RunID       core.RunID            `json:"run_id"`
	Source      string                `json:"source"`
	Sites       int                   `json:"sites"`
	Species     int                   `json:"species"`
	Latent      int                   `json:"latent"`
	Fingerprint OrdinationFingerprint `json:"fingerprint"`
	CreatedAt   core.Timestamp        `json:"created_at"`
}

// NewManifest creates a manifest for a run over an n×k / p×k model.
func NewManifest(source string, sites, species, latent int, inputHash core.InputHash, optionsHash core.OptionsHash, seed int64) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		Source:      source,
		Sites:       sites,
		Species:     species,
		Latent:      latent,
		Fingerprint: NewOrdinationFingerprint(inputHash, optionsHash, seed, CodeVersion),
		CreatedAt:   core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewInvalidParameterError("manifest", "run_id cannot be empty")
	}
	if m.Latent < 1 {
		return core.NewDimensionError("manifest latent dimensions", m.Latent, 1)
	}
	if m.Fingerprint.InputHash == "" {
		return core.NewInvalidParameterError("manifest", "input_hash cannot be empty")
	}
	if m.Fingerprint.CodeVersion == "" {
		return core.NewInvalidParameterError("manifest", "code_version cannot be empty")
	}
	return nil
}
