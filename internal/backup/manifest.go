package backup

import (
	"encoding/json"
	"fmt"
	"time"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = "1.0"

// manifestFilename is the manifest entry name inside an archive.
const manifestFilename = "manifest.json"

// Manifest describes the contents of a snapshot archive.
type Manifest struct {
	Version         string    `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	ServiceVersion  string    `json:"service_version"`
	Backend         string    `json:"backend"`
	Collection      string    `json:"collection"`
	Documents       int       `json:"documents"`
	VectorDimension int       `json:"vector_dimension"`
}

// Validate checks that the manifest is complete and supported.
func (m *Manifest) Validate() error {
	if m.Version != ManifestVersion {
		return fmt.Errorf("unsupported manifest version %q (want %q)", m.Version, ManifestVersion)
	}
	if m.Backend == "" {
		return fmt.Errorf("manifest missing backend")
	}
	if m.Collection == "" {
		return fmt.Errorf("manifest missing collection")
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("manifest missing created_at")
	}
	return nil
}

// Marshal serializes the manifest as indented JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// UnmarshalManifest parses a manifest from JSON.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
