package archive

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ManifestName is the archive entry holding the Manifest. It is always the
// last entry.
const ManifestName = "manifest.json"

// ManifestVersion is the manifest format written by Writer.
const ManifestVersion = "1"

// Manifest records which run produced a backup and which files it holds.
type Manifest struct {
	Version   string   `json:"version"`
	RunID     string   `json:"run_id,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
	Files     []string `json:"files"`
}

// Archive formats.
const (
	FormatTarXZ   = "tar.xz"
	FormatTarGZ   = "tar.gz"
	FormatUnknown = "unknown"
)

// DetectFormat detects the archive format from the file extension.
func DetectFormat(path string) string {
	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		return FormatTarXZ
	case strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		return FormatTarGZ
	default:
		return FormatUnknown
	}
}

// ReadManifest reads the manifest of the backup at path.
func ReadManifest(path string) (*Manifest, error) {
	content, err := ReadFile(path, ManifestName)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
