// Package charts implements the chart-rendering collaborator boundary.
// Drawing is an external presentation concern; this package only turns
// a computed series into an opaque artifact reference the renderer
// picks up.
package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patient-feedback-server/internal/domain"
)

// artifact is the serialized chart descriptor written to disk.
type artifact struct {
	Kind   domain.ChartKind `json:"kind"`
	Series domain.Series    `json:"series"`
}

// FileRenderer writes chart descriptors into the static artifacts
// directory and returns their paths.
type FileRenderer struct {
	outputDir string
}

// NewFileRenderer creates a renderer targeting the given directory.
func NewFileRenderer(outputDir string) *FileRenderer {
	return &FileRenderer{outputDir: outputDir}
}

// Render writes one chart descriptor and returns its path.
func (r *FileRenderer) Render(_ context.Context, kind domain.ChartKind, series domain.Series) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}

	data, err := json.Marshal(artifact{Kind: kind, Series: series})
	if err != nil {
		return "", fmt.Errorf("encoding chart artifact: %w", err)
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("%s_%s.json", kind, series.Name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing chart artifact: %w", err)
	}
	return path, nil
}
