package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
)

// Rasterizer converts a PDF document into one PNG image per page.
type Rasterizer interface {
	// Convert writes page images under outDir and returns their paths in
	// page order.
	Convert(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// PopplerRasterizer rasterizes PDFs by shelling out to poppler's pdftoppm.
type PopplerRasterizer struct{}

// Convert runs pdftoppm and collects the generated page images.
func (PopplerRasterizer) Convert(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", "150", pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, out)
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("collecting page images: %w", err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no page images")
	}

	// Glob order is lexical; pdftoppm zero-pads page numbers so this is
	// page order.
	sort.Strings(images)
	return images, nil
}

// cleanupImages removes the generated page images. Failures are logged and
// otherwise ignored.
func cleanupImages(paths []string, logger *slog.Logger) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			logger.Error("failed to remove page image", "path", p, "error", err)
		}
	}
}
