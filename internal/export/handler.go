// Package export builds downloadable rig bundles: a zip with the document,
// a manifest, and the part artwork with LOD levels ready for a game engine.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/imaging"
)

const (
	maxUploadSize = 50 << 20 // 50MB
	bundleLODs    = 3
)

// AssetLocator resolves an asset ID to a local file path.
type AssetLocator interface {
	Path(assetID string) (string, error)
}

type Handler struct {
	assets AssetLocator
}

func NewHandler(assets AssetLocator) *Handler {
	return &Handler{assets: assets}
}

type manifest struct {
	Project    string            `json:"project"`
	ExportedAt string            `json:"exportedAt"`
	PointCount int               `json:"pointCount"`
	PartCount  int               `json:"partCount"`
	Animations []string          `json:"animations"`
	Assets     []assetEntry      `json:"assets"`
	Collisions map[string][4]int `json:"collisions"`
}

type assetEntry struct {
	ID    string   `json:"id"`
	Files []string `json:"files"`
}

// ExportBundle handles POST /export/bundle. The body is the rig document
// JSON; the response is a zip containing the document, a manifest, and each
// referenced asset with its LOD chain.
func (h *Handler) ExportBundle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var doc document.RigDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := doc.ValidateForest(); err != nil {
		http.Error(w, "invalid skeleton: "+err.Error(), http.StatusBadRequest)
		return
	}

	name := sanitizeName(doc.Project.Name)
	if name == "" {
		name = "rig"
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-bundle.zip"`, name))

	if err := h.writeBundle(w, &doc); err != nil {
		// Headers are already sent; log and drop the connection.
		slog.Error("write bundle", "project", doc.Project.ID, "error", err)
	}
}

func (h *Handler) writeBundle(w io.Writer, doc *document.RigDocument) error {
	zw := zip.NewWriter(w)
	defer zw.Close()

	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := writeZipFile(zw, "document.json", docJSON); err != nil {
		return err
	}

	man := manifest{
		Project:    doc.Project.Name,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		PointCount: len(doc.Points),
		PartCount:  len(doc.Parts),
		Collisions: make(map[string][4]int),
	}
	for id := range doc.Animations {
		man.Animations = append(man.Animations, id)
	}

	for id := range doc.Assets {
		files, box, err := h.writeAsset(zw, id)
		if err != nil {
			slog.Warn("asset skipped in bundle", "asset", id, "error", err)
			continue
		}
		man.Assets = append(man.Assets, assetEntry{ID: id, Files: files})
		man.Collisions[id] = box
	}

	manJSON, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeZipFile(zw, "manifest.json", manJSON)
}

func (h *Handler) writeAsset(zw *zip.Writer, assetID string) ([]string, [4]int, error) {
	var box [4]int

	path, err := h.assets.Path(assetID)
	if err != nil {
		return nil, box, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, box, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, box, fmt.Errorf("decode asset: %w", err)
	}

	rect := imaging.CollisionBox(img)
	box = [4]int{rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y}

	var files []string
	for i, lod := range imaging.GenerateLODs(img, bundleLODs) {
		name := fmt.Sprintf("assets/%s_lod%d.png", assetID, i)
		entry, err := zw.Create(name)
		if err != nil {
			return nil, box, fmt.Errorf("create zip entry: %w", err)
		}
		if err := png.Encode(entry, lod); err != nil {
			return nil, box, fmt.Errorf("encode lod: %w", err)
		}
		files = append(files, name)
	}
	return files, box, nil
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry: %w", err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("write zip entry: %w", err)
	}
	return nil
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
