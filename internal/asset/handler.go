package asset

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/imaging"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	CollisionBox [4]int `json:"collisionBox"`
}

// Handler serves artwork upload and retrieval endpoints.
type Handler struct {
	dir string
}

// NewHandler creates an asset handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Upload handles POST /assets/upload (multipart form with "file" field).
// Artwork is stored as PNG regardless of the upload format; the opaque
// bounding box is computed up front so the editor can place the character
// without a second pass.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	img, originalName, err := h.readUpload(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	assetID := typeid.NewAssetID()
	if err := h.storePNG(assetID, img); err != nil {
		slog.Error("store asset", "error", err, "asset", assetID)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	bounds := img.Bounds()
	box := imaging.CollisionBox(img)
	resp := UploadResponse{
		ID:           assetID,
		URL:          "/assets/" + assetID + ".png",
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		Type:         "png",
		Name:         originalName,
		CollisionBox: [4]int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (image.Image, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, "", fmt.Errorf("file too large (max 10MB)")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("missing file field")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/png") && !strings.HasPrefix(contentType, "image/jpeg") {
		return nil, "", fmt.Errorf("only PNG and JPEG images are supported")
	}

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image: %w", err)
	}
	return img, header.Filename, nil
}

func (h *Handler) storePNG(assetID string, img image.Image) error {
	path := filepath.Join(h.dir, assetID+".png")
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Serve returns an http.Handler that serves stored asset files with caching
// headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Path returns the on-disk path of a stored asset, or an error when the
// asset does not exist.
func (h *Handler) Path(assetID string) (string, error) {
	path := filepath.Join(h.dir, assetID+".png")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("asset not found: %s", assetID)
	}
	return path, nil
}

// Delete removes an asset file from disk.
func (h *Handler) Delete(assetID string) error {
	path := filepath.Join(h.dir, assetID+".png")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("asset not found: %s", assetID)
	}
	return nil
}
