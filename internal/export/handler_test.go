package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
)

type dirLocator struct {
	dir string
}

func (l dirLocator) Path(assetID string) (string, error) {
	path := filepath.Join(l.dir, assetID+".png")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("asset not found: %s", assetID)
	}
	return path, nil
}

func strptr(s string) *string { return &s }

func bundleDoc() *document.RigDocument {
	return &document.RigDocument{
		Project: document.Project{ID: "proj_1", Name: "My Hero!"},
		Points: map[string]document.SkeletonPoint{
			"pt_root": {ID: "pt_root", Scale: 1, Children: []string{"pt_arm"}},
			"pt_arm":  {ID: "pt_arm", Scale: 1, Parent: strptr("pt_root")},
		},
		Parts: map[string]document.Part{
			"part_1": {ID: "part_1", MaskAssetID: "asset_1", Label: document.LabelForeground},
		},
		Animations: map[string]document.Animation{
			"anim_1": {ID: "anim_1", Duration: 2, FPS: 24},
		},
		Assets: map[string]document.Asset{
			"asset_1": {ID: "asset_1", Type: "png"},
		},
	}
}

func writeAssetPNG(t *testing.T, dir, id string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 8; y < 56; y++ {
		for x := 8; x < 56; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, id+".png"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestExportBundle(t *testing.T) {
	dir := t.TempDir()
	writeAssetPNG(t, dir, "asset_1")
	h := NewHandler(dirLocator{dir: dir})

	body, err := json.Marshal(bundleDoc())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/export/bundle", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ExportBundle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "My-Hero--bundle.zip")

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["document.json"])
	assert.True(t, names["manifest.json"])
	assert.True(t, names["assets/asset_1_lod0.png"])
	assert.True(t, names["assets/asset_1_lod2.png"])

	var man struct {
		Project    string            `json:"project"`
		PointCount int               `json:"pointCount"`
		Collisions map[string][4]int `json:"collisions"`
	}
	for _, f := range zr.File {
		if f.Name != "manifest.json" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(rc).Decode(&man))
		rc.Close()
	}
	assert.Equal(t, "My Hero!", man.Project)
	assert.Equal(t, 2, man.PointCount)
	assert.Equal(t, [4]int{8, 8, 56, 56}, man.Collisions["asset_1"])
}

func TestExportBundle_MissingAssetIsSkipped(t *testing.T) {
	h := NewHandler(dirLocator{dir: t.TempDir()})

	body, _ := json.Marshal(bundleDoc())
	req := httptest.NewRequest(http.MethodPost, "/export/bundle", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ExportBundle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	for _, f := range zr.File {
		assert.False(t, strings.HasPrefix(f.Name, "assets/"))
	}
}

func TestExportBundle_RejectsInvalidSkeleton(t *testing.T) {
	h := NewHandler(dirLocator{dir: t.TempDir()})

	doc := bundleDoc()
	doc.Points["pt_orphan"] = document.SkeletonPoint{ID: "pt_orphan", Parent: strptr("pt_missing")}
	body, _ := json.Marshal(doc)

	req := httptest.NewRequest(http.MethodPost, "/export/bundle", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ExportBundle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportBundle_RejectsBadJSON(t *testing.T) {
	h := NewHandler(dirLocator{dir: t.TempDir()})

	req := httptest.NewRequest(http.MethodPost, "/export/bundle", strings.NewReader("{bad"))
	rec := httptest.NewRecorder()
	h.ExportBundle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
