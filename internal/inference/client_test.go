package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_SendsMultipartAndPoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/segment", r.URL.Path)
		assert.Equal(t, "10,20;30,40", r.URL.Query().Get("points"))
		assert.Equal(t, "1;0", r.URL.Query().Get("point_labels"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "char.png", header.Filename)

		json.NewEncoder(w).Encode(SegmentResult{Success: true, Image: "aGVsbG8="})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Segment(context.Background(), []byte("fake-png"), "char.png",
		[]Point{{X: 10, Y: 20}, {X: 30, Y: 40}}, []int{1, 0})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "aGVsbG8=", result.Image)
}

func TestEdgeSnap_ParsesSnappedPoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/semantic/edge-snap", r.URL.Path)
		assert.Equal(t, "foreground", r.URL.Query().Get("labels"))
		json.NewEncoder(w).Encode(EdgeSnapResult{
			Success:       true,
			SnappedPoints: []Point{{X: 11, Y: 19}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.EdgeSnap(context.Background(), []byte("img"), "a.png",
		[]Point{{X: 10, Y: 20}}, "foreground")
	require.NoError(t, err)
	require.Len(t, result.SnappedPoints, 1)
	assert.Equal(t, Point{X: 11, Y: 19}, result.SnappedPoints[0])
}

func TestJointExpansion_EncodesBBox(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/semantic/joint-expansion", r.URL.Path)
		assert.Equal(t, "5,10,100,200", r.URL.Query().Get("bbox"))
		assert.Equal(t, "background", r.URL.Query().Get("label"))
		json.NewEncoder(w).Encode(MaskResult{Success: true, MaskBase64: "data:image/png;base64,xyz"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.JointExpansion(context.Background(), []byte("img"), "a.png",
		BBox{X: 5, Y: 10, Width: 100, Height: 200}, "background")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestProcessBrush_EncodesStrokesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var strokes []BrushStroke
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("strokes")), &strokes))
		require.Len(t, strokes, 1)
		assert.Equal(t, "foreground", strokes[0].Label)
		json.NewEncoder(w).Encode(BrushResult{Success: true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.ProcessBrush(context.Background(), []byte("img"), "a.png", []BrushStroke{
		{Points: []Point{{X: 1, Y: 2}}, Label: "foreground", Radius: 8},
	})
	require.NoError(t, err)
}

func TestInpaint_SendsBothFilesAndParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/inpaint", r.URL.Path)
		assert.Equal(t, "telea", r.URL.Query().Get("method"))
		assert.Equal(t, "5", r.URL.Query().Get("radius"))
		assert.Equal(t, "12", r.URL.Query().Get("padding"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		image, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer image.Close()
		assert.Equal(t, "char.png", header.Filename)

		mask, maskHeader, err := r.FormFile("mask")
		require.NoError(t, err)
		defer mask.Close()
		assert.Equal(t, "mask_char.png", maskHeader.Filename)

		json.NewEncoder(w).Encode(InpaintResult{
			Success: true, Image: "cGFpbnRlZA==", Method: "telea", Radius: 5, Padding: 12,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Inpaint(context.Background(), []byte("fake-png"), []byte("fake-mask"),
		"char.png", "telea", 5, 12)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "cGFpbnRlZA==", result.Image)
	assert.Equal(t, "telea", result.Method)
}

func TestInpaint_DefaultsOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("method"))
		assert.False(t, r.URL.Query().Has("radius"))
		assert.False(t, r.URL.Query().Has("padding"))
		json.NewEncoder(w).Encode(InpaintResult{Success: true, Method: "telea", Radius: 3, Padding: 10})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Inpaint(context.Background(), []byte("img"), []byte("mask"), "a.png", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Radius)
	assert.Equal(t, 10, result.Padding)
}

func TestInpaintMethods_ListsAlgorithms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/inpaint/methods", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(InpaintMethodsResult{
			Success: true,
			Methods: []string{"telea", "ns", "lama"},
			Descriptions: map[string]string{
				"telea": "Fast marching method",
				"ns":    "Navier-Stokes",
				"lama":  "Large mask inpainting model",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.InpaintMethods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"telea", "ns", "lama"}, result.Methods)
	assert.Contains(t, result.Descriptions, "lama")
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Segmentation failed"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Segment(context.Background(), []byte("img"), "a.png", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
