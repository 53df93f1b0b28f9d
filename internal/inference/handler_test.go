package inference

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inpaintForm(t *testing.T, withMask bool) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "char.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-png"))
	require.NoError(t, err)
	if withMask {
		part, err = mw.CreateFormFile("mask", "mask.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake-mask"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestHandlerInpaint_ProxiesToModelServer(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/inpaint", r.URL.Path)
		assert.Equal(t, "ns", r.URL.Query().Get("method"))
		assert.Equal(t, "5", r.URL.Query().Get("radius"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("mask")
		require.NoError(t, err)
		json.NewEncoder(w).Encode(InpaintResult{Success: true, Image: "ZG9uZQ==", Method: "ns"})
	}))
	defer backend.Close()

	h := NewHandler(NewClient(backend.URL))
	body, contentType := inpaintForm(t, true)
	req := httptest.NewRequest(http.MethodPost, "/inpaint?method=ns&radius=5", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Inpaint(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result InpaintResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "ZG9uZQ==", result.Image)
}

func TestHandlerInpaint_MissingMask(t *testing.T) {
	h := NewHandler(NewClient("http://unused"))
	body, contentType := inpaintForm(t, false)
	req := httptest.NewRequest(http.MethodPost, "/inpaint", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Inpaint(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "mask")
}

func TestHandlerInpaint_BadRadius(t *testing.T) {
	h := NewHandler(NewClient("http://unused"))
	body, contentType := inpaintForm(t, true)
	req := httptest.NewRequest(http.MethodPost, "/inpaint?radius=huge", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Inpaint(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerMethods_ProxiesList(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/inpaint/methods", r.URL.Path)
		json.NewEncoder(w).Encode(InpaintMethodsResult{Success: true, Methods: []string{"telea", "ns"}})
	}))
	defer backend.Close()

	h := NewHandler(NewClient(backend.URL))
	rec := httptest.NewRecorder()
	h.Methods(rec, httptest.NewRequest(http.MethodGet, "/inpaint/methods", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var result InpaintMethodsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"telea", "ns"}, result.Methods)
}
