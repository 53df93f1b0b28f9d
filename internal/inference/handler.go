package inference

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

const maxInpaintSize = 20 << 20 // image plus mask

// Handler proxies artwork cleanup requests to the model server so the editor
// never talks to it directly.
type Handler struct {
	client *Client
}

// NewHandler creates an inference handler backed by client.
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// Inpaint handles POST /inpaint (multipart form with "image" and "mask"
// fields). The mask marks removal areas in white; method, radius and padding
// arrive as query parameters and fall through to the model server defaults
// when absent.
func (h *Handler) Inpaint(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxInpaintSize)
	if err := r.ParseMultipartForm(maxInpaintSize); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	image, filename, err := formFileBytes(r, "image")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mask, _, err := formFileBytes(r, "mask")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	radius, err := intParam(q.Get("radius"))
	if err != nil {
		http.Error(w, "invalid radius", http.StatusBadRequest)
		return
	}
	padding, err := intParam(q.Get("padding"))
	if err != nil {
		http.Error(w, "invalid padding", http.StatusBadRequest)
		return
	}

	result, err := h.client.Inpaint(r.Context(), image, mask, filename, q.Get("method"), radius, padding)
	if err != nil {
		slog.Error("inpaint", "error", err, "file", filename)
		http.Error(w, "inpainting failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, result)
}

// Methods handles GET /inpaint/methods.
func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	result, err := h.client.InpaintMethods(r.Context())
	if err != nil {
		slog.Error("inpaint methods", "error", err)
		http.Error(w, "inference server unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, result)
}

func formFileBytes(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %s file", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read %s file", field)
	}
	return data, header.Filename, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
