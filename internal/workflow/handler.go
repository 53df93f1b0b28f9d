package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.manager.Start()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Workflow monitoring started",
	})
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.manager.Stop()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Workflow monitoring stopped",
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *Handler) ProcessFile(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "filename is required"})
		return
	}

	// Processing is synchronous so callers see the result directly.
	result := h.manager.ProcessFile(context.Background(), filename)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.manager.ClearHistory()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Workflow history cleared",
	})
}

func (h *Handler) GenerateMetadata(w http.ResponseWriter, r *http.Request) {
	meta, path, err := h.manager.GenerateMetadata()
	if err != nil {
		slog.Error("generate metadata failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"path":     path,
		"metadata": meta,
	})
}

func (h *Handler) GetBatchConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"maxParallelTasks": h.manager.MaxParallelTasks(),
	})
}

type batchConfigRequest struct {
	MaxParallelTasks int `json:"maxParallelTasks"`
}

func (h *Handler) SetBatchConfig(w http.ResponseWriter, r *http.Request) {
	var req batchConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.manager.SetMaxParallelTasks(req.MaxParallelTasks); err != nil {
		if errors.Is(err, ErrInvalidParallelTasks) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("set batch config failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"maxParallelTasks": h.manager.MaxParallelTasks(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
