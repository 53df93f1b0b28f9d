package project

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/auth"
)

// Handler exposes project CRUD, membership and snapshot endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name string `json:"name"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

// caller pulls the authenticated user and the projectId route var.
func caller(r *http.Request) (userID, projectID string) {
	return auth.UserIDFromContext(r.Context()), mux.Vars(r)["projectId"]
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := decode(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		errorJSON(w, http.StatusBadRequest, "name is required")
		return
	}

	project, err := h.service.Create(r.Context(), req.Name, userID)
	if err != nil {
		slog.Error("create project failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond(w, http.StatusCreated, project)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, projectID := caller(r)

	project, err := h.service.Get(r.Context(), projectID, userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusOK, project)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	projects, err := h.service.List(r.Context(), userID)
	if err != nil {
		slog.Error("list projects failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond(w, http.StatusOK, projects)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, projectID := caller(r)

	if err := h.service.Delete(r.Context(), projectID, userID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, projectID := caller(r)

	var req inviteRequest
	if err := decode(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		errorJSON(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.service.InviteByEmail(r.Context(), projectID, userID, req.Email); err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]string{"status": "invited"})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, projectID := caller(r)

	members, err := h.service.ListMembers(r.Context(), projectID, userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusOK, members)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, projectID := caller(r)
	targetUserID := mux.Vars(r)["userId"]

	if err := h.service.RemoveMember(r.Context(), projectID, userID, targetUserID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLatestSnapshot streams the stored document verbatim; it is already JSON.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, projectID := caller(r)

	doc, err := h.service.GetLatestSnapshot(r.Context(), projectID, userID)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *Handler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, projectID := caller(r)

	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		errorJSON(w, http.StatusBadRequest, "invalid document")
		return
	}

	if err := h.service.SaveSnapshot(r.Context(), projectID, userID, body); err != nil {
		h.fail(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]string{"status": "saved"})
}

// fail maps service sentinels onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		errorJSON(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrForbidden):
		errorJSON(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrNotMember):
		errorJSON(w, http.StatusForbidden, "not a project member")
	default:
		slog.Error("project service error", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}
