package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/asset"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/auth"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/config"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/export"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/inference"
	mw "github.com/amberpipeline/amberpipeline/backend-go/internal/middleware"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/prefs"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/project"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/session"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/store"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/typeid"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/workflow"
)

// playgroundProjectID is the shared scratch project: anonymous access, no
// database row, nothing persisted.
const playgroundProjectID = "proj_playground"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	queries := store.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	projectService := project.NewService(queries)
	projectHandler := project.NewHandler(projectService)

	prefStore := prefs.NewStore(queries)
	defer prefStore.Dispose()
	prefHandler := prefs.NewHandler(prefStore)

	// Document loader for the session hub. The playground has no backing
	// project row, so its room starts from a fresh document every time.
	docLoader := func(projectID string) (*document.RigDocument, error) {
		if projectID == playgroundProjectID {
			return document.NewEmptyDocument(projectID, "Playground",
				typeid.NewPointID(), typeid.NewAnimationID()), nil
		}

		snap, err := queries.GetLatestSnapshot(context.Background(), projectID)
		if err != nil {
			return nil, err
		}
		var doc document.RigDocument
		if err := json.Unmarshal(snap.Document, &doc); err != nil {
			return nil, err
		}
		return &doc, nil
	}

	// Document saver for the session hub. Playground edits are ephemeral.
	docSaver := func(projectID string, doc *document.RigDocument) error {
		if projectID == playgroundProjectID {
			return nil
		}

		docJSON, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document: %w", err)
		}

		nextVersion := int32(1)
		if snap, err := queries.GetLatestSnapshot(context.Background(), projectID); err == nil {
			nextVersion = snap.Version + 1
		}

		_, err = queries.CreateSnapshot(context.Background(), store.CreateSnapshotParams{
			ID:        typeid.NewSnapshotID(),
			ProjectID: projectID,
			Version:   nextVersion,
			Document:  docJSON,
		})
		if err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}
		return nil
	}

	hub := session.NewHub(docLoader, docSaver)
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.AssetDir)
	exportHandler := export.NewHandler(assetHandler)

	inferenceClient := inference.NewClient(cfg.InferenceURL)
	inferenceHandler := inference.NewHandler(inferenceClient)

	resolver, err := workflow.NewResolverFromFile(cfg.NamingRulesPath)
	if err != nil {
		slog.Error("load naming rules", "error", err)
		os.Exit(1)
	}
	manager, err := workflow.NewManager(cfg.WatchDir, cfg.OutputDir, resolver, inferenceClient, cfg.MaxParallelTasks)
	if err != nil {
		slog.Error("create workflow manager", "error", err)
		os.Exit(1)
	}
	workflowHandler := workflow.NewHandler(manager)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS)

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset endpoints, public so the playground works without an account
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Bundle export, public for the same reason
	r.HandleFunc("/export/bundle", exportHandler.ExportBundle).Methods("POST", "OPTIONS")

	// Artwork cleanup, proxied to the model server
	r.HandleFunc("/inpaint", inferenceHandler.Inpaint).Methods("POST", "OPTIONS")
	r.HandleFunc("/inpaint/methods", inferenceHandler.Methods).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.RequireAuth)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")

	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/invite", projectHandler.Invite).Methods("POST")
	api.HandleFunc("/projects/{projectId}/members", projectHandler.ListMembers).Methods("GET")
	api.HandleFunc("/projects/{projectId}/members/{userId}", projectHandler.RemoveMember).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/snapshots/latest", projectHandler.GetLatestSnapshot).Methods("GET")
	api.HandleFunc("/projects/{projectId}/snapshots", projectHandler.SaveSnapshot).Methods("POST")

	api.HandleFunc("/preferences", prefHandler.List).Methods("GET")
	api.HandleFunc("/preferences/{key}", prefHandler.Get).Methods("GET")
	api.HandleFunc("/preferences/{key}", prefHandler.Set).Methods("PUT")

	api.HandleFunc("/workflow/start", workflowHandler.Start).Methods("POST")
	api.HandleFunc("/workflow/stop", workflowHandler.Stop).Methods("POST")
	api.HandleFunc("/workflow/status", workflowHandler.Status).Methods("GET")
	api.HandleFunc("/workflow/process-file/{filename}", workflowHandler.ProcessFile).Methods("POST")
	api.HandleFunc("/workflow/clear-history", workflowHandler.ClearHistory).Methods("POST")
	api.HandleFunc("/workflow/generate-metadata", workflowHandler.GenerateMetadata).Methods("POST")
	api.HandleFunc("/workflow/batch-config", workflowHandler.GetBatchConfig).Methods("GET")
	api.HandleFunc("/workflow/batch-config", workflowHandler.SetBatchConfig).Methods("POST")

	// WebSocket endpoint
	r.HandleFunc("/ws/project/{projectId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, queries, cfg.AllowedOrigins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		manager.Stop()

		// Stop hub to flush all dirty documents
		slog.Info("saving all documents...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, queries *store.Queries, allowedOrigins string) {
	vars := mux.Vars(r)
	projectID := vars["projectId"]

	var userID string
	var displayName string

	// Playground project allows anonymous access
	if projectID == playgroundProjectID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Browsers cannot set headers on websocket handshakes, so the
		// token arrives as a query param
		token, err := auth.BearerToken(r)
		if err != nil {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		_, err = queries.GetProjectMember(r.Context(), store.GetProjectMemberParams{
			ProjectID: projectID,
			UserID:    userID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, "not a project member", http.StatusForbidden)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(allowedOrigins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := session.NewClient(hub, conn, userID, displayName, projectID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func originPatterns(allowedOrigins string) []string {
	var patterns []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		origin = strings.TrimPrefix(origin, "http://")
		origin = strings.TrimPrefix(origin, "https://")
		if origin != "" {
			patterns = append(patterns, origin)
		}
	}
	return patterns
}
