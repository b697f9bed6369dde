package main

import (
	"context"
	"encoding/json"
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

	"github.com/imgstudio/imgstudio/backend-go/internal/asset"
	"github.com/imgstudio/imgstudio/backend-go/internal/auth"
	"github.com/imgstudio/imgstudio/backend-go/internal/collab"
	"github.com/imgstudio/imgstudio/backend-go/internal/config"
	"github.com/imgstudio/imgstudio/backend-go/internal/db"
	"github.com/imgstudio/imgstudio/backend-go/internal/export"
	"github.com/imgstudio/imgstudio/backend-go/internal/imageops"
	mw "github.com/imgstudio/imgstudio/backend-go/internal/middleware"
	"github.com/imgstudio/imgstudio/backend-go/internal/project"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := db.New(pool)
	if err := store.Migrate(ctx); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(store, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	projectService := project.NewService(store)
	projectHandler := project.NewHandler(projectService, cfg.MinDisplayWidth, cfg.MaxDisplayWidth)

	// Document loader for the collaboration hub
	docLoader := func(ctx context.Context, projectID string) (json.RawMessage, error) {
		doc, _, err := store.GetDocument(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}

	// Document saver for the collaboration hub
	docSaver := func(ctx context.Context, projectID string, doc json.RawMessage, version int) error {
		return store.SaveDocument(ctx, projectID, doc, version)
	}

	hub := collab.NewHub(docLoader, docSaver, collab.Options{
		MinDisplayWidth: cfg.MinDisplayWidth,
		MaxDisplayWidth: cfg.MaxDisplayWidth,
		MinCropSize:     cfg.MinCropSize,
	})
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.AssetDir, cfg.MaxUploadMB, cfg.MinDisplayWidth, cfg.MaxDisplayWidth)
	imageopsHandler := imageops.NewHandler(cfg.MaxUploadMB, slog.Default())
	exportHandler := export.NewHandler(assetHandler, cfg.MinDisplayWidth, cfg.MaxDisplayWidth, cfg.MinCropSize)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset endpoints (public, used by playground and authenticated users)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// One-shot image tools (public, the playground editor uses them too)
	r.HandleFunc("/images/process", imageopsHandler.Process).Methods("POST", "OPTIONS")
	r.HandleFunc("/images/info", imageopsHandler.Info).Methods("POST", "OPTIONS")
	r.HandleFunc("/images/compress", imageopsHandler.Compress).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")

	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/image", projectHandler.AttachImage).Methods("POST")
	api.HandleFunc("/projects/{projectId}/document", projectHandler.GetDocument).Methods("GET")
	api.HandleFunc("/projects/{projectId}/document", projectHandler.SaveDocument).Methods("PUT")

	api.HandleFunc("/images/{imageId}/export", exportHandler.Export).Methods("POST")

	// WebSocket endpoint
	r.HandleFunc("/ws/project/{projectId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, store, originPatterns(cfg.Origins()))
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

		// Stop hub first to save all dirty documents
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

// originPatterns strips schemes from the CORS allow list for the
// websocket handshake check.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, store *db.Store, patterns []string) {
	vars := mux.Vars(r)
	projectID := vars["projectId"]

	var userID string
	var displayName string

	// Playground project allows anonymous access
	if projectID == collab.PlaygroundProjectID {
		// Anonymous user for playground
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Auth via query param for real projects
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		// Check ownership
		proj, err := store.GetProject(r.Context(), projectID)
		if err != nil {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		if proj.OwnerID != userID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		// Get user display name
		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: patterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, collab.ClientInfo{
		UserID:      userID,
		DisplayName: displayName,
		ProjectID:   projectID,
		ClientID:    uuid.New().String(),
	})

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
