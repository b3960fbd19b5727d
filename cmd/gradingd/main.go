package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/gradeloop/gradeloop/internal/api/http"
	"github.com/gradeloop/gradeloop/internal/audit"
	auth "github.com/gradeloop/gradeloop/internal/auth/middleware"
	"github.com/gradeloop/gradeloop/internal/config"
	"github.com/gradeloop/gradeloop/internal/db"
	"github.com/gradeloop/gradeloop/internal/gradingsession"
	"github.com/gradeloop/gradeloop/internal/rbac"
	"github.com/gradeloop/gradeloop/internal/roster"
	"github.com/gradeloop/gradeloop/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	rosterStore := roster.NewSQLStore(dbh, cfg.DBDriver)
	events := audit.NewEventRepo(dbh)
	sessions := gradingsession.NewSQLStore(dbh, cfg.DBDriver, events)

	sheets, err := storage.NewFSSheetStore(cfg.SheetDir)
	if err != nil {
		log.Fatalf("sheet store: %v", err)
	}

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	if cfg.EnableLocalAuth {
		if err := auth.EnsureUser(dbh, cfg.AdminUser, cfg.AdminPassHash, "admin"); err != nil {
			log.Fatalf("seed admin user: %v", err)
		}
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	}

	// Protected API (JWT -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("roster:read")).
			Get("/teachers", api.ListTeachersHandler(rosterStore))
		pr.With(rbac.Require("roster:write")).
			Post("/teachers", api.CreateTeacherHandler(rosterStore))
		pr.With(rbac.Require("roster:read")).
			Get("/exams", api.ListExamsHandler(rosterStore))
		pr.With(rbac.Require("roster:write")).
			Post("/exams", api.CreateExamHandler(rosterStore))

		pr.With(rbac.Require("session:read")).
			Get("/grading/sessions/active", api.ActiveSessionHandler(sessions, rosterStore))
		pr.With(rbac.Require("session:write")).
			Post("/grading/sessions", api.CreateSessionHandler(sessions, rosterStore))
		pr.With(rbac.Require("session:write")).
			Patch("/grading/sessions/{sessionID}", api.UpdateSessionHandler(sessions))
		pr.With(rbac.Require("session:write")).
			Post("/grading/sessions/{sessionID}/complete", api.CompleteSessionHandler(sessions))
		pr.With(rbac.Require("session:write")).
			Post("/grading/sessions/{sessionID}/sheets", api.UploadSheetHandler(sessions, sheets, events))
		pr.With(rbac.Require("session:read")).
			Get("/grading/sessions/{sessionID}/sheets", api.ListSheetsHandler(sheets))
		pr.With(rbac.Require("audit:read")).
			Get("/grading/sessions/{sessionID}/events", api.SessionEventsHandler(events))

		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
