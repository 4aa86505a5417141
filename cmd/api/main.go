package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "peerview/docs" // This is for Swagger
	"peerview/internal/auth"
	"peerview/internal/config"
	"peerview/internal/database"
	"peerview/internal/handlers"
	"peerview/internal/logger"
	"peerview/internal/matching"
	"peerview/internal/middleware"
	"peerview/internal/repository"
	"peerview/internal/scheduler"
	"peerview/internal/service"
	"peerview/internal/vault"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title PeerView API
// @version 1.0
// @description Backend API for the PeerView ANSP peer-review matching platform
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@peerview.aero

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		err := db.Close()
		if err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	roleRepo := repository.NewRoleRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	orgRepo := repository.NewOrganizationRepository(db.DB)
	reviewerRepo := repository.NewReviewerRepository(db.DB)
	availabilityRepo := repository.NewAvailabilityRepository(db.DB)
	coiRepo := repository.NewCOIRepository(db.DB)
	reviewRepo := repository.NewReviewRepository(db.DB)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	authSvc := service.NewAuthService(userRepo, roleRepo, sessionRepo, authService)
	auditSvc := service.NewAuditService(auditRepo)
	reviewerService := service.NewReviewerService(reviewerRepo, orgRepo, auditSvc)
	availabilityService := service.NewAvailabilityService(availabilityRepo, reviewerRepo, auditSvc)
	reviewService := service.NewReviewService(reviewRepo, orgRepo, reviewerRepo, auditSvc)

	weights := matching.ScoringWeights{
		Expertise:    cfg.Matching.WeightExpertise,
		Language:     cfg.Matching.WeightLanguage,
		Availability: cfg.Matching.WeightAvailability,
		Experience:   cfg.Matching.WeightExperience,
	}
	matchingService, err := service.NewMatchingService(reviewerRepo, reviewRepo, orgRepo, auditSvc, weights)
	if err != nil {
		slog.Error("Failed to initialize matching service", "error", err)
		os.Exit(1)
	}

	// Initialize COI service (requires Vault for details encryption)
	var coiService *service.COIService
	if cfg.Vault.Enabled {
		slog.Info("Vault is enabled - initializing COI encryption")
		vaultClient, err := vault.NewClient(&vault.Config{
			Address:      cfg.Vault.Address,
			Token:        cfg.Vault.Token,
			TransitMount: cfg.Vault.TransitMount,
		})
		if err != nil {
			slog.Error("Failed to initialize Vault client", "error", err)
			os.Exit(1)
		}

		coiService = service.NewCOIService(coiRepo, reviewerRepo, orgRepo, vaultClient, auditSvc)
		slog.Info("COI service initialized", "vault_addr", cfg.Vault.Address)
	} else {
		slog.Warn("Vault is disabled - COI declarations will not work")
	}

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(authSvc, coiService, availabilityService, &cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo)
	rbacMw := middleware.NewRBACMiddleware(db.DB)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)
	auditMw := middleware.NewAuditMiddleware(db.DB)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, auditMw, cfg)
	userHandler := handlers.NewUserHandler(userRepo, roleRepo, auditMw, authSvc)
	auditHandler := handlers.NewAuditHandler(auditRepo)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, authSvc, auditMw, db.DB)
	orgHandler := handlers.NewOrganizationHandler(orgRepo, auditMw)
	reviewerHandler := handlers.NewReviewerHandler(reviewerService, auditMw)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	coiHandler := handlers.NewCOIHandler(coiService, auditMw)
	reviewHandler := handlers.NewReviewHandler(reviewService, matchingService, auditMw)

	// Setup router
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("/api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("/api/v1/auth/refresh", authHandler.RefreshToken)

	// Protected routes
	mux.Handle("/api/v1/users/profile", authMw.Authenticate(http.HandlerFunc(userHandler.GetProfile)))
	mux.Handle("/api/v1/users/profile/update", authMw.Authenticate(http.HandlerFunc(userHandler.UpdateProfile)))
	mux.Handle("/api/v1/users/password/change", authMw.Authenticate(http.HandlerFunc(userHandler.ChangePassword)))
	mux.Handle("/api/v1/users/sessions", authMw.Authenticate(http.HandlerFunc(sessionHandler.GetMySessions)))
	mux.Handle("/api/v1/users/sessions/delete", authMw.Authenticate(http.HandlerFunc(sessionHandler.DeleteMySession)))
	mux.Handle("/api/v1/users/sessions/delete-all", authMw.Authenticate(http.HandlerFunc(sessionHandler.DeleteAllMySessions)))

	// Admin routes
	mux.Handle("/api/v1/admin/users/get",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.GetUser),
			),
		),
	)
	mux.Handle("/api/v1/admin/users/list",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.ListUsers),
			),
		),
	)
	mux.Handle("/api/v1/admin/users/create",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.CreateUser),
			),
		),
	)
	mux.Handle("/api/v1/admin/users/assign-role",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.AssignRole),
			),
		),
	)
	mux.Handle("/api/v1/admin/users/remove-role",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.RemoveRole),
			),
		),
	)
	mux.Handle("/api/v1/admin/users/update-status",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.UpdateUserActiveStatus),
			),
		),
	)
	mux.Handle("/api/v1/admin/users/delete",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.DeleteUser),
			),
		),
	)
	mux.Handle("/api/v1/admin/roles/list",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(userHandler.ListRoles),
			),
		),
	)
	mux.Handle("/api/v1/admin/audit-logs/list",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(auditHandler.ListAuditLogs),
			),
		),
	)
	mux.Handle("/api/v1/admin/sessions",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(sessionHandler.GetAllSessions),
			),
		),
	)
	mux.Handle("/api/v1/admin/sessions/delete-all",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(sessionHandler.DeleteAllUserSessions),
			),
		),
	)

	// Organization routes
	mux.Handle("GET /api/v1/organizations/get",
		authMw.Authenticate(http.HandlerFunc(orgHandler.GetOrganization)))
	mux.Handle("GET /api/v1/organizations/list",
		authMw.Authenticate(http.HandlerFunc(orgHandler.ListOrganizations)))
	mux.Handle("POST /api/v1/organizations/create",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(orgHandler.CreateOrganization),
			),
		),
	)
	mux.Handle("PUT /api/v1/organizations/update",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(orgHandler.UpdateOrganization),
			),
		),
	)
	mux.Handle("DELETE /api/v1/organizations/delete",
		authMw.Authenticate(
			rbacMw.RequireRole("admin")(
				http.HandlerFunc(orgHandler.DeleteOrganization),
			),
		),
	)

	// Reviewer pool routes
	mux.Handle("GET /api/v1/reviewers/get",
		authMw.Authenticate(http.HandlerFunc(reviewerHandler.GetReviewer)))
	mux.Handle("GET /api/v1/reviewers/me",
		authMw.Authenticate(http.HandlerFunc(reviewerHandler.GetMyProfile)))
	mux.Handle("GET /api/v1/reviewers/pool",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewerHandler.ListPool),
			),
		),
	)
	mux.Handle("GET /api/v1/reviewers/pool-status",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewerHandler.GetPoolStatus),
			),
		),
	)
	mux.Handle("POST /api/v1/reviewers/nominate",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewerHandler.Nominate),
			),
		),
	)
	mux.Handle("POST /api/v1/reviewers/transition",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewerHandler.TransitionStatus),
			),
		),
	)
	mux.Handle("POST /api/v1/reviewers/lead-qualification",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewerHandler.SetLeadQualification),
			),
		),
	)
	mux.Handle("POST /api/v1/reviewers/expertise",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewerHandler.UpsertExpertise),
			),
		),
	)
	mux.Handle("DELETE /api/v1/reviewers/expertise",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewerHandler.RemoveExpertise),
			),
		),
	)
	mux.Handle("POST /api/v1/reviewers/languages",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewerHandler.UpsertLanguage),
			),
		),
	)
	mux.Handle("POST /api/v1/reviewers/certifications",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewerHandler.AddCertification),
			),
		),
	)

	// Availability routes
	mux.Handle("POST /api/v1/availability/declare",
		authMw.Authenticate(http.HandlerFunc(availabilityHandler.DeclarePeriod)))
	mux.Handle("POST /api/v1/availability/update",
		authMw.Authenticate(http.HandlerFunc(availabilityHandler.UpdatePeriod)))
	mux.Handle("DELETE /api/v1/availability/delete",
		authMw.Authenticate(http.HandlerFunc(availabilityHandler.DeletePeriod)))
	mux.Handle("GET /api/v1/availability/list",
		authMw.Authenticate(http.HandlerFunc(availabilityHandler.ListPeriods)))
	mux.Handle("GET /api/v1/availability/coverage",
		authMw.Authenticate(http.HandlerFunc(availabilityHandler.GetCoverage)))

	// COI routes
	mux.Handle("POST /api/v1/coi/declare",
		authMw.Authenticate(http.HandlerFunc(coiHandler.Declare)))
	mux.Handle("GET /api/v1/coi/list",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(coiHandler.ListDeclarations),
			),
		),
	)
	mux.Handle("POST /api/v1/coi/verify",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(coiHandler.Verify),
			),
		),
	)
	mux.Handle("POST /api/v1/coi/deactivate",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(coiHandler.Deactivate),
			),
		),
	)
	mux.Handle("GET /api/v1/coi/check",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(coiHandler.CheckConflict),
			),
		),
	)

	// Review routes
	mux.Handle("GET /api/v1/reviews/get",
		authMw.Authenticate(http.HandlerFunc(reviewHandler.GetReview)))
	mux.Handle("GET /api/v1/reviews/list",
		authMw.Authenticate(http.HandlerFunc(reviewHandler.ListReviews)))
	mux.Handle("POST /api/v1/reviews/create",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewHandler.CreateReview),
			),
		),
	)
	mux.Handle("PUT /api/v1/reviews/update",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewHandler.UpdateReview),
			),
		),
	)
	mux.Handle("POST /api/v1/reviews/complete",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewHandler.CompleteReview),
			),
		),
	)
	mux.Handle("POST /api/v1/reviews/cancel",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewHandler.CancelReview),
			),
		),
	)

	// Matching routes
	mux.Handle("GET /api/v1/reviews/candidates",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewHandler.GetCandidates),
			),
		),
	)
	mux.Handle("POST /api/v1/reviews/propose-team",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewHandler.ProposeTeam),
			),
		),
	)
	mux.Handle("POST /api/v1/reviews/assign-team",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewHandler.AssignTeam),
			),
		),
	)
	mux.Handle("POST /api/v1/reviews/unassign-team",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewHandler.UnassignTeam),
			),
		),
	)
	mux.Handle("GET /api/v1/reviews/common-availability",
		authMw.Authenticate(
			rbacMw.RequireAnyRole("admin", "coordinator")(
				http.HandlerFunc(reviewHandler.CommonAvailability),
			),
		),
	)
	mux.Handle("GET /api/v1/reviews/weights",
		authMw.Authenticate(http.HandlerFunc(reviewHandler.GetWeights)))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`))
			if err != nil {
				slog.Error("Failed to write health check response", "error", err)
				return
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`))
		if err != nil {
			slog.Error("Failed to write health check response", "error", err)
			return
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
