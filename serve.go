package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"eventflow/handlers"
	"eventflow/middleware"
	"eventflow/models"
	"eventflow/services"
	"eventflow/utils"
	"eventflow/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const localUploadDir = "./uploads"

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = os.Getenv("PORT")
			}
			if port == "" {
				port = "3000"
			}
			return runServe(cmd.Context(), opts, port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to PORT or 3000)")
	return cmd
}

func runServe(parent context.Context, opts *rootOptions, port string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(opts)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	storage, err := newStorage(ctx)
	if err != nil {
		return err
	}

	hub := services.NewHub(32)
	heartbeat, err := workers.StartHeartbeat(hub, heartbeatInterval())
	if err != nil {
		return fmt.Errorf("failed to start heartbeat: %w", err)
	}
	defer heartbeat.Shutdown()

	app := newApp(db, hub, storage)

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()
	log.Printf("✅ Server running on http://localhost:%s", port)

	<-ctx.Done()
	log.Println("Shutting down server...")
	return app.ShutdownWithTimeout(5 * time.Second)
}

// newApp wires services and routes onto a fiber app.
func newApp(db *gorm.DB, hub *services.Hub, storage utils.Storage) *fiber.App {
	bracketService := services.NewBracketService(db, hub)
	performanceService := services.NewPerformanceService(db, hub)
	tournamentService := services.NewTournamentService(db, hub, bracketService, performanceService)
	attendanceService := services.NewAttendanceService(db, hub)
	mediaService := services.NewMediaService(db, storage)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	app.Use(middleware.RequestLogger())

	origins := middleware.AllowedOrigins(os.Getenv("ALLOWED_ORIGINS"))
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept, Cache-Control, X-Requested-With",
		MaxAge:       86400,
	}))
	log.Printf("✅ CORS configured for origins: %s", origins)

	handlers.SetupTournamentRoutes(app, tournamentService)
	handlers.SetupBracketRoutes(app, bracketService)
	handlers.SetupPerformanceRoutes(app, performanceService)
	handlers.SetupAttendanceRoutes(app, attendanceService)
	handlers.SetupMediaRoutes(app, mediaService)
	handlers.SetupStreamRoutes(app, tournamentService, hub)

	app.Static("/uploads", localUploadDir)
	return app
}

// newStorage prefers R2 and falls back to the local uploads directory.
func newStorage(ctx context.Context) (utils.Storage, error) {
	r2, err := utils.NewR2StorageFromEnv(ctx)
	if err == nil {
		log.Println("✅ Uploads go to R2")
		return r2, nil
	}
	log.Printf("⚠️  %v, storing uploads in %s", err, localUploadDir)
	if err := utils.EnsureUploadDir(localUploadDir); err != nil {
		return nil, fmt.Errorf("failed to ensure upload dir: %w", err)
	}
	return &utils.LocalStorage{Root: localUploadDir, URLPrefix: "/uploads"}, nil
}

func heartbeatInterval() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("HEARTBEAT_SECONDS"))
	if err != nil || secs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(secs) * time.Second
}
