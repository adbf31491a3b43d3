package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/ristomat/socialcast/configs"
	"github.com/ristomat/socialcast/internal/api/handlers"
	"github.com/ristomat/socialcast/internal/api/middleware"
	"github.com/ristomat/socialcast/internal/erp"
	job "github.com/ristomat/socialcast/internal/jobs"
	"github.com/ristomat/socialcast/internal/queue"
	"github.com/ristomat/socialcast/internal/repository"
	"github.com/ristomat/socialcast/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	erpClient := erp.NewClient(cfg.ERP)
	authCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := erpClient.Authenticate(authCtx); err != nil {
		log.Fatalf("Failed to authenticate against the ERP: %v", err)
	}
	cancel()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postingHistoryRepo := repository.NewPostingHistoryRepository(db)

	accounts := service.ParseAccounts(cfg.Accounts)
	gateway := erp.NewPostGateway(erpClient)
	r2Service := service.NewR2Service(*cfg)
	instagramService := service.NewInstagramService(*cfg)
	publishService := service.NewPublishService(*cfg, accounts, gateway, instagramService, r2Service, postingHistoryRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	publish := handlers.NewPublishHandler(*cfg, publishService, postingHistoryRepo, accounts, client)
	api.Post("/posts/publish", publish.PublishPost)
	api.Get("/posts/history", publish.History)
	api.Get("/accounts", publish.ListAccounts)

	// cron jobs
	sessionRefreshJob := job.NewSessionRefreshJob(erpClient)

	// queue
	queueW := queue.NewQueue(publishService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", sessionRefreshJob.RefreshSession)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 1,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
