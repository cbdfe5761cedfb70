package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/splittab/backend/internal/config"
	"github.com/splittab/backend/internal/database"
	"github.com/splittab/backend/internal/handlers"
	"github.com/splittab/backend/internal/middleware"
	"github.com/splittab/backend/internal/services"
	"github.com/splittab/backend/internal/storage"
	"github.com/splittab/backend/pkg/logger"
	"github.com/splittab/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	membershipService := services.NewMembershipService(db)
	notificationService := services.NewNotificationService(db)
	billService := services.NewBillService(db, membershipService, notificationService, cfg.Server.DefaultCurrency)
	splitService := services.NewSplitService(db, membershipService, notificationService)
	balanceService := services.NewBalanceService(db)

	authHandler := handlers.NewAuthHandler(db)
	usersHandler := handlers.NewUsersHandler(db)
	groupsHandler := handlers.NewGroupsHandler(membershipService, billService)
	billsHandler := handlers.NewBillsHandler(billService, splitService)
	splitsHandler := handlers.NewSplitsHandler(splitService, storageClient)
	balancesHandler := handlers.NewBalancesHandler(balanceService)
	notificationsHandler := handlers.NewNotificationsHandler(notificationService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 16 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.Search)

	groupRoutes := api.Group("/groups", authMiddleware.RequireAuth)
	groupRoutes.Post("/", groupsHandler.Create)
	groupRoutes.Get("/", groupsHandler.List)
	groupRoutes.Post("/join", groupsHandler.Join)
	groupRoutes.Get("/:id", groupsHandler.Get)
	groupRoutes.Post("/:id/members", groupsHandler.AddMember)
	groupRoutes.Get("/:id/bills", groupsHandler.Bills)

	billRoutes := api.Group("/bills", authMiddleware.RequireAuth)
	billRoutes.Post("/", billsHandler.Create)
	billRoutes.Get("/", billsHandler.List)
	billRoutes.Get("/:id", billsHandler.Get)
	billRoutes.Post("/:id/items", billsHandler.AddItem)
	billRoutes.Delete("/:id/items/:itemId", billsHandler.RemoveItem)
	billRoutes.Post("/:id/submit", billsHandler.Submit)
	billRoutes.Post("/:id/approve", billsHandler.Approve)
	billRoutes.Post("/:id/cancel", billsHandler.Cancel)
	billRoutes.Get("/:id/splits", billsHandler.ListSplits)

	splitRoutes := api.Group("/splits", authMiddleware.RequireAuth)
	splitRoutes.Post("/:id/proof", splitsHandler.SubmitProof)
	splitRoutes.Get("/:id/proof", splitsHandler.DownloadProof)
	splitRoutes.Get("/:id/proof-url", splitsHandler.ProofURL)
	splitRoutes.Post("/:id/confirm", splitsHandler.Confirm)
	splitRoutes.Post("/:id/reject", splitsHandler.Reject)

	api.Get("/balances", authMiddleware.RequireAuth, balancesHandler.Get)

	notificationRoutes := api.Group("/notifications", authMiddleware.RequireAuth)
	notificationRoutes.Get("/", notificationsHandler.List)
	notificationRoutes.Get("/unread-count", notificationsHandler.UnreadCount)
	notificationRoutes.Put("/read-all", notificationsHandler.MarkAllRead)
	notificationRoutes.Put("/:id/read", notificationsHandler.MarkRead)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
