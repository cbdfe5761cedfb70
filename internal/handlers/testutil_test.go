package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/splittab/backend/internal/middleware"
	"github.com/splittab/backend/internal/models"
	"github.com/splittab/backend/internal/services"
	"github.com/splittab/backend/pkg/logger"
	"github.com/splittab/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB

	memberships   *services.MembershipService
	bills         *services.BillService
	splits        *services.SplitService
	notifications *services.NotificationService
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Membership{},
		&models.Bill{},
		&models.BillItem{},
		&models.ItemAssignee{},
		&models.BillParticipant{},
		&models.Split{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	membershipService := services.NewMembershipService(db)
	notificationService := services.NewNotificationService(db)
	billService := services.NewBillService(db, membershipService, notificationService, "INR")
	splitService := services.NewSplitService(db, membershipService, notificationService)
	balanceService := services.NewBalanceService(db)

	authHandler := NewAuthHandler(db)
	usersHandler := NewUsersHandler(db)
	groupsHandler := NewGroupsHandler(membershipService, billService)
	billsHandler := NewBillsHandler(billService, splitService)
	splitsHandler := NewSplitsHandler(splitService, nil)
	balancesHandler := NewBalancesHandler(balanceService)
	notificationsHandler := NewNotificationsHandler(notificationService)

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

	return &testEnv{
		app:           app,
		db:            db,
		memberships:   membershipService,
		bills:         billService,
		splits:        splitService,
		notifications: notificationService,
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func dataField(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object in response, got %v", body["data"])
	}
	return data
}
