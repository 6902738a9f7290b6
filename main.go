package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"referral-reward-system/handlers"
	"referral-reward-system/middleware"
	"referral-reward-system/models"
	"referral-reward-system/services"
	"referral-reward-system/utils"
	"referral-reward-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Referral{},
		&models.ReferralAction{},
		&models.ReferralBadge{},
		&models.RewardEvent{},
		&models.MemberMirror{},
		&models.WalletMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- Profile service client (token validation for SSE + role lookups) ---
	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable not set")
	}
	referralServiceToken := os.Getenv("REFERRAL_SERVICE_TOKEN")
	if referralServiceToken == "" {
		log.Fatal("REFERRAL_SERVICE_TOKEN environment variable not set")
	}
	profileClient := services.NewProfileServiceClient(profileServiceURL, referralServiceToken)

	// --- Service wiring ---
	store := services.NewGormStore(db)
	walletClient := workers.NewWalletServiceClient(db)
	identityService := services.NewIdentityService(db, profileClient)
	evaluatorService := services.NewEvaluatorService(store, walletClient, identityService)
	referralService := services.NewReferralService(store, walletClient, identityService, evaluatorService)
	actionService := services.NewActionService(store, walletClient, referralService, evaluatorService)
	statsService := services.NewStatsService(store, identityService)
	sweeperService := services.NewSweeperService(store)
	streamService := services.NewRewardStreamService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Background workers ---
	go workers.PollBalances(ctx, walletClient, 10*time.Second)

	memberSyncWorker := workers.NewMemberSyncWorker(db, profileServiceURL, "/api/v1/public/profiles", referralServiceToken)
	memberSyncWorker.Start(ctx)

	sweeperService.StartExpirationScheduler()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupReferralRoutes(app, referralService, actionService, statsService, sweeperService)

	// SSE stream authenticates from query params (EventSource cannot set headers)
	app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(profileClient), streamService.StreamRewardsSSE)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Member Sync Worker running")
	log.Println("✅ Wallet balance polling running (every 10s)")
	log.Println("✅ Expiration sweeper scheduled (every 10m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
