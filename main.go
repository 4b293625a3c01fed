package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"card-bot-system/events"
	"card-bot-system/handlers"
	"card-bot-system/services"
	"card-bot-system/storage"
	"card-bot-system/utils"
	"card-bot-system/whatsapp"
	"card-bot-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	backend := os.Getenv("STORAGE_BACKEND")
	store, err := storage.Open(backend, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal("failed to open storage:", err)
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}
	if !utils.R2Enabled() {
		log.Println("⚠️  R2 credentials not set — card image uploads disabled")
	}

	hub := events.NewHub()

	// The real transport runs as a separate bridge process; without one
	// the simulated client keeps the dashboard alive.
	var client whatsapp.Client
	if bridgeURL := os.Getenv("WHATSAPP_BRIDGE_URL"); bridgeURL != "" {
		log.Printf("✅ Using WhatsApp bridge at %s", bridgeURL)
		client = whatsapp.NewBridgeClient(bridgeURL)
	} else {
		log.Println("⚠️  WHATSAPP_BRIDGE_URL not set — mode simulation activé")
		client = whatsapp.NewSimulatedClient()
	}

	policy := services.Policy{ReplyUnknown: os.Getenv("BOT_REPLY_UNKNOWN") == "true"}
	dispatcher := services.NewDispatcher(store, hub, policy)
	tracker := services.NewSessionTracker(store, hub)

	trainerService := services.NewTrainerService(store)
	cardService := services.NewCardService(store)
	duelService := services.NewDuelService(store)
	botService := services.NewBotService(dispatcher, tracker, client)

	duelService.StartExpiryScheduler(duelTTL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller := workers.NewBridgePoller(client, tracker)
	go poller.Run(ctx, bridgePollInterval())

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins(),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.SetupAPIRoutes(app, trainerService, cardService, duelService, botService)
	handlers.SetupWebSocket(app, hub, tracker, client)
	handlers.SetupEventStream(app, hub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ Storage backend: %s", backendName(backend))
	log.Println("✅ Bridge polling running")

	<-ctx.Done()
	log.Println("Shutting down server...")
}

func backendName(backend string) string {
	if backend == "" {
		return "memory"
	}
	return backend
}

func allowedOrigins() string {
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		return origins
	}
	log.Println("⚠️  ALLOWED_ORIGINS not set, using default: http://localhost:3000")
	return "http://localhost:3000"
}

// duelTTL is the rules' 7-minute latency window plus the one minute of
// additional time, overridable via DUEL_TTL_MIN.
func duelTTL() time.Duration {
	if raw := os.Getenv("DUEL_TTL_MIN"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
		log.Printf("⚠️  Invalid DUEL_TTL_MIN %q, using default", raw)
	}
	return 8 * time.Minute
}

func bridgePollInterval() time.Duration {
	if raw := os.Getenv("BRIDGE_POLL_SEC"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		log.Printf("⚠️  Invalid BRIDGE_POLL_SEC %q, using default", raw)
	}
	return 5 * time.Second
}
