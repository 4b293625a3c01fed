// handlers/routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"card-bot-system/middleware"
	"card-bot-system/services"
)

// SetupAPIRoutes registers the dashboard REST API. Read routes are open;
// mutations sit behind the admin token gate (pass-through when no token
// is configured).
func SetupAPIRoutes(app *fiber.App,
	trainerService *services.TrainerService,
	cardService *services.CardService,
	duelService *services.DuelService,
	botService *services.BotService,
) {
	api := app.Group("/api")

	api.Get("/stats", trainerService.GetStats)
	api.Get("/bot/status", botService.GetBotStatus)

	api.Get("/trainers", trainerService.GetAllTrainers)
	api.Post("/trainers", trainerService.CreateTrainer)
	api.Get("/trainers/:id", trainerService.GetTrainerByID)
	api.Get("/trainers/:id/cards", trainerService.GetTrainerCards)

	api.Get("/cards", cardService.GetAllCards)
	api.Get("/distributions", trainerService.GetDistributions)

	api.Get("/duels", duelService.GetAllDuels)
	api.Get("/duels/active", duelService.GetActiveDuels)

	// Command test endpoints used by the dashboard chat simulator.
	api.Post("/test/new-trainer", botService.TestNewTrainer)
	api.Get("/test/pave", botService.TestPave)
	api.Post("/test/pave", botService.TestPave)

	// Inbound chat messages relayed by the external bridge.
	api.Post("/webhook/whatsapp", botService.Webhook)

	admin := api.Group("/", middleware.AdminTokenMiddleware())
	admin.Post("/cards", cardService.CreateCard)
	admin.Put("/cards/:id", cardService.UpdateCard)
	admin.Delete("/cards/:id", cardService.DeleteCard)
	admin.Post("/cards/:id/image", cardService.UploadCardImage)
	admin.Post("/duels", duelService.CreateDuel)
	admin.Post("/duels/:id/join", duelService.JoinDuel)
}
