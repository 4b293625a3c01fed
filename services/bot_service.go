// services/bot_service.go
package services

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"card-bot-system/whatsapp"
)

// BotService serves the bot-facing dashboard routes: connectivity
// status, the command test endpoints and the inbound webhook.
type BotService struct {
	Dispatcher *Dispatcher
	Tracker    *SessionTracker
	Client     whatsapp.Client
}

func NewBotService(dispatcher *Dispatcher, tracker *SessionTracker, client whatsapp.Client) *BotService {
	return &BotService{Dispatcher: dispatcher, Tracker: tracker, Client: client}
}

func (s *BotService) GetBotStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"isConnected": s.Tracker.Connected(c.Context()),
		"qrCode":      s.Tracker.QRCode(c.Context()),
	})
}

// TestNewTrainer synthesizes the "new dresseur" flow from the dashboard.
func (s *BotService) TestNewTrainer(c *fiber.Ctx) error {
	var body struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := c.BodyParser(&body); err != nil || body.PhoneNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Numéro de téléphone requis"})
	}

	trainer, card, err := s.Dispatcher.RegisterTrainer(c.Context(), body.PhoneNumber)
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Dresseur déjà inscrit"})
	case errors.Is(err, ErrNoActiveCards):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Aucune carte disponible"})
	case err != nil:
		log.Printf("❌ Error in test new-trainer: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors du test de la commande"})
	}
	return c.JSON(fiber.Map{"trainer": trainer, "card": card})
}

// TestPave returns the moderators' fixed announcement block.
func (s *BotService) TestPave(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"paveText": PaveTemplate})
}

// Webhook receives an externally delivered chat message, runs it through
// the dispatcher and best-effort replies over the transport.
func (s *BotService) Webhook(c *fiber.Ctx) error {
	var body struct {
		From string `json:"from"`
		Body string `json:"body"`
	}
	if err := c.BodyParser(&body); err != nil || body.From == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}

	reply := s.Dispatcher.HandleMessage(c.Context(), body.From, body.Body)
	if reply != "" {
		if err := s.Client.SendMessage(c.Context(), body.From, reply); err != nil {
			// The reply is still returned to the webhook caller; the
			// transport failure must not fail the request.
			log.Printf("⚠️ Erreur lors de l'envoi du message à %s: %v", body.From, err)
		}
	}
	return c.JSON(fiber.Map{"reply": reply})
}
