// services/trainer_service.go
package services

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"card-bot-system/models"
	"card-bot-system/storage"
)

type TrainerService struct {
	Store storage.Store
}

func NewTrainerService(store storage.Store) *TrainerService {
	return &TrainerService{Store: store}
}

func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// GetStats serves the dashboard counters.
func (s *TrainerService) GetStats(c *fiber.Ctx) error {
	stats, err := s.Store.Stats(c.Context())
	if err != nil {
		log.Printf("❌ DB Error fetching stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération des statistiques"})
	}
	return c.JSON(stats)
}

func (s *TrainerService) GetAllTrainers(c *fiber.Ctx) error {
	trainers, err := s.Store.ListTrainers(c.Context())
	if err != nil {
		log.Printf("❌ DB Error fetching trainers: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération des dresseurs"})
	}
	return c.JSON(trainers)
}

func (s *TrainerService) CreateTrainer(c *fiber.Ctx) error {
	var body struct {
		PhoneNumber string  `json:"phoneNumber"`
		Name        *string `json:"name"`
		IsActive    *bool   `json:"isActive"`
	}
	if err := c.BodyParser(&body); err != nil || body.PhoneNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}

	trainer := &models.Trainer{PhoneNumber: body.PhoneNumber, Name: body.Name, IsActive: true}
	if body.IsActive != nil {
		trainer.IsActive = *body.IsActive
	}
	if err := s.Store.CreateTrainer(c.Context(), trainer); err != nil {
		if errors.Is(err, storage.ErrDuplicatePhone) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
		}
		log.Printf("❌ DB Error creating trainer: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la création du dresseur"})
	}
	return c.Status(fiber.StatusCreated).JSON(trainer)
}

func (s *TrainerService) GetTrainerByID(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}
	trainer, err := s.Store.GetTrainer(c.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Dresseur non trouvé"})
	}
	if err != nil {
		log.Printf("❌ DB Error fetching trainer %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération du dresseur"})
	}
	return c.JSON(trainer)
}

// GetTrainerCards returns the trainer's full collection, each ledger row
// joined with its card.
func (s *TrainerService) GetTrainerCards(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}
	cards, err := s.Store.ListTrainerCards(c.Context(), id)
	if err != nil {
		log.Printf("❌ DB Error fetching trainer cards %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération des cartes du dresseur"})
	}
	if cards == nil {
		cards = []models.TrainerCard{}
	}
	return c.JSON(cards)
}

func (s *TrainerService) GetDistributions(c *fiber.Ctx) error {
	distributions, err := s.Store.ListDistributions(c.Context())
	if err != nil {
		log.Printf("❌ DB Error fetching distributions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération des distributions"})
	}
	return c.JSON(distributions)
}
