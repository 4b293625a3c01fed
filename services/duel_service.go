// services/duel_service.go
package services

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"card-bot-system/models"
	"card-bot-system/storage"
)

type DuelService struct {
	Store storage.Store
}

func NewDuelService(store storage.Store) *DuelService {
	return &DuelService{Store: store}
}

func (s *DuelService) GetAllDuels(c *fiber.Ctx) error {
	duels, err := s.Store.ListDuels(c.Context())
	if err != nil {
		log.Printf("❌ DB Error fetching duels: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération des duels"})
	}
	return c.JSON(duels)
}

func (s *DuelService) GetActiveDuels(c *fiber.Ctx) error {
	duels, err := s.Store.ListActiveDuels(c.Context())
	if err != nil {
		log.Printf("❌ DB Error fetching active duels: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération des duels actifs"})
	}
	return c.JSON(duels)
}

func (s *DuelService) CreateDuel(c *fiber.Ctx) error {
	var body struct {
		Trainer1ID uint    `json:"trainer1Id"`
		Trainer2ID *uint   `json:"trainer2Id"`
		Arena      *string `json:"arena"`
		Distance   *string `json:"distance"`
		Latency    *string `json:"latency"`
		Status     *string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || body.Trainer1ID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}

	duel := &models.Duel{Trainer1ID: body.Trainer1ID, Trainer2ID: body.Trainer2ID}
	if body.Arena != nil {
		duel.Arena = *body.Arena
	}
	if body.Distance != nil {
		duel.Distance = *body.Distance
	}
	if body.Latency != nil {
		duel.Latency = *body.Latency
	}
	if body.Status != nil {
		duel.Status = *body.Status
	}

	if err := s.Store.CreateDuel(c.Context(), duel); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Dresseur non trouvé"})
		}
		log.Printf("❌ DB Error creating duel: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la création du duel"})
	}
	return c.Status(fiber.StatusCreated).JSON(duel)
}

// JoinDuel attaches a second trainer to a waiting duel and activates it.
func (s *DuelService) JoinDuel(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}
	var body struct {
		TrainerID uint `json:"trainerId"`
	}
	if err := c.BodyParser(&body); err != nil || body.TrainerID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}

	duel, err := s.Store.GetDuel(c.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Duel non trouvé"})
	}
	if err != nil {
		log.Printf("❌ DB Error fetching duel %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération du duel"})
	}
	if duel.Status != models.DuelStatusWaiting {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Le duel n'est plus en attente"})
	}
	if duel.Trainer1ID == body.TrainerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}
	if _, err := s.Store.GetTrainer(c.Context(), body.TrainerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Dresseur non trouvé"})
		}
		log.Printf("❌ DB Error fetching trainer %d: %v", body.TrainerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération du dresseur"})
	}

	active := models.DuelStatusActive
	updated, err := s.Store.UpdateDuel(c.Context(), id, storage.DuelUpdate{
		Trainer2ID: &body.TrainerID,
		Status:     &active,
	})
	if err != nil {
		log.Printf("❌ DB Error joining duel %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la mise à jour du duel"})
	}
	return c.JSON(updated)
}
