// services/card_service.go
package services

import (
	"errors"
	"log"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"card-bot-system/models"
	"card-bot-system/storage"
	"card-bot-system/utils"
)

type CardService struct {
	Store storage.Store
}

func NewCardService(store storage.Store) *CardService {
	return &CardService{Store: store}
}

func (s *CardService) GetAllCards(c *fiber.Ctx) error {
	cards, err := s.Store.ListCards(c.Context())
	if err != nil {
		log.Printf("❌ DB Error fetching cards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération des cartes"})
	}
	return c.JSON(cards)
}

type cardBody struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Level       *int    `json:"level"`
	Rarity      *string `json:"rarity"`
	ImageURL    *string `json:"imageUrl"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func (s *CardService) CreateCard(c *fiber.Ctx) error {
	var body cardBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}
	if body.Name == nil || *body.Name == "" ||
		body.Type == nil || *body.Type == "" ||
		body.Level == nil || *body.Level <= 0 ||
		body.Rarity == nil || *body.Rarity == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}

	card := &models.Card{
		Name:        *body.Name,
		Type:        *body.Type,
		Level:       *body.Level,
		Rarity:      *body.Rarity,
		ImageURL:    body.ImageURL,
		Description: body.Description,
		IsActive:    true,
	}
	if body.IsActive != nil {
		card.IsActive = *body.IsActive
	}
	if err := s.Store.CreateCard(c.Context(), card); err != nil {
		log.Printf("❌ DB Error creating card: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la création de la carte"})
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

func (s *CardService) UpdateCard(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}
	var body cardBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}

	card, err := s.Store.UpdateCard(c.Context(), id, storage.CardUpdate{
		Name:        body.Name,
		Type:        body.Type,
		Level:       body.Level,
		Rarity:      body.Rarity,
		ImageURL:    body.ImageURL,
		Description: body.Description,
		IsActive:    body.IsActive,
	})
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Carte non trouvée"})
	}
	if err != nil {
		log.Printf("❌ DB Error updating card %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la mise à jour de la carte"})
	}
	return c.JSON(card)
}

func (s *CardService) DeleteCard(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}
	deleted, err := s.Store.DeleteCard(c.Context(), id)
	if err != nil {
		log.Printf("❌ DB Error deleting card %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la suppression de la carte"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Carte non trouvée"})
	}
	return c.JSON(fiber.Map{"message": "Carte supprimée avec succès"})
}

// UploadCardImage stores a card illustration in R2 and records its
// public URL on the card.
func (s *CardService) UploadCardImage(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Données invalides"})
	}
	card, err := s.Store.GetCard(c.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Carte non trouvée"})
	}
	if err != nil {
		log.Printf("❌ DB Error fetching card %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la récupération de la carte"})
	}

	if !utils.R2Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Stockage d'images non configuré"})
	}

	imageFile, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image is required"})
	}
	ext := filepath.Ext(imageFile.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := "cards/" + slug.Make(card.Name) + "-" + uuid.NewString() + ext

	imageURL, err := utils.UploadImageToR2(imageFile, key)
	if err != nil {
		log.Printf("❌ R2 upload failed for card %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Échec du téléversement de l'image"})
	}

	updated, err := s.Store.UpdateCard(c.Context(), id, storage.CardUpdate{ImageURL: &imageURL})
	if err != nil {
		log.Printf("❌ DB Error saving image URL for card %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Erreur lors de la mise à jour de la carte"})
	}
	return c.JSON(updated)
}
