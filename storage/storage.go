// storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"card-bot-system/models"
)

var (
	// ErrNotFound is returned when a referenced id has no matching row.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicatePhone is the single source of truth for "already
	// registered": CreateTrainer returns it on a phone-number collision,
	// whether the caller looked first or not.
	ErrDuplicatePhone = errors.New("storage: phone number already registered")
	// ErrDuplicateUsername guards the admin users table the same way.
	ErrDuplicateUsername = errors.New("storage: username already taken")
)

// Partial-update payloads. A nil field means "leave as is".
type TrainerUpdate struct {
	Name     *string
	IsActive *bool
}

type CardUpdate struct {
	Name        *string
	Type        *string
	Level       *int
	Rarity      *string
	ImageURL    *string
	Description *string
	IsActive    *bool
}

type DuelUpdate struct {
	Trainer2ID *uint
	Arena      *string
	Distance   *string
	Latency    *string
	Status     *string
}

type SessionUpdate struct {
	SessionID   *string
	IsConnected *bool
	QRCode      *string
}

// Stats mirrors the original dashboard payload, French key included.
type Stats struct {
	ActiveDresseurs  int64 `json:"activeDresseurs"`
	CardsDistributed int64 `json:"cardsDistributed"`
	ActiveDuels      int64 `json:"activeDuels"`
}

// Store is the capability interface over all registries. Two
// implementations exist: an in-process indexed collection and a
// Postgres-backed one; pick at startup via STORAGE_BACKEND.
type Store interface {
	// Trainers
	GetTrainer(ctx context.Context, id uint) (*models.Trainer, error)
	GetTrainerByPhone(ctx context.Context, phone string) (*models.Trainer, error)
	CreateTrainer(ctx context.Context, t *models.Trainer) error
	ListTrainers(ctx context.Context) ([]models.Trainer, error)
	UpdateTrainer(ctx context.Context, id uint, u TrainerUpdate) (*models.Trainer, error)

	// Cards
	GetCard(ctx context.Context, id uint) (*models.Card, error)
	ListCards(ctx context.Context) ([]models.Card, error)
	ListActiveCards(ctx context.Context) ([]models.Card, error)
	CreateCard(ctx context.Context, c *models.Card) error
	UpdateCard(ctx context.Context, id uint, u CardUpdate) (*models.Card, error)
	DeleteCard(ctx context.Context, id uint) (bool, error)
	// RandomActiveCard returns (nil, nil) when no active card exists.
	RandomActiveCard(ctx context.Context) (*models.Card, error)

	// Distributions (append-only)
	CreateDistribution(ctx context.Context, d *models.CardDistribution) error
	ListDistributions(ctx context.Context) ([]models.CardDistribution, error)
	ListTrainerCards(ctx context.Context, trainerID uint) ([]models.TrainerCard, error)

	// Duels
	CreateDuel(ctx context.Context, d *models.Duel) error
	GetDuel(ctx context.Context, id uint) (*models.Duel, error)
	ListDuels(ctx context.Context) ([]models.Duel, error)
	ListActiveDuels(ctx context.Context) ([]models.Duel, error)
	ListWaitingDuelsBefore(ctx context.Context, cutoff time.Time) ([]models.Duel, error)
	UpdateDuel(ctx context.Context, id uint, u DuelUpdate) (*models.Duel, error)

	// Bot sessions
	CreateBotSession(ctx context.Context, s *models.BotSession) error
	UpdateBotSession(ctx context.Context, id uint, u SessionUpdate) (*models.BotSession, error)
	CurrentBotSession(ctx context.Context) (*models.BotSession, error)

	// Admin users
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error

	Stats(ctx context.Context) (*Stats, error)
}

// Open selects a backend by name. "memory" is self-contained and seeds the
// starter card set; "postgres" needs a DSN and auto-migrates the schema.
func Open(backend, dsn string) (Store, error) {
	switch backend {
	case "", "memory":
		mem := NewMemory()
		mem.SeedDefaultCards()
		return mem, nil
	case "postgres":
		if dsn == "" {
			return nil, errors.New("storage: postgres backend requires DATABASE_URL")
		}
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

// applyDuelDefaults fills the fixed chat-side defaults on empty fields.
func applyDuelDefaults(d *models.Duel) {
	if d.Arena == "" {
		d.Arena = models.DefaultArena
	}
	if d.Distance == "" {
		d.Distance = models.DefaultDistance
	}
	if d.Latency == "" {
		d.Latency = models.DefaultLatency
	}
	if d.Status == "" {
		d.Status = models.DuelStatusWaiting
	}
}
