// storage/postgres.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"card-bot-system/models"
)

// Postgres is the relational backend. AutoMigrate owns the schema; the
// unique index on trainers.phone_number enforces registration uniqueness.
type Postgres struct {
	DB *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Trainer{},
		&models.Card{},
		&models.CardDistribution{},
		&models.Duel{},
		&models.BotSession{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Postgres{DB: db}, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Trainers ---

func (p *Postgres) GetTrainer(ctx context.Context, id uint) (*models.Trainer, error) {
	var t models.Trainer
	if err := p.DB.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (p *Postgres) GetTrainerByPhone(ctx context.Context, phone string) (*models.Trainer, error) {
	var t models.Trainer
	if err := p.DB.WithContext(ctx).Where("phone_number = ?", phone).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (p *Postgres) CreateTrainer(ctx context.Context, t *models.Trainer) error {
	if err := p.DB.WithContext(ctx).Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePhone
		}
		return err
	}
	return nil
}

func (p *Postgres) ListTrainers(ctx context.Context) ([]models.Trainer, error) {
	var out []models.Trainer
	err := p.DB.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (p *Postgres) UpdateTrainer(ctx context.Context, id uint, u TrainerUpdate) (*models.Trainer, error) {
	updates := map[string]interface{}{}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	return p.applyTrainerUpdates(ctx, id, updates)
}

func (p *Postgres) applyTrainerUpdates(ctx context.Context, id uint, updates map[string]interface{}) (*models.Trainer, error) {
	if len(updates) > 0 {
		res := p.DB.WithContext(ctx).Model(&models.Trainer{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return p.GetTrainer(ctx, id)
}

// --- Cards ---

func (p *Postgres) GetCard(ctx context.Context, id uint) (*models.Card, error) {
	var c models.Card
	if err := p.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (p *Postgres) ListCards(ctx context.Context) ([]models.Card, error) {
	var out []models.Card
	err := p.DB.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (p *Postgres) ListActiveCards(ctx context.Context) ([]models.Card, error) {
	var out []models.Card
	err := p.DB.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&out).Error
	return out, err
}

func (p *Postgres) CreateCard(ctx context.Context, c *models.Card) error {
	return p.DB.WithContext(ctx).Create(c).Error
}

func (p *Postgres) UpdateCard(ctx context.Context, id uint, u CardUpdate) (*models.Card, error) {
	updates := map[string]interface{}{}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Type != nil {
		updates["type"] = *u.Type
	}
	if u.Level != nil {
		updates["level"] = *u.Level
	}
	if u.Rarity != nil {
		updates["rarity"] = *u.Rarity
	}
	if u.ImageURL != nil {
		updates["image_url"] = *u.ImageURL
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if len(updates) > 0 {
		res := p.DB.WithContext(ctx).Model(&models.Card{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return p.GetCard(ctx, id)
}

func (p *Postgres) DeleteCard(ctx context.Context, id uint) (bool, error) {
	res := p.DB.WithContext(ctx).Delete(&models.Card{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (p *Postgres) RandomActiveCard(ctx context.Context) (*models.Card, error) {
	// Uniform over the active set at call time; the set is tiny, so
	// selecting it and picking in Go keeps both backends identical.
	active, err := p.ListActiveCards(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}
	card := active[rand.Intn(len(active))]
	return &card, nil
}

// --- Distributions ---

func (p *Postgres) CreateDistribution(ctx context.Context, d *models.CardDistribution) error {
	if _, err := p.GetTrainer(ctx, d.TrainerID); err != nil {
		return err
	}
	if _, err := p.GetCard(ctx, d.CardID); err != nil {
		return err
	}
	return p.DB.WithContext(ctx).Create(d).Error
}

func (p *Postgres) ListDistributions(ctx context.Context) ([]models.CardDistribution, error) {
	var out []models.CardDistribution
	err := p.DB.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (p *Postgres) ListTrainerCards(ctx context.Context, trainerID uint) ([]models.TrainerCard, error) {
	var dists []models.CardDistribution
	if err := p.DB.WithContext(ctx).Where("trainer_id = ?", trainerID).Order("id ASC").Find(&dists).Error; err != nil {
		return nil, err
	}
	if len(dists) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(dists))
	for _, d := range dists {
		ids = append(ids, d.CardID)
	}
	var cards []models.Card
	if err := p.DB.WithContext(ctx).Where("id IN ?", ids).Find(&cards).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Card, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	var out []models.TrainerCard
	for _, d := range dists {
		card, ok := byID[d.CardID]
		if !ok {
			continue
		}
		out = append(out, models.TrainerCard{CardDistribution: d, Card: card})
	}
	return out, nil
}

// --- Duels ---

func (p *Postgres) CreateDuel(ctx context.Context, d *models.Duel) error {
	if _, err := p.GetTrainer(ctx, d.Trainer1ID); err != nil {
		return err
	}
	applyDuelDefaults(d)
	return p.DB.WithContext(ctx).Create(d).Error
}

func (p *Postgres) GetDuel(ctx context.Context, id uint) (*models.Duel, error) {
	var d models.Duel
	if err := p.DB.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (p *Postgres) ListDuels(ctx context.Context) ([]models.Duel, error) {
	var out []models.Duel
	err := p.DB.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (p *Postgres) ListActiveDuels(ctx context.Context) ([]models.Duel, error) {
	var out []models.Duel
	err := p.DB.WithContext(ctx).Where("status = ?", models.DuelStatusActive).Order("id ASC").Find(&out).Error
	return out, err
}

func (p *Postgres) ListWaitingDuelsBefore(ctx context.Context, cutoff time.Time) ([]models.Duel, error) {
	var out []models.Duel
	err := p.DB.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.DuelStatusWaiting, cutoff).
		Order("id ASC").Find(&out).Error
	return out, err
}

func (p *Postgres) UpdateDuel(ctx context.Context, id uint, u DuelUpdate) (*models.Duel, error) {
	updates := map[string]interface{}{}
	if u.Trainer2ID != nil {
		updates["trainer2_id"] = *u.Trainer2ID
	}
	if u.Arena != nil {
		updates["arena"] = *u.Arena
	}
	if u.Distance != nil {
		updates["distance"] = *u.Distance
	}
	if u.Latency != nil {
		updates["latency"] = *u.Latency
	}
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if len(updates) > 0 {
		res := p.DB.WithContext(ctx).Model(&models.Duel{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return p.GetDuel(ctx, id)
}

// --- Bot sessions ---

func (p *Postgres) CreateBotSession(ctx context.Context, s *models.BotSession) error {
	return p.DB.WithContext(ctx).Create(s).Error
}

func (p *Postgres) UpdateBotSession(ctx context.Context, id uint, u SessionUpdate) (*models.BotSession, error) {
	updates := map[string]interface{}{"last_activity": time.Now()}
	if u.SessionID != nil {
		updates["session_id"] = *u.SessionID
	}
	if u.IsConnected != nil {
		updates["is_connected"] = *u.IsConnected
	}
	if u.QRCode != nil {
		updates["qr_code"] = *u.QRCode
	}
	res := p.DB.WithContext(ctx).Model(&models.BotSession{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	var s models.BotSession
	if err := p.DB.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (p *Postgres) CurrentBotSession(ctx context.Context) (*models.BotSession, error) {
	var s models.BotSession
	if err := p.DB.WithContext(ctx).Order("id DESC").First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// --- Admin users ---

func (p *Postgres) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := p.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := p.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	if err := p.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}

// --- Stats ---

func (p *Postgres) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	db := p.DB.WithContext(ctx)
	if err := db.Model(&models.Trainer{}).Where("is_active = ?", true).Count(&st.ActiveDresseurs).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.CardDistribution{}).Count(&st.CardsDistributed).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Duel{}).Where("status = ?", models.DuelStatusActive).Count(&st.ActiveDuels).Error; err != nil {
		return nil, err
	}
	return &st, nil
}
