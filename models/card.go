// models/card.go
package models

import "time"

// Card is a collectible card definition. Admin-mutable and hard-deletable;
// only active cards take part in random distribution.
type Card struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"not null"`
	Type        string  `json:"type" gorm:"not null"`
	Level       int     `json:"level" gorm:"not null"`
	Rarity      string  `json:"rarity" gorm:"not null"`
	ImageURL    *string `json:"imageUrl" gorm:"column:image_url"`
	Description *string `json:"description"`
	IsActive    bool    `json:"isActive" gorm:"default:true"`
}

// TableName keeps the original relational name.
func (Card) TableName() string { return "pokemon_cards" }

// CardDistribution links one card to the trainer who received it.
// The ledger is append-only: a distributed card cannot be revoked.
type CardDistribution struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	TrainerID     uint      `json:"trainerId" gorm:"column:trainer_id;index;not null"`
	CardID        uint      `json:"cardId" gorm:"column:card_id;index;not null"`
	DistributedAt time.Time `json:"distributedAt" gorm:"autoCreateTime"`
}

// TrainerCard is a distribution row joined with its card, i.e. one entry
// of a trainer's collection.
type TrainerCard struct {
	CardDistribution
	Card Card `json:"card"`
}
