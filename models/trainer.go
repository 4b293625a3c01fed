// models/trainer.go
package models

import "time"

// Trainer is a registered chat participant, keyed by phone number.
// Created on first contact, never deleted; only the active flag moves.
type Trainer struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	PhoneNumber  string    `json:"phoneNumber" gorm:"column:phone_number;uniqueIndex;not null"`
	Name         *string   `json:"name"`
	RegisteredAt time.Time `json:"registeredAt" gorm:"autoCreateTime"`
	IsActive     bool      `json:"isActive" gorm:"default:true"`
}

// DisplayName falls back to the original bot's synthesized label
// ("Dresseur" + last four digits) when no name was ever recorded.
func (t *Trainer) DisplayName() string {
	if t.Name != nil && *t.Name != "" {
		return *t.Name
	}
	suffix := t.PhoneNumber
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "Dresseur " + suffix
}
