// models/duel.go
package models

import "time"

const (
	DuelStatusWaiting   = "waiting"
	DuelStatusActive    = "active"
	DuelStatusCompleted = "completed"
)

// Defaults stamped on every duel opened from the chat side.
const (
	DefaultArena    = "Arena Centrale"
	DefaultDistance = "6m"
	DefaultLatency  = "7min"
)

// Duel is a requested match. Trainer2ID stays nil until an opponent joins.
type Duel struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Trainer1ID uint      `json:"trainer1Id" gorm:"column:trainer1_id;index;not null"`
	Trainer2ID *uint     `json:"trainer2Id" gorm:"column:trainer2_id"`
	Arena      string    `json:"arena"`
	Distance   string    `json:"distance" gorm:"default:'6m'"`
	Latency    string    `json:"latency" gorm:"default:'7min'"`
	Status     string    `json:"status" gorm:"default:'waiting'"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
