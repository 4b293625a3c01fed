// models/session.go
package models

import "time"

// BotSession tracks the chat-transport link state. The most recently
// created row is the "current" session everyone reads.
type BotSession struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SessionID    *string   `json:"sessionId" gorm:"column:session_id"`
	IsConnected  bool      `json:"isConnected" gorm:"default:false"`
	QRCode       *string   `json:"qrCode" gorm:"column:qr_code"`
	LastActivity time.Time `json:"lastActivity" gorm:"autoUpdateTime"`
}

// TableName keeps the original relational name.
func (BotSession) TableName() string { return "bot_sessions" }
