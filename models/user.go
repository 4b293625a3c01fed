// models/user.go
package models

// User is a dashboard admin account. The original schema carries this
// table with no routes on top of it; storage exposes CRUD all the same.
type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
}
