package database

import "time"

// Command is a saved command shortcut shown in the terminal sidebar.
type Command struct {
	ID        string    `gorm:"primaryKey;size:8" json:"id"`
	Label     string    `gorm:"not null" json:"label"`
	Cmd       string    `gorm:"not null" json:"cmd"`
	Category  string    `gorm:"not null;default:General" json:"category"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}
