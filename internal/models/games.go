package models

import "time"

type Game struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null;index"`
	Genre       string    `json:"genre" gorm:"type:varchar(100)"`
	Description string    `json:"description" gorm:"type:text"`
	Image       string    `json:"image" gorm:"type:varchar(500)"`
	URL         string    `json:"url" gorm:"type:varchar(500);uniqueIndex"`
	CreatedAt   time.Time `json:"created_at"`
}
