package models

import "time"

type Schedule struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"index;not null"`
	GameID    int64     `json:"game_id" gorm:"index;not null"`
	Date      time.Time `json:"date" gorm:"type:date;not null"`
	Time      string    `json:"time" gorm:"type:varchar(5);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleFriend maps an invited user to a schedule.
type ScheduleFriend struct {
	ScheduleID int64 `json:"schedule_id" gorm:"primaryKey"`
	UserID     int64 `json:"user_id" gorm:"primaryKey;index"`
}

type ScheduleView struct {
	Schedule
	GameTitle     string        `json:"game_title"`
	GameGenre     string        `json:"game_genre"`
	OwnerUsername string        `json:"owner_username"`
	Friends       []UserSummary `json:"friends" gorm:"-"`
	FriendCount   int           `json:"friend_count" gorm:"-"`
	Status        Status        `json:"status" gorm:"-"`
}
