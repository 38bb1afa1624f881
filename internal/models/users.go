package models

import "time"

// OnlineWindow is how recent the last activity must be for a user to count as online.
const OnlineWindow = 5 * time.Minute

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"type:varchar(30);uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	Avatar       string    `json:"avatar" gorm:"type:varchar(255)"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ActivityAction string

const (
	ActionRegister       ActivityAction = "register"
	ActionLogin          ActivityAction = "login"
	ActionPasswordChange ActivityAction = "password_change"
)

type ActivityLog struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	UserID    int64          `json:"user_id" gorm:"index;not null"`
	Action    ActivityAction `json:"action" gorm:"type:varchar(30);not null"`
	CreatedAt time.Time      `json:"created_at"`
}

type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// IsOnline reports whether lastActivity falls inside the online window ending at now.
func IsOnline(lastActivity, now time.Time) bool {
	if lastActivity.IsZero() {
		return false
	}
	return now.Sub(lastActivity) < OnlineWindow
}
