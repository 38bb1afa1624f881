package models

import "time"

// Friend is a directed edge: UserID lists FriendID as a friend.
// The reverse edge is independent and may not exist.
type Friend struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"not null;uniqueIndex:idx_friends_pair"`
	FriendID  int64     `json:"friend_id" gorm:"not null;uniqueIndex:idx_friends_pair;index"`
	CreatedAt time.Time `json:"created_at"`
}

type FriendView struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Avatar       string    `json:"avatar"`
	LastActivity time.Time `json:"last_activity"`
	Online       bool      `json:"online" gorm:"-"`
}
