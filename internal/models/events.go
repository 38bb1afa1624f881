package models

import "time"

type EventType string

const (
	EventTournament EventType = "tournament"
	EventMeetup     EventType = "meetup"
	EventStreaming  EventType = "streaming"
	EventPractice   EventType = "practice"
	EventOther      EventType = "other"
)

var EventTypes = []EventType{EventTournament, EventMeetup, EventStreaming, EventPractice, EventOther}

func (t EventType) Valid() bool {
	for _, v := range EventTypes {
		if t == v {
			return true
		}
	}
	return false
}

type Reminder string

const (
	ReminderNone  Reminder = "none"
	Reminder15Min Reminder = "15min"
	Reminder1Hour Reminder = "1hour"
	Reminder1Day  Reminder = "1day"
	Reminder1Week Reminder = "1week"
)

var Reminders = []Reminder{ReminderNone, Reminder15Min, Reminder1Hour, Reminder1Day, Reminder1Week}

func (r Reminder) Valid() bool {
	for _, v := range Reminders {
		if r == v {
			return true
		}
	}
	return false
}

type Event struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	UserID          int64     `json:"user_id" gorm:"index;not null"`
	Title           string    `json:"title" gorm:"type:varchar(100);not null"`
	Date            time.Time `json:"date" gorm:"type:date;not null"`
	Time            string    `json:"time" gorm:"type:varchar(5);not null"`
	Description     string    `json:"description" gorm:"type:text"`
	Reminder        Reminder  `json:"reminder" gorm:"type:varchar(10);default:'none'"`
	MaxParticipants *int      `json:"max_participants"`
	ScheduleID      *int64    `json:"schedule_id" gorm:"index"`
	EventType       EventType `json:"event_type" gorm:"type:varchar(20);not null;default:'other'"`
	ShareToken      string    `json:"share_token" gorm:"type:varchar(36);uniqueIndex"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EventFriend maps an invited user to an event.
type EventFriend struct {
	EventID int64 `json:"event_id" gorm:"primaryKey"`
	UserID  int64 `json:"user_id" gorm:"primaryKey;index"`
}

type EventView struct {
	Event
	ScheduleGameTitle string        `json:"schedule_game_title"`
	OwnerUsername     string        `json:"owner_username"`
	SharedWith        []UserSummary `json:"shared_with" gorm:"-"`
	Status            Status        `json:"status" gorm:"-"`
}

type EventStats struct {
	Total    int `json:"total"`
	Upcoming int `json:"upcoming"`
	Past     int `json:"past"`
	Shared   int `json:"shared"`
}
