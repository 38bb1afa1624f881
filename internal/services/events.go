package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"games_planner/internal/listing"
	"games_planner/internal/models"
	"games_planner/internal/storage"
	"games_planner/internal/storage/mariadb"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 1000
	minParticipants   = 2
	maxParticipants   = 100
	maxEventHorizon   = 2 // years
)

type EventInput struct {
	Title           string
	Date            string
	Time            string
	Description     string
	Reminder        string
	EventType       string
	MaxParticipants *int
	ScheduleID      *int64
	FriendIDs       []int64
}

// eventFields is an EventInput that passed validation.
type eventFields struct {
	title       string
	date        time.Time
	clock       string
	description string
	reminder    models.Reminder
	eventType   models.EventType
	maxPart     *int
	scheduleID  *int64
	friends     []int64
}

type EventService struct {
	storage *mariadb.Storage
	log     *slog.Logger
	clock   clock
}

func NewEventService(s *mariadb.Storage, log *slog.Logger, loc *time.Location) *EventService {
	return &EventService{
		storage: s,
		log:     log,
		clock:   newClock(loc),
	}
}

func (s *EventService) Create(ctx context.Context, ownerID int64, in EventInput) (int64, error) {
	const op = "services.events.Create"

	db := s.storage.DB.WithContext(ctx)

	f, err := s.validate(db, op, ownerID, in, true)
	if err != nil {
		return 0, err
	}

	ev := models.Event{
		UserID:          ownerID,
		Title:           f.title,
		Date:            f.date,
		Time:            f.clock,
		Description:     f.description,
		Reminder:        f.reminder,
		MaxParticipants: f.maxPart,
		ScheduleID:      f.scheduleID,
		EventType:       f.eventType,
		ShareToken:      uuid.NewString(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}
		return insertEventFriends(tx, ev.ID, f.friends)
	})
	if err != nil {
		return 0, persistence(op, err)
	}

	return ev.ID, nil
}

// Update rewrites an owned event and replaces its shared-friend set. The
// future-date rule only applies when the date or time is being changed.
func (s *EventService) Update(ctx context.Context, eventID, ownerID int64, in EventInput) error {
	const op = "services.events.Update"

	db := s.storage.DB.WithContext(ctx)

	var existing models.Event
	if err := db.Where("id = ? AND user_id = ?", eventID, ownerID).First(&existing).Error; err != nil {
		if storage.IsNotFound(err) {
			return fmt.Errorf("%s: event %d: %w", op, eventID, ErrNotFound)
		}
		return persistence(op, err)
	}

	moved := existing.Date.Format(models.DateLayout) != strings.TrimSpace(in.Date) ||
		existing.Time != strings.TrimSpace(in.Time)

	f, err := s.validate(db, op, ownerID, in, moved)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Event{}).
			Where("id = ? AND user_id = ?", eventID, ownerID).
			Updates(map[string]any{
				"title":            f.title,
				"date":             f.date,
				"time":             f.clock,
				"description":      f.description,
				"reminder":         f.reminder,
				"event_type":       f.eventType,
				"max_participants": f.maxPart,
				"schedule_id":      f.scheduleID,
			}).Error; err != nil {
			return err
		}

		if err := tx.Where("event_id = ?", eventID).Delete(&models.EventFriend{}).Error; err != nil {
			return err
		}

		return insertEventFriends(tx, eventID, f.friends)
	})
	if err != nil {
		return persistence(op, err)
	}

	return nil
}

// Delete removes an owned event and its mappings. Events owned by someone
// else are left untouched and no error is reported.
func (s *EventService) Delete(ctx context.Context, eventID, ownerID int64) error {
	const op = "services.events.Delete"

	err := s.storage.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Event{}).
			Where("id = ? AND user_id = ?", eventID, ownerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if s.log != nil {
				s.log.Debug("delete skipped: event not owned",
					slog.String("operation", op),
					slog.Int64("event_id", eventID),
					slog.Int64("user_id", ownerID))
			}
			return nil
		}

		if err := tx.Where("event_id = ?", eventID).Delete(&models.EventFriend{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ? AND user_id = ?", eventID, ownerID).Delete(&models.Event{}).Error
	})
	if err != nil {
		return persistence(op, err)
	}

	return nil
}

func (s *EventService) Get(ctx context.Context, eventID, ownerID int64) (*models.EventView, error) {
	const op = "services.events.Get"

	return s.one(ctx, op, "events.id = ? AND events.user_id = ?", eventID, ownerID)
}

// GetByShareToken loads an event for the public share page.
func (s *EventService) GetByShareToken(ctx context.Context, token string) (*models.EventView, error) {
	const op = "services.events.GetByShareToken"

	if _, err := uuid.Parse(token); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return s.one(ctx, op, "events.share_token = ?", token)
}

func (s *EventService) List(ctx context.Context, ownerID int64, q listing.Query) ([]models.EventView, error) {
	const op = "services.events.List"

	q = q.Normalize(listing.EventColumns)
	db := s.storage.DB.WithContext(ctx)

	query := s.baseQuery(db).Where("events.user_id = ?", ownerID)

	if q.Search != "" {
		like := listing.Like(q.Search)
		query = query.Where("(events.title LIKE ? OR events.description LIKE ?)", like, like)
	}

	if q.Date != "" {
		query = query.Where("events.date = ?", q.Date)
	}

	switch q.Filter {
	case listing.FilterUpcoming:
		query = listing.UpcomingSince(query, "events", s.clock.Now())
	case listing.FilterPast:
		query = listing.PastBefore(query, "events", s.clock.Now())
	case listing.FilterTournament:
		query = query.Where("events.event_type = ?", models.EventTournament)
	case listing.FilterMeetup:
		query = query.Where("events.event_type = ?", models.EventMeetup)
	case listing.FilterShared:
		query = query.Where("EXISTS (SELECT 1 FROM event_friends WHERE event_friends.event_id = events.id)")
	}

	var views []models.EventView
	if err := query.Order(q.OrderBy(listing.EventColumns)).Scan(&views).Error; err != nil {
		return nil, persistence(op, err)
	}

	if err := s.attach(db, op, views); err != nil {
		return nil, err
	}

	return views, nil
}

// ListSharedWithMe returns events other users shared with userID.
func (s *EventService) ListSharedWithMe(ctx context.Context, userID int64) ([]models.EventView, error) {
	const op = "services.events.ListSharedWithMe"

	db := s.storage.DB.WithContext(ctx)

	var views []models.EventView
	if err := s.baseQuery(db).
		Joins("JOIN event_friends ON event_friends.event_id = events.id").
		Where("event_friends.user_id = ?", userID).
		Order("events.date ASC, events.time ASC").
		Scan(&views).Error; err != nil {
		return nil, persistence(op, err)
	}

	if err := s.attach(db, op, views); err != nil {
		return nil, err
	}

	return views, nil
}

func (s *EventService) Stats(ctx context.Context, ownerID int64) (models.EventStats, error) {
	const op = "services.events.Stats"

	db := s.storage.DB.WithContext(ctx)
	owned := func() *gorm.DB {
		return db.Model(&models.Event{}).Where("events.user_id = ?", ownerID)
	}

	var total, upcoming, shared int64
	if err := owned().Count(&total).Error; err != nil {
		return models.EventStats{}, persistence(op, err)
	}
	if err := listing.UpcomingSince(owned(), "events", s.clock.Now()).Count(&upcoming).Error; err != nil {
		return models.EventStats{}, persistence(op, err)
	}
	if err := owned().
		Where("EXISTS (SELECT 1 FROM event_friends WHERE event_friends.event_id = events.id)").
		Count(&shared).Error; err != nil {
		return models.EventStats{}, persistence(op, err)
	}

	return models.EventStats{
		Total:    int(total),
		Upcoming: int(upcoming),
		Past:     int(total - upcoming),
		Shared:   int(shared),
	}, nil
}

func (s *EventService) one(ctx context.Context, op, where string, args ...any) (*models.EventView, error) {
	db := s.storage.DB.WithContext(ctx)

	var views []models.EventView
	if err := s.baseQuery(db).Where(where, args...).Limit(1).Scan(&views).Error; err != nil {
		return nil, persistence(op, err)
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	if err := s.attach(db, op, views); err != nil {
		return nil, err
	}

	return &views[0], nil
}

func (s *EventService) baseQuery(db *gorm.DB) *gorm.DB {
	return db.Table("events").
		Select("events.*, games.title AS schedule_game_title, users.username AS owner_username").
		Joins("JOIN users ON users.id = events.user_id").
		Joins("LEFT JOIN schedules ON schedules.id = events.schedule_id").
		Joins("LEFT JOIN games ON games.id = schedules.game_id")
}

// validate applies the event rules in order and returns the first failure.
func (s *EventService) validate(db *gorm.DB, op string, ownerID int64, in EventInput, requireFuture bool) (*eventFields, error) {
	f := &eventFields{
		title:       strings.TrimSpace(in.Title),
		clock:       strings.TrimSpace(in.Time),
		description: strings.TrimSpace(in.Description),
		maxPart:     in.MaxParticipants,
		scheduleID:  in.ScheduleID,
	}

	if f.title == "" {
		return nil, invalid("title", "title is required")
	}
	if utf8.RuneCountInString(f.title) > maxTitleLen {
		return nil, invalid("title", "title must be at most %d characters", maxTitleLen)
	}

	date, err := s.clock.parseDate("date", strings.TrimSpace(in.Date))
	if err != nil {
		return nil, err
	}
	today := s.clock.today()
	if requireFuture && date.Before(today) {
		return nil, invalid("date", "date must be in the future")
	}
	if date.After(today.AddDate(maxEventHorizon, 0, 0)) {
		return nil, invalid("date", "date must be within %d years", maxEventHorizon)
	}
	f.date = date

	if err := checkClock("time", f.clock); err != nil {
		return nil, err
	}
	if requireFuture {
		start, _ := models.StartsAt(date, f.clock, s.clock.loc)
		if !start.After(s.clock.Now()) {
			return nil, invalid("time", "event must start in the future")
		}
	}

	if utf8.RuneCountInString(f.description) > maxDescriptionLen {
		return nil, invalid("description", "description must be at most %d characters", maxDescriptionLen)
	}

	f.reminder = models.Reminder(strings.TrimSpace(in.Reminder))
	if f.reminder == "" {
		f.reminder = models.ReminderNone
	}
	if !f.reminder.Valid() {
		return nil, invalid("reminder", "unknown reminder")
	}

	f.eventType = models.EventType(strings.TrimSpace(in.EventType))
	if f.eventType == "" {
		f.eventType = models.EventOther
	}
	if !f.eventType.Valid() {
		return nil, invalid("event_type", "unknown event type")
	}

	if f.maxPart != nil && (*f.maxPart < minParticipants || *f.maxPart > maxParticipants) {
		return nil, invalid("max_participants", "max participants must be between %d and %d", minParticipants, maxParticipants)
	}

	friends, err := checkFriendIDs(db, op, ownerID, in.FriendIDs)
	if err != nil {
		return nil, err
	}
	if f.maxPart != nil && len(friends)+1 > *f.maxPart {
		return nil, invalid("friends", "more invitees than max participants allows")
	}
	f.friends = friends

	if f.scheduleID != nil {
		var count int64
		if err := db.Model(&models.Schedule{}).
			Where("id = ? AND user_id = ?", *f.scheduleID, ownerID).
			Count(&count).Error; err != nil {
			return nil, persistence(op, err)
		}
		if count == 0 {
			return nil, invalid("schedule", "linked schedule not found")
		}
	}

	return f, nil
}

func (s *EventService) attach(db *gorm.DB, op string, views []models.EventView) error {
	if len(views) == 0 {
		return nil
	}

	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}

	var rows []struct {
		EventID  int64
		ID       int64
		Username string
	}
	if err := db.Table("event_friends").
		Select("event_friends.event_id, users.id, users.username").
		Joins("JOIN users ON users.id = event_friends.user_id").
		Where("event_friends.event_id IN ?", ids).
		Order("users.username ASC").
		Scan(&rows).Error; err != nil {
		return persistence(op, err)
	}

	byID := make(map[int64][]models.UserSummary, len(views))
	for _, r := range rows {
		byID[r.EventID] = append(byID[r.EventID], models.UserSummary{ID: r.ID, Username: r.Username})
	}

	now := s.clock.Now()
	for i := range views {
		views[i].SharedWith = byID[views[i].ID]
		if start, err := models.StartsAt(views[i].Date, views[i].Time, s.clock.loc); err == nil {
			views[i].Status = models.StatusAt(start, now)
		}
	}

	return nil
}

func insertEventFriends(tx *gorm.DB, eventID int64, friendIDs []int64) error {
	if len(friendIDs) == 0 {
		return nil
	}

	rows := make([]models.EventFriend, len(friendIDs))
	for i, id := range friendIDs {
		rows[i] = models.EventFriend{EventID: eventID, UserID: id}
	}

	return tx.Create(&rows).Error
}
