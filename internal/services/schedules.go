package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"games_planner/internal/listing"
	"games_planner/internal/models"
	"games_planner/internal/storage"
	"games_planner/internal/storage/mariadb"

	"gorm.io/gorm"
)

type ScheduleInput struct {
	GameID    int64
	Date      string
	Time      string
	FriendIDs []int64
}

type ScheduleService struct {
	storage *mariadb.Storage
	log     *slog.Logger
	clock   clock
}

func NewScheduleService(s *mariadb.Storage, log *slog.Logger, loc *time.Location) *ScheduleService {
	return &ScheduleService{
		storage: s,
		log:     log,
		clock:   newClock(loc),
	}
}

func (s *ScheduleService) Create(ctx context.Context, ownerID int64, in ScheduleInput) (int64, error) {
	const op = "services.schedules.Create"

	db := s.storage.DB.WithContext(ctx)

	date, friends, err := s.validate(db, op, ownerID, in, true)
	if err != nil {
		return 0, err
	}

	sch := models.Schedule{
		UserID: ownerID,
		GameID: in.GameID,
		Date:   date,
		Time:   in.Time,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sch).Error; err != nil {
			return err
		}
		return insertScheduleFriends(tx, sch.ID, friends)
	})
	if err != nil {
		return 0, persistence(op, err)
	}

	return sch.ID, nil
}

// Edit overwrites every field of an owned schedule and replaces its invite set.
func (s *ScheduleService) Edit(ctx context.Context, scheduleID, ownerID int64, in ScheduleInput) error {
	const op = "services.schedules.Edit"

	db := s.storage.DB.WithContext(ctx)

	existing, err := s.owned(db, op, scheduleID, ownerID)
	if err != nil {
		return err
	}

	moved := existing.Date.Format(models.DateLayout) != in.Date || existing.Time != in.Time

	date, friends, err := s.validate(db, op, ownerID, in, moved)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Schedule{}).
			Where("id = ? AND user_id = ?", scheduleID, ownerID).
			Updates(map[string]any{
				"game_id": in.GameID,
				"date":    date,
				"time":    in.Time,
			}).Error; err != nil {
			return err
		}

		if err := tx.Where("schedule_id = ?", scheduleID).Delete(&models.ScheduleFriend{}).Error; err != nil {
			return err
		}

		return insertScheduleFriends(tx, scheduleID, friends)
	})
	if err != nil {
		return persistence(op, err)
	}

	return nil
}

// Delete removes an owned schedule with its invites and unlinks any events
// that referenced it.
func (s *ScheduleService) Delete(ctx context.Context, scheduleID, ownerID int64) error {
	const op = "services.schedules.Delete"

	err := s.storage.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.owned(tx, op, scheduleID, ownerID); err != nil {
			return err
		}

		if err := tx.Where("schedule_id = ?", scheduleID).Delete(&models.ScheduleFriend{}).Error; err != nil {
			return persistence(op, err)
		}

		if err := tx.Model(&models.Event{}).
			Where("schedule_id = ?", scheduleID).
			Update("schedule_id", nil).Error; err != nil {
			return persistence(op, err)
		}

		if err := tx.Where("id = ? AND user_id = ?", scheduleID, ownerID).Delete(&models.Schedule{}).Error; err != nil {
			return persistence(op, err)
		}

		return nil
	})

	return err
}

func (s *ScheduleService) Get(ctx context.Context, scheduleID, ownerID int64) (*models.ScheduleView, error) {
	const op = "services.schedules.Get"

	db := s.storage.DB.WithContext(ctx)

	var views []models.ScheduleView
	if err := s.baseQuery(db).
		Where("schedules.id = ? AND schedules.user_id = ?", scheduleID, ownerID).
		Limit(1).
		Scan(&views).Error; err != nil {
		return nil, persistence(op, err)
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("%s: schedule %d: %w", op, scheduleID, ErrNotFound)
	}

	if err := s.attach(db, op, views); err != nil {
		return nil, err
	}

	return &views[0], nil
}

// List runs a fresh query for the owner's schedules on every call.
func (s *ScheduleService) List(ctx context.Context, ownerID int64, q listing.Query) ([]models.ScheduleView, error) {
	const op = "services.schedules.List"

	q = q.Normalize(listing.ScheduleColumns)
	db := s.storage.DB.WithContext(ctx)

	query := s.baseQuery(db).Where("schedules.user_id = ?", ownerID)

	if q.Search != "" {
		query = query.Where("games.title LIKE ?", listing.Like(q.Search))
	}

	if q.Date != "" {
		query = query.Where("schedules.date = ?", q.Date)
	}

	switch q.Filter {
	case listing.FilterUpcoming:
		query = listing.UpcomingSince(query, "schedules", s.clock.Now())
	case listing.FilterPast:
		query = listing.PastBefore(query, "schedules", s.clock.Now())
	}

	var views []models.ScheduleView
	if err := query.Order(q.OrderBy(listing.ScheduleColumns)).Scan(&views).Error; err != nil {
		return nil, persistence(op, err)
	}

	if err := s.attach(db, op, views); err != nil {
		return nil, err
	}

	return views, nil
}

// ListSharedWithMe returns schedules other users invited userID to.
func (s *ScheduleService) ListSharedWithMe(ctx context.Context, userID int64) ([]models.ScheduleView, error) {
	const op = "services.schedules.ListSharedWithMe"

	db := s.storage.DB.WithContext(ctx)

	var views []models.ScheduleView
	if err := s.baseQuery(db).
		Joins("JOIN schedule_friends ON schedule_friends.schedule_id = schedules.id").
		Where("schedule_friends.user_id = ?", userID).
		Order("schedules.date ASC, schedules.time ASC").
		Scan(&views).Error; err != nil {
		return nil, persistence(op, err)
	}

	if err := s.attach(db, op, views); err != nil {
		return nil, err
	}

	return views, nil
}

func (s *ScheduleService) baseQuery(db *gorm.DB) *gorm.DB {
	return db.Table("schedules").
		Select("schedules.*, games.title AS game_title, games.genre AS game_genre, users.username AS owner_username").
		Joins("LEFT JOIN games ON games.id = schedules.game_id").
		Joins("JOIN users ON users.id = schedules.user_id")
}

func (s *ScheduleService) owned(db *gorm.DB, op string, scheduleID, ownerID int64) (*models.Schedule, error) {
	var sch models.Schedule
	if err := db.Where("id = ? AND user_id = ?", scheduleID, ownerID).First(&sch).Error; err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%s: schedule %d: %w", op, scheduleID, ErrNotFound)
		}
		return nil, persistence(op, err)
	}
	return &sch, nil
}

// validate checks input in a fixed order and returns the first failure.
func (s *ScheduleService) validate(db *gorm.DB, op string, ownerID int64, in ScheduleInput, requireFuture bool) (time.Time, []int64, error) {
	if in.GameID <= 0 {
		return time.Time{}, nil, invalid("game", "choose a game")
	}

	date, err := s.clock.parseDate("date", in.Date)
	if err != nil {
		return time.Time{}, nil, err
	}

	if err := checkClock("time", in.Time); err != nil {
		return time.Time{}, nil, err
	}

	if requireFuture {
		start, err := models.StartsAt(date, in.Time, s.clock.loc)
		if err != nil {
			return time.Time{}, nil, invalid("time", "time must look like HH:MM")
		}
		if !start.After(s.clock.Now()) {
			return time.Time{}, nil, invalid("date", "the session must be in the future")
		}
	}

	var games int64
	if err := db.Model(&models.Game{}).Where("id = ?", in.GameID).Count(&games).Error; err != nil {
		return time.Time{}, nil, persistence(op, err)
	}
	if games == 0 {
		return time.Time{}, nil, invalid("game", "unknown game")
	}

	friends, err := checkFriendIDs(db, op, ownerID, in.FriendIDs)
	if err != nil {
		return time.Time{}, nil, err
	}

	return date, friends, nil
}

func (s *ScheduleService) attach(db *gorm.DB, op string, views []models.ScheduleView) error {
	if len(views) == 0 {
		return nil
	}

	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}

	var rows []struct {
		ScheduleID int64
		ID         int64
		Username   string
	}
	if err := db.Table("schedule_friends").
		Select("schedule_friends.schedule_id, users.id, users.username").
		Joins("JOIN users ON users.id = schedule_friends.user_id").
		Where("schedule_friends.schedule_id IN ?", ids).
		Order("users.username ASC").
		Scan(&rows).Error; err != nil {
		return persistence(op, err)
	}

	byID := make(map[int64][]models.UserSummary, len(views))
	for _, r := range rows {
		byID[r.ScheduleID] = append(byID[r.ScheduleID], models.UserSummary{ID: r.ID, Username: r.Username})
	}

	now := s.clock.Now()
	for i := range views {
		views[i].Friends = byID[views[i].ID]
		views[i].FriendCount = len(views[i].Friends)
		if start, err := models.StartsAt(views[i].Date, views[i].Time, s.clock.loc); err == nil {
			views[i].Status = models.StatusAt(start, now)
		}
	}

	return nil
}

func insertScheduleFriends(tx *gorm.DB, scheduleID int64, friendIDs []int64) error {
	if len(friendIDs) == 0 {
		return nil
	}

	rows := make([]models.ScheduleFriend, len(friendIDs))
	for i, id := range friendIDs {
		rows[i] = models.ScheduleFriend{ScheduleID: scheduleID, UserID: id}
	}

	return tx.Create(&rows).Error
}
