package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"games_planner/internal/listing"
	"games_planner/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduleService(t *testing.T) (*ScheduleService, sqlmock.Sqlmock) {
	storage, mock := setupMockDB(t)
	t.Cleanup(func() { storage.Close() })

	service := NewScheduleService(storage, discardLogger(), time.UTC)
	service.clock = fixedClock()
	return service, mock
}

func scheduleRow(id int64, date time.Time, clock string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "game_id", "date", "time"}).
		AddRow(id, 1, 3, date, clock)
}

func TestScheduleService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success with friends", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `games` WHERE id = ?")).
			WithArgs(3).
			WillReturnRows(countRows(1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `friend_id` FROM `friends`")).
			WillReturnRows(sqlmock.NewRows([]string{"friend_id"}).AddRow(2).AddRow(4))
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `schedules`")).
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `schedule_friends`")).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		id, err := service.Create(ctx, 1, ScheduleInput{
			GameID:    3,
			Date:      "2025-06-10",
			Time:      "18:00",
			FriendIDs: []int64{2, 4, 2},
		})

		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid friend id writes nothing", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `games`")).
			WillReturnRows(countRows(1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `friend_id` FROM `friends`")).
			WillReturnRows(sqlmock.NewRows([]string{"friend_id"}).AddRow(2))

		_, err := service.Create(ctx, 1, ScheduleInput{
			GameID:    3,
			Date:      "2025-06-10",
			Time:      "18:00",
			FriendIDs: []int64{2, 99},
		})

		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "99")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback when join rows fail", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `games`")).
			WillReturnRows(countRows(1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `friend_id` FROM `friends`")).
			WillReturnRows(sqlmock.NewRows([]string{"friend_id"}).AddRow(2))
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `schedules`")).
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `schedule_friends`")).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		_, err := service.Create(ctx, 1, ScheduleInput{GameID: 3, Date: "2025-06-10", Time: "18:00", FriendIDs: []int64{2}})

		assert.ErrorIs(t, err, ErrPersistence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	cases := []struct {
		name  string
		in    ScheduleInput
		field string
	}{
		{"missing game", ScheduleInput{Date: "2025-06-10", Time: "18:00"}, "game"},
		{"bad date", ScheduleInput{GameID: 3, Date: "10/06/2025", Time: "18:00"}, "date"},
		{"bad time", ScheduleInput{GameID: 3, Date: "2025-06-10", Time: "25:00"}, "time"},
		{"past date", ScheduleInput{GameID: 3, Date: "2025-05-01", Time: "18:00"}, "date"},
		{"earlier today", ScheduleInput{GameID: 3, Date: "2025-06-01", Time: "11:59"}, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service, mock := newScheduleService(t)

			_, err := service.Create(ctx, 1, tc.in)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("unknown game", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `games`")).
			WillReturnRows(countRows(0))

		_, err := service.Create(ctx, 1, ScheduleInput{GameID: 404, Date: "2025-06-10", Time: "18:00"})

		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScheduleService_CreateEastOfUTC(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the entered calendar day", func(t *testing.T) {
		service, mock := newScheduleService(t)
		service.clock = berlinClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `games`")).
			WillReturnRows(countRows(1))
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `schedules`")).
			WithArgs(1, 3, storedDay("2025-06-10"), "18:00", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectCommit()

		_, err := service.Create(ctx, 1, ScheduleInput{GameID: 3, Date: "2025-06-10", Time: "18:00"})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("start time is checked in the local zone", func(t *testing.T) {
		service, mock := newScheduleService(t)
		// 12:00 UTC is 14:00 in Berlin, so 13:00 local has already passed.
		service.clock = berlinClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

		_, err := service.Create(ctx, 1, ScheduleInput{GameID: 3, Date: "2025-06-01", Time: "13:00"})

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "date", ve.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScheduleService_Edit(t *testing.T) {
	ctx := context.Background()
	past := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	t.Run("replaces the friend set", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `schedules` WHERE id = ? AND user_id = ?")).
			WillReturnRows(scheduleRow(7, past, "18:00"))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `games`")).
			WillReturnRows(countRows(1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `friend_id` FROM `friends`")).
			WillReturnRows(sqlmock.NewRows([]string{"friend_id"}).AddRow(5))
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `schedules` SET")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `schedule_friends` WHERE schedule_id = ?")).
			WithArgs(7).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `schedule_friends`")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		// Unchanged date and time may stay in the past.
		err := service.Edit(ctx, 7, 1, ScheduleInput{GameID: 3, Date: "2025-05-20", Time: "18:00", FriendIDs: []int64{5}})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moving into the past fails", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `schedules`")).
			WillReturnRows(scheduleRow(7, past, "18:00"))

		err := service.Edit(ctx, 7, 1, ScheduleInput{GameID: 3, Date: "2025-05-21", Time: "18:00"})

		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not owned", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `schedules`")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := service.Edit(ctx, 7, 2, ScheduleInput{GameID: 3, Date: "2025-06-10", Time: "18:00"})

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScheduleService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `schedules`")).
			WillReturnRows(scheduleRow(7, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), "18:00"))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `schedule_friends` WHERE schedule_id = ?")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE `events` SET `schedule_id`=?")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `schedules` WHERE id = ? AND user_id = ?")).
			WithArgs(7, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, service.Delete(ctx, 7, 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other user", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `schedules`")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := service.Delete(ctx, 7, 2)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScheduleService_List(t *testing.T) {
	ctx := context.Background()
	viewColumns := []string{"id", "user_id", "game_id", "date", "time", "game_title", "game_genre", "owner_username"}

	t.Run("unknown sort falls back to date", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE schedules.user_id = ? ORDER BY schedules.date ASC, schedules.time ASC")).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows(viewColumns).
				AddRow(7, 1, 3, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), "18:00", "Portal 2", "Puzzle", "alice").
				AddRow(8, 1, 3, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "20:00", "Portal 2", "Puzzle", "alice"))
		mock.ExpectQuery(regexp.QuoteMeta("FROM `schedule_friends` JOIN users ON users.id = schedule_friends.user_id WHERE schedule_friends.schedule_id IN (?,?)")).
			WithArgs(7, 8).
			WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "id", "username"}).
				AddRow(7, 2, "bob").
				AddRow(7, 4, "dave"))

		views, err := service.List(ctx, 1, listing.Query{Sort: "date; DROP TABLE users", Order: "sideways"})

		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "Portal 2", views[0].GameTitle)
		assert.Equal(t, 2, views[0].FriendCount)
		assert.Equal(t, models.StatusUpcoming, views[0].Status)
		assert.Equal(t, 0, views[1].FriendCount)
		assert.Equal(t, models.StatusToday, views[1].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("game title sort descending with search", func(t *testing.T) {
		service, mock := newScheduleService(t)

		mock.ExpectQuery(regexp.QuoteMeta("AND games.title LIKE ? ORDER BY games.title DESC")).
			WithArgs(1, "%port%").
			WillReturnRows(sqlmock.NewRows(viewColumns))

		views, err := service.List(ctx, 1, listing.Query{Sort: "game_title", Order: "desc", Search: "port"})

		assert.NoError(t, err)
		assert.Empty(t, views)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("each call runs a fresh query", func(t *testing.T) {
		service, mock := newScheduleService(t)

		for i := 0; i < 2; i++ {
			mock.ExpectQuery(regexp.QuoteMeta("FROM `schedules`")).
				WillReturnRows(sqlmock.NewRows(viewColumns))
		}

		for i := 0; i < 2; i++ {
			_, err := service.List(ctx, 1, listing.Query{})
			require.NoError(t, err)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestScheduleService_Get(t *testing.T) {
	service, mock := newScheduleService(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE schedules.id = ? AND schedules.user_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := service.Get(context.Background(), 7, 2)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
