package controllers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"games_planner/internal/listing"
	"games_planner/internal/models"
	"games_planner/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func eventRouter(t *testing.T, sessions *fakeSessions, events *MockEventService, schedules *MockScheduleService, friends *MockFriendService) http.Handler {
	c := NewEventController(discardLogger(), testRenderer(t), sessions, events, schedules, friends)
	return asUser(1, func(r chi.Router) {
		r.Get("/events", c.List)
		r.Post("/events", c.Create)
		r.Get("/events/{id}/edit", c.EditForm)
		r.Post("/events/{id}", c.Update)
		r.Post("/events/{id}/delete", c.Delete)
	})
}

func TestEventController_List(t *testing.T) {
	events := new(MockEventService)
	router := eventRouter(t, &fakeSessions{}, events, new(MockScheduleService), new(MockFriendService))

	q := listing.Query{Filter: "shared", Search: "lan"}
	events.On("List", mock.Anything, int64(1), q).Return([]models.EventView{
		{
			Event:      models.Event{ID: 21, Title: "Friday LAN", Date: time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), Time: "19:30", EventType: models.EventMeetup},
			SharedWith: []models.UserSummary{{ID: 2, Username: "bob"}},
			Status:     models.StatusUpcoming,
		},
	}, nil)
	events.On("Stats", mock.Anything, int64(1)).Return(models.EventStats{Total: 4, Upcoming: 1, Past: 3, Shared: 1}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?filter=shared&q=lan", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	assert.Equal(t, 1, doc.Find("tr.event").Length())
	assert.Equal(t, "bob", doc.Find("tr.event td.shared").Text())
	assert.Equal(t, "4", doc.Find(`span.stat[data-stat="total"]`).Text())
	assert.Equal(t, "3", doc.Find(`span.stat[data-stat="past"]`).Text())
	_, selected := doc.Find(`select[name="filter"] option[value="shared"]`).Attr("selected")
	assert.True(t, selected)
	events.AssertExpectations(t)
}

func TestEventController_Create(t *testing.T) {
	t.Run("passes parsed input", func(t *testing.T) {
		events := new(MockEventService)
		sessions := &fakeSessions{}
		router := eventRouter(t, sessions, events, new(MockScheduleService), new(MockFriendService))

		limit := 8
		sched := int64(7)
		events.On("Create", mock.Anything, int64(1), services.EventInput{
			Title:           "Friday LAN",
			Date:            "2030-06-13",
			Time:            "19:30",
			Description:     "bring snacks",
			Reminder:        "1day",
			EventType:       "meetup",
			MaxParticipants: &limit,
			ScheduleID:      &sched,
			FriendIDs:       []int64{2, 3},
		}).Return(int64(21), nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/events", url.Values{
			"title":            {"Friday LAN"},
			"date":             {"2030-06-13"},
			"time":             {"19:30"},
			"description":      {"bring snacks"},
			"reminder":         {"1day"},
			"event_type":       {"meetup"},
			"max_participants": {"8"},
			"schedule_id":      {"7"},
			"friends":          {"2", "3"},
		}))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, []string{"Event created."}, sessions.flashes)
		events.AssertExpectations(t)
	})

	t.Run("validation error re-renders the form", func(t *testing.T) {
		events := new(MockEventService)
		schedules := new(MockScheduleService)
		friends := new(MockFriendService)
		router := eventRouter(t, &fakeSessions{}, events, schedules, friends)

		events.On("Create", mock.Anything, int64(1), mock.Anything).
			Return(int64(0), &services.ValidationError{Field: "friends", Message: "some selected friends are invalid (99)"})
		friends.On("ListFriends", mock.Anything, int64(1)).Return([]models.FriendView{}, nil)
		schedules.On("List", mock.Anything, int64(1), listing.Query{}).Return([]models.ScheduleView{}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/events", url.Values{
			"title": {"Friday LAN"}, "date": {"2030-06-13"}, "time": {"19:30"}, "friends": {"99"}, "event_type": {"tournament"},
		}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		doc := parseHTML(t, rec)
		assert.Equal(t, "some selected friends are invalid (99)", doc.Find("#form-error").Text())
		assert.Equal(t, "Friday LAN", doc.Find(`input[name="title"]`).AttrOr("value", ""))
		_, selected := doc.Find(`select[name="event_type"] option[value="tournament"]`).Attr("selected")
		assert.True(t, selected)
	})

	t.Run("non-numeric max participants", func(t *testing.T) {
		events := new(MockEventService)
		schedules := new(MockScheduleService)
		friends := new(MockFriendService)
		router := eventRouter(t, &fakeSessions{}, events, schedules, friends)

		friends.On("ListFriends", mock.Anything, int64(1)).Return([]models.FriendView{}, nil)
		schedules.On("List", mock.Anything, int64(1), listing.Query{}).Return([]models.ScheduleView{}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/events", url.Values{"title": {"x"}, "max_participants": {"lots"}}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		events.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEventController_Delete(t *testing.T) {
	events := new(MockEventService)
	sessions := &fakeSessions{}
	router := eventRouter(t, sessions, events, new(MockScheduleService), new(MockFriendService))

	// The service treats other users' events as a no-op.
	events.On("Delete", mock.Anything, int64(99), int64(1)).Return(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, postForm("/events/99/delete", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/events", rec.Header().Get("Location"))
	events.AssertExpectations(t)
}

func TestEventController_EditForm(t *testing.T) {
	events := new(MockEventService)
	schedules := new(MockScheduleService)
	friends := new(MockFriendService)
	router := eventRouter(t, &fakeSessions{}, events, schedules, friends)

	limit := 6
	events.On("Get", mock.Anything, int64(21), int64(1)).Return(&models.EventView{
		Event: models.Event{
			ID: 21, Title: "Friday LAN", Date: time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), Time: "19:30",
			Reminder: models.Reminder1Day, EventType: models.EventMeetup, MaxParticipants: &limit,
		},
		SharedWith: []models.UserSummary{{ID: 2, Username: "bob"}},
	}, nil)
	friends.On("ListFriends", mock.Anything, int64(1)).Return([]models.FriendView{{UserID: 2, Username: "bob"}, {UserID: 3, Username: "carol"}}, nil)
	schedules.On("List", mock.Anything, int64(1), listing.Query{}).Return([]models.ScheduleView{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/21/edit", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec)
	assert.Equal(t, "/events/21", doc.Find("#event-form").AttrOr("action", ""))
	assert.Equal(t, "2025-06-13", doc.Find(`input[name="date"]`).AttrOr("value", ""))
	assert.Equal(t, "6", doc.Find(`input[name="max_participants"]`).AttrOr("value", ""))
	_, bob := doc.Find(`input[name="friends"][value="2"]`).Attr("checked")
	_, carol := doc.Find(`input[name="friends"][value="3"]`).Attr("checked")
	assert.True(t, bob)
	assert.False(t, carol)
}

func TestEventController_Share(t *testing.T) {
	events := new(MockEventService)
	c := NewEventController(discardLogger(), testRenderer(t), &fakeSessions{}, events, new(MockScheduleService), new(MockFriendService))

	router := chi.NewRouter()
	router.Get("/share/{token}", c.Share)

	events.On("GetByShareToken", mock.Anything, "good").Return(&models.EventView{
		Event:         models.Event{ID: 21, Title: "Friday LAN", Date: time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), Time: "19:30"},
		OwnerUsername: "alice",
	}, nil)
	events.On("GetByShareToken", mock.Anything, "bad").Return(nil, services.ErrNotFound)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share/good", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec)
	assert.Equal(t, "alice", doc.Find("#shared-event .owner").Text())
	assert.Equal(t, 0, doc.Find(`form[action="/logout"]`).Length())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share/bad", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventController_ShareInvitees(t *testing.T) {
	events := new(MockEventService)
	c := NewEventController(discardLogger(), testRenderer(t), &fakeSessions{}, events, new(MockScheduleService), new(MockFriendService))

	events.On("GetByShareToken", mock.Anything, "good").Return(&models.EventView{
		Event:         models.Event{ID: 21, UserID: 1, Title: "Friday LAN", Date: time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), Time: "19:30"},
		OwnerUsername: "alice",
		SharedWith:    []models.UserSummary{{ID: 2, Username: "bob"}},
	}, nil)

	cases := []struct {
		name    string
		handler http.Handler
		visible bool
	}{
		{"anonymous visitor", func() http.Handler {
			r := chi.NewRouter()
			r.Get("/share/{token}", c.Share)
			return r
		}(), false},
		{"unrelated user", asUser(9, func(r chi.Router) { r.Get("/share/{token}", c.Share) }), false},
		{"invited user", asUser(2, func(r chi.Router) { r.Get("/share/{token}", c.Share) }), true},
		{"owner", asUser(1, func(r chi.Router) { r.Get("/share/{token}", c.Share) }), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share/good", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			doc := parseHTML(t, rec)
			assert.Equal(t, tc.visible, doc.Find("#shared-event .invited").Length() == 1)
		})
	}
}
