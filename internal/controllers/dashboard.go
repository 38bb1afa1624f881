package controllers

import (
	"log/slog"
	"net/http"

	"games_planner/internal/listing"
	"games_planner/internal/models"
	"games_planner/internal/views"
)

const dashboardLimit = 5

type DashboardController struct {
	base
	events    EventServicer
	schedules ScheduleServicer
	friends   FriendServicer
}

func NewDashboardController(log *slog.Logger, view Renderer, sessions SessionManager, events EventServicer, schedules ScheduleServicer, friends FriendServicer) *DashboardController {
	return &DashboardController{
		base:      base{log: log, view: view, sessions: sessions},
		events:    events,
		schedules: schedules,
		friends:   friends,
	}
}

type DashboardData struct {
	Stats           models.EventStats
	Upcoming        []models.EventView
	SharedEvents    []models.EventView
	SharedSchedules []models.ScheduleView
	Online          []models.FriendView
}

func (c *DashboardController) Show(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.dashboard.Show"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	ctx := r.Context()
	var (
		data DashboardData
		err  error
	)

	if data.Stats, err = c.events.Stats(ctx, userID); err != nil {
		c.fail(w, r, op, err)
		return
	}
	upcoming, err := c.events.List(ctx, userID, listing.Query{Filter: listing.FilterUpcoming})
	if err != nil {
		c.fail(w, r, op, err)
		return
	}
	if len(upcoming) > dashboardLimit {
		upcoming = upcoming[:dashboardLimit]
	}
	data.Upcoming = upcoming

	if data.SharedEvents, err = c.events.ListSharedWithMe(ctx, userID); err != nil {
		c.fail(w, r, op, err)
		return
	}
	if data.SharedSchedules, err = c.schedules.ListSharedWithMe(ctx, userID); err != nil {
		c.fail(w, r, op, err)
		return
	}
	if data.Online, err = c.friends.ListOnline(ctx, userID); err != nil {
		c.fail(w, r, op, err)
		return
	}

	c.render(w, r, http.StatusOK, "dashboard", views.Page{Title: "Dashboard", Data: data})
}
