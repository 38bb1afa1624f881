package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"games_planner/internal/listing"
	"games_planner/internal/models"
	"games_planner/internal/services"
	"games_planner/internal/views"
)

type ScheduleController struct {
	base
	schedules ScheduleServicer
	games     GameServicer
	friends   FriendServicer
}

func NewScheduleController(log *slog.Logger, view Renderer, sessions SessionManager, schedules ScheduleServicer, games GameServicer, friends FriendServicer) *ScheduleController {
	return &ScheduleController{
		base:      base{log: log, view: view, sessions: sessions},
		schedules: schedules,
		games:     games,
		friends:   friends,
	}
}

type SchedulesData struct {
	Schedules []models.ScheduleView
	Query     url.Values
	Search    string
	Date      string
}

type ScheduleForm struct {
	ID        int64
	GameID    int64
	Date      string
	Time      string
	FriendIDs []int64
	Games     []models.Game
	Friends   []models.FriendView
}

func (c *ScheduleController) List(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.schedules.List"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	q := listing.FromValues(r.URL.Query())

	schedules, err := c.schedules.List(r.Context(), userID, q)
	if err != nil {
		c.fail(w, r, op, err)
		return
	}

	c.render(w, r, http.StatusOK, "schedules", views.Page{
		Title: "Schedules",
		Data: SchedulesData{
			Schedules: schedules,
			Query:     q.Values(),
			Search:    q.Search,
			Date:      q.Date,
		},
	})
}

func (c *ScheduleController) New(w http.ResponseWriter, r *http.Request) {
	c.showForm(w, r, http.StatusOK, ScheduleForm{}, "")
}

func (c *ScheduleController) Create(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.schedules.Create"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	form, in, err := c.parseForm(r)
	if err == nil {
		_, err = c.schedules.Create(r.Context(), userID, in)
	}
	if err != nil {
		if !services.IsUserFacing(err) {
			c.fail(w, r, op, err)
			return
		}
		c.showForm(w, r, http.StatusBadRequest, form, userMessage(err))
		return
	}

	c.redirect(w, r, "/schedules", "Session planned.")
}

func (c *ScheduleController) EditForm(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.schedules.EditForm"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, ErrInvalidID.Error(), http.StatusBadRequest)
		return
	}

	s, err := c.schedules.Get(r.Context(), id, userID)
	if err != nil {
		c.fail(w, r, op, err)
		return
	}

	form := ScheduleForm{
		ID:     s.ID,
		GameID: s.GameID,
		Date:   s.Date.Format(models.DateLayout),
		Time:   s.Time,
	}
	for _, f := range s.Friends {
		form.FriendIDs = append(form.FriendIDs, f.ID)
	}

	c.showForm(w, r, http.StatusOK, form, "")
}

func (c *ScheduleController) Edit(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.schedules.Edit"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, ErrInvalidID.Error(), http.StatusBadRequest)
		return
	}

	form, in, err := c.parseForm(r)
	form.ID = id
	if err == nil {
		err = c.schedules.Edit(r.Context(), id, userID, in)
	}
	if err != nil {
		if !services.IsUserFacing(err) {
			c.fail(w, r, op, err)
			return
		}
		c.showForm(w, r, http.StatusBadRequest, form, userMessage(err))
		return
	}

	c.redirect(w, r, "/schedules", "Session updated.")
}

func (c *ScheduleController) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.schedules.Delete"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, ErrInvalidID.Error(), http.StatusBadRequest)
		return
	}

	if err := c.schedules.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.redirect(w, r, "/schedules", "That session no longer exists.")
			return
		}
		c.fail(w, r, op, err)
		return
	}

	c.redirect(w, r, "/schedules", "Session deleted.")
}

func (c *ScheduleController) parseForm(r *http.Request) (ScheduleForm, services.ScheduleInput, error) {
	var form ScheduleForm
	if err := r.ParseForm(); err != nil {
		return form, services.ScheduleInput{}, &services.ValidationError{Field: "form", Message: "the form could not be read"}
	}

	form.Date = strings.TrimSpace(r.PostFormValue("date"))
	form.Time = strings.TrimSpace(r.PostFormValue("time"))

	gameID, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("game_id")), 10, 64)
	if err != nil {
		gameID = 0
	}
	form.GameID = gameID

	ids, err := formIDs(r.PostForm["friends"], "friends")
	if err != nil {
		return form, services.ScheduleInput{}, err
	}
	form.FriendIDs = ids

	return form, services.ScheduleInput{
		GameID:    form.GameID,
		Date:      form.Date,
		Time:      form.Time,
		FriendIDs: form.FriendIDs,
	}, nil
}

func (c *ScheduleController) showForm(w http.ResponseWriter, r *http.Request, status int, form ScheduleForm, msg string) {
	const op = "controllers.schedules.showForm"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	games, err := c.games.List(r.Context(), "")
	if err != nil {
		c.fail(w, r, op, err)
		return
	}
	friends, err := c.friends.ListFriends(r.Context(), userID)
	if err != nil {
		c.fail(w, r, op, err)
		return
	}
	form.Games = games
	form.Friends = friends

	title := "Plan a session"
	if form.ID != 0 {
		title = "Edit session"
	}

	c.render(w, r, status, "schedule_form", views.Page{Title: title, Error: msg, Data: form})
}
