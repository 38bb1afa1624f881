package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"games_planner/internal/listing"
	"games_planner/internal/models"
	"games_planner/internal/services"
	"games_planner/internal/views"

	"github.com/go-chi/chi/v5"
)

type EventController struct {
	base
	events    EventServicer
	schedules ScheduleServicer
	friends   FriendServicer
}

func NewEventController(log *slog.Logger, view Renderer, sessions SessionManager, events EventServicer, schedules ScheduleServicer, friends FriendServicer) *EventController {
	return &EventController{
		base:      base{log: log, view: view, sessions: sessions},
		events:    events,
		schedules: schedules,
		friends:   friends,
	}
}

type EventsData struct {
	Events  []models.EventView
	Stats   models.EventStats
	Query   url.Values
	Filter  string
	Filters []string
	Search  string
}

type EventForm struct {
	ID              int64
	Title           string
	Date            string
	Time            string
	Description     string
	EventType       string
	Reminder        string
	MaxParticipants string
	ScheduleID      int64
	FriendIDs       []int64
	Friends         []models.FriendView
	Schedules       []models.ScheduleView
	EventTypes      []models.EventType
	Reminders       []models.Reminder
}

func (c *EventController) List(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.events.List"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	q := listing.FromValues(r.URL.Query())

	events, err := c.events.List(r.Context(), userID, q)
	if err != nil {
		c.fail(w, r, op, err)
		return
	}

	stats, err := c.events.Stats(r.Context(), userID)
	if err != nil {
		c.fail(w, r, op, err)
		return
	}

	c.render(w, r, http.StatusOK, "events", views.Page{
		Title: "Events",
		Data: EventsData{
			Events:  events,
			Stats:   stats,
			Query:   q.Values(),
			Filter:  q.Normalize(listing.EventColumns).Filter,
			Filters: listing.Filters,
			Search:  q.Search,
		},
	})
}

func (c *EventController) New(w http.ResponseWriter, r *http.Request) {
	c.showForm(w, r, http.StatusOK, EventForm{
		EventType: string(models.EventOther),
		Reminder:  string(models.ReminderNone),
	}, "")
}

func (c *EventController) Create(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.events.Create"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	form, in, err := c.parseForm(r)
	if err == nil {
		_, err = c.events.Create(r.Context(), userID, in)
	}
	if err != nil {
		if !services.IsUserFacing(err) {
			c.fail(w, r, op, err)
			return
		}
		c.showForm(w, r, http.StatusBadRequest, form, userMessage(err))
		return
	}

	c.redirect(w, r, "/events", "Event created.")
}

func (c *EventController) EditForm(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.events.EditForm"

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

	e, err := c.events.Get(r.Context(), id, userID)
	if err != nil {
		c.fail(w, r, op, err)
		return
	}

	form := EventForm{
		ID:          e.ID,
		Title:       e.Title,
		Date:        e.Date.Format(models.DateLayout),
		Time:        e.Time,
		Description: e.Description,
		EventType:   string(e.EventType),
		Reminder:    string(e.Reminder),
	}
	if e.MaxParticipants != nil {
		form.MaxParticipants = fmt.Sprint(*e.MaxParticipants)
	}
	if e.ScheduleID != nil {
		form.ScheduleID = *e.ScheduleID
	}
	for _, u := range e.SharedWith {
		form.FriendIDs = append(form.FriendIDs, u.ID)
	}

	c.showForm(w, r, http.StatusOK, form, "")
}

func (c *EventController) Update(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.events.Update"

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
		err = c.events.Update(r.Context(), id, userID, in)
	}
	if err != nil {
		if !services.IsUserFacing(err) {
			c.fail(w, r, op, err)
			return
		}
		c.showForm(w, r, http.StatusBadRequest, form, userMessage(err))
		return
	}

	c.redirect(w, r, "/events", "Event updated.")
}

// Delete removes an owned event. Deleting someone else's event does nothing.
func (c *EventController) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.events.Delete"

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

	if err := c.events.Delete(r.Context(), id, userID); err != nil {
		c.fail(w, r, op, err)
		return
	}

	c.redirect(w, r, "/events", "Event deleted.")
}

// Share is the public read-only page behind an event's share link.
func (c *EventController) Share(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.events.Share"

	e, err := c.events.GetByShareToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.render(w, r, http.StatusNotFound, "error", views.Page{Title: "Not found"})
			return
		}
		c.fail(w, r, op, err)
		return
	}

	shared := *e
	if viewer, ok := currentUser(r); !ok || !invitedOrOwner(&shared, viewer) {
		shared.SharedWith = nil
	}

	c.render(w, r, http.StatusOK, "event_share", views.Page{Title: e.Title, Data: &shared})
}

// invitedOrOwner reports whether userID may see who else is invited.
func invitedOrOwner(e *models.EventView, userID int64) bool {
	if e.UserID == userID {
		return true
	}
	for _, u := range e.SharedWith {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func (c *EventController) parseForm(r *http.Request) (EventForm, services.EventInput, error) {
	var form EventForm
	if err := r.ParseForm(); err != nil {
		return form, services.EventInput{}, &services.ValidationError{Field: "form", Message: "the form could not be read"}
	}

	form.Title = r.PostFormValue("title")
	form.Date = strings.TrimSpace(r.PostFormValue("date"))
	form.Time = strings.TrimSpace(r.PostFormValue("time"))
	form.Description = r.PostFormValue("description")
	form.EventType = strings.TrimSpace(r.PostFormValue("event_type"))
	form.Reminder = strings.TrimSpace(r.PostFormValue("reminder"))
	form.MaxParticipants = strings.TrimSpace(r.PostFormValue("max_participants"))

	in := services.EventInput{
		Title:       form.Title,
		Date:        form.Date,
		Time:        form.Time,
		Description: form.Description,
		Reminder:    form.Reminder,
		EventType:   form.EventType,
	}

	maxPart, err := optionalInt(form.MaxParticipants, "max_participants", "max participants must be a number")
	if err != nil {
		return form, in, err
	}
	in.MaxParticipants = maxPart

	scheduleID, err := optionalID(r.PostFormValue("schedule_id"), "schedule_id", "the linked session is invalid")
	if err != nil {
		return form, in, err
	}
	if scheduleID != nil {
		form.ScheduleID = *scheduleID
	}
	in.ScheduleID = scheduleID

	ids, err := formIDs(r.PostForm["friends"], "friends")
	if err != nil {
		return form, in, err
	}
	form.FriendIDs = ids
	in.FriendIDs = ids

	return form, in, nil
}

func (c *EventController) showForm(w http.ResponseWriter, r *http.Request, status int, form EventForm, msg string) {
	const op = "controllers.events.showForm"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	friends, err := c.friends.ListFriends(r.Context(), userID)
	if err != nil {
		c.fail(w, r, op, err)
		return
	}
	schedules, err := c.schedules.List(r.Context(), userID, listing.Query{})
	if err != nil {
		c.fail(w, r, op, err)
		return
	}

	form.Friends = friends
	form.Schedules = schedules
	form.EventTypes = models.EventTypes
	form.Reminders = models.Reminders

	title := "Create an event"
	if form.ID != 0 {
		title = "Edit event"
	}

	c.render(w, r, status, "event_form", views.Page{Title: title, Error: msg, Data: form})
}
