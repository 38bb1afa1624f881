package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"games_planner/internal/listing"
	"games_planner/internal/middleware"
	"games_planner/internal/models"
	"games_planner/internal/services"
	"games_planner/internal/views"

	"github.com/go-chi/chi/v5"
)

var (
	ErrGeneric     = errors.New("something went wrong, please try again")
	ErrBadRequest  = errors.New("bad request")
	ErrInvalidID   = errors.New("invalid id")
	ErrParsingForm = errors.New("failed to parse form")
	ErrEncoding    = errors.New("failed to encode")
)

type UserServicer interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetByID(ctx context.Context, userID int64) (*models.User, error)
	Touch(ctx context.Context, userID int64) error
	UpdateProfile(ctx context.Context, userID int64, in services.ProfileInput) error
	ChangePassword(ctx context.Context, userID int64, current, next string) error
}

type FriendServicer interface {
	AddFriend(ctx context.Context, ownerID int64, targetUsername string) (int64, error)
	RemoveFriend(ctx context.Context, ownerID, targetUserID int64) error
	ListFriends(ctx context.Context, ownerID int64) ([]models.FriendView, error)
	ListOnline(ctx context.Context, ownerID int64) ([]models.FriendView, error)
	SearchUsers(ctx context.Context, query string, excludeOwnerID int64) ([]models.UserSummary, error)
}

type ScheduleServicer interface {
	Create(ctx context.Context, ownerID int64, in services.ScheduleInput) (int64, error)
	Edit(ctx context.Context, scheduleID, ownerID int64, in services.ScheduleInput) error
	Delete(ctx context.Context, scheduleID, ownerID int64) error
	Get(ctx context.Context, scheduleID, ownerID int64) (*models.ScheduleView, error)
	List(ctx context.Context, ownerID int64, q listing.Query) ([]models.ScheduleView, error)
	ListSharedWithMe(ctx context.Context, userID int64) ([]models.ScheduleView, error)
}

type EventServicer interface {
	Create(ctx context.Context, ownerID int64, in services.EventInput) (int64, error)
	Update(ctx context.Context, eventID, ownerID int64, in services.EventInput) error
	Delete(ctx context.Context, eventID, ownerID int64) error
	Get(ctx context.Context, eventID, ownerID int64) (*models.EventView, error)
	GetByShareToken(ctx context.Context, token string) (*models.EventView, error)
	List(ctx context.Context, ownerID int64, q listing.Query) ([]models.EventView, error)
	ListSharedWithMe(ctx context.Context, userID int64) ([]models.EventView, error)
	Stats(ctx context.Context, ownerID int64) (models.EventStats, error)
}

type GameServicer interface {
	List(ctx context.Context, search string) ([]models.Game, error)
}

// SessionManager is the cookie session the controllers sign users in and out of.
type SessionManager interface {
	Login(w http.ResponseWriter, r *http.Request, userID int64) error
	Logout(w http.ResponseWriter, r *http.Request) error
	AddFlash(w http.ResponseWriter, r *http.Request, msg string)
	Flashes(w http.ResponseWriter, r *http.Request) []string
}

// Renderer draws a named HTML page.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, page views.Page) error
}

// base bundles what every HTML controller needs.
type base struct {
	log      *slog.Logger
	view     Renderer
	sessions SessionManager
}

func (b *base) render(w http.ResponseWriter, r *http.Request, status int, name string, page views.Page) {
	if id, ok := middleware.UserIDFromContext(r.Context()); ok {
		page.UserID = id
	}
	if b.sessions != nil {
		page.Flashes = append(page.Flashes, b.sessions.Flashes(w, r)...)
	}

	if err := b.view.Render(w, status, name, page); err != nil {
		b.log.Error("render failed", slog.String("page", name), slog.String("error", err.Error()))
		http.Error(w, ErrGeneric.Error(), http.StatusInternalServerError)
	}
}

// fail logs err and shows the generic error page. Internal detail never
// reaches the response.
func (b *base) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	title := ErrGeneric.Error()
	if errors.Is(err, services.ErrNotFound) {
		status = http.StatusNotFound
		title = "Not found"
	}

	b.log.Error(title, slog.String("operation", op), slog.String("error", err.Error()))
	b.render(w, r, status, "error", views.Page{Title: title})
}

func (b *base) redirect(w http.ResponseWriter, r *http.Request, to, flash string) {
	if flash != "" && b.sessions != nil {
		b.sessions.AddFlash(w, r, flash)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// userMessage turns a service error into text that is safe to show.
func userMessage(err error) string {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, services.ErrSelfReference):
		return "you cannot add yourself as a friend"
	case errors.Is(err, services.ErrDuplicate):
		return "that already exists"
	case errors.Is(err, services.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, services.ErrNotFound):
		return "not found"
	default:
		return ErrGeneric.Error()
	}
}

func currentUser(r *http.Request) (int64, bool) {
	return middleware.UserIDFromContext(r.Context())
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// formIDs parses repeated id form fields. Any value that is not a positive
// integer is a validation failure rather than being skipped.
func formIDs(values []string, field string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, &services.ValidationError{Field: field, Message: "some selected friends are invalid"}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func optionalInt(value, field, msg string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, &services.ValidationError{Field: field, Message: msg}
	}
	return &n, nil
}

func optionalID(value, field, msg string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return nil, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return nil, &services.ValidationError{Field: field, Message: msg}
	}
	return &n, nil
}
