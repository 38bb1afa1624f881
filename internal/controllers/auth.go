package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"games_planner/internal/models"
	"games_planner/internal/services"
	"games_planner/internal/storage/avatars"
	"games_planner/internal/views"
)

type AuthController struct {
	base
	users   UserServicer
	avatars avatars.IAvatars
}

func NewAuthController(log *slog.Logger, view Renderer, sessions SessionManager, users UserServicer, a avatars.IAvatars) *AuthController {
	return &AuthController{
		base:    base{log: log, view: view, sessions: sessions},
		users:   users,
		avatars: a,
	}
}

type AuthForm struct {
	Username string
	Email    string
}

func (c *AuthController) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	c.render(w, r, http.StatusOK, "register", views.Page{Title: "Register", Data: AuthForm{}})
}

func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.auth.Register"

	if err := r.ParseForm(); err != nil {
		c.log.Error(ErrParsingForm.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	in := services.RegisterInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}

	user, err := c.users.Register(r.Context(), in)
	if err != nil {
		msg := userMessage(err)
		if errors.Is(err, services.ErrDuplicate) {
			msg = "that username or email is already taken"
		}
		if !services.IsUserFacing(err) && !errors.Is(err, services.ErrDuplicate) {
			c.log.Error("register failed", slog.String("operation", op), slog.String("error", err.Error()))
		}
		c.render(w, r, http.StatusBadRequest, "register", views.Page{
			Title: "Register",
			Error: msg,
			Data:  AuthForm{Username: in.Username, Email: in.Email},
		})
		return
	}

	if err := c.sessions.Login(w, r, user.ID); err != nil {
		c.fail(w, r, op, err)
		return
	}

	c.log.Info("user registered", slog.String("operation", op), slog.Int64("user_id", user.ID))
	c.redirect(w, r, "/", "Welcome, "+user.Username+"!")
}

func (c *AuthController) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	c.render(w, r, http.StatusOK, "login", views.Page{Title: "Log in", Data: AuthForm{}})
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.auth.Login"

	if err := r.ParseForm(); err != nil {
		c.log.Error(ErrParsingForm.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")

	user, err := c.users.Authenticate(r.Context(), username, r.FormValue("password"))
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			c.log.Error("login failed", slog.String("operation", op), slog.String("error", err.Error()))
		}
		c.render(w, r, http.StatusUnauthorized, "login", views.Page{
			Title: "Log in",
			Error: userMessage(err),
			Data:  AuthForm{Username: username},
		})
		return
	}

	if err := c.sessions.Login(w, r, user.ID); err != nil {
		c.fail(w, r, op, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.auth.Logout"

	if err := c.sessions.Logout(w, r); err != nil {
		c.log.Error("logout failed", slog.String("operation", op), slog.String("error", err.Error()))
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Ping records activity for the online indicator. RequireLogin already
// touched the timestamp, so there is nothing left to do.
func (c *AuthController) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type ProfileData struct {
	User *models.User
}

func (c *AuthController) Profile(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.auth.Profile"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := c.users.GetByID(r.Context(), userID)
	if err != nil {
		c.fail(w, r, op, err)
		return
	}

	c.render(w, r, http.StatusOK, "profile", views.Page{Title: "Profile", Data: ProfileData{User: user}})
}

func (c *AuthController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.auth.UpdateProfile"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseMultipartForm(avatars.MaxSize + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.log.Error(ErrParsingForm.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		c.redirect(w, r, "/profile", "The upload could not be read.")
		return
	}

	in := services.ProfileInput{Email: r.FormValue("email")}

	file, _, err := r.FormFile("avatar")
	if err == nil {
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, avatars.MaxSize+1))
		if err != nil {
			c.fail(w, r, op, err)
			return
		}

		filename, err := c.avatars.Save(data)
		if err != nil {
			c.log.Error("failed to save avatar", slog.String("operation", op), slog.String("error", err.Error()))
			c.redirect(w, r, "/profile", "Avatars must be PNG, JPEG, GIF or WebP images up to 2 MB.")
			return
		}
		in.Avatar = filename
	}

	previous, err := c.users.GetByID(r.Context(), userID)
	if err != nil {
		c.discardAvatar(in.Avatar)
		c.fail(w, r, op, err)
		return
	}

	if err := c.users.UpdateProfile(r.Context(), userID, in); err != nil {
		c.discardAvatar(in.Avatar)
		if !services.IsUserFacing(err) && !errors.Is(err, services.ErrDuplicate) {
			c.log.Error("profile update failed", slog.String("operation", op), slog.String("error", err.Error()))
		}
		msg := userMessage(err)
		if errors.Is(err, services.ErrDuplicate) {
			msg = "that email is already in use"
		}
		c.redirect(w, r, "/profile", msg)
		return
	}

	if in.Avatar != "" && previous.Avatar != "" {
		c.discardAvatar(previous.Avatar)
	}

	c.redirect(w, r, "/profile", "Profile saved.")
}

func (c *AuthController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.auth.ChangePassword"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	err := c.users.ChangePassword(r.Context(), userID, r.FormValue("current_password"), r.FormValue("new_password"))
	if err != nil {
		if !services.IsUserFacing(err) {
			c.log.Error("password change failed", slog.String("operation", op), slog.String("error", err.Error()))
		}
		c.redirect(w, r, "/profile", userMessage(err))
		return
	}

	c.redirect(w, r, "/profile", "Password changed.")
}

func (c *AuthController) discardAvatar(filename string) {
	if filename == "" {
		return
	}
	if err := c.avatars.Delete(filename); err != nil {
		c.log.Error("failed to delete avatar", slog.String("filename", filename), slog.String("error", err.Error()))
	}
}
