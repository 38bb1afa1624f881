package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"games_planner/internal/models"
	"games_planner/internal/services"
	"games_planner/internal/views"
)

type FriendController struct {
	base
	friends FriendServicer
}

func NewFriendController(log *slog.Logger, view Renderer, sessions SessionManager, friends FriendServicer) *FriendController {
	return &FriendController{
		base:    base{log: log, view: view, sessions: sessions},
		friends: friends,
	}
}

type FriendsData struct {
	Friends []models.FriendView
	Query   string
	Results []models.UserSummary
}

func (c *FriendController) List(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.friends.List"

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

	data := FriendsData{Friends: friends, Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if data.Query != "" {
		data.Results, err = c.friends.SearchUsers(r.Context(), data.Query, userID)
		if err != nil {
			c.fail(w, r, op, err)
			return
		}
	}

	c.render(w, r, http.StatusOK, "friends", views.Page{Title: "Friends", Data: data})
}

func (c *FriendController) Add(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.friends.Add"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))

	if _, err := c.friends.AddFriend(r.Context(), userID, username); err != nil {
		msg := userMessage(err)
		switch {
		case errors.Is(err, services.ErrNotFound):
			msg = "no player is called " + username
		case errors.Is(err, services.ErrDuplicate):
			msg = username + " is already your friend"
		case !services.IsUserFacing(err) && !errors.Is(err, services.ErrSelfReference):
			c.log.Error("add friend failed", slog.String("operation", op), slog.String("error", err.Error()))
		}
		c.redirect(w, r, "/friends", msg)
		return
	}

	c.redirect(w, r, "/friends", username+" added to your friends.")
}

func (c *FriendController) Remove(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.friends.Remove"

	userID, ok := currentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	friendID, err := pathID(r)
	if err != nil {
		http.Error(w, ErrInvalidID.Error(), http.StatusBadRequest)
		return
	}

	if err := c.friends.RemoveFriend(r.Context(), userID, friendID); err != nil {
		c.fail(w, r, op, err)
		return
	}

	c.redirect(w, r, "/friends", "Friend removed.")
}
