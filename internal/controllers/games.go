package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"games_planner/internal/models"
)

var ErrGetGames = errors.New("failed to get games")

type GameController struct {
	service GameServicer
	log     *slog.Logger
}

type GameResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Genre string `json:"genre"`
	Image string `json:"image"`
}

func NewGameController(s GameServicer, log *slog.Logger) *GameController {
	return &GameController{
		service: s,
		log:     log,
	}
}

// Search backs the game picker on the schedule form.
func (c *GameController) Search(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.games.Search"

	games, err := c.service.List(r.Context(), r.URL.Query().Get("title"))
	if err != nil {
		c.log.Error(
			ErrGetGames.Error(),
			slog.String("operation", op),
			slog.String("error", err.Error()))
		http.Error(w, ErrGetGames.Error(), http.StatusInternalServerError)
		return
	}

	res := make([]GameResponse, 0, len(games))
	for _, g := range games {
		res = append(res, toGameResponse(g))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("operation", op), slog.String("error", err.Error()))
	}
}

func toGameResponse(g models.Game) GameResponse {
	return GameResponse{ID: g.ID, Title: g.Title, Genre: g.Genre, Image: g.Image}
}
