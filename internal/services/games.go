package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"games_planner/internal/listing"
	"games_planner/internal/models"
	"games_planner/internal/storage"
	"games_planner/internal/storage/mariadb"
)

type GameService struct {
	storage *mariadb.Storage
	log     *slog.Logger
}

func NewGameService(s *mariadb.Storage, log *slog.Logger) *GameService {
	return &GameService{
		storage: s,
		log:     log,
	}
}

// List returns the catalog ordered by title, optionally narrowed by a title substring.
func (s *GameService) List(ctx context.Context, search string) ([]models.Game, error) {
	const op = "services.games.List"

	db := s.storage.DB.WithContext(ctx)
	if search = strings.TrimSpace(search); search != "" {
		db = db.Where("title LIKE ?", listing.Like(search))
	}

	var games []models.Game
	if err := db.Order("title ASC").Find(&games).Error; err != nil {
		return nil, persistence(op, err)
	}

	return games, nil
}

func (s *GameService) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	const op = "services.games.GetByID"

	var g models.Game
	if err := s.storage.DB.WithContext(ctx).First(&g, id).Error; err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%s: game %d: %w", op, id, ErrNotFound)
		}
		return nil, persistence(op, err)
	}

	return &g, nil
}

// GetGameByURL returns ErrDuplicate when a game with url is already catalogued.
func (s *GameService) GetGameByURL(ctx context.Context, url string) error {
	const op = "services.games.GetGameByURL"

	if url == "" {
		return invalid("url", "url is empty")
	}

	err := s.storage.DB.WithContext(ctx).Where("url = ?", url).First(&models.Game{}).Error
	switch {
	case err == nil:
		return fmt.Errorf("%s: %s: %w", op, url, ErrDuplicate)
	case storage.IsNotFound(err):
		return nil
	default:
		return persistence(op, err)
	}
}

// Import adds a game to the catalog unless its source url is already known.
func (s *GameService) Import(ctx context.Context, g *models.Game) (*models.Game, error) {
	const op = "services.games.Import"

	g.Title = strings.TrimSpace(g.Title)
	if g.Title == "" {
		return nil, invalid("title", "title is required")
	}

	if err := s.GetGameByURL(ctx, g.URL); err != nil {
		return nil, err
	}

	if err := s.storage.DB.WithContext(ctx).Create(g).Error; err != nil {
		if storage.IsDuplicate(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return nil, persistence(op, err)
	}

	if s.log != nil {
		s.log.Info("game imported", slog.String("title", g.Title), slog.Int64("id", g.ID))
	}

	return g, nil
}
