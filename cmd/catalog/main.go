// Command catalog imports Steam store pages into the game catalog.
//
//	catalog -config config/local.yaml https://store.steampowered.com/app/620/Portal_2/
//	catalog -config config/local.yaml -file portal2.html -url https://store.steampowered.com/app/620/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"games_planner/internal/catalog"
	"games_planner/internal/config"
	"games_planner/internal/models"
	"games_planner/internal/services"
	"games_planner/internal/storage/mariadb"
)

func main() {
	file := flag.String("file", "", "parse a saved store page instead of downloading it")
	pageURL := flag.String("url", "", "source url recorded for -file")
	timeout := flag.Duration("timeout", 15*time.Second, "download timeout per page")

	cfg := config.MustLoad()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	storage, err := mariadb.New(cfg.Database)
	if err != nil {
		log.Error("failed to create database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	if err := storage.Migrate(); err != nil {
		log.Error("migration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	games := services.NewGameService(storage, log)
	ctx := context.Background()

	if *file != "" {
		if err := importFile(ctx, games, *file, *pageURL); err != nil {
			log.Error("import failed", slog.String("file", *file), slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	fetcher := catalog.NewFetcher(log, *timeout)

	failed := 0
	for _, u := range flag.Args() {
		game, err := fetcher.Fetch(ctx, u)
		if err == nil {
			_, err = games.Import(ctx, game)
		}
		switch {
		case errors.Is(err, services.ErrDuplicate):
			log.Info("already catalogued", slog.String("url", u))
		case err != nil:
			failed++
			log.Error("import failed", slog.String("url", u), slog.String("error", err.Error()))
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func importFile(ctx context.Context, games *services.GameService, path, pageURL string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var game *models.Game
	if game, err = catalog.ParsePage(f, pageURL); err != nil {
		return err
	}

	_, err = games.Import(ctx, game)
	return err
}
