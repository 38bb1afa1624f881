package routes

import (
	"log/slog"
	"net/http"
	"time"

	"games_planner/internal/controllers"
	authmw "games_planner/internal/middleware"
	"games_planner/internal/services"
	"games_planner/internal/storage/avatars"
	"games_planner/internal/storage/mariadb"
	"games_planner/internal/views"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
)

type Options struct {
	SessionName string
	Location    *time.Location
}

func SetupRouter(log *slog.Logger, storage *mariadb.Storage, av *avatars.Avatars, store sessions.Store, view *views.Renderer, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	userService := services.NewUserService(storage, log)
	friendService := services.NewFriendService(storage, log)
	scheduleService := services.NewScheduleService(storage, log, opts.Location)
	eventService := services.NewEventService(storage, log, opts.Location)
	gameService := services.NewGameService(storage, log)

	auth := authmw.NewAuthMiddleware(store, opts.SessionName, userService, log)

	authController := controllers.NewAuthController(log, view, auth, userService, av)
	friendController := controllers.NewFriendController(log, view, auth, friendService)
	scheduleController := controllers.NewScheduleController(log, view, auth, scheduleService, gameService, friendService)
	eventController := controllers.NewEventController(log, view, auth, eventService, scheduleService, friendService)
	dashboardController := controllers.NewDashboardController(log, view, auth, eventService, scheduleService, friendService)
	gameController := controllers.NewGameController(gameService, log)

	r.Handle("/static/*", views.Static())
	r.Handle("/avatars/*", http.StripPrefix("/avatars/", http.FileServer(av.Dir())))

	r.Group(func(r chi.Router) {
		r.Use(auth.LoadUser)

		r.Get("/login", authController.LoginForm)
		r.Post("/login", authController.Login)
		r.Get("/register", authController.RegisterForm)
		r.Post("/register", authController.Register)
		r.Post("/logout", authController.Logout)
		r.Get("/share/{token}", eventController.Share)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)

		r.Get("/", dashboardController.Show)
		r.Post("/ping", authController.Ping)

		r.Get("/profile", authController.Profile)
		r.Post("/profile", authController.UpdateProfile)
		r.Post("/profile/password", authController.ChangePassword)

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", friendController.List)
			r.Post("/", friendController.Add)
			r.Post("/{id}/delete", friendController.Remove)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", scheduleController.List)
			r.Post("/", scheduleController.Create)
			r.Get("/new", scheduleController.New)
			r.Get("/{id}/edit", scheduleController.EditForm)
			r.Post("/{id}", scheduleController.Edit)
			r.Post("/{id}/delete", scheduleController.Delete)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventController.List)
			r.Post("/", eventController.Create)
			r.Get("/new", eventController.New)
			r.Get("/{id}/edit", eventController.EditForm)
			r.Post("/{id}", eventController.Update)
			r.Post("/{id}/delete", eventController.Delete)
		})

		r.Get("/api/games", gameController.Search)
	})

	return r
}
