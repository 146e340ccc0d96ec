// Package server wires bookhub's services together and serves them over
// HTTP.
package server

import (
	"database/sql"
	"log/slog"

	"bookhub/internal/auth"
	"bookhub/internal/books"
	"bookhub/internal/events"
	"bookhub/internal/favorites"
	"bookhub/internal/grpcserver"
	"bookhub/internal/reviews"
	"bookhub/internal/validation"
	"bookhub/internal/votes"
	"bookhub/pkg/config"
	"bookhub/pkg/retry"
)

// App holds every service built on one database.
type App struct {
	Config    config.Config
	DB        *sql.DB
	Log       *slog.Logger
	Validator *validation.Validator

	Users     *auth.Repo
	Sessions  *auth.Sessions
	BookRepo  *books.Repo
	Cache     *books.Cache
	Books     *books.Service
	Reviews   *reviews.Service
	Votes     *votes.Ledger
	Favorites *favorites.Set
}

func NewApp(cfg config.Config, db *sql.DB, catalog books.Catalog, pub events.Publisher, log *slog.Logger) *App {
	v := validation.New()

	users := auth.NewRepo(db)
	sessions := auth.NewSessions(auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}, users, cfg.IsProduction(), log)
	if cfg.Auth.CookieName != "" {
		sessions.CookieName = cfg.Auth.CookieName
	}

	bookRepo := books.NewRepo(db)
	cache := books.NewCache(bookRepo, retry.Policy{
		Attempts: cfg.Upsert.Attempts,
		Delay:    cfg.Upsert.Delay,
	}, log)
	reviewSvc := reviews.NewService(reviews.NewRepo(db), cache, v, pub, log)

	return &App{
		Config:    cfg,
		DB:        db,
		Log:       log,
		Validator: v,
		Users:     users,
		Sessions:  sessions,
		BookRepo:  bookRepo,
		Cache:     cache,
		Books:     books.NewService(catalog, cache, reviewSvc, log),
		Reviews:   reviewSvc,
		Votes:     votes.NewLedger(db, pub, log),
		Favorites: favorites.NewSet(favorites.NewRepo(db), pub, log),
	}
}

// LibraryServer exposes the app's read paths to the gRPC API.
func (a *App) LibraryServer() *grpcserver.Server {
	return grpcserver.NewServer(a.BookRepo, a.Reviews, a.Favorites, a.Votes, a.Sessions)
}
