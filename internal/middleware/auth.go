package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"games_planner/internal/config"

	"github.com/gorilla/sessions"
)

type contextKey string

const UserIDKey = contextKey("userID")

const (
	sessionUserKey = "user_id"
	LoginPath      = "/login"
)

type ActivityToucher interface {
	Touch(ctx context.Context, userID int64) error
}

type AuthMiddleware struct {
	store   sessions.Store
	name    string
	toucher ActivityToucher
	log     *slog.Logger
}

func NewAuthMiddleware(store sessions.Store, name string, toucher ActivityToucher, log *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{store: store, name: name, toucher: toucher, log: log}
}

// NewCookieStore builds the signed cookie store sessions are kept in.
func NewCookieStore(cfg config.Session) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok && id > 0
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func (m *AuthMiddleware) session(r *http.Request) *sessions.Session {
	// Get only fails on a cookie that no longer decodes; the fresh session it
	// returns alongside the error is what we want in that case.
	s, _ := m.store.Get(r, m.name)
	return s
}

func (m *AuthMiddleware) userID(r *http.Request) int64 {
	id, _ := m.session(r).Values[sessionUserKey].(int64)
	return id
}

func (m *AuthMiddleware) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	s := m.session(r)
	s.Values[sessionUserKey] = userID
	return s.Save(r, w)
}

func (m *AuthMiddleware) Logout(w http.ResponseWriter, r *http.Request) error {
	s := m.session(r)
	delete(s.Values, sessionUserKey)
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

func (m *AuthMiddleware) AddFlash(w http.ResponseWriter, r *http.Request, msg string) {
	s := m.session(r)
	s.AddFlash(msg)
	if err := s.Save(r, w); err != nil && m.log != nil {
		m.log.Error("failed to save flash", slog.String("error", err.Error()))
	}
}

func (m *AuthMiddleware) Flashes(w http.ResponseWriter, r *http.Request) []string {
	s := m.session(r)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}

	if err := s.Save(r, w); err != nil && m.log != nil {
		m.log.Error("failed to save session", slog.String("error", err.Error()))
	}

	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}

// RequireLogin redirects anonymous visitors to the login page and records
// activity for signed-in users.
func (m *AuthMiddleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := m.userID(r)
		if userID <= 0 {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}

		if m.toucher != nil {
			if err := m.toucher.Touch(r.Context(), userID); err != nil && m.log != nil {
				m.log.Error("failed to touch activity",
					slog.String("operation", "middleware.RequireLogin"),
					slog.Int64("user_id", userID),
					slog.String("error", err.Error()))
			}
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// LoadUser attaches the user id when a session exists but never blocks.
func (m *AuthMiddleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := m.userID(r); userID > 0 {
			r = r.WithContext(WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}
