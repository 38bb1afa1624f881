package controllers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"games_planner/internal/listing"
	"games_planner/internal/middleware"
	"games_planner/internal/models"
	"games_planner/internal/services"
	"games_planner/internal/views"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserService struct{ mock.Mock }

func (m *MockUserService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(ctx, username, password)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUserService) Touch(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID int64, in services.ProfileInput) error {
	return m.Called(ctx, userID, in).Error(0)
}

func (m *MockUserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

type MockFriendService struct{ mock.Mock }

func (m *MockFriendService) AddFriend(ctx context.Context, ownerID int64, targetUsername string) (int64, error) {
	args := m.Called(ctx, ownerID, targetUsername)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFriendService) RemoveFriend(ctx context.Context, ownerID, targetUserID int64) error {
	return m.Called(ctx, ownerID, targetUserID).Error(0)
}

func (m *MockFriendService) ListFriends(ctx context.Context, ownerID int64) ([]models.FriendView, error) {
	args := m.Called(ctx, ownerID)
	f, _ := args.Get(0).([]models.FriendView)
	return f, args.Error(1)
}

func (m *MockFriendService) ListOnline(ctx context.Context, ownerID int64) ([]models.FriendView, error) {
	args := m.Called(ctx, ownerID)
	f, _ := args.Get(0).([]models.FriendView)
	return f, args.Error(1)
}

func (m *MockFriendService) SearchUsers(ctx context.Context, query string, excludeOwnerID int64) ([]models.UserSummary, error) {
	args := m.Called(ctx, query, excludeOwnerID)
	u, _ := args.Get(0).([]models.UserSummary)
	return u, args.Error(1)
}

type MockScheduleService struct{ mock.Mock }

func (m *MockScheduleService) Create(ctx context.Context, ownerID int64, in services.ScheduleInput) (int64, error) {
	args := m.Called(ctx, ownerID, in)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScheduleService) Edit(ctx context.Context, scheduleID, ownerID int64, in services.ScheduleInput) error {
	return m.Called(ctx, scheduleID, ownerID, in).Error(0)
}

func (m *MockScheduleService) Delete(ctx context.Context, scheduleID, ownerID int64) error {
	return m.Called(ctx, scheduleID, ownerID).Error(0)
}

func (m *MockScheduleService) Get(ctx context.Context, scheduleID, ownerID int64) (*models.ScheduleView, error) {
	args := m.Called(ctx, scheduleID, ownerID)
	s, _ := args.Get(0).(*models.ScheduleView)
	return s, args.Error(1)
}

func (m *MockScheduleService) List(ctx context.Context, ownerID int64, q listing.Query) ([]models.ScheduleView, error) {
	args := m.Called(ctx, ownerID, q)
	s, _ := args.Get(0).([]models.ScheduleView)
	return s, args.Error(1)
}

func (m *MockScheduleService) ListSharedWithMe(ctx context.Context, userID int64) ([]models.ScheduleView, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).([]models.ScheduleView)
	return s, args.Error(1)
}

type MockEventService struct{ mock.Mock }

func (m *MockEventService) Create(ctx context.Context, ownerID int64, in services.EventInput) (int64, error) {
	args := m.Called(ctx, ownerID, in)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEventService) Update(ctx context.Context, eventID, ownerID int64, in services.EventInput) error {
	return m.Called(ctx, eventID, ownerID, in).Error(0)
}

func (m *MockEventService) Delete(ctx context.Context, eventID, ownerID int64) error {
	return m.Called(ctx, eventID, ownerID).Error(0)
}

func (m *MockEventService) Get(ctx context.Context, eventID, ownerID int64) (*models.EventView, error) {
	args := m.Called(ctx, eventID, ownerID)
	e, _ := args.Get(0).(*models.EventView)
	return e, args.Error(1)
}

func (m *MockEventService) GetByShareToken(ctx context.Context, token string) (*models.EventView, error) {
	args := m.Called(ctx, token)
	e, _ := args.Get(0).(*models.EventView)
	return e, args.Error(1)
}

func (m *MockEventService) List(ctx context.Context, ownerID int64, q listing.Query) ([]models.EventView, error) {
	args := m.Called(ctx, ownerID, q)
	e, _ := args.Get(0).([]models.EventView)
	return e, args.Error(1)
}

func (m *MockEventService) ListSharedWithMe(ctx context.Context, userID int64) ([]models.EventView, error) {
	args := m.Called(ctx, userID)
	e, _ := args.Get(0).([]models.EventView)
	return e, args.Error(1)
}

func (m *MockEventService) Stats(ctx context.Context, ownerID int64) (models.EventStats, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(models.EventStats), args.Error(1)
}

type MockGameService struct{ mock.Mock }

func (m *MockGameService) List(ctx context.Context, search string) ([]models.Game, error) {
	args := m.Called(ctx, search)
	g, _ := args.Get(0).([]models.Game)
	return g, args.Error(1)
}

// fakeSessions records what controllers put into the session.
type fakeSessions struct {
	userID  int64
	flashes []string
}

func (f *fakeSessions) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	f.userID = userID
	return nil
}

func (f *fakeSessions) Logout(w http.ResponseWriter, r *http.Request) error {
	f.userID = 0
	return nil
}

func (f *fakeSessions) AddFlash(w http.ResponseWriter, r *http.Request, msg string) {
	f.flashes = append(f.flashes, msg)
}

func (f *fakeSessions) Flashes(w http.ResponseWriter, r *http.Request) []string {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRenderer(t *testing.T) *views.Renderer {
	t.Helper()
	r, err := views.New()
	require.NoError(t, err)
	return r
}

// asUser wraps a router so every request is signed in as userID.
func asUser(userID int64, setup func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUserID(req.Context(), userID)))
		})
	})
	setup(r)
	return r
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func parseHTML(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}
