package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"games_planner/internal/listing"
	"games_planner/internal/models"
	"games_planner/internal/storage"
	"games_planner/internal/storage/mariadb"

	"gorm.io/gorm"
)

const searchLimit = 20

type FriendService struct {
	storage *mariadb.Storage
	log     *slog.Logger
	clock   clock
}

func NewFriendService(s *mariadb.Storage, log *slog.Logger) *FriendService {
	return &FriendService{
		storage: s,
		log:     log,
		clock:   newClock(nil),
	}
}

func (s *FriendService) AddFriend(ctx context.Context, ownerID int64, targetUsername string) (int64, error) {
	const op = "services.friends.AddFriend"

	username := strings.TrimSpace(targetUsername)
	if username == "" {
		return 0, invalid("username", "enter a username")
	}

	db := s.storage.DB.WithContext(ctx)

	var target models.User
	if err := db.Select("id").Where("username = ?", username).First(&target).Error; err != nil {
		if storage.IsNotFound(err) {
			return 0, fmt.Errorf("%s: user %q: %w", op, username, ErrNotFound)
		}
		return 0, persistence(op, err)
	}

	if target.ID == ownerID {
		return 0, fmt.Errorf("%s: %w", op, ErrSelfReference)
	}

	var count int64
	if err := db.Model(&models.Friend{}).
		Where("user_id = ? AND friend_id = ?", ownerID, target.ID).
		Count(&count).Error; err != nil {
		return 0, persistence(op, err)
	}
	if count > 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrDuplicate)
	}

	edge := models.Friend{UserID: ownerID, FriendID: target.ID}
	if err := db.Create(&edge).Error; err != nil {
		if storage.IsDuplicate(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return 0, persistence(op, err)
	}

	return edge.ID, nil
}

// RemoveFriend deletes the owner's edge to the target. Removing a missing
// edge is not an error.
func (s *FriendService) RemoveFriend(ctx context.Context, ownerID, targetUserID int64) error {
	const op = "services.friends.RemoveFriend"

	if err := s.storage.DB.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", ownerID, targetUserID).
		Delete(&models.Friend{}).Error; err != nil {
		return persistence(op, err)
	}

	return nil
}

func (s *FriendService) ListFriends(ctx context.Context, ownerID int64) ([]models.FriendView, error) {
	const op = "services.friends.ListFriends"

	var friends []models.FriendView
	if err := s.storage.DB.WithContext(ctx).
		Table("friends").
		Select("users.id AS user_id, users.username, users.avatar, users.last_activity").
		Joins("JOIN users ON users.id = friends.friend_id").
		Where("friends.user_id = ?", ownerID).
		Order("users.username ASC").
		Scan(&friends).Error; err != nil {
		return nil, persistence(op, err)
	}

	now := s.clock.Now()
	for i := range friends {
		friends[i].Online = models.IsOnline(friends[i].LastActivity, now)
	}

	return friends, nil
}

// ListOnline returns the friends active within the online window, most recent first.
func (s *FriendService) ListOnline(ctx context.Context, ownerID int64) ([]models.FriendView, error) {
	friends, err := s.ListFriends(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	online := make([]models.FriendView, 0, len(friends))
	for _, f := range friends {
		if f.Online {
			online = append(online, f)
		}
	}

	sort.SliceStable(online, func(i, j int) bool {
		return online[i].LastActivity.After(online[j].LastActivity)
	})

	return online, nil
}

func (s *FriendService) SearchUsers(ctx context.Context, query string, excludeOwnerID int64) ([]models.UserSummary, error) {
	const op = "services.friends.SearchUsers"

	query = strings.TrimSpace(query)
	if query == "" {
		return []models.UserSummary{}, nil
	}

	var users []models.UserSummary
	if err := s.storage.DB.WithContext(ctx).
		Model(&models.User{}).
		Select("id, username").
		Where("username LIKE ? AND id <> ?", listing.Like(query), excludeOwnerID).
		Order("username ASC").
		Limit(searchLimit).
		Scan(&users).Error; err != nil {
		return nil, persistence(op, err)
	}

	return users, nil
}

// checkFriendIDs fails unless every id is an outbound friend of ownerID.
// The returned slice is deduplicated.
func checkFriendIDs(db *gorm.DB, op string, ownerID int64, ids []int64) ([]int64, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	var found []int64
	if err := db.Model(&models.Friend{}).
		Where("user_id = ? AND friend_id IN ?", ownerID, ids).
		Pluck("friend_id", &found).Error; err != nil {
		return nil, persistence(op, err)
	}

	known := make(map[int64]struct{}, len(found))
	for _, id := range found {
		known[id] = struct{}{}
	}

	var bad []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			bad = append(bad, strconv.FormatInt(id, 10))
		}
	}
	if len(bad) > 0 {
		return nil, invalid("friends", "some selected friends are invalid (%s)", strings.Join(bad, ", "))
	}

	return ids, nil
}
