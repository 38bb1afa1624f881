package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"games_planner/internal/models"
	"games_planner/internal/storage"
	"games_planner/internal/storage/mariadb"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// bcrypt refuses anything longer than this many bytes.
const maxPasswordBytes = 72

type RegisterInput struct {
	Username string `validate:"required,min=3,max=30,username"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,passwordbytes"`
}

type ProfileInput struct {
	Email  string `validate:"required,email,max=255"`
	Avatar string `validate:"-"`
}

type passwordInput struct {
	Password string `validate:"required,min=8,passwordbytes"`
}

type UserService struct {
	storage  *mariadb.Storage
	log      *slog.Logger
	clock    clock
	validate *validator.Validate
	cost     int
}

func NewUserService(s *mariadb.Storage, log *slog.Logger) *UserService {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("passwordbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})

	return &UserService{
		storage:  s,
		log:      log,
		clock:    newClock(nil),
		validate: v,
		cost:     bcrypt.DefaultCost,
	}
}

// Register creates an account. The duplicate check, the insert and the
// activity record run in one transaction.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "services.users.Register"

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := s.check(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		LastActivity: s.clock.Now(),
	}

	err = s.storage.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", in.Username, in.Email).
			Count(&count).Error; err != nil {
			return persistence(op, err)
		}
		if count > 0 {
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		}

		if err := tx.Create(&user).Error; err != nil {
			if storage.IsDuplicate(err) {
				return fmt.Errorf("%s: %w", op, ErrDuplicate)
			}
			return persistence(op, err)
		}

		if err := tx.Create(&models.ActivityLog{UserID: user.ID, Action: models.ActionRegister}).Error; err != nil {
			return persistence(op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Authenticate verifies credentials. Unknown users and wrong passwords yield
// the same ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	const op = "services.users.Authenticate"

	db := s.storage.DB.WithContext(ctx)

	var user models.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, persistence(op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := s.Touch(ctx, user.ID); err != nil && s.log != nil {
		s.log.Error("failed to touch activity", slog.String("operation", op), slog.String("error", err.Error()))
	}

	if err := db.Create(&models.ActivityLog{UserID: user.ID, Action: models.ActionLogin}).Error; err != nil && s.log != nil {
		s.log.Error("failed to log activity", slog.String("operation", op), slog.String("error", err.Error()))
	}

	return &user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	const op = "services.users.GetByID"

	var user models.User
	if err := s.storage.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("%s: user %d: %w", op, userID, ErrNotFound)
		}
		return nil, persistence(op, err)
	}

	return &user, nil
}

// Touch records activity for the online indicator.
func (s *UserService) Touch(ctx context.Context, userID int64) error {
	const op = "services.users.Touch"

	if err := s.storage.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_activity", s.clock.Now()).Error; err != nil {
		return persistence(op, err)
	}

	return nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) error {
	const op = "services.users.UpdateProfile"

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.check(in); err != nil {
		return err
	}

	db := s.storage.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).
		Where("email = ? AND id <> ?", in.Email, userID).
		Count(&count).Error; err != nil {
		return persistence(op, err)
	}
	if count > 0 {
		return fmt.Errorf("%s: email: %w", op, ErrDuplicate)
	}

	updates := map[string]any{"email": in.Email}
	if in.Avatar != "" {
		updates["avatar"] = in.Avatar
	}

	res := db.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		if storage.IsDuplicate(res.Error) {
			return fmt.Errorf("%s: email: %w", op, ErrDuplicate)
		}
		return persistence(op, res.Error)
	}

	return nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	const op = "services.users.ChangePassword"

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return invalid("current_password", "current password is incorrect")
	}

	if err := s.check(passwordInput{Password: next}); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = s.storage.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("password_hash", string(hash)).Error; err != nil {
			return err
		}
		return tx.Create(&models.ActivityLog{UserID: userID, Action: models.ActionPasswordChange}).Error
	})
	if err != nil {
		return persistence(op, err)
	}

	return nil
}

// check runs struct validation and converts the first failure into a ValidationError.
func (s *UserService) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalid("", "invalid input")
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return invalid(field, "%s is required", field)
	case "email":
		return invalid(field, "enter a valid email address")
	case "min":
		return invalid(field, "%s must be at least %s characters", field, fe.Param())
	case "max":
		return invalid(field, "%s must be at most %s characters", field, fe.Param())
	case "username":
		return invalid(field, "use only letters, digits and underscores")
	case "passwordbytes":
		return invalid(field, "%s must be at most %d bytes", field, maxPasswordBytes)
	default:
		return invalid(field, "%s is invalid", field)
	}
}
