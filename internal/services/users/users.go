package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/utils"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already in use")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user is inactive")
)

type Service struct {
	db        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewService(db *gorm.DB, jwtSecret []byte, tokenTTL time.Duration) *Service {
	return &Service{
		db:        db,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Resolve returns the user workflows act under.
func (s *Service) Resolve(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) Create(ctx context.Context, user *models.User) error {
	if !models.ValidRole(user.Role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, user.Role)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	user.IsActive = true

	return s.db.WithContext(ctx).Create(user).Error
}

// Update rewrites profile fields; the password is re-hashed only when the
// caller sends a new one.
func (s *Service) Update(ctx context.Context, id int64, updated models.User) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return nil, err
	}

	if updated.Username != user.Username {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("username = ?", updated.Username).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrUsernameTaken
		}
		user.Username = updated.Username
	}
	if updated.Email != user.Email {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("email = ?", updated.Email).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrEmailTaken
		}
		user.Email = updated.Email
	}

	if updated.Role != "" {
		if !models.ValidRole(updated.Role) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, updated.Role)
		}
		user.Role = updated.Role
	}
	user.FullName = updated.FullName

	if updated.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(updated.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrUserNotFound, id)
	}
	return nil
}

func (s *Service) FindAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("username asc").Find(&users).Error
	return users, err
}

func (s *Service) FindActive(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("username asc").Find(&users).Error
	return users, err
}

func (s *Service) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) FindByRole(ctx context.Context, role string) ([]models.User, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	var users []models.User
	err := s.db.WithContext(ctx).Where("role = ?", role).Find(&users).Error
	return users, err
}

// Login verifies the credentials and issues a signed bearer token carrying
// the user's id, username and role.
func (s *Service) Login(ctx context.Context, username, password string) (string, time.Time, *models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", time.Time{}, nil, ErrInvalidCredentials
		}
		return "", time.Time{}, nil, err
	}

	if !user.IsActive {
		return "", time.Time{}, nil, ErrUserInactive
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", time.Time{}, nil, ErrInvalidCredentials
	}

	token, exp, err := utils.GenerateToken(s.jwtSecret, user.ID, user.Username, user.Role, s.tokenTTL)
	if err != nil {
		return "", time.Time{}, nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	_ = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login", now).Error

	return token, exp, &user, nil
}

// ValidateToken parses a bearer token and returns its claims.
func (s *Service) ValidateToken(tokenStr string) (*utils.Claims, error) {
	return utils.ParseToken(s.jwtSecret, tokenStr)
}
