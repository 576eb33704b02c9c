package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"architect-assistant/internal/model"
	"architect-assistant/internal/repository"
)

var (
	ErrUserNotFound      = errors.New("пользователь не найден")
	ErrInvalidPassword   = errors.New("неверный пароль")
	ErrUserAlreadyExists = errors.New("пользователь уже существует")
)

// Service реализует регистрацию и вход пользователей.
type Service struct {
	repo   repository.UserRepository
	tokens *TokenManager
}

// NewService создает новый сервис аутентификации.
func NewService(repo repository.UserRepository, tokens *TokenManager) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
	}
}

// Register создает нового пользователя с захешированным паролем.
func (s *Service) Register(ctx context.Context, username, email, password string) (model.User, error) {
	// Проверяем, существует ли пользователь с таким username
	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return model.User{}, ErrUserAlreadyExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("ошибка при проверке существования пользователя: %w", err)
	}

	// Проверяем, существует ли пользователь с таким email
	_, err = s.repo.GetByEmail(ctx, email)
	if err == nil {
		return model.User{}, ErrUserAlreadyExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("ошибка при проверке email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("ошибка при хешировании пароля: %w", err)
	}

	user, err := s.repo.Create(ctx, model.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
	})
	if err != nil {
		return model.User{}, fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	return user, nil
}

// Login проверяет учетные данные и возвращает JWT токен с данными пользователя.
func (s *Service) Login(ctx context.Context, username, password string) (model.TokenResponse, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TokenResponse{}, ErrUserNotFound
		}
		return model.TokenResponse{}, fmt.Errorf("ошибка при поиске пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return model.TokenResponse{}, ErrInvalidPassword
	}

	token, err := s.tokens.GenerateToken(user.ID.String())
	if err != nil {
		return model.TokenResponse{}, fmt.Errorf("ошибка при создании токена: %w", err)
	}

	return model.TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.Expiration()),
		User:      user,
	}, nil
}
