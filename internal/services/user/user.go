// Package services реализует регистрацию доменных профилей пользователей.
// Учётные данные и аутентификация живут у внешнего провайдера идентификации,
// здесь заводится только профиль с ролью и балансом баллов.
package services

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/models"
)

// UserRepository определяет методы хранилища для работы с пользователями.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его UID.
	CreateUser(ctx context.Context, user models.User) (string, error)
}

// UserService реализует бизнес-логику профилей пользователей.
type UserService struct {
	repo UserRepository
	log  *slog.Logger
}

// NewUserService создает новый экземпляр UserService.
func NewUserService(repo UserRepository, log *slog.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

// Register заводит доменный профиль пользователя и возвращает его UID.
// Повторная регистрация почты отклоняется хранилищем как конфликт.
func (s *UserService) Register(ctx context.Context, req models.DummyUser) (string, error) {
	uid, err := s.repo.CreateUser(ctx, models.User{
		Name:   req.Name,
		Email:  req.Email,
		Role:   req.Role,
		Points: req.Points,
	})
	if err != nil {
		return "", err
	}
	s.log.Info("user profile registered",
		slog.String("uid", uid),
		slog.String("role", req.Role))
	return uid, nil
}
