package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"architect-assistant/internal/model"
)

// ErrIterationNotFound возвращается, когда итерация отсутствует в базе.
var ErrIterationNotFound = errors.New("итерация не найдена")

// UserRepository определяет операции хранения пользователей.
type UserRepository interface {
	Create(ctx context.Context, user model.User) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// IterationRepository определяет операции хранения итераций дизайна.
//
// Complete и Fail выполняют терминальную запись только если итерация все еще
// в статусе processing. Возвращаемый bool сообщает, была ли запись применена.
type IterationRepository interface {
	Create(ctx context.Context, iteration model.DesignIteration) (model.DesignIteration, error)
	GetByID(ctx context.Context, id int64) (model.DesignIteration, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.DesignIteration, error)
	Complete(ctx context.Context, id int64, imageURL, narrative, complianceCheck string) (bool, error)
	Fail(ctx context.Context, id int64) (bool, error)
}
