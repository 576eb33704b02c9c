package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"architect-assistant/internal/model"
)

// PostgresUserRepository реализует UserRepository поверх PostgreSQL.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository создает новый репозиторий пользователей.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{
		pool: pool,
	}
}

var _ UserRepository = (*PostgresUserRepository)(nil)

// Create создает нового пользователя в базе данных
func (r *PostgresUserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, username, email, password_hash, created_at, updated_at
	`

	now := time.Now()

	// Если ID не указан, генерируем новый
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.Password,
		now,
	)

	var created model.User
	err := row.Scan(
		&created.ID,
		&created.Username,
		&created.Email,
		&created.Password,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}

	return created, nil
}

// GetByUsername получает пользователя по имени пользователя.
// Возвращает pgx.ErrNoRows, если пользователь не найден.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, username))
}

// GetByEmail получает пользователя по email.
// Возвращает pgx.ErrNoRows, если пользователь не найден.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresUserRepository) scanUser(row rowScanner) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}

	return user, nil
}
