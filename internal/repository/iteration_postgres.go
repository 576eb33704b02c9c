package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"architect-assistant/internal/model"
)

// PostgresIterationRepository реализует IterationRepository поверх PostgreSQL.
type PostgresIterationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresIterationRepository создает новый репозиторий итераций.
func NewPostgresIterationRepository(pool *pgxpool.Pool) *PostgresIterationRepository {
	return &PostgresIterationRepository{
		pool: pool,
	}
}

var _ IterationRepository = (*PostgresIterationRepository)(nil)

// Create сохраняет новую итерацию со статусом processing.
func (r *PostgresIterationRepository) Create(ctx context.Context, iteration model.DesignIteration) (model.DesignIteration, error) {
	query := `
		INSERT INTO design_iterations (owner_id, prompt, sketch_path, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, owner_id, prompt, sketch_path, generated_image_url,
		          narrative, compliance_check, status, created_at, updated_at
	`

	if iteration.Status == "" {
		iteration.Status = model.IterationStatusProcessing
	}

	var created model.DesignIteration
	err := pgxscan.Get(ctx, r.pool, &created, query,
		iteration.OwnerID,
		iteration.Prompt,
		iteration.SketchPath,
		iteration.Status,
	)
	if err != nil {
		return model.DesignIteration{}, fmt.Errorf("ошибка при создании итерации: %w", err)
	}

	return created, nil
}

// GetByID получает итерацию по ID.
func (r *PostgresIterationRepository) GetByID(ctx context.Context, id int64) (model.DesignIteration, error) {
	query := `
		SELECT id, owner_id, prompt, sketch_path, generated_image_url,
		       narrative, compliance_check, status, created_at, updated_at
		FROM design_iterations
		WHERE id = $1
	`

	var iteration model.DesignIteration
	err := pgxscan.Get(ctx, r.pool, &iteration, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DesignIteration{}, ErrIterationNotFound
		}
		return model.DesignIteration{}, fmt.Errorf("ошибка при получении итерации %d: %w", id, err)
	}

	return iteration, nil
}

// ListByOwner возвращает итерации пользователя, новые сначала.
func (r *PostgresIterationRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.DesignIteration, error) {
	query := `
		SELECT id, owner_id, prompt, sketch_path, generated_image_url,
		       narrative, compliance_check, status, created_at, updated_at
		FROM design_iterations
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var iterations []model.DesignIteration
	err := pgxscan.Select(ctx, r.pool, &iterations, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении итераций пользователя %s: %w", ownerID, err)
	}

	return iterations, nil
}

// Complete записывает успешный результат пайплайна.
// Предикат status = 'processing' гарантирует единственную терминальную запись.
func (r *PostgresIterationRepository) Complete(ctx context.Context, id int64, imageURL, narrative, complianceCheck string) (bool, error) {
	query := `
		UPDATE design_iterations
		SET status = $2,
		    generated_image_url = $3,
		    narrative = $4,
		    compliance_check = $5,
		    updated_at = now()
		WHERE id = $1 AND status = $6
	`

	tag, err := r.pool.Exec(ctx, query,
		id,
		model.IterationStatusCompleted,
		imageURL,
		narrative,
		complianceCheck,
		model.IterationStatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("ошибка при завершении итерации %d: %w", id, err)
	}

	return tag.RowsAffected() > 0, nil
}

// Fail помечает итерацию как неудачную, не трогая поля результата.
func (r *PostgresIterationRepository) Fail(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE design_iterations
		SET status = $2,
		    updated_at = now()
		WHERE id = $1 AND status = $3
	`

	tag, err := r.pool.Exec(ctx, query,
		id,
		model.IterationStatusFailed,
		model.IterationStatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("ошибка при пометке итерации %d как неудачной: %w", id, err)
	}

	return tag.RowsAffected() > 0, nil
}
