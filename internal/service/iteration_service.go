// Package service управляет жизненным циклом итераций дизайна:
// создание, запуск фоновой генерации и запись терминального результата.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"architect-assistant/internal/gateway"
	"architect-assistant/internal/model"
	"architect-assistant/internal/pipeline"
	"architect-assistant/internal/repository"
	"architect-assistant/pkg/taskmanager"
)

// ErrIterationNotFound пробрасывается из репозитория, в том числе когда
// итерация принадлежит другому пользователю.
var ErrIterationNotFound = repository.ErrIterationNotFound

// PipelineRunner запускает пайплайн генерации. Ошибки возвращаются значением
// внутри pipeline.Result.
type PipelineRunner interface {
	Run(ctx context.Context, prompt string, sketchPath string) pipeline.Result
}

// IterationService реализует операции над итерациями дизайна.
type IterationService struct {
	repo        repository.IterationRepository
	runner      PipelineRunner
	taskManager taskmanager.ITaskManager
	logger      *zap.Logger

	// Таймаут терминальной записи в фоновой задаче
	applyTimeout time.Duration
}

// NewIterationService создает новый IterationService.
func NewIterationService(
	repo repository.IterationRepository,
	runner PipelineRunner,
	taskManager taskmanager.ITaskManager,
	logger *zap.Logger,
) *IterationService {
	return &IterationService{
		repo:         repo,
		runner:       runner,
		taskManager:  taskManager,
		logger:       logger,
		applyTimeout: 30 * time.Second,
	}
}

// iterationTaskParams - параметры фоновой задачи генерации.
type iterationTaskParams struct {
	IterationID int64
	Prompt      string
	SketchPath  string
}

// CreateIteration проверяет вход, сохраняет итерацию со статусом processing
// и ставит фоновую задачу генерации. Возвращает созданную итерацию и ID задачи.
func (s *IterationService) CreateIteration(ctx context.Context, ownerID uuid.UUID, prompt string, sketchPath string) (model.DesignIteration, uuid.UUID, error) {
	if prompt == "" {
		return model.DesignIteration{}, uuid.Nil, fmt.Errorf("%w: пустой бриф", gateway.ErrInvalidInput)
	}
	if _, err := gateway.ValidateSketch(sketchPath); err != nil {
		return model.DesignIteration{}, uuid.Nil, err
	}

	iteration, err := s.repo.Create(ctx, model.DesignIteration{
		OwnerID:    ownerID,
		Prompt:     prompt,
		SketchPath: sketchPath,
		Status:     model.IterationStatusProcessing,
	})
	if err != nil {
		return model.DesignIteration{}, uuid.Nil, err
	}

	taskID, err := s.taskManager.SubmitTaskWithOwner(ctx, s.iterationTask, iterationTaskParams{
		IterationID: iteration.ID,
		Prompt:      prompt,
		SketchPath:  sketchPath,
	}, ownerID.String())
	if err != nil {
		// Задача не запустится, итерация не должна зависнуть в processing
		s.logger.Error("Failed to submit generation task, failing iteration",
			zap.Int64("iteration_id", iteration.ID),
			zap.Error(err),
		)
		s.markFailed(iteration.ID)
		return model.DesignIteration{}, uuid.Nil, fmt.Errorf("не удалось запустить задачу генерации: %w", err)
	}

	s.logger.Info("Iteration created",
		zap.Int64("iteration_id", iteration.ID),
		zap.String("owner_id", ownerID.String()),
		zap.String("task_id", taskID.String()),
	)

	return iteration, taskID, nil
}

// iterationTask - тело фоновой задачи. Терминальная запись гарантирована:
// если пайплайн или Apply не довели итерацию до конечного статуса
// (включая панику), deferred-блок помечает ее как failed.
func (s *IterationService) iterationTask(ctx context.Context, params interface{}) (result interface{}, err error) {
	taskParams, ok := params.(iterationTaskParams)
	if !ok {
		return nil, errors.New("некорректные параметры задачи генерации")
	}

	terminal := false
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Iteration task panicked",
				zap.Int64("iteration_id", taskParams.IterationID),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("внутренний сбой задачи генерации: %v", rec)
		}
		if !terminal {
			s.markFailed(taskParams.IterationID)
		}
	}()

	runResult := s.runner.Run(ctx, taskParams.Prompt, taskParams.SketchPath)

	if applyErr := s.Apply(ctx, taskParams.IterationID, runResult); applyErr != nil {
		return nil, applyErr
	}
	terminal = true

	if !runResult.Succeeded() {
		// Статус задачи отражает исход пайплайна
		return nil, fmt.Errorf("пайплайн завершился с ошибкой на этапе %s: %w", runResult.FailedStage, runResult.Err)
	}

	return map[string]interface{}{
		"iteration_id":        taskParams.IterationID,
		"generated_image_url": runResult.ImageURL,
	}, nil
}

// Apply записывает терминальный результат прогона пайплайна.
//
// Операция идемпотентна: если итерация уже не в статусе processing
// (например, задача выполнилась дважды), запись не применяется и это не ошибка.
func (s *IterationService) Apply(ctx context.Context, iterationID int64, runResult pipeline.Result) error {
	applyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.applyTimeout)
	defer cancel()

	var (
		applied bool
		err     error
	)
	if runResult.Succeeded() {
		applied, err = s.repo.Complete(applyCtx, iterationID, runResult.ImageURL, runResult.Narrative, runResult.ComplianceCheck)
	} else {
		s.logger.Warn("Pipeline run failed",
			zap.Int64("iteration_id", iterationID),
			zap.String("failed_stage", string(runResult.FailedStage)),
			zap.Error(runResult.Err),
		)
		applied, err = s.repo.Fail(applyCtx, iterationID)
	}
	if err != nil {
		return fmt.Errorf("ошибка терминальной записи итерации %d: %w", iterationID, err)
	}

	if !applied {
		// Итерация уже в терминальном статусе, повторная запись не выполняется
		s.logger.Warn("Terminal write skipped, iteration is not in processing status",
			zap.Int64("iteration_id", iterationID),
		)
		return nil
	}

	s.logger.Info("Iteration reached terminal status",
		zap.Int64("iteration_id", iterationID),
		zap.Bool("succeeded", runResult.Succeeded()),
	)
	return nil
}

// markFailed помечает итерацию как failed вне контекста запроса.
// Ошибки только логируются: это последняя линия обороны.
func (s *IterationService) markFailed(iterationID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.applyTimeout)
	defer cancel()

	applied, err := s.repo.Fail(ctx, iterationID)
	if err != nil {
		s.logger.Error("Failed to mark iteration as failed",
			zap.Int64("iteration_id", iterationID),
			zap.Error(err),
		)
		return
	}
	if applied {
		s.logger.Info("Iteration marked as failed", zap.Int64("iteration_id", iterationID))
	}
}

// GetIteration возвращает итерацию пользователя.
// Чужая или отсутствующая итерация неразличимы для вызывающего.
func (s *IterationService) GetIteration(ctx context.Context, ownerID uuid.UUID, iterationID int64) (model.DesignIteration, error) {
	iteration, err := s.repo.GetByID(ctx, iterationID)
	if err != nil {
		return model.DesignIteration{}, err
	}

	if iteration.OwnerID != ownerID {
		return model.DesignIteration{}, ErrIterationNotFound
	}

	return iteration, nil
}

// ListIterations возвращает итерации пользователя, новые сначала.
func (s *IterationService) ListIterations(ctx context.Context, ownerID uuid.UUID) ([]model.DesignIteration, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}
