// Package taskmanager управляет фоновыми задачами в пределах процесса.
// Задача выполняется в собственной горутине и получает независимый контекст:
// завершение HTTP запроса, породившего задачу, ее не прерывает.
package taskmanager

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ITaskManager определяет интерфейс для управления задачами
type ITaskManager interface {
	SubmitTask(ctx context.Context, taskFunc TaskFunc, params interface{}) (uuid.UUID, error)
	SubmitTaskWithOwner(ctx context.Context, taskFunc TaskFunc, params interface{}, ownerID string) (uuid.UUID, error)
	GetTask(taskID uuid.UUID) (*Task, error)
	Shutdown(ctx context.Context) error
	CleanupTasks(age time.Duration)
}

// Task представляет асинхронную задачу
type Task struct {
	ID        uuid.UUID
	OwnerID   string
	Status    TaskStatus
	Message   string
	Result    interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskStatus представляет статус задачи
type TaskStatus string

// Возможные статусы задач. Отмена задач не поддерживается:
// запущенная задача всегда доходит до completed или failed.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskFunc представляет функцию, выполняемую в задаче
type TaskFunc func(ctx context.Context, params interface{}) (interface{}, error)

// Config содержит конфигурацию для TaskManager
type Config struct {
	MaxTasks int
}

// TaskManager управляет асинхронными задачами
type TaskManager struct {
	tasks    map[uuid.UUID]*Task
	mu       sync.RWMutex
	maxTasks int
	closing  chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

// New создает новый экземпляр TaskManager
func New(cfg Config) (*TaskManager, error) {
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 10
	}

	return &TaskManager{
		tasks:    make(map[uuid.UUID]*Task),
		maxTasks: maxTasks,
		closing:  make(chan struct{}),
	}, nil
}

var _ ITaskManager = (*TaskManager)(nil)

// SubmitTask создает и запускает новую задачу
func (tm *TaskManager) SubmitTask(ctx context.Context, taskFunc TaskFunc, params interface{}) (uuid.UUID, error) {
	return tm.SubmitTaskWithOwner(ctx, taskFunc, params, "")
}

// SubmitTaskWithOwner создает и запускает новую задачу с указанием владельца
func (tm *TaskManager) SubmitTaskWithOwner(ctx context.Context, taskFunc TaskFunc, params interface{}, ownerID string) (uuid.UUID, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.closed {
		return uuid.UUID{}, errors.New("менеджер задач остановлен")
	}

	// Проверка лимита активных задач (под блокировкой)
	activeTasks := 0
	for _, task := range tm.tasks {
		if task.Status == TaskStatusPending || task.Status == TaskStatusRunning {
			activeTasks++
		}
	}
	if activeTasks >= tm.maxTasks {
		return uuid.UUID{}, errors.New("превышено максимальное количество активных задач")
	}

	taskID := uuid.New()

	// Задача живет в независимом контексте, наследуется только логгер zerolog
	taskLogger := log.Ctx(ctx)
	taskCtx := taskLogger.WithContext(context.Background())

	task := &Task{
		ID:        taskID,
		OwnerID:   ownerID,
		Status:    TaskStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	tm.tasks[taskID] = task

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		tm.runTask(taskCtx, task, taskFunc, params)
	}()

	return taskID, nil
}

// runTask выполняет задачу и обновляет ее статус
func (tm *TaskManager) runTask(ctx context.Context, task *Task, taskFunc TaskFunc, params interface{}) {
	tm.updateTaskStatus(ctx, task, TaskStatusRunning, "Задача запущена", nil)

	// Паника внутри задачи не роняет процесс, задача помечается как failed
	defer func() {
		if rec := recover(); rec != nil {
			log.Ctx(ctx).Error().
				Str("taskID", task.ID.String()).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Паника при выполнении задачи")
			tm.updateTaskStatus(ctx, task, TaskStatusFailed, fmt.Sprintf("Паника: %v", rec), nil)
		}
	}()

	result, err := taskFunc(ctx, params)

	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("taskID", task.ID.String()).Msg("Задача завершилась с ошибкой")
		tm.updateTaskStatus(ctx, task, TaskStatusFailed, fmt.Sprintf("Ошибка: %v", err), nil)
		return
	}

	log.Ctx(ctx).Info().Str("taskID", task.ID.String()).Msg("Задача успешно выполнена")
	tm.updateTaskStatus(ctx, task, TaskStatusCompleted, "Задача успешно выполнена", result)
}

// updateTaskStatus обновляет статус задачи
func (tm *TaskManager) updateTaskStatus(ctx context.Context, task *Task, status TaskStatus, message string, result interface{}) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task.Status = status
	task.Message = message
	task.UpdatedAt = time.Now()
	if result != nil {
		task.Result = result
	}

	log.Ctx(ctx).Info().
		Str("taskID", task.ID.String()).
		Str("newStatus", string(task.Status)).
		Str("message", task.Message).
		Msg("Статус задачи обновлен")
}

// GetTask возвращает снимок состояния задачи по ID
func (tm *TaskManager) GetTask(taskID uuid.UUID) (*Task, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, ok := tm.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("задача с ID %s не найдена", taskID)
	}

	snapshot := *task
	return &snapshot, nil
}

// Shutdown прекращает прием новых задач и ожидает завершения запущенных.
// Запущенные задачи не прерываются: они должны дойти до терминального статуса.
func (tm *TaskManager) Shutdown(ctx context.Context) error {
	tm.mu.Lock()
	if !tm.closed {
		tm.closed = true
		close(tm.closing)
	}
	tm.mu.Unlock()

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("таймаут при ожидании завершения задач")
	}
}

// CleanupTasks удаляет завершенные задачи, которые старше указанного времени
func (tm *TaskManager) CleanupTasks(age time.Duration) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	for id, task := range tm.tasks {
		if (task.Status == TaskStatusCompleted || task.Status == TaskStatusFailed) &&
			now.Sub(task.UpdatedAt) > age {
			delete(tm.tasks, id)
		}
	}
}

// StartCleanup запускает периодическую очистку завершенных задач.
// Останавливается при Shutdown.
func (tm *TaskManager) StartCleanup(interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tm.CleanupTasks(retention)
			case <-tm.closing:
				return
			}
		}
	}()
}
