package service_test

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"architect-assistant/internal/gateway"
	"architect-assistant/internal/mocks"
	"architect-assistant/internal/model"
	"architect-assistant/internal/pipeline"
	"architect-assistant/internal/service"
	"architect-assistant/pkg/taskmanager"
)

// writeTestSketch создает валидный PNG файл для проверки скетча.
func writeTestSketch(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sketch.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(0, 0, color.White)
	require.NoError(t, png.Encode(f, img))

	return path
}

func newTaskManager(t *testing.T) *taskmanager.TaskManager {
	t.Helper()
	tm, err := taskmanager.New(taskmanager.Config{MaxTasks: 5})
	require.NoError(t, err)
	return tm
}

func TestCreateIteration_EmptyPrompt(t *testing.T) {
	repo := mocks.NewMockIterationRepository(t)
	runner := mocks.NewMockPipelineRunner(t)
	svc := service.NewIterationService(repo, runner, newTaskManager(t), zap.NewNop())

	_, _, err := svc.CreateIteration(context.Background(), uuid.New(), "", writeTestSketch(t))

	assert.ErrorIs(t, err, gateway.ErrInvalidInput)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateIteration_UnreadableSketch(t *testing.T) {
	repo := mocks.NewMockIterationRepository(t)
	runner := mocks.NewMockPipelineRunner(t)
	svc := service.NewIterationService(repo, runner, newTaskManager(t), zap.NewNop())

	badSketch := filepath.Join(t.TempDir(), "sketch.png")
	require.NoError(t, os.WriteFile(badSketch, []byte("not an image"), 0o644))

	_, _, err := svc.CreateIteration(context.Background(), uuid.New(), "A small cabin", badSketch)

	assert.ErrorIs(t, err, gateway.ErrInvalidInput)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateIteration_HappyPath(t *testing.T) {
	repo := mocks.NewMockIterationRepository(t)
	runner := mocks.NewMockPipelineRunner(t)
	tm := newTaskManager(t)
	svc := service.NewIterationService(repo, runner, tm, zap.NewNop())

	ownerID := uuid.New()
	sketchPath := writeTestSketch(t)

	created := model.DesignIteration{
		ID:         7,
		OwnerID:    ownerID,
		Prompt:     "A small cabin",
		SketchPath: sketchPath,
		Status:     model.IterationStatusProcessing,
	}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(it model.DesignIteration) bool {
		return it.OwnerID == ownerID && it.Prompt == "A small cabin" && it.Status == model.IterationStatusProcessing
	})).Return(created, nil).Once()

	runner.On("Run", mock.Anything, "A small cabin", sketchPath).
		Return(pipeline.Result{
			ImageURL:        "https://images.example.com/cabin.png",
			Narrative:       "Compact cabin.",
			ComplianceCheck: "Snow load.",
		}).Once()
	repo.On("Complete", mock.Anything, int64(7), "https://images.example.com/cabin.png", "Compact cabin.", "Snow load.").
		Return(true, nil).Once()

	iteration, taskID, err := svc.CreateIteration(context.Background(), ownerID, "A small cabin", sketchPath)
	require.NoError(t, err)
	assert.Equal(t, int64(7), iteration.ID)
	assert.NotEqual(t, uuid.Nil, taskID)

	// Фоновая задача должна дойти до completed
	require.Eventually(t, func() bool {
		task, err := tm.GetTask(taskID)
		return err == nil && task.Status == taskmanager.TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	repo.AssertExpectations(t)
	runner.AssertExpectations(t)
}

func TestCreateIteration_PipelineFailureMarksIterationFailed(t *testing.T) {
	repo := mocks.NewMockIterationRepository(t)
	runner := mocks.NewMockPipelineRunner(t)
	tm := newTaskManager(t)
	svc := service.NewIterationService(repo, runner, tm, zap.NewNop())

	ownerID := uuid.New()
	sketchPath := writeTestSketch(t)

	repo.On("Create", mock.Anything, mock.Anything).
		Return(model.DesignIteration{ID: 11, OwnerID: ownerID, Status: model.IterationStatusProcessing}, nil).Once()
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(pipeline.Result{
			FailedStage: pipeline.StageImage,
			Err:         gateway.ErrUpstream,
		}).Once()
	repo.On("Fail", mock.Anything, int64(11)).Return(true, nil).Once()

	_, taskID, err := svc.CreateIteration(context.Background(), ownerID, "A small cabin", sketchPath)
	require.NoError(t, err)

	// Статус задачи отражает исход пайплайна
	require.Eventually(t, func() bool {
		task, err := tm.GetTask(taskID)
		return err == nil && task.Status == taskmanager.TaskStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateIteration_SubmitFailureFailsIteration(t *testing.T) {
	repo := mocks.NewMockIterationRepository(t)
	runner := mocks.NewMockPipelineRunner(t)
	tm := newTaskManager(t)
	svc := service.NewIterationService(repo, runner, tm, zap.NewNop())

	// Остановленный менеджер задач отклоняет новые задачи
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tm.Shutdown(shutdownCtx))

	ownerID := uuid.New()
	sketchPath := writeTestSketch(t)

	repo.On("Create", mock.Anything, mock.Anything).
		Return(model.DesignIteration{ID: 3, OwnerID: ownerID, Status: model.IterationStatusProcessing}, nil).Once()
	repo.On("Fail", mock.Anything, int64(3)).Return(true, nil).Once()

	_, _, err := svc.CreateIteration(context.Background(), ownerID, "A small cabin", sketchPath)

	assert.Error(t, err)
	repo.AssertExpectations(t)
}

func TestApply_Success(t *testing.T) {
	repo := mocks.NewMockIterationRepository(t)
	runner := mocks.NewMockPipelineRunner(t)
	svc := service.NewIterationService(repo, runner, newTaskManager(t), zap.NewNop())

	repo.On("Complete", mock.Anything, int64(1), "url", "n", "c").Return(true, nil).Once()

	err := svc.Apply(context.Background(), 1, pipeline.Result{
		ImageURL:        "url",
		Narrative:       "n",
		ComplianceCheck: "c",
	})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestApply_FailureWritesFailedStatus(t *testing.T) {
	repo := mocks.NewMockIterationRepository(t)
	runner := mocks.NewMockPipelineRunner(t)
	svc := service.NewIterationService(repo, runner, newTaskManager(t), zap.NewNop())

	repo.On("Fail", mock.Anything, int64(2)).Return(true, nil).Once()

	err := svc.Apply(context.Background(), 2, pipeline.Result{
		FailedStage: pipeline.StageVision,
		Err:         gateway.ErrUpstream,
	})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApply_IsIdempotent(t *testing.T) {
	repo := mocks.NewMockIterationRepository(t)
	runner := mocks.NewMockPipelineRunner(t)
	svc := service.NewIterationService(repo, runner, newTaskManager(t), zap.NewNop())

	// Итерация уже в терминальном статусе: запись не применяется и это не ошибка
	repo.On("Complete", mock.Anything, int64(1), "url", "n", "c").Return(false, nil).Twice()

	result := pipeline.Result{ImageURL: "url", Narrative: "n", ComplianceCheck: "c"}
	assert.NoError(t, svc.Apply(context.Background(), 1, result))
	assert.NoError(t, svc.Apply(context.Background(), 1, result))

	repo.AssertExpectations(t)
}

func TestGetIteration_OtherOwnerLooksAbsent(t *testing.T) {
	repo := mocks.NewMockIterationRepository(t)
	runner := mocks.NewMockPipelineRunner(t)
	svc := service.NewIterationService(repo, runner, newTaskManager(t), zap.NewNop())

	repo.On("GetByID", mock.Anything, int64(5)).
		Return(model.DesignIteration{ID: 5, OwnerID: uuid.New()}, nil).Once()

	_, err := svc.GetIteration(context.Background(), uuid.New(), 5)

	assert.ErrorIs(t, err, service.ErrIterationNotFound)
}
