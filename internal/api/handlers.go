// Package api содержит HTTP обработчики итераций дизайна и фоновых задач.
package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"architect-assistant/internal/auth"
	"architect-assistant/internal/config"
	"architect-assistant/internal/gateway"
	"architect-assistant/internal/service"
	"architect-assistant/pkg/taskmanager"
)

// Handler обрабатывает запросы к итерациям дизайна.
type Handler struct {
	iterations  *service.IterationService
	taskManager taskmanager.ITaskManager
	uploads     config.UploadsConfig
	logger      *zap.Logger
}

// NewHandler создает новый Handler.
func NewHandler(
	iterations *service.IterationService,
	taskManager taskmanager.ITaskManager,
	uploads config.UploadsConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		iterations:  iterations,
		taskManager: taskManager,
		uploads:     uploads,
		logger:      logger,
	}
}

// RegisterRoutes регистрирует защищенные маршруты итераций и задач.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	protected := rg.Group("", authMiddleware)
	{
		protected.POST("/iterations", h.CreateIteration)
		protected.GET("/iterations", h.ListIterations)
		protected.GET("/iterations/:id", h.GetIteration)
		protected.GET("/tasks/:id", h.GetTask)
	}
}

// taskResponse - представление фоновой задачи в API.
type taskResponse struct {
	ID        uuid.UUID   `json:"id"`
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

// CreateIteration обрабатывает POST /api/iterations.
// Принимает multipart форму с полями prompt и sketch, отвечает 202 Accepted:
// генерация выполняется в фоне.
func (h *Handler) CreateIteration(c *gin.Context) {
	ownerID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	prompt := strings.TrimSpace(c.PostForm("prompt"))
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "поле prompt обязательно"})
		return
	}

	fileHeader, err := c.FormFile("sketch")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "файл sketch обязателен"})
		return
	}

	if fileHeader.Size > int64(h.uploads.MaxSizeMB)*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "файл скетча слишком большой"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "скетч должен быть PNG или JPEG"})
		return
	}

	// Имя файла не зависит от пользовательского ввода
	sketchPath := filepath.Join(h.uploads.Dir, uuid.New().String()+ext)
	if err := c.SaveUploadedFile(fileHeader, sketchPath); err != nil {
		h.logger.Error("Failed to save uploaded sketch", zap.String("path", sketchPath), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось сохранить скетч"})
		return
	}

	iteration, taskID, err := h.iterations.CreateIteration(c.Request.Context(), ownerID, prompt, sketchPath)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to create iteration", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"iteration": iteration,
		"task_id":   taskID,
	})
}

// ListIterations обрабатывает GET /api/iterations.
func (h *Handler) ListIterations(c *gin.Context) {
	ownerID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	iterations, err := h.iterations.ListIterations(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list iterations", zap.String("owner_id", ownerID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
		return
	}

	c.JSON(http.StatusOK, iterations)
}

// GetIteration обрабатывает GET /api/iterations/:id.
// Чужая итерация выглядит как отсутствующая.
func (h *Handler) GetIteration(c *gin.Context) {
	ownerID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	iterationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный ID итерации"})
		return
	}

	iteration, err := h.iterations.GetIteration(c.Request.Context(), ownerID, iterationID)
	if err != nil {
		if errors.Is(err, service.ErrIterationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "итерация не найдена"})
			return
		}
		h.logger.Error("Failed to get iteration", zap.Int64("iteration_id", iterationID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
		return
	}

	c.JSON(http.StatusOK, iteration)
}

// GetTask обрабатывает GET /api/tasks/:id.
func (h *Handler) GetTask(c *gin.Context) {
	ownerID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный ID задачи"})
		return
	}

	task, err := h.taskManager.GetTask(taskID)
	if err != nil || task.OwnerID != ownerID.String() {
		c.JSON(http.StatusNotFound, gin.H{"error": "задача не найдена"})
		return
	}

	c.JSON(http.StatusOK, taskResponse{
		ID:        task.ID,
		Status:    string(task.Status),
		Message:   task.Message,
		Result:    task.Result,
		CreatedAt: task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: task.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// currentUserID достает ID пользователя, положенный auth middleware.
func (h *Handler) currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rawUserID := c.GetString(auth.UserIDKey)
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		h.logger.Error("Invalid user id in request context", zap.String("user_id", rawUserID))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "невалидный токен"})
		return uuid.Nil, false
	}
	return userID, true
}
